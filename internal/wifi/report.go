package wifi

import (
	"context"
	"time"

	"github.com/ray10k/raspberry-wifi-conf/internal/audit"
)

// Operation names used in reports, logs and metrics.
const (
	OpEnableAccessPoint = "enable_ap"
	OpEnableStation     = "enable_station"
	OpShutdown          = "shutdown"
	OpReboot            = "reboot"
	OpForgetSaved       = "forget_saved"
	OpReorderSaved      = "reorder_saved"
)

// Step names.
const (
	StepSaveCredentials   = "save_credentials"
	StepWriteDHCPCD       = "write_dhcpcd_config"
	StepWriteDNSMasq      = "write_dnsmasq_config"
	StepWriteHostapd      = "write_hostapd_config"
	StepRestartDHCPClient = "restart_dhcp_client"
	StepRestartAPDaemon   = "restart_ap_daemon"
	StepRestartDNSServer  = "restart_dns_server"
	StepStopAPDaemon      = "stop_ap_daemon"
	StepStopDNSServer     = "stop_dns_server"
	StepLinkDown          = "link_down"
	StepLinkUp            = "link_up"
	StepReconfigureWPA    = "reconfigure_supplicant"
)

// StepResult is the outcome of one pipeline step.
type StepResult struct {
	Name     string        `json:"name"`
	Outcome  string        `json:"outcome"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report describes one operation run by the Manager.
type Report struct {
	Operation string        `json:"operation"`
	RequestID string        `json:"request_id,omitempty"`
	Interface string        `json:"interface"`
	Skipped   bool          `json:"skipped"`
	Outcome   string        `json:"outcome"`
	Error     string        `json:"error,omitempty"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration"`
	Steps     []StepResult  `json:"steps"`
}

// Failed returns the names of steps that did not succeed.
func (r *Report) Failed() []string {
	var out []string
	for _, s := range r.Steps {
		if s.Outcome != audit.OutcomeSuccess {
			out = append(out, s.Name)
		}
	}
	return out
}

func (r *Report) auditEvent() audit.Event {
	steps := make([]audit.Step, len(r.Steps))
	for i, s := range r.Steps {
		steps[i] = audit.Step{
			Name:       s.Name,
			Outcome:    s.Outcome,
			Error:      s.Error,
			DurationMS: s.Duration.Milliseconds(),
		}
	}
	return audit.Event{
		Timestamp:  r.Started,
		RequestID:  r.RequestID,
		Operation:  r.Operation,
		Interface:  r.Interface,
		Outcome:    r.Outcome,
		Error:      r.Error,
		DurationMS: r.Duration.Milliseconds(),
		Steps:      steps,
	}
}

type requestIDKey struct{}

// WithRequestID attaches a request ID that ends up in reports and the audit log.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID attached to ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
