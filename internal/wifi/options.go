package wifi

import (
	"fmt"

	"github.com/ray10k/raspberry-wifi-conf/internal/config"
)

// FailurePolicy decides what a failed service step does to a pipeline.
type FailurePolicy int

const (
	// PolicyContinue logs service failures and carries on.
	PolicyContinue FailurePolicy = iota
	// PolicyAbort stops the pipeline at the first failed step.
	PolicyAbort
)

func (p FailurePolicy) String() string {
	if p == PolicyAbort {
		return config.OnFailureAbort
	}
	return config.OnFailureContinue
}

// ParseFailurePolicy maps "continue" and "abort" to a policy.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", config.OnFailureContinue:
		return PolicyContinue, nil
	case config.OnFailureAbort:
		return PolicyAbort, nil
	}
	return PolicyContinue, fmt.Errorf("unknown failure policy %q", s)
}

// AccessPoint describes the setup network.
type AccessPoint struct {
	SSID             string
	Passphrase       string
	IPAddr           string
	Netmask          string
	SubnetRangeStart string
	SubnetRangeEnd   string
	Channel          int
	ForceReconfigure bool
}

// Paths are the config files rewritten on every transition.
type Paths struct {
	DHCPCD  string
	DNSMasq string
	Hostapd string
}

// Services names the system units controlled during transitions.
type Services struct {
	DHCPClient string
	DNSServer  string
	APDaemon   string
}

// Options is the immutable configuration of a Manager.
type Options struct {
	Interface     string
	AccessPoint   AccessPoint
	Paths         Paths
	Services      Services
	FailurePolicy FailurePolicy
}

// OptionsFromConfig builds Options from a loaded, validated config.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	policy, err := ParseFailurePolicy(cfg.Services.OnFailure)
	if err != nil {
		return Options{}, err
	}
	ap := cfg.AccessPoint
	return Options{
		Interface: cfg.WifiInterface,
		AccessPoint: AccessPoint{
			SSID:             ap.SSID,
			Passphrase:       ap.Passphrase,
			IPAddr:           ap.IPAddr,
			Netmask:          ap.Netmask,
			SubnetRangeStart: ap.SubnetRangeStart,
			SubnetRangeEnd:   ap.SubnetRangeEnd,
			Channel:          ap.Channel,
			ForceReconfigure: ap.ForceReconfigure,
		},
		Paths: Paths{
			DHCPCD:  cfg.Paths.DHCPCD,
			DNSMasq: cfg.Paths.DNSMasq,
			Hostapd: cfg.Paths.Hostapd,
		},
		Services: Services{
			DHCPClient: cfg.Services.DHCPClient,
			DNSServer:  cfg.Services.DNSServer,
			APDaemon:   cfg.Services.APDaemon,
		},
		FailurePolicy: policy,
	}, nil
}
