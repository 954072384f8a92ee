package wifi

import (
	"context"
	"fmt"
	"time"

	"github.com/ray10k/raspberry-wifi-conf/internal/audit"
	"github.com/ray10k/raspberry-wifi-conf/internal/network"
)

// step is one unit of a transition pipeline. A fatal step stops the
// pipeline regardless of the failure policy.
type step struct {
	name  string
	fatal bool
	run   func(ctx context.Context) error
}

// runPipeline runs steps in order and appends their results to report.
func (m *Manager) runPipeline(ctx context.Context, report *Report, steps []step) error {
	for _, s := range steps {
		start := time.Now()
		err := s.run(ctx)
		res := StepResult{Name: s.name, Outcome: audit.OutcomeSuccess, Duration: time.Since(start)}

		if err == nil {
			report.Steps = append(report.Steps, res)
			m.logger.Debug("step finished", "step", s.name, "duration", res.Duration.Round(time.Millisecond))
			continue
		}

		res.Outcome = audit.OutcomeError
		res.Error = err.Error()
		report.Steps = append(report.Steps, res)
		if m.metrics != nil {
			m.metrics.RecordStepFailure(s.name)
		}

		if s.fatal || m.opts.FailurePolicy == PolicyAbort || network.IsLaunchFailure(err) {
			m.logger.Error("step failed", "step", s.name, "error", err)
			return fmt.Errorf("%s: %w", s.name, err)
		}
		m.logger.Warn("step failed, continuing", "step", s.name, "error", err, "policy", m.opts.FailurePolicy.String())
	}
	return nil
}
