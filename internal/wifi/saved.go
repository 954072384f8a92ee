package wifi

import (
	"context"
	"fmt"

	"github.com/ray10k/raspberry-wifi-conf/internal/supplicant"
)

// ListSaved returns the SSIDs of the known networks in priority order.
func (m *Manager) ListSaved(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	m.recordSaved(len(creds))
	return supplicant.SSIDs(creds), nil
}

// ForgetSaved removes every known network.
func (m *Manager) ForgetSaved(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := m.newReport(ctx, OpForgetSaved, m.opts.Interface)
	err := m.runPipeline(ctx, report, []step{
		{name: StepSaveCredentials, fatal: true, run: func(ctx context.Context) error {
			if err := m.store.ForgetAll(ctx); err != nil {
				return err
			}
			m.recordSaved(0)
			return nil
		}},
	})
	return m.finish(report, err)
}

// ReorderSaved moves the SSIDs in order to the front of the list, saves it
// and cycles the managed interface so the supplicant picks up the new
// priorities. It returns the resulting order.
func (m *Manager) ReorderSaved(ctx context.Context, order []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := m.newReport(ctx, OpReorderSaved, m.opts.Interface)

	var result []string
	steps := []step{
		{name: StepSaveCredentials, fatal: true, run: func(ctx context.Context) error {
			reordered, err := m.store.Update(ctx, func(existing []supplicant.Credential) ([]supplicant.Credential, error) {
				out, err := supplicant.Reorder(existing, order)
				if err != nil {
					return nil, fmt.Errorf("%w: %w", ErrValidation, err)
				}
				return out, nil
			})
			if err != nil {
				return err
			}
			result = supplicant.SSIDs(reordered)
			m.recordSaved(len(reordered))
			return nil
		}},
	}
	steps = append(steps, m.rebootSteps(m.opts.Interface, false)...)

	if err := m.finish(report, m.runPipeline(ctx, report, steps)); err != nil {
		return nil, err
	}
	return result, nil
}
