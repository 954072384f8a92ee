package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "audit.db"), 7, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_WriteQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Write(Event{
		RequestID: "req-1",
		Operation: "enable_ap",
		Interface: "wlan0",
		Outcome:   OutcomeSuccess,
		Steps: []Step{
			{Name: "write_dhcpcd_config", Outcome: OutcomeSuccess, DurationMS: 3},
			{Name: "restart_hostapd", Outcome: OutcomeError, Error: "exit status 1"},
		},
	}))
	require.NoError(t, s.Write(Event{
		Operation: "enable_station",
		Interface: "wlan0",
		Outcome:   OutcomeSkipped,
	}))

	all, err := s.Query(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "enable_station", all[0].Operation, "newest first")
	assert.Equal(t, "enable_ap", all[1].Operation)
	assert.Equal(t, "req-1", all[1].RequestID)
	require.Len(t, all[1].Steps, 2)
	assert.Equal(t, "exit status 1", all[1].Steps[1].Error)
	assert.False(t, all[1].Timestamp.IsZero())

	ap, err := s.Query(ctx, "enable_ap", 10)
	require.NoError(t, err)
	assert.Len(t, ap, 1)

	limited, err := s.Query(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStore_QueryEmpty(t *testing.T) {
	s := newTestStore(t)
	events, err := s.Query(context.Background(), "", 0)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestStore_Prune(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Write(Event{Timestamp: time.Now().AddDate(0, 0, -30), Operation: "reboot", Interface: "wlan0", Outcome: OutcomeSuccess}))
	require.NoError(t, s.Write(Event{Operation: "reboot", Interface: "wlan0", Outcome: OutcomeSuccess}))

	removed, err := s.Prune()
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
