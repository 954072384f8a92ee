package api

import (
	"net/http"
	"strconv"

	"github.com/ray10k/raspberry-wifi-conf/internal/i18n"
	"github.com/ray10k/raspberry-wifi-conf/internal/logging"
	"github.com/ray10k/raspberry-wifi-conf/internal/network"
	"github.com/ray10k/raspberry-wifi-conf/internal/scheduler"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// parseLimit reads ?limit=, clamped to maxListLimit.
func parseLimit(r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultListLimit, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return min(n, maxListLimit), true
}

// handleAudit returns recent transitions, newest first. ?operation= filters
// by operation name.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		WriteErrorCtx(w, r, http.StatusServiceUnavailable, i18n.MsgAuditDisabled)
		return
	}
	limit, ok := parseLimit(r)
	if !ok {
		WriteErrorCtx(w, r, http.StatusBadRequest, i18n.MsgInvalidLimit, r.URL.Query().Get("limit"))
		return
	}

	events, err := s.audit.Query(r.Context(), r.URL.Query().Get("operation"), limit)
	if err != nil {
		writeOperationError(w, err, nil)
		return
	}
	WriteSuccess(w, map[string]any{"events": events})
}

// handleLogs returns the most recent in-memory log entries, oldest first.
// ?source= filters by component.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		WriteErrorCtx(w, r, http.StatusBadRequest, i18n.MsgInvalidLimit, r.URL.Query().Get("limit"))
		return
	}

	var entries []logging.AppLogEntry
	if source := r.URL.Query().Get("source"); source != "" {
		entries = s.logs.GetBySource(source, 0)
		if len(entries) > limit {
			entries = entries[len(entries)-limit:]
		}
	} else {
		entries = s.logs.GetLast(limit)
	}
	if entries == nil {
		entries = []logging.AppLogEntry{}
	}
	WriteSuccess(w, map[string]any{"entries": entries})
}

// handleDiff previews the config files a transition would write.
// ?mode= is ap or station.
func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("mode")
	mode, err := network.ParseMode(name)
	if err != nil || mode == network.ModeDisabled {
		WriteErrorCtx(w, r, http.StatusBadRequest, i18n.MsgInvalidMode, name)
		return
	}

	diffs, err := s.wifi.Diff(r.Context(), mode)
	if err != nil {
		writeOperationError(w, err, nil)
		return
	}
	WriteSuccess(w, map[string]any{"mode": mode.String(), "files": diffs})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	tasks := []scheduler.TaskStatus{}
	if s.tasks != nil {
		tasks = s.tasks.Status()
	}
	WriteSuccess(w, map[string]any{"tasks": tasks})
}
