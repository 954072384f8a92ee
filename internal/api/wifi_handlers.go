package api

import (
	"context"
	"net/http"

	"github.com/ray10k/raspberry-wifi-conf/internal/i18n"
	"github.com/ray10k/raspberry-wifi-conf/internal/wifi"
)

// Topics published on the event hub.
const (
	TopicReport = "report"
	TopicLogs   = "logs"
)

func (s *Server) handleWifiInfo(w http.ResponseWriter, r *http.Request) {
	mode, status, err := s.wifi.Mode(r.Context())
	if err != nil {
		writeOperationError(w, err, nil)
		return
	}
	WriteSuccess(w, map[string]any{
		"hw_addr":      status.HWAddr,
		"inet_addr":    status.InetAddr,
		"ap_addr":      status.APAddr,
		"ap_ssid":      status.APSSID,
		"unassociated": status.Unassociated,
		"mode":         mode.String(),
	})
}

func (s *Server) handleWifiConnected(w http.ResponseWriter, r *http.Request) {
	addr, err := s.wifi.StationAddress(r.Context())
	if err != nil {
		writeOperationError(w, err, nil)
		return
	}
	var address any
	if addr != "" {
		address = addr
	}
	WriteSuccess(w, map[string]any{"connected": addr != "", "address": address})
}

func (s *Server) handleInterfaceExists(w http.ResponseWriter, r *http.Request) {
	exists, err := s.wifi.InterfaceExists(r.Context(), s.wifi.Options().Interface)
	if err != nil {
		writeOperationError(w, err, nil)
		return
	}
	WriteSuccess(w, map[string]any{"exists": exists})
}

// transitionResponse writes the outcome of a transition and publishes the report.
func (s *Server) transitionResponse(w http.ResponseWriter, report *wifi.Report, err error, result string) {
	if report != nil {
		s.events.Publish(TopicReport, report)
	}
	if err != nil {
		writeOperationError(w, err, map[string]any{"report": report})
		return
	}
	WriteSuccess(w, map[string]any{"result": result, "report": report})
}

func (s *Server) handleEnableAP(w http.ResponseWriter, r *http.Request) {
	report, err := s.wifi.EnableAccessPoint(r.Context())
	s.transitionResponse(w, report, err, "AP enabled")
}

func (s *Server) handleEnableWifi(w http.ResponseWriter, r *http.Request) {
	report, err := s.wifi.EnableStation(r.Context(), wifi.ConnectionRequest{})
	s.transitionResponse(w, report, err, "Wifi enabled")
}

// handleConnectWifi switches to station mode with the posted network. On
// failure the access point is brought back so the device stays reachable;
// the fallback runs even if the client has gone away.
func (s *Server) handleConnectWifi(w http.ResponseWriter, r *http.Request) {
	var req wifi.ConnectionRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteErrorCtx(w, r, http.StatusBadRequest, i18n.MsgInvalidBody, err)
		return
	}

	report, err := s.wifi.EnableStation(r.Context(), req)
	if report != nil {
		s.events.Publish(TopicReport, report)
	}
	if err == nil {
		WriteSuccess(w, map[string]any{"result": "Wifi enabled", "report": report})
		return
	}

	// Nothing was changed by a rejected request.
	if statusFor(err) == http.StatusBadRequest {
		writeOperationError(w, err, map[string]any{"report": report})
		return
	}

	s.logger.Warn("station mode failed, re-enabling access point", "error", err)
	p := i18n.GetPrinter(r.Context())
	fallback, ferr := s.wifi.EnableAccessPoint(context.WithoutCancel(r.Context()))
	if fallback != nil {
		s.events.Publish(TopicReport, fallback)
	}
	extra := map[string]any{"report": report, "fallback": fallback}
	if ferr != nil {
		s.logger.Error("access point fallback failed", "error", ferr)
		extra["detail"] = p.Sprintf(i18n.MsgFallbackFailed)
	} else {
		extra["detail"] = p.Sprintf(i18n.MsgStationFallback)
	}
	writeOperationError(w, err, extra)
}

func (s *Server) handleDisableWifi(w http.ResponseWriter, r *http.Request) {
	report, err := s.wifi.Shutdown(r.Context(), s.wifi.Options().Interface)
	s.transitionResponse(w, report, err, "Wifi disabled")
}

func (s *Server) handleRebootWifi(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssignAddress bool `json:"assign_address"`
	}
	if err := decodeJSON(r, &req); err != nil {
		WriteErrorCtx(w, r, http.StatusBadRequest, i18n.MsgInvalidBody, err)
		return
	}
	report, err := s.wifi.Reboot(r.Context(), s.wifi.Options().Interface, req.AssignAddress)
	s.transitionResponse(w, report, err, "Wifi rebooted")
}

func (s *Server) handleListKnown(w http.ResponseWriter, r *http.Request) {
	ssids, err := s.wifi.ListSaved(r.Context())
	if err != nil {
		writeOperationError(w, err, nil)
		return
	}
	WriteSuccess(w, map[string]any{"wifi_ssids": nonNil(ssids)})
}

func (s *Server) handleForgetKnown(w http.ResponseWriter, r *http.Request) {
	if err := s.wifi.ForgetSaved(r.Context()); err != nil {
		writeOperationError(w, err, nil)
		return
	}
	WriteSuccess(w, nil)
}

func (s *Server) handleReorderKnown(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SSIDs []string `json:"wifi_ssids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		WriteErrorCtx(w, r, http.StatusBadRequest, i18n.MsgInvalidBody, err)
		return
	}
	if req.SSIDs == nil {
		WriteErrorCtx(w, r, http.StatusBadRequest, i18n.MsgMissingSSIDs)
		return
	}

	ssids, err := s.wifi.ReorderSaved(r.Context(), req.SSIDs)
	if err != nil {
		writeOperationError(w, err, nil)
		return
	}
	WriteSuccess(w, map[string]any{"wifi_ssids": nonNil(ssids)})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
