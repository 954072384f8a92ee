package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys. The key is also the English text.
const (
	MsgInvalidBody     = "invalid request body: %v"
	MsgRateLimited     = "too many requests, retry in %d seconds"
	MsgAuditDisabled   = "audit log is disabled"
	MsgInvalidLimit    = "invalid limit %q"
	MsgMissingSSIDs    = "wifi_ssids is required"
	MsgStationFallback = "station mode failed, access point restored"
	MsgFallbackFailed  = "station mode failed and the access point could not be restored"
	MsgInvalidMode     = "invalid mode %q, want ap or station"

	// Command line.
	MsgConfigValid   = "Configuration valid: %s"
	MsgCurrentMode   = "Mode: %s"
	MsgUpToDate      = "%s is up to date"
	MsgNoNetworks    = "No saved networks"
	MsgCommandFailed = "%s failed: %v"
)

var german = map[string]string{
	MsgInvalidBody:     "ungültiger Request-Body: %v",
	MsgRateLimited:     "zu viele Anfragen, erneut versuchen in %d Sekunden",
	MsgAuditDisabled:   "Audit-Protokoll ist deaktiviert",
	MsgInvalidLimit:    "ungültiges Limit %q",
	MsgMissingSSIDs:    "wifi_ssids fehlt",
	MsgStationFallback: "WLAN-Verbindung fehlgeschlagen, Access Point wiederhergestellt",
	MsgFallbackFailed:  "WLAN-Verbindung fehlgeschlagen und der Access Point konnte nicht wiederhergestellt werden",
	MsgInvalidMode:     "ungültiger Modus %q, erwartet ap oder station",

	MsgConfigValid:   "Konfiguration gültig: %s",
	MsgCurrentMode:   "Modus: %s",
	MsgUpToDate:      "%s ist aktuell",
	MsgNoNetworks:    "Keine gespeicherten Netzwerke",
	MsgCommandFailed: "%s fehlgeschlagen: %v",
}

func init() {
	for key, msg := range german {
		message.SetString(language.German, key, msg)
	}
}
