// Package api implements the REST API used to configure the device while it
// serves its setup access point.
//
// # Overview
//
// Every route maps onto one [WifiService] operation. Responses carry a
// "status" field of "SUCCESS" or "ERROR"; errors add an "error" field with
// the description. Validation failures answer 400, everything else 500.
//
// # Request Flow
//
//	HTTP Request → requestID → i18n → accessLog/metrics → maxBody → ServeMux → handler → wifi.Manager
//
// Mode-changing routes are rate limited per client IP and publish their
// transition report on the "report" topic of the websocket at /api/ws.
//
// # Station fallback
//
// A failed POST /api/enable_wifi re-enables the access point before
// answering, so the operator can reach the device again.
package api
