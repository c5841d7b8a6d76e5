package mqttsub

import (
	"encoding/json"
	"net/http"
)

// TelemetryHandler returns a http.Handler that exposes the client and session information
func (c *Client) TelemetryHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(c.clientInfo())
	})
}
