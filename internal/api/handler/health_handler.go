package handler

import "net/http"

// HealthHandler serves the liveness probe endpoint. The manager connection
// state is reported but does not fail the probe: the service stays up and
// reconnects on its own.
type HealthHandler struct {
	managerLive func() bool
}

func NewHealthHandler(managerLive func() bool) *HealthHandler {
	return &HealthHandler{managerLive: managerLive}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	manager := "down"
	if h.managerLive() {
		manager = "up"
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"manager": manager,
	})
}
