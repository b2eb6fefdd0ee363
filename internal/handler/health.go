package handler

import "net/http"

// HandleHealth is the liveness probe.
//
// HTTP: GET /healthz
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
