package sessions

import (
	"encoding/json"
	"net/http"

	"github.com/monynha/botecopro/domains/onboarding/be/service"
)

// Envelope is the body returned by every wizard and auth endpoint.
type Envelope struct {
	SessionID string           `json:"sessionId"`
	Route     service.Route    `json:"route"`
	Session   *service.Session `json:"session"`
}

// WriteEnvelope echoes the session id header and writes the envelope as JSON.
func WriteEnvelope(w http.ResponseWriter, status int, s *service.Session, route service.Route) {
	w.Header().Set(HeaderName, s.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{SessionID: s.ID, Route: route, Session: s})
}
