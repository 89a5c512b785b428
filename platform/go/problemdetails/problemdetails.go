// Package problemdetails renders RFC 7807 problem documents.
package problemdetails

import (
	"encoding/json"
	"net/http"
)

// ContentType is the media type of every problem response.
const ContentType = "application/problem+json"

// Problem type URIs shared by the HTTP handlers.
const (
	TypeValidation   = "https://botecopro.com.br/problems/validation-error"
	TypeBadRequest   = "https://botecopro.com.br/problems/bad-request"
	TypeNotFound     = "https://botecopro.com.br/problems/not-found"
	TypeConflict     = "https://botecopro.com.br/problems/conflict"
	TypeUpstream     = "https://botecopro.com.br/problems/upstream-error"
	TypeUnavailable  = "https://botecopro.com.br/problems/service-unavailable"
	TypeUnauthorized = "https://botecopro.com.br/problems/unauthorized"
	TypeInternal     = "https://botecopro.com.br/problems/internal-error"
)

type ProblemDetails struct {
	Type   *string              `json:"type,omitempty"`
	Title  string               `json:"title"`
	Status int                  `json:"status"`
	Detail *string              `json:"detail,omitempty"`
	Errors *map[string][]string `json:"errors,omitempty"`
}

// New builds a problem. Empty detail and problemType are omitted from the document.
func New(title, detail, problemType string, status int, fieldErrors map[string][]string) ProblemDetails {
	problem := ProblemDetails{
		Title:  title,
		Status: status,
	}

	if detail != "" {
		problem.Detail = &detail
	}
	if problemType != "" {
		problem.Type = &problemType
	}

	if len(fieldErrors) > 0 {
		copied := make(map[string][]string, len(fieldErrors))
		for field, messages := range fieldErrors {
			copied[field] = append([]string(nil), messages...)
		}
		problem.Errors = &copied
	}

	return problem
}

// Write sends problem with its status code.
func Write(w http.ResponseWriter, problem ProblemDetails) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}

// WriteStatus is a shorthand for middleware that only knows a status and a detail.
func WriteStatus(w http.ResponseWriter, _ *http.Request, status int, detail string) {
	Write(w, New(http.StatusText(status), detail, typeForStatus(status), status, nil))
}

func typeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return TypeBadRequest
	case http.StatusUnauthorized:
		return TypeUnauthorized
	case http.StatusNotFound:
		return TypeNotFound
	case http.StatusConflict:
		return TypeConflict
	case http.StatusUnprocessableEntity:
		return TypeValidation
	case http.StatusBadGateway:
		return TypeUpstream
	case http.StatusServiceUnavailable:
		return TypeUnavailable
	default:
		return TypeInternal
	}
}
