package storefront

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bluescreen10/shopx"
	"github.com/bluescreen10/shopx/backend"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
	Retry bool   `json:"retry,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeBodyError answers a request whose body could not be bound. err may be
// nil when the body parsed but failed validation; an empty msg falls back
// to the parse error.
func writeBodyError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, shopx.ErrBodyTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	if msg == "" && err != nil {
		msg = err.Error()
	}
	writeError(w, http.StatusBadRequest, msg)
}

// writeBackendError turns a failed backend call into a response the views
// can render: transient failures come back as 502 with retry set, backend
// rejections keep their status.
func (s *Server) writeBackendError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *backend.APIError
	switch {
	case r.Context().Err() != nil && errors.Is(err, r.Context().Err()):
		s.logger.Debug("client went away", zap.String("path", r.URL.Path), zap.Error(err))
	case backend.IsTransient(err):
		s.logger.Warn("backend unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "the shop is temporarily unavailable", Retry: true})
	case errors.Is(err, backend.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &apiErr):
		msg := apiErr.Body
		if msg == "" {
			msg = http.StatusText(apiErr.Status)
		}
		writeError(w, apiErr.Status, msg)
	default:
		s.logger.Error("backend call failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "unexpected backend response")
	}
}
