package storefront

import (
	"net/http"
	"strings"

	"github.com/bluescreen10/shopx"
	"github.com/bluescreen10/shopx/backend"
	"go.uber.org/zap"
)

type redirectResponse struct {
	Redirect string `json:"redirect"`
}

// login authenticates against the backend and, on success, writes the
// session record and tells every open tab about it. A safe "redirect"
// query parameter, as set by the guard, is echoed back as the next page.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if !s.logins.allow(r) {
		writeError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		return
	}

	var req backend.LoginRequest
	if err := shopx.ParseBody(r, &req); err != nil || req.Email == "" || req.Password == "" {
		writeBodyError(w, err, "email and password are required")
		return
	}

	resp, err := s.api.Login(r.Context(), req)
	if err != nil {
		if backend.IsTransient(err) {
			s.writeBackendError(w, r, err)
			return
		}
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	rec := resp.Session()
	if strings.TrimSpace(string(rec.Role)) == "" {
		s.logger.Error("login response without role", zap.String("email", req.Email))
		writeError(w, http.StatusBadGateway, "unexpected login response")
		return
	}

	storage := shopx.StorageFrom(r)
	if err := shopx.SaveSession(storage, rec); err != nil {
		s.logger.Error("failed to save session", zap.String("client", storage.Client()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not start the session")
		return
	}
	s.events.Notify(storage.Client(), shopx.SourceLogin)

	writeJSON(w, http.StatusOK, redirectResponse{Redirect: nextPage(r.URL.Query().Get("redirect"), rec.Role)})
}

// register creates the account; the user logs in afterwards.
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req backend.RegisterRequest
	if err := shopx.ParseBody(r, &req); err != nil || req.Email == "" || req.Password == "" {
		writeBodyError(w, err, "name, email and password are required")
		return
	}

	if _, err := s.api.Register(r.Context(), req); err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, redirectResponse{Redirect: "/login"})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	storage := shopx.StorageFrom(r)
	if err := shopx.ClearSession(storage); err != nil {
		s.logger.Warn("failed to clear session", zap.String("client", storage.Client()), zap.Error(err))
	}
	s.events.Notify(storage.Client(), shopx.SourceLogout)

	writeJSON(w, http.StatusOK, redirectResponse{Redirect: "/"})
}

// nextPage returns target when it is a local path, otherwise the landing
// page for role.
func nextPage(target string, role shopx.Role) string {
	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") && !strings.Contains(target, `\`) {
		return target
	}
	if role.Is(shopx.RoleAdmin) {
		return "/admin/"
	}
	return "/"
}
