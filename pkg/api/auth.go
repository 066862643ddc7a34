package api

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/cbruyndoncx/open-work-protocol/pkg/types"
)

// Admin credential configuration. The default exists so local
// development works out of the box; production deployments set
// OWP_ADMIN_TOKEN.
const (
	adminTokenEnv     = "OWP_ADMIN_TOKEN"
	defaultAdminToken = "dev-admin"
)

// AdminTokenFromEnv returns the configured admin token, falling back to
// the development default.
func AdminTokenFromEnv() string {
	if tok := os.Getenv(adminTokenEnv); tok != "" {
		return tok
	}
	return defaultAdminToken
}

// bearerToken extracts the credential from an Authorization header. The
// scheme check is case-insensitive and whitespace around the token is
// dropped.
func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", fmt.Errorf("missing Authorization header: %w", types.ErrAuthMissing)
	}
	if !strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return "", fmt.Errorf("expected Bearer token: %w", types.ErrAuthInvalid)
	}
	return strings.TrimSpace(strings.SplitN(h, " ", 2)[1]), nil
}

// workerHandler is a handler that runs with an authenticated worker.
type workerHandler func(w http.ResponseWriter, r *http.Request, worker *types.Worker)

// requireWorker resolves the bearer token to a worker before invoking
// the wrapped handler.
func (s *Server) requireWorker(next workerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			writeError(w, err)
			return
		}
		worker, err := s.svc.AuthenticateWorker(token)
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r, worker)
	}
}

// requireAdmin gates a subtree on the X-Admin-Token header.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Admin-Token") != s.adminToken {
			writeError(w, fmt.Errorf("invalid admin token: %w", types.ErrAuthInvalid))
			return
		}
		next.ServeHTTP(w, r)
	})
}
