package http

import (
	"context"
	"errors"
	"net/http"

	"costtracker/internal/core"
	"costtracker/internal/log"
	"costtracker/internal/services"
)

type identityKey struct{}

// IdentityFromContext returns the identity attached by RequireSession.
func IdentityFromContext(ctx context.Context) (core.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(core.Identity)
	return id, ok
}

func withIdentity(ctx context.Context, id core.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// GateResponses writes the gate's two refusals.
type GateResponses struct {
	// Denied answers a missing, invalid or expired session.
	Denied http.HandlerFunc
	// Failed answers a store failure while resolving the session.
	Failed http.HandlerFunc
}

// PlainGate answers with plain-text bodies, for pages.
var PlainGate = GateResponses{
	Denied: func(w http.ResponseWriter, r *http.Request) {
		PlainError(http.StatusUnauthorized, msgUnauthorized).Write(w)
	},
	Failed: func(w http.ResponseWriter, r *http.Request) {
		PlainError(http.StatusInternalServerError, msgInternal).Write(w)
	},
}

// JSONGate answers with `{"message": ...}` bodies, for API routes.
var JSONGate = GateResponses{
	Denied: func(w http.ResponseWriter, r *http.Request) {
		JSONMessage(http.StatusUnauthorized, msgUnauthorized).Write(w)
	},
	Failed: func(w http.ResponseWriter, r *http.Request) {
		JSONMessage(http.StatusInternalServerError, msgInternal).Write(w)
	},
}

// RequireSession resolves the session cookie before next runs. A missing,
// invalid or expired session calls resp.Denied and stops the chain; a store
// failure calls resp.Failed.
func (s *Server) RequireSession(resp GateResponses) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := log.FromContext(ctx)

			cookie, err := r.Cookie(services.SessionCookieName)
			if err != nil {
				resp.Denied(w, r)
				return
			}

			identity, err := s.sessions.Resolve(ctx, cookie.Value)
			if err != nil {
				if errors.Is(err, core.ErrUnauthorized) {
					logger.DebugContext(ctx, "Session rejected",
						log.FieldOperation, log.OpResolve,
						log.FieldPath, r.URL.Path)
					resp.Denied(w, r)
					return
				}
				logger.ErrorContext(ctx, "Session lookup failed",
					log.FieldOperation, log.OpResolve,
					log.FieldError, err,
					log.FieldErrorType, log.ErrorTypeDatabase)
				resp.Failed(w, r)
				return
			}

			ctx = log.NewContext(ctx, logger.With(log.FieldUserID, identity.ID))
			next.ServeHTTP(w, r.WithContext(withIdentity(ctx, identity)))
		})
	}
}
