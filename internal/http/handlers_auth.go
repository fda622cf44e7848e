package http

import (
	"errors"
	"net/http"

	"costtracker/internal/core"
	"costtracker/internal/log"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		status, msg := bodyError(err)
		PlainError(status, msg).Write(w)
		return
	}

	username := p.Get("username")
	if err := s.auth.Register(ctx, username, p.GetRaw("password")); err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidInput):
			PlainError(http.StatusBadRequest, msgMissingFields).Write(w)
		case errors.Is(err, core.ErrDuplicateUsername):
			// Reported like any other store failure.
			logger.WarnContext(ctx, "Registration rejected",
				log.NewFields().
					WithOperation(log.OpRegister).
					WithError(err, log.ErrorTypeConflict).
					ToSlice()...)
			PlainError(http.StatusInternalServerError, msgInternal).Write(w)
		default:
			logger.ErrorContext(ctx, "Registration failed",
				log.NewFields().
					WithOperation(log.OpRegister).
					WithError(err, log.ErrorTypeDatabase).
					ToSlice()...)
			PlainError(http.StatusInternalServerError, msgInternal).Write(w)
		}
		return
	}

	logger.InfoContext(ctx, "User registered", log.FieldOperation, log.OpRegister)
	NewResponse().Redirect("/login").Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		status, msg := bodyError(err)
		PlainError(status, msg).Write(w)
		return
	}

	identity, err := s.auth.Login(ctx, p.Get("username"), p.GetRaw("password"))
	if err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			logger.InfoContext(ctx, "Login rejected",
				log.FieldOperation, log.OpLogin,
				log.FieldErrorType, log.ErrorTypeAuth)
			PlainError(http.StatusUnauthorized, msgInvalidCredentials).Write(w)
			return
		}
		logger.ErrorContext(ctx, "Login failed",
			log.NewFields().
				WithOperation(log.OpLogin).
				WithError(err, log.ErrorTypeDatabase).
				ToSlice()...)
		PlainError(http.StatusInternalServerError, msgInternal).Write(w)
		return
	}

	issued, err := s.sessions.Create(ctx, identity)
	if err != nil {
		logger.ErrorContext(ctx, "Session creation failed",
			log.NewFields().
				WithOperation(log.OpLogin).
				WithUser(identity.ID, identity.Username).
				WithError(err, log.ErrorTypeInternal).
				ToSlice()...)
		PlainError(http.StatusInternalServerError, msgInternal).Write(w)
		return
	}

	logger.InfoContext(ctx, "User logged in",
		log.FieldOperation, log.OpLogin,
		log.FieldUserID, identity.ID)
	NewResponse().Cookie(s.sessions.Cookie(issued)).Redirect("/").Write(w)
}

// bodyError maps a body parsing failure to a status and message.
func bodyError(err error) (int, string) {
	if errors.Is(err, errBodyTooLarge) {
		return http.StatusRequestEntityTooLarge, msgBodyTooLarge
	}
	return http.StatusBadRequest, msgInvalidBody
}
