package http

import (
	"bytes"
	"net/http"

	"costtracker/internal/log"
)

type pageData struct {
	Title    string
	Username string
}

var pageTitles = map[string]string{
	"landing.html":  "Cost Tracker",
	"login.html":    "Log in",
	"register.html": "Register",
	"index.html":    "Your costs",
}

// page serves a template that needs no request data.
func (s *Server) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, name, pageData{Title: pageTitles[name]})
	}
}

// handleHome serves the signed-in page. Costs are fetched by the page itself.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	s.render(w, r, "index.html", pageData{
		Title:    pageTitles["index.html"],
		Username: identity.Username,
	})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeInternal,
			"template", name)
		PlainError(http.StatusInternalServerError, msgInternal).Write(w)
		return
	}
	NewResponse().
		Header("Content-Type", "text/html; charset=utf-8").
		Body(buf.Bytes()).
		Write(w)
}
