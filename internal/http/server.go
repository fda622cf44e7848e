package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"costtracker/internal/core"
	"costtracker/internal/log"
	"costtracker/internal/middleware/security"
	"costtracker/internal/middleware/trace"
	"costtracker/internal/services"
	appweb "costtracker/web"
)

const (
	readTimeout    = 10 * time.Second
	writeTimeout   = 10 * time.Second
	idleTimeout    = 60 * time.Second
	maxHeaderBytes = 1 << 16
)

// Authenticator registers users and checks their credentials.
type Authenticator interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (core.Identity, error)
}

// SessionIssuer creates and resolves session cookies.
type SessionIssuer interface {
	Create(ctx context.Context, identity core.Identity) (services.IssuedSession, error)
	Resolve(ctx context.Context, cookieValue string) (core.Identity, error)
	Cookie(issued services.IssuedSession) *http.Cookie
}

// CostLedger adds and lists costs for a user.
type CostLedger interface {
	AddCost(ctx context.Context, userID int64, in core.CostInput) (core.CostRecord, error)
	ListCosts(ctx context.Context, userID int64) ([]core.CostRecord, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Auth     Authenticator
	Sessions SessionIssuer
	Costs    CostLedger
	Store    Pinger
	Logger   *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	auth      Authenticator
	sessions  SessionIssuer
	costs     CostLedger
	store     Pinger
	logger    *log.Logger
	tracer    *trace.Middleware
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		templates: t,
		auth:      deps.Auth,
		sessions:  deps.Sessions,
		costs:     deps.Costs,
		store:     deps.Store,
		logger:    logger,
		tracer:    trace.NewMiddleware(extractClientIP),
	}

	mux := http.NewServeMux()

	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, err
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /{$}", s.page("landing.html"))
	mux.HandleFunc("GET /login", s.page("login.html"))
	mux.HandleFunc("GET /register", s.page("register.html"))
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /login", s.handleLogin)

	pageGate := s.RequireSession(PlainGate)
	apiGate := s.RequireSession(JSONGate)
	mux.Handle("GET /home", security.NoStore(pageGate(http.HandlerFunc(s.handleHome))))
	mux.Handle("POST /costs", security.NoStore(apiGate(http.HandlerFunc(s.handleAddCost))))
	mux.Handle("GET /costs", security.NoStore(apiGate(http.HandlerFunc(s.handleListCosts))))

	var handler http.Handler = mux
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = log.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		MaxHeaderBytes: maxHeaderBytes,
	}
	return s, nil
}

// Metrics returns request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().Text("ok").Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Readiness check failed",
				log.FieldError, err,
				log.FieldErrorType, log.ErrorTypeDatabase)
			NewResponse().Status(http.StatusServiceUnavailable).Text("not ready").Write(w)
			return
		}
	}
	NewResponse().Text("ready").Write(w)
}
