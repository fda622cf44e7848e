package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"costtracker/internal/core"
	"costtracker/internal/services"
	"costtracker/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testEnv struct {
	srv   *Server
	repo  *storage.SQLiteRepository
	clock *time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "costs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	env := &testEnv{repo: repo, clock: &now}

	auth, err := services.NewAuthService(repo, bcrypt.MinCost, nil)
	require.NoError(t, err)
	sessions, err := services.NewSessionManager(repo, testSecret, false,
		services.WithClock(func() time.Time { return *env.clock }))
	require.NoError(t, err)

	env.srv, err = NewServer(":0", Deps{
		Auth:     auth,
		Sessions: sessions,
		Costs:    services.NewCostService(repo, nil, nil),
		Store:    repo,
	})
	require.NoError(t, err)
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func formRequest(method, path string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func jsonRequest(method, path, body string, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func (e *testEnv) register(t *testing.T, user, pass string) {
	t.Helper()
	rr := e.do(formRequest(http.MethodPost, "/register", url.Values{"username": {user}, "password": {pass}}))
	require.Equal(t, http.StatusFound, rr.Code, rr.Body.String())
	require.Equal(t, "/login", rr.Header().Get("Location"))
}

func (e *testEnv) login(t *testing.T, user, pass string) *http.Cookie {
	t.Helper()
	rr := e.do(formRequest(http.MethodPost, "/login", url.Values{"username": {user}, "password": {pass}}))
	require.Equal(t, http.StatusFound, rr.Code, rr.Body.String())
	require.Equal(t, "/", rr.Header().Get("Location"))
	for _, c := range rr.Result().Cookies() {
		if c.Name == services.SessionCookieName {
			return c
		}
	}
	t.Fatalf("no session cookie issued")
	return nil
}

func decodeMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body messageBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body.Message
}

func TestAliceScenario(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "secret123")
	cookie := env.login(t, "alice", "secret123")

	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
	assert.Equal(t, 86400, cookie.MaxAge)

	rr := env.do(jsonRequest(http.MethodPost, "/costs", `{"amount":12.50,"date":"2024-01-01","category":"food"}`, cookie))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Cost added successfully", decodeMessage(t, rr))

	rr = env.do(jsonRequest(http.MethodGet, "/costs", "", cookie))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	var rows []costJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "12.50", rows[0].Amount)
	assert.Equal(t, "2024-01-01", rows[0].Date)
	assert.Equal(t, "food", rows[0].Category)
	assert.NotZero(t, rows[0].CostID)
	assert.NotZero(t, rows[0].UserID)

	rr = env.do(jsonRequest(http.MethodGet, "/costs", "", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Unauthorized", decodeMessage(t, rr))
}

func TestAddCostMissingAmount(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "secret123")
	cookie := env.login(t, "alice", "secret123")

	rr := env.do(jsonRequest(http.MethodPost, "/costs", `{"date":"2024-01-01","category":"food"}`, cookie))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Missing required fields", decodeMessage(t, rr))
}

func TestAddCostValidation(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "secret123")
	cookie := env.login(t, "alice", "secret123")

	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"zero amount", `{"amount":0,"date":"2024-01-01","category":"food"}`, http.StatusBadRequest, "Missing required fields"},
		{"bad amount", `{"amount":"abc","date":"2024-01-01","category":"food"}`, http.StatusBadRequest, "Invalid amount"},
		{"bad date", `{"amount":"3","date":"01/01/2024","category":"food"}`, http.StatusBadRequest, "Invalid date"},
		{"malformed json", `{"amount":`, http.StatusBadRequest, "Invalid request body"},
		{"negative amount accepted", `{"amount":"-4.20","date":"1999-12-31","category":"refund"}`, http.StatusOK, "Cost added successfully"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(jsonRequest(http.MethodPost, "/costs", tt.body, cookie))
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.msg, decodeMessage(t, rr))
		})
	}
}

func TestAddCostFormEncoded(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "secret123")
	cookie := env.login(t, "alice", "secret123")

	req := formRequest(http.MethodPost, "/costs", url.Values{"amount": {"7.5"}, "date": {"2024-02-29"}, "category": {"books"}})
	req.AddCookie(cookie)
	rr := env.do(req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = env.do(jsonRequest(http.MethodGet, "/costs", "", cookie))
	assert.Contains(t, rr.Body.String(), `"amount":"7.50"`)
}

func TestCostsAreScopedPerUser(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "secret123")
	env.register(t, "bob", "hunter22")
	alice := env.login(t, "alice", "secret123")
	bob := env.login(t, "bob", "hunter22")

	env.do(jsonRequest(http.MethodPost, "/costs", `{"amount":"1","date":"2024-01-01","category":"a"}`, alice))
	env.do(jsonRequest(http.MethodPost, "/costs", `{"amount":"2","date":"2024-01-02","category":"b"}`, bob))
	env.do(jsonRequest(http.MethodPost, "/costs", `{"amount":"3","date":"2024-01-03","category":"a"}`, alice))

	var rows []costJSON
	rr := env.do(jsonRequest(http.MethodGet, "/costs", "", bob))
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "b", rows[0].Category)

	rr = env.do(jsonRequest(http.MethodGet, "/costs", "", alice))
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rows))
	assert.Len(t, rows, 2)
}

func TestListCostsEmptyIsArray(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "secret123")
	cookie := env.login(t, "alice", "secret123")

	rr := env.do(jsonRequest(http.MethodGet, "/costs", "", cookie))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestRegisterFailures(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "secret123")

	rr := env.do(formRequest(http.MethodPost, "/register", url.Values{"username": {"alice"}, "password": {"other"}}))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Internal Server Error", rr.Body.String())

	rr = env.do(formRequest(http.MethodPost, "/register", url.Values{"username": {"  "}, "password": {"x"}}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Missing required fields", rr.Body.String())
}

func TestRegisterAcceptsJSON(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(jsonRequest(http.MethodPost, "/register", `{"username":"carol","password":"pw123456"}`, nil))
	require.Equal(t, http.StatusFound, rr.Code)
	env.login(t, "carol", "pw123456")
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "secret123")

	wrongPass := env.do(formRequest(http.MethodPost, "/login", url.Values{"username": {"alice"}, "password": {"nope"}}))
	noUser := env.do(formRequest(http.MethodPost, "/login", url.Values{"username": {"mallory"}, "password": {"nope"}}))

	for _, rr := range []*httptest.ResponseRecorder{wrongPass, noUser} {
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Invalid Credentials", rr.Body.String())
		assert.Empty(t, rr.Result().Cookies())
	}
}

func TestHomeRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/home", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Unauthorized", rr.Body.String())

	env.register(t, "alice", "secret123")
	cookie := env.login(t, "alice", "secret123")
	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.AddCookie(cookie)
	rr = env.do(req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "alice")
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}

func TestExpiredSessionIsRejected(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "secret123")
	cookie := env.login(t, "alice", "secret123")

	*env.clock = env.clock.Add(services.SessionTTL - time.Second)
	assert.Equal(t, http.StatusOK, env.do(jsonRequest(http.MethodGet, "/costs", "", cookie)).Code)

	*env.clock = env.clock.Add(time.Second)
	assert.Equal(t, http.StatusUnauthorized, env.do(jsonRequest(http.MethodGet, "/costs", "", cookie)).Code)
}

func TestTamperedCookieIsRejected(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "secret123")
	cookie := env.login(t, "alice", "secret123")

	forged := &http.Cookie{Name: cookie.Name, Value: cookie.Value + "x"}
	assert.Equal(t, http.StatusUnauthorized, env.do(jsonRequest(http.MethodGet, "/costs", "", forged)).Code)
}

func TestPublicPages(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/", "/login", "/register"} {
		rr := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"), path)
		assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"), path)
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"), path)
	}

	rr := env.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)
	for path, body := range map[string]string{"/healthz": "ok", "/readyz": "ready"} {
		rr := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, body, rr.Body.String(), path)
	}

	require.NoError(t, env.repo.Close())
	rr := env.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

// spyLedger fails the test if the gate lets an unauthenticated request through.
type spyLedger struct{ calls int }

func (s *spyLedger) AddCost(ctx context.Context, userID int64, in core.CostInput) (core.CostRecord, error) {
	s.calls++
	return core.CostRecord{}, nil
}

func (s *spyLedger) ListCosts(ctx context.Context, userID int64) ([]core.CostRecord, error) {
	s.calls++
	return nil, nil
}

// denyingSessions rejects everything, or fails like a broken store.
type denyingSessions struct {
	err   error
	calls int
}

func (d *denyingSessions) Create(ctx context.Context, id core.Identity) (services.IssuedSession, error) {
	return services.IssuedSession{}, d.err
}

func (d *denyingSessions) Resolve(ctx context.Context, v string) (core.Identity, error) {
	d.calls++
	return core.Identity{}, d.err
}

func (d *denyingSessions) Cookie(services.IssuedSession) *http.Cookie { return nil }

func TestGateShortCircuits(t *testing.T) {
	ledger := &spyLedger{}
	sessions := &denyingSessions{err: core.ErrUnauthorized}
	srv, err := NewServer(":0", Deps{Sessions: sessions, Costs: ledger})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, jsonRequest(http.MethodPost, "/costs", `{"amount":"1","date":"2024-01-01","category":"x"}`, nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Zero(t, sessions.calls, "no cookie must not reach the session store")

	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, jsonRequest(http.MethodGet, "/costs", "", &http.Cookie{Name: services.SessionCookieName, Value: "a.b"}))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, 1, sessions.calls)
	assert.Zero(t, ledger.calls)
}

func TestGateStoreFailureIsServerError(t *testing.T) {
	sessions := &denyingSessions{err: errors.New("disk I/O error")}
	srv, err := NewServer(":0", Deps{Sessions: sessions, Costs: &spyLedger{}})
	require.NoError(t, err)

	cookie := &http.Cookie{Name: services.SessionCookieName, Value: "a.b"}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, jsonRequest(http.MethodGet, "/costs", "", cookie))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Internal Server Error", decodeMessage(t, rr))

	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "disk")
}

func TestPasswordIsUsedExactlyAsSent(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "  secret123  ")

	rr := env.do(formRequest(http.MethodPost, "/login", url.Values{"username": {"alice"}, "password": {"secret123"}}))
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "trimmed password must not match")
	env.login(t, "alice", "  secret123  ")

	rr = env.do(jsonRequest(http.MethodPost, "/register", `{"username":"carol","password":"\ttab\t"}`, nil))
	require.Equal(t, http.StatusFound, rr.Code)
	rr = env.do(jsonRequest(http.MethodPost, "/login", `{"username":"carol","password":"tab"}`, nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = env.do(jsonRequest(http.MethodPost, "/login", `{"username":"carol","password":"\ttab\t"}`, nil))
	assert.Equal(t, http.StatusFound, rr.Code)
}

func TestUserCreatedOutsideHTTPCanLogIn(t *testing.T) {
	env := newTestEnv(t)
	auth, err := services.NewAuthService(env.repo, bcrypt.MinCost, nil)
	require.NoError(t, err)
	require.NoError(t, auth.Register(context.Background(), "bob", " pw "))

	env.login(t, "bob", " pw ")

	rr := env.do(formRequest(http.MethodPost, "/login", url.Values{"username": {"bob"}, "password": {"pw"}}))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireSessionResponsesFollowCaller(t *testing.T) {
	failing := &denyingSessions{err: errors.New("disk I/O error")}
	srv, err := NewServer(":0", Deps{Sessions: failing, Costs: &spyLedger{}})
	require.NoError(t, err)

	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true })
	cookie := &http.Cookie{Name: services.SessionCookieName, Value: "a.b"}

	for name, tc := range map[string]struct {
		resp        GateResponses
		contentType string
	}{
		"json":  {JSONGate, "application/json; charset=utf-8"},
		"plain": {PlainGate, "text/plain; charset=utf-8"},
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/any/other/path", nil)
			req.AddCookie(cookie)
			rr := httptest.NewRecorder()
			srv.RequireSession(tc.resp)(next).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusInternalServerError, rr.Code)
			assert.Equal(t, tc.contentType, rr.Header().Get("Content-Type"))
			assert.False(t, reached)
		})
	}
}
