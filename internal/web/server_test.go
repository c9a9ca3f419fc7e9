package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/portfolio/internal/config"
	"github.com/Zachkp/portfolio/internal/contact"
	"github.com/Zachkp/portfolio/internal/storage"
	"github.com/Zachkp/portfolio/internal/theme"
)

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []contact.Message
}

func (f *fakeSender) Send(_ context.Context, msg contact.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

type testEnv struct {
	server *Server
	db     *storage.DB
	sender *fakeSender
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Server.Mode = gin.TestMode
	cfg.Server.StaticDir = ""
	cfg.Server.ImagesDir = ""
	cfg.Admin.Password = "hunter2"
	if mutate != nil {
		mutate(&cfg)
	}

	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sender := &fakeSender{}
	srv, err := New(Deps{
		Config: cfg,
		Logger: log.New(io.Discard),
		DB:     db,
		Sender: sender,
	})
	require.NoError(t, err)
	t.Cleanup(srv.Sessions().Close)

	return &testEnv{server: srv, db: db, sender: sender}
}

type request struct {
	method  string
	path    string
	body    io.Reader
	headers map[string]string
	cookies []*http.Cookie
}

func (e *testEnv) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(r.method, r.path, r.body)
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	for _, c := range r.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

// visit makes a first request and returns the visitor cookie it was given.
func (e *testEnv) visit(t *testing.T, hint string) []*http.Cookie {
	t.Helper()
	headers := map[string]string{}
	if hint != "" {
		headers[colorSchemeHint] = hint
	}
	w := e.do(t, request{method: http.MethodGet, path: "/api/theme", headers: headers})
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func decodePref(t *testing.T, w *httptest.ResponseRecorder) theme.Preference {
	t.Helper()
	var pref theme.Preference
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pref))
	return pref
}

func jsonMode(mode string) io.Reader {
	return strings.NewReader(`{"mode":"` + mode + `"}`)
}

func TestGetThemeFollowsHint(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, request{
		method:  http.MethodGet,
		path:    "/api/theme",
		headers: map[string]string{colorSchemeHint: "dark"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, theme.Preference{Mode: theme.ModeDark, Source: theme.SourceSystem}, decodePref(t, w))
	assert.Equal(t, colorSchemeHint, w.Header().Get("Accept-CH"))
}

func TestGetThemeWithoutHintIsLight(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, request{method: http.MethodGet, path: "/api/theme"})

	assert.Equal(t, theme.Preference{Mode: theme.ModeLight, Source: theme.SourceSystem}, decodePref(t, w))
}

func TestExplicitChoiceSurvivesReload(t *testing.T) {
	env := newTestEnv(t, nil)
	cookies := env.visit(t, "light")

	w := env.do(t, request{method: http.MethodPut, path: "/api/theme", body: jsonMode("dark"), cookies: cookies})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, theme.Preference{Mode: theme.ModeDark, Source: theme.SourceExplicit}, decodePref(t, w))

	// Simulate a page reload: the live store goes away, storage stays.
	id := cookies[0].Value
	env.server.Sessions().Drop(id)

	w = env.do(t, request{
		method:  http.MethodGet,
		path:    "/api/theme",
		headers: map[string]string{colorSchemeHint: "light"},
		cookies: cookies,
	})
	assert.Equal(t, theme.Preference{Mode: theme.ModeDark, Source: theme.SourceExplicit}, decodePref(t, w))

	stats, err := env.db.ThemeStats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ExplicitDark)
}

func TestSetThemeRejectsUnknownMode(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "unknown mode", body: `{"mode":"blue"}`},
		{name: "missing mode", body: `{}`},
		{name: "not json", body: `dark`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, request{method: http.MethodPut, path: "/api/theme", body: strings.NewReader(tt.body)})
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestToggleThenReset(t *testing.T) {
	env := newTestEnv(t, nil)
	cookies := env.visit(t, "light")

	w := env.do(t, request{method: http.MethodPost, path: "/api/theme/toggle", cookies: cookies})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, theme.Preference{Mode: theme.ModeDark, Source: theme.SourceExplicit}, decodePref(t, w))
	assert.Contains(t, w.Header().Get("HX-Trigger"), "themeChanged")

	w = env.do(t, request{method: http.MethodDelete, path: "/api/theme", cookies: cookies})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, theme.Preference{Mode: theme.ModeLight, Source: theme.SourceSystem}, decodePref(t, w))
}

func TestSystemReportOnlyMovesFollowingVisitors(t *testing.T) {
	env := newTestEnv(t, nil)
	cookies := env.visit(t, "light")

	w := env.do(t, request{method: http.MethodPost, path: "/api/theme/system", body: jsonMode("dark"), cookies: cookies})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, theme.Preference{Mode: theme.ModeDark, Source: theme.SourceSystem}, decodePref(t, w))

	env.do(t, request{method: http.MethodPut, path: "/api/theme", body: jsonMode("light"), cookies: cookies})

	w = env.do(t, request{method: http.MethodPost, path: "/api/theme/system", body: jsonMode("dark"), cookies: cookies})
	assert.Equal(t, theme.Preference{Mode: theme.ModeLight, Source: theme.SourceExplicit}, decodePref(t, w))
}

func TestVisitorsAreIsolated(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.visit(t, "light")
	bob := env.visit(t, "light")
	require.NotEqual(t, alice[0].Value, bob[0].Value)

	env.do(t, request{method: http.MethodPut, path: "/api/theme", body: jsonMode("dark"), cookies: alice})

	w := env.do(t, request{method: http.MethodGet, path: "/api/theme", cookies: bob})
	assert.Equal(t, theme.Preference{Mode: theme.ModeLight, Source: theme.SourceSystem}, decodePref(t, w))
}

func TestIndexRendersResolvedTheme(t *testing.T) {
	env := newTestEnv(t, nil)
	cookies := env.visit(t, "light")
	env.do(t, request{method: http.MethodPut, path: "/api/theme", body: jsonMode("dark"), cookies: cookies})

	w := env.do(t, request{method: http.MethodGet, path: "/", cookies: cookies})

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `data-theme="dark"`)
	assert.Contains(t, body, `data-theme-source="explicit"`)
	assert.Contains(t, body, "Zach Kordas-Potter")
	assert.Contains(t, body, `id="timeline"`)
}

func TestTimelineFragments(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, request{method: http.MethodGet, path: "/education-content"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Western Governors University")

	w = env.do(t, request{method: http.MethodGet, path: "/work-content"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Work Experience")
}

func contactForm(fields map[string]string) io.Reader {
	form := url.Values{}
	for k, v := range fields {
		form.Set(k, v)
	}
	return strings.NewReader(form.Encode())
}

var formHeaders = map[string]string{"Content-Type": "application/x-www-form-urlencoded"}

func TestContactSubmission(t *testing.T) {
	valid := map[string]string{
		"fullName": "Ada Lovelace",
		"email":    "ada@example.com",
		"message":  "Hello there",
	}

	tests := []struct {
		name       string
		fields     map[string]string
		sendErr    error
		wantText   string
		wantClass  string
		wantSends  int
		wantStatus storage.MessageStats
	}{
		{
			name:       "delivered",
			fields:     valid,
			wantText:   "Thank you for your message!",
			wantClass:  "contact-success",
			wantSends:  1,
			wantStatus: storage.MessageStats{Total: 1, Delivered: 1},
		},
		{
			name:       "relay failure",
			fields:     valid,
			sendErr:    errors.New("relay down"),
			wantText:   "Sorry, there was an error sending your message.",
			wantClass:  "contact-error",
			wantSends:  1,
			wantStatus: storage.MessageStats{Total: 1, Failed: 1},
		},
		{
			name:       "invalid email never reaches the relay",
			fields:     map[string]string{"fullName": "Ada", "email": "nope", "message": "hi"},
			wantClass:  "contact-error",
			wantStatus: storage.MessageStats{Total: 1, Failed: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.sender.err = tt.sendErr

			w := env.do(t, request{
				method:  http.MethodPost,
				path:    "/contact",
				body:    contactForm(tt.fields),
				headers: formHeaders,
			})

			require.Equal(t, http.StatusOK, w.Code)
			body := w.Body.String()
			assert.Contains(t, body, tt.wantClass)
			assert.Contains(t, body, tt.wantText)
			assert.Contains(t, body, "delay:5000ms")
			assert.Len(t, env.sender.sent, tt.wantSends)

			stats, err := env.db.MessageStats()
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, stats)
		})
	}
}

func TestContactWithoutSender(t *testing.T) {
	env := newTestEnv(t, nil)
	env.server.sender = nil

	w := env.do(t, request{
		method:  http.MethodPost,
		path:    "/contact",
		body:    contactForm(map[string]string{"fullName": "Ada", "email": "ada@example.com", "message": "hi"}),
		headers: formHeaders,
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "contact-error")
}

func TestVisitorTrackingHonoursDoNotTrack(t *testing.T) {
	env := newTestEnv(t, nil)

	env.do(t, request{method: http.MethodGet, path: "/", headers: map[string]string{"DNT": "1"}})
	env.do(t, request{method: http.MethodGet, path: "/api/theme"})

	stats, err := env.db.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalVisitors)

	env.do(t, request{method: http.MethodGet, path: "/"})

	stats, err = env.db.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalVisitors)
	require.Len(t, stats.RecentVisitors, 1)
	assert.NotContains(t, stats.RecentVisitors[0].HashedIP, "192.0.2")
}

func TestTrackingDisabled(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Analytics.Enabled = false })

	env.do(t, request{method: http.MethodGet, path: "/"})

	stats, err := env.db.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalVisitors)
}

func login(t *testing.T, env *testEnv, user, pass string) *httptest.ResponseRecorder {
	t.Helper()
	return env.do(t, request{
		method:  http.MethodPost,
		path:    "/admin/login",
		body:    strings.NewReader(url.Values{"username": {user}, "password": {pass}}.Encode()),
		headers: formHeaders,
	})
}

func TestAdminRequiresLogin(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, request{method: http.MethodGet, path: "/admin/dashboard"})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/login", w.Header().Get("Location"))

	w = login(t, env, "admin", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")

	w = login(t, env, "admin", "hunter2")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/dashboard", w.Header().Get("Location"))
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	w = env.do(t, request{method: http.MethodGet, path: "/admin/api/stats", cookies: cookies})
	require.Equal(t, http.StatusOK, w.Code)
	var stats storage.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))

	w = env.do(t, request{method: http.MethodGet, path: "/admin/dashboard", cookies: cookies})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Dashboard")

	w = env.do(t, request{method: http.MethodPost, path: "/admin/privacy/cleanup", cookies: cookies})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminLoginDisabledWithoutPassword(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Admin.Password = "" })

	w := login(t, env, "admin", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, request{method: http.MethodGet, path: "/healthz"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestThemeAssetsServed(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, request{method: http.MethodGet, path: "/assets/theme.js"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/theme/system")
}

func TestServerWithoutDatabase(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Mode = gin.TestMode
	cfg.Server.StaticDir = ""
	cfg.Server.ImagesDir = ""

	srv, err := New(Deps{Config: cfg, Logger: log.New(io.Discard)})
	require.NoError(t, err)
	defer srv.Sessions().Close()

	req := httptest.NewRequest(http.MethodPut, "/api/theme", jsonMode("dark"))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, theme.Preference{Mode: theme.ModeDark, Source: theme.SourceExplicit}, decodePref(t, w))
}
