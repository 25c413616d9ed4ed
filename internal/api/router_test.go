package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/roadside-admin/internal/api"
	"github.com/baechuer/roadside-admin/internal/api/handlers"
	"github.com/baechuer/roadside-admin/internal/audit"
	"github.com/baechuer/roadside-admin/internal/config"
	"github.com/baechuer/roadside-admin/internal/directory"
	"github.com/baechuer/roadside-admin/internal/downstream"
	"github.com/baechuer/roadside-admin/internal/enrich"
	"github.com/baechuer/roadside-admin/internal/notify"
	"github.com/baechuer/roadside-admin/internal/review"
	"github.com/baechuer/roadside-admin/internal/session"
)

const upstreamToken = "up-tok"

// fakeDirectory mimics the directory upstream mounted under /api.
type fakeDirectory struct {
	mu       sync.Mutex
	statuses map[string]string
	updates  []string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{statuses: map[string]string{
		"ana@example.com":   "approved",
		"bruno@example.com": "pending",
	}}
}

func (f *fakeDirectory) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/login" {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "ops" || body["password"] != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"token":"` + upstreamToken + `"}`))
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+upstreamToken {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch r.URL.Path {
	case "/api/":
		w.Write([]byte(`{"data":{"users":[
			{"id":1,"first_name":"Ana","last_name":"Silva","email":"ana@example.com","car_model":"Civic","car_color":"Blue","plate_number":"123","letters":"ABC","user_type":"google","created_at":"2026-10-16T08:00:00Z"},
			{"id":2,"first_name":"Bruno","last_name":"Costa","email":"bruno@example.com","car_model":"Golf","car_color":"Red","plate_number":"9","letters":"Z","user_type":"Email","created_at":"2026-10-15T08:00:00Z"}
		]}}`))
	case "/api/get-license":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		status := f.statuses[body["email"]]
		f.mu.Unlock()
		w.Write([]byte(`{"status":"` + status + `","front_image_url":"https://cdn.example.com/front.png"}`))
	case "/api/update-license-status":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.statuses[body["email"]] = body["status"]
		f.updates = append(f.updates, body["email"]+"="+body["status"])
		f.mu.Unlock()
		w.Write([]byte(`{"message":"ok"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newRouter(t *testing.T, dirURL string, rdb *redis.Client, rl bool) http.Handler {
	t.Helper()

	cfg := &config.Config{
		AppEnv:             "test",
		JWTSecret:          "test-secret",
		JWTTTL:             time.Hour,
		RLEnabled:          rl,
		RLLimit:            3,
		RLWindow:           time.Minute,
		CORSAllowedOrigins: []string{"http://localhost:5173"},
	}

	auditor := audit.New(zerolog.Nop())
	client := downstream.NewDirectoryClient(dirURL+"/api", downstream.NewClient(downstream.DefaultClientConfig()))
	enricher := enrich.New(client, enrich.DefaultConfig())
	decisions := review.NopDecisionLog{}

	sessions := session.NewRegistry(func() *session.Workspace {
		view := directory.NewView(client, enricher)
		return &session.Workspace{
			View:     view,
			Workflow: review.NewWorkflow(client, view, decisions, auditor),
		}
	}, time.Hour)

	var tokens session.TokenStore = session.NewMemoryTokenStore()
	if rdb != nil {
		tokens = session.NewRedisTokenStore(rdb)
	}

	return api.NewRouter(cfg, api.Handlers{
		Readiness:     handlers.NewReadinessHandler(handlers.NewHTTPReadinessChecker("directory", dirURL+"/api/")),
		Auth:          handlers.NewAuthHandler(client, tokens, sessions, auditor, cfg.JWTSecret, cfg.JWTTTL),
		Users:         handlers.NewUsersHandler(sessions),
		Review:        handlers.NewReviewHandler(sessions, decisions),
		Overview:      handlers.NewOverviewHandler(client),
		Notifications: handlers.NewNotificationsHandler(notify.NewComposer(notify.LogPublisher{}, auditor)),
	}, tokens, rdb)
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "ops", "password": "hunter2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func TestRouter_Integration(t *testing.T) {
	fake := newFakeDirectory()
	upstream := httptest.NewServer(fake)
	defer upstream.Close()

	router := newRouter(t, upstream.URL, nil, false)

	t.Run("Healthz", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/healthz", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
	})

	t.Run("Readyz", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/readyz", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"ready"`)
	})

	t.Run("Admin routes require a session", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/admin/users", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"code":"unauthorized"`)
	})

	t.Run("Bad credentials", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "ops", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_credentials")
	})

	t.Run("Missing credentials", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "ops"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	token := login(t, router)

	t.Run("Users are enriched", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/admin/users", token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.JSONEq(t, `{"data":{"count":2,"users":[
			{"id":1,"fullName":"Ana Silva","email":"ana@example.com","registrationMethod":"google","vehicleDetails":"Civic - Blue - 123 ABC","licenseStatus":"Verified","registrationDate":"2026-10-16"},
			{"id":2,"fullName":"Bruno Costa","email":"bruno@example.com","registrationMethod":"Email","vehicleDetails":"Golf - Red - 9 Z","licenseStatus":"Pending","registrationDate":"2026-10-15"}
		]}}`, w.Body.String())
	})

	t.Run("Search filters", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/admin/users?q=BRUNO", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"count":1`)
		assert.Contains(t, w.Body.String(), "bruno@example.com")
	})

	t.Run("Review approve flow", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/admin/review/open", token, map[string]string{"email": "bruno@example.com"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), `"state":"viewing"`)
		assert.Contains(t, w.Body.String(), "front.png")

		w = do(t, router, http.MethodPost, "/api/admin/review/decision", token, map[string]string{"decision": "approved"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), `"licenseStatus":"Verified"`)
		assert.Contains(t, w.Body.String(), `"state":"idle"`)

		w = do(t, router, http.MethodGet, "/api/admin/users/snapshot", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var snap struct {
			Data struct {
				Users []struct {
					Email         string `json:"email"`
					LicenseStatus string `json:"licenseStatus"`
				} `json:"users"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
		require.Len(t, snap.Data.Users, 1)
		assert.Equal(t, "Verified", snap.Data.Users[0].LicenseStatus)

		fake.mu.Lock()
		assert.Equal(t, []string{"bruno@example.com=approved"}, fake.updates)
		fake.mu.Unlock()
	})

	t.Run("Decision without selection", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/admin/review/decision", token, map[string]string{"decision": "rejected"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Invalid decision", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/admin/review/decision", token, map[string]string{"decision": "maybe"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Open unknown email", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/admin/review/open", token, map[string]string{"email": "nobody@example.com"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Overview", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/admin/overview", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"serverStatus":"online"`)
		assert.Contains(t, w.Body.String(), `"totalUsers":2`)
	})

	t.Run("Notifications", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/admin/notifications", token, map[string]string{"title": "", "body": "x"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Please fill in all required fields")

		w = do(t, router, http.MethodPost, "/api/admin/notifications", token, map[string]string{"title": "Storm", "body": "Expect delays"})
		assert.Equal(t, http.StatusAccepted, w.Code)

		w = do(t, router, http.MethodGet, "/api/admin/notifications", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"title":"Storm"`)
		assert.Contains(t, w.Body.String(), `"status":"Sent"`)
	})

	t.Run("Logout ends the session", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/auth/logout", token, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		// The JWT is still well formed but its directory token is gone.
		w = do(t, router, http.MethodGet, "/api/admin/users", token, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "upstream_unauthorized")
	})

	t.Run("404 for unknown", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/unknown", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRouter_RedisRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	upstream := httptest.NewServer(newFakeDirectory())
	defer upstream.Close()

	router := newRouter(t, upstream.URL, rdb, true)

	var last *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		last = do(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "ops"})
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "60", last.Header().Get("Retry-After"))
}

func TestRouter_CORSPreflight(t *testing.T) {
	upstream := httptest.NewServer(newFakeDirectory())
	defer upstream.Close()
	router := newRouter(t, upstream.URL, nil, false)

	req := httptest.NewRequest(http.MethodOptions, "/api/admin/users", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "GET"))
}
