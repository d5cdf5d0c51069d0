package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	backendCli "github.com/spellbook-app/session-gateway/internal/adapters/backend"
	memStore "github.com/spellbook-app/session-gateway/internal/adapters/db/memory"
	transport "github.com/spellbook-app/session-gateway/internal/adapters/transport/http"
	appsession "github.com/spellbook-app/session-gateway/internal/app/session"
	"github.com/spellbook-app/session-gateway/internal/infra/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBackend is a minimal stand-in for the Spellbook backend API.
type fakeBackend struct {
	accessToken string
	loginStatus int
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if f.loginStatus != 0 {
			http.Error(w, `{"detail":"Incorrect email/username or password"}`, f.loginStatus)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  f.accessToken,
			"refresh_token": "refresh-1",
			"token_type":    "bearer",
			"expires_in":    1800,
		})
	})

	mux.HandleFunc("GET /api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.accessToken {
			http.Error(w, `{"detail":"Could not validate credentials"}`, http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":          "7d3f7e8e-5b7a-4a4e-9f39-0a54d3a1c001",
			"email":       "frodo@shire.example",
			"username":    "frodo",
			"is_active":   true,
			"is_admin":    false,
			"preferences": map[string]any{},
			"created_at":  "2025-01-02T15:04:05Z",
		})
	})

	mux.HandleFunc("GET /api/v1/collections", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.accessToken {
			http.Error(w, `{"detail":"Could not validate credentials"}`, http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{
				"id":          "c0ffee00-0000-0000-0000-000000000001",
				"name":        "Mono Red Burn",
				"description": "fast damage",
				"cards": []map[string]any{
					{"quantity": 4}, {"quantity": 2},
				},
			},
		})
	})

	mux.HandleFunc("GET /api/v1/cards/search", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"name": "Lightning Bolt", "set_code": "LEA"},
			},
			"meta": map[string]any{"total": 1},
		})
	})

	return mux
}

func mintAccess(t *testing.T, ttl time.Duration) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "7d3f7e8e-5b7a-4a4e-9f39-0a54d3a1c001",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return raw
}

func newGateway(t *testing.T, fb *fakeBackend) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(fb.handler())
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		BackendBaseURL: srv.URL,
		SessionTTL:     time.Hour,
		RefreshBuffer:  time.Minute,
		CookieSecure:   false,
	}

	cli := backendCli.New(srv.URL, srv.Client(), zap.NewNop())
	svc := appsession.New(memStore.NewMemorySessionStore(), cli, cfg.RefreshBuffer, validator.New(), nil, zap.NewNop())
	t.Cleanup(svc.Close)

	router := gin.New()
	transport.NewHandler(svc, cli, cfg, zap.NewNop()).Register(router)
	return router
}

func doLogin(t *testing.T, router *gin.Engine) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"username":"frodo","password":"myprecious"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, c := range rec.Result().Cookies() {
		if c.Name == "spellbook_sid" && c.Value != "" {
			return c
		}
	}
	t.Fatal("login did not set the session cookie")
	return nil
}

func TestGuard_RedirectsAnonymousViewer(t *testing.T) {
	router := newGateway(t, &fakeBackend{accessToken: mintAccess(t, time.Hour)})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/decks", nil))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))
	require.NotContains(t, rec.Body.String(), "Your decks")
}

func TestGuard_RejectsAnonymousAPI(t *testing.T) {
	router := newGateway(t, &fakeBackend{accessToken: mintAccess(t, time.Hour)})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/decks/", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_SetsCookieAndServesDecks(t *testing.T) {
	router := newGateway(t, &fakeBackend{accessToken: mintAccess(t, time.Hour)})
	cookie := doLogin(t, router)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/decks", nil)
	req.AddCookie(cookie)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Mono Red Burn")
	require.Contains(t, rec.Body.String(), "6 cards")
}

func TestLogin_BadCredentials(t *testing.T) {
	router := newGateway(t, &fakeBackend{
		accessToken: mintAccess(t, time.Hour),
		loginStatus: http.StatusUnauthorized,
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"username":"frodo","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid credentials")
}

func TestSessionState(t *testing.T) {
	router := newGateway(t, &fakeBackend{accessToken: mintAccess(t, time.Hour)})

	// anonymous
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/session", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"authenticated":false}`, rec.Body.String())

	// signed in
	cookie := doLogin(t, router)
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.AddCookie(cookie)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"authenticated":true`)
	require.Contains(t, rec.Body.String(), `"frodo"`)
}

func TestLogout_GuardsAgain(t *testing.T) {
	router := newGateway(t, &fakeBackend{accessToken: mintAccess(t, time.Hour)})
	cookie := doLogin(t, router)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookie)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/decks", nil)
	req.AddCookie(cookie)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestCardSearch_PublicProxy(t *testing.T) {
	router := newGateway(t, &fakeBackend{accessToken: mintAccess(t, time.Hour)})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cards/search?q=bolt", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Lightning Bolt")
}

func TestDeckProxy_ForwardsWithBearer(t *testing.T) {
	router := newGateway(t, &fakeBackend{accessToken: mintAccess(t, time.Hour)})
	cookie := doLogin(t, router)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/decks/", nil)
	req.AddCookie(cookie)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Mono Red Burn")
}
