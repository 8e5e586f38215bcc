package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/locallibrary/internal/audit"
	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/entities"
)

type recordedAuth struct {
	action  string
	success bool
}

type fakeEventLogger struct {
	mu     sync.Mutex
	events []recordedAuth
}

func (f *fakeEventLogger) LogAuth(_ audit.Actor, action string, success bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedAuth{action, success})
}

type authHarness struct {
	router *gin.Engine
	svc    *Service
	events *fakeEventLogger
	cookie *http.Cookie
}

func setupAuthHarness(t *testing.T) *authHarness {
	t.Helper()

	db := setupTestDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get SQL DB: %v", err)
	}

	cfg := config.Auth{
		Mode:             config.AuthModeLocal,
		SessionLifetime:  time.Hour,
		BcryptCost:       4,
		MaxLoginAttempts: 3,
		RateLimitWindow:  time.Minute,
		LockoutDuration:  time.Minute,
	}
	svc := NewService(db, cfg)
	sm, err := NewSessionManager(sqlDB, config.DatabaseDriverSQLite, cfg)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	mw := NewMiddleware(svc, sm, cfg)
	events := &fakeEventLogger{}
	controller := NewAuthController(svc, sm, mw, events, cfg)
	t.Cleanup(controller.Stop)

	router := gin.New()
	router.Use(sm.SessionLoadSave())
	router.Use(mw.Handler())
	controller.RegisterRoutes(router)

	return &authHarness{router: router, svc: svc, events: events}
}

func (h *authHarness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	if c := sessionCookie(t, rr, "sessionid"); c != nil {
		h.cookie = c
	}
	return rr
}

func TestAuthController_SetupOnlyOnce(t *testing.T) {
	h := setupAuthHarness(t)

	rr := h.do(t, http.MethodGet, "/login", "")
	if !strings.Contains(rr.Body.String(), `"setup_required":true`) {
		t.Errorf("expected setup_required, got %s", rr.Body.String())
	}

	rr = h.do(t, http.MethodPost, "/setup", `{"username":"admin","email":"admin@example.com","password":"adminpass1"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("setup: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = h.do(t, http.MethodGet, "/api/auth/me", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"role":"admin"`) {
		t.Errorf("setup should log the admin in, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = h.do(t, http.MethodPost, "/setup", `{"username":"other","email":"other@example.com","password":"otherpass1"}`)
	if rr.Code != http.StatusConflict {
		t.Errorf("second setup: expected 409, got %d", rr.Code)
	}
}

func TestAuthController_LoginLogoutFlow(t *testing.T) {
	h := setupAuthHarness(t)
	if _, err := h.svc.CreateUser("alice", "alice@example.com", "password123", entities.UserRoleMember); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if rr := h.do(t, http.MethodGet, "/api/auth/me", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous me: expected 401, got %d", rr.Code)
	}

	rr := h.do(t, http.MethodPost, "/login", `{"username":"alice","password":"password123","next":"//evil.com"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Next string        `json:"next"`
		User entities.User `json:"user"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if body.Next != "/" {
		t.Errorf("unsafe next should be sanitized, got %q", body.Next)
	}
	if body.User.Username != "alice" {
		t.Errorf("unexpected user %+v", body.User)
	}

	if rr := h.do(t, http.MethodGet, "/api/auth/me", ""); rr.Code != http.StatusOK {
		t.Fatalf("me after login: expected 200, got %d", rr.Code)
	}

	if rr := h.do(t, http.MethodPost, "/logout", ""); rr.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rr.Code)
	}

	if rr := h.do(t, http.MethodGet, "/api/auth/me", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("me after logout: expected 401, got %d", rr.Code)
	}

	h.events.mu.Lock()
	defer h.events.mu.Unlock()
	if len(h.events.events) != 2 || h.events.events[0].action != "login" || h.events.events[1].action != "logout" {
		t.Errorf("unexpected audit events %+v", h.events.events)
	}
}

func TestAuthController_LoginFailures(t *testing.T) {
	h := setupAuthHarness(t)
	if _, err := h.svc.CreateUser("alice", "alice@example.com", "password123", entities.UserRoleMember); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if rr := h.do(t, http.MethodPost, "/login", `{"username":"alice"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("missing password: expected 400, got %d", rr.Code)
	}

	for i := 0; i < 3; i++ {
		rr := h.do(t, http.MethodPost, "/login", `{"username":"alice","password":"wrong-password"}`)
		if rr.Code != http.StatusUnauthorized && rr.Code != http.StatusForbidden {
			t.Fatalf("attempt %d: expected 401 or 403, got %d", i, rr.Code)
		}
	}

	rr := h.do(t, http.MethodPost, "/login", `{"username":"alice","password":"password123"}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("after repeated failures: expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestAuthController_TokenLifecycle(t *testing.T) {
	h := setupAuthHarness(t)
	if _, err := h.svc.CreateUser("alice", "alice@example.com", "password123", entities.UserRoleMember); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	h.do(t, http.MethodPost, "/login", `{"username":"alice","password":"password123"}`)

	rr := h.do(t, http.MethodPost, "/api/auth/token", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("generate token: expected 200, got %d", rr.Code)
	}
	var tokenResp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &tokenResp); err != nil || tokenResp.Token == "" {
		t.Fatalf("decode token response: %v %s", err, rr.Body.String())
	}

	bearer := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+tokenResp.Token)
		w := httptest.NewRecorder()
		h.router.ServeHTTP(w, req)
		return w.Code
	}

	if code := bearer(); code != http.StatusOK {
		t.Errorf("bearer me: expected 200, got %d", code)
	}

	if rr := h.do(t, http.MethodDelete, "/api/auth/token", ""); rr.Code != http.StatusOK {
		t.Fatalf("revoke token: expected 200, got %d", rr.Code)
	}

	if code := bearer(); code != http.StatusUnauthorized {
		t.Errorf("revoked bearer: expected 401, got %d", code)
	}
}

func TestAuthController_ChangePassword(t *testing.T) {
	h := setupAuthHarness(t)
	if _, err := h.svc.CreateUser("alice", "alice@example.com", "password123", entities.UserRoleMember); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	h.do(t, http.MethodPost, "/login", `{"username":"alice","password":"password123"}`)

	if rr := h.do(t, http.MethodPost, "/api/auth/password", `{"old_password":"nope-nope","new_password":"newpassword1"}`); rr.Code != http.StatusUnauthorized {
		t.Errorf("wrong old password: expected 401, got %d", rr.Code)
	}
	if rr := h.do(t, http.MethodPost, "/api/auth/password", `{"old_password":"password123","new_password":"newpassword1"}`); rr.Code != http.StatusOK {
		t.Fatalf("change password: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if _, err := h.svc.Authenticate("alice", "newpassword1"); err != nil {
		t.Errorf("new password should authenticate: %v", err)
	}
}
