package routes_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/skyroute/skyroute-api/internal/config"
	"github.com/skyroute/skyroute-api/internal/logging"
	"github.com/skyroute/skyroute-api/internal/server"
)

type testAPI struct {
	srv *server.Server
	mr  *miniredis.Miniredis
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	cfg := config.Config{
		AppName:          "skyroute-test",
		AppEnv:           "development",
		Port:             "0",
		PIIKey:           bytes.Repeat([]byte{0x11}, 32),
		VerificationTTL:  300 * time.Second,
		VerifyRatePerMin: 100,
	}

	srv, err := server.New(cfg, nil, cache, logging.Discard())
	if err != nil {
		t.Fatalf("build server: %v", err)
	}

	return &testAPI{srv: srv, mr: mr}
}

func (a *testAPI) post(t *testing.T, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.srv.App().Test(req, 5000)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()

	var decoded map[string]any
	if len(raw) > 0 && json.Valid(raw) {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

// storedCode reads the issued code straight from the store, standing in for
// the out-of-band delivery channel.
func (a *testAPI) storedCode(t *testing.T, email string) string {
	t.Helper()
	code, err := a.mr.Get("verification:" + email)
	if err != nil {
		t.Fatalf("read code for %s: %v", email, err)
	}
	return code
}

func (a *testAPI) registerUser(t *testing.T, userID, password, name, email string) {
	t.Helper()

	resp, body := a.post(t, "/auth/verify", map[string]string{"email": email, "type": "register"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status %d: %v", resp.StatusCode, body)
	}
	if body["message"] != "Code sent" {
		t.Fatalf("unexpected verify response: %v", body)
	}

	resp, body = a.post(t, "/auth/register", map[string]string{
		"userId":   userID,
		"password": password,
		"name":     name,
		"email":    email,
		"code":     a.storedCode(t, email),
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register status %d: %v", resp.StatusCode, body)
	}
	if body["success"] != true {
		t.Fatalf("unexpected register response: %v", body)
	}
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	api := newTestAPI(t)

	api.registerUser(t, "alice", "p@ss1", "Alice", "a@x.com")

	resp, body := api.post(t, "/auth/login", map[string]string{"userId": "alice", "password": "p@ss1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %v", resp.StatusCode, body)
	}
	if body["success"] != true || body["name"] != "Alice" {
		t.Fatalf("unexpected login response: %v", body)
	}
}

func TestLoginFailures(t *testing.T) {
	api := newTestAPI(t)

	api.registerUser(t, "alice", "p@ss1", "Alice", "a@x.com")

	resp, body := api.post(t, "/auth/login", map[string]string{"userId": "alice", "password": "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d: %v", resp.StatusCode, body)
	}
	if body["error"] == nil {
		t.Fatalf("expected error message, got %v", body)
	}

	resp, _ = api.post(t, "/auth/login", map[string]string{"userId": "ghost", "password": "p@ss1"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", resp.StatusCode)
	}
}

func TestDuplicateRegistrationRefused(t *testing.T) {
	api := newTestAPI(t)

	api.registerUser(t, "alice", "p@ss1", "Alice", "a@x.com")

	// Second registration with the same id must fail even with a fresh code
	// and a different payload.
	resp, _ := api.post(t, "/auth/verify", map[string]string{"email": "b@x.com", "type": "register"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status %d", resp.StatusCode)
	}
	resp, body := api.post(t, "/auth/register", map[string]string{
		"userId":   "alice",
		"password": "other",
		"name":     "Imposter",
		"email":    "b@x.com",
		"code":     api.storedCode(t, "b@x.com"),
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate id, got %d: %v", resp.StatusCode, body)
	}
	if body["error"] != "ID already exists" {
		t.Fatalf("unexpected error message: %v", body)
	}
}

func TestReissueInvalidatesFirstCode(t *testing.T) {
	api := newTestAPI(t)

	resp, _ := api.post(t, "/auth/verify", map[string]string{"email": "a@x.com", "type": "register"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status %d", resp.StatusCode)
	}
	first := api.storedCode(t, "a@x.com")

	resp, _ = api.post(t, "/auth/verify", map[string]string{"email": "a@x.com", "type": "register"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second verify status %d", resp.StatusCode)
	}
	second := api.storedCode(t, "a@x.com")

	if first == second {
		t.Skip("reissued code collided, nothing to assert")
	}

	resp, body := api.post(t, "/auth/register", map[string]string{
		"userId":   "alice",
		"password": "p@ss1",
		"name":     "Alice",
		"email":    "a@x.com",
		"code":     first,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected stale code rejection, got %d: %v", resp.StatusCode, body)
	}
	if body["error"] != "Invalid verification code" {
		t.Fatalf("unexpected error message: %v", body)
	}
}

func TestExpiredCodeRejected(t *testing.T) {
	api := newTestAPI(t)

	resp, _ := api.post(t, "/auth/verify", map[string]string{"email": "a@x.com", "type": "register"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status %d", resp.StatusCode)
	}
	code := api.storedCode(t, "a@x.com")

	api.mr.FastForward(301 * time.Second)

	resp, body := api.post(t, "/auth/register", map[string]string{
		"userId":   "alice",
		"password": "p@ss1",
		"name":     "Alice",
		"email":    "a@x.com",
		"code":     code,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected expired code rejection, got %d: %v", resp.StatusCode, body)
	}
}

func TestFindID(t *testing.T) {
	api := newTestAPI(t)

	api.registerUser(t, "alice", "p@ss1", "Alice", "a@x.com")

	resp, body := api.post(t, "/auth/find-id", map[string]string{"name": "Alice", "email": "a@x.com"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("find-id status %d: %v", resp.StatusCode, body)
	}
	if body["userId"] != "alice" {
		t.Fatalf("expected userId alice, got %v", body)
	}

	resp, _ = api.post(t, "/auth/find-id", map[string]string{"name": "Bob", "email": "a@x.com"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown pair, got %d", resp.StatusCode)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	api := newTestAPI(t)

	api.registerUser(t, "alice", "p@ss1", "Alice", "a@x.com")

	resp, _ := api.post(t, "/auth/verify", map[string]string{"email": "a@x.com", "type": "reset", "userId": "alice"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status %d", resp.StatusCode)
	}

	resp, body := api.post(t, "/auth/find-pw", map[string]string{
		"userId":      "alice",
		"newPassword": "n3w-pass",
		"code":        api.storedCode(t, "a@x.com"),
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("find-pw status %d: %v", resp.StatusCode, body)
	}
	if body["success"] != true {
		t.Fatalf("unexpected find-pw response: %v", body)
	}

	resp, _ = api.post(t, "/auth/login", map[string]string{"userId": "alice", "password": "p@ss1"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("old password should be rejected, got %d", resp.StatusCode)
	}

	resp, body = api.post(t, "/auth/login", map[string]string{"userId": "alice", "password": "n3w-pass"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("new password login status %d: %v", resp.StatusCode, body)
	}
	if body["name"] != "Alice" {
		t.Fatalf("expected name Alice, got %v", body)
	}
}

func TestValidationErrors(t *testing.T) {
	api := newTestAPI(t)

	// Missing email on verify.
	resp, body := api.post(t, "/auth/verify", map[string]string{"type": "register"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing email, got %d: %v", resp.StatusCode, body)
	}
	if body["error"] == nil {
		t.Fatalf("expected error message, got %v", body)
	}

	// Malformed code on register.
	resp, _ = api.post(t, "/auth/register", map[string]string{
		"userId":   "alice",
		"password": "p@ss1",
		"name":     "Alice",
		"email":    "a@x.com",
		"code":     "abc",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed code, got %d", resp.StatusCode)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	resp, err := api.srv.App().Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCORSHeadersPresent(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := api.srv.App().Test(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected permissive CORS, got %q", got)
	}
}
