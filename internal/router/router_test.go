package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/truthguard/service-core/internal/identity"
	"github.com/truthguard/service-core/internal/kvstore"
)

const testSetupKey = "test-setup-key"

func setupTestRouter(t *testing.T) (http.Handler, *identity.LocalProvider) {
	t.Helper()
	provider := identity.NewLocalProvider([]byte("test-secret"), time.Minute)
	store := kvstore.NewMemStore()
	handler := RegisterRoutes(zap.NewNop().Sugar(), store, provider, testSetupKey)
	return handler, provider
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	handler, _ := setupTestRouter(t)

	w := doJSON(t, handler, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := decodeBody(t, w)["status"]; got != "ok" {
		t.Errorf("expected status ok, got %v", got)
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Error("expected a request id header")
	}
}

func TestAdminBootstrapScenario(t *testing.T) {
	handler, _ := setupTestRouter(t)

	// no users yet
	w := doJSON(t, handler, http.MethodGet, "/admin/exists", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("admin exists: expected 200, got %d", w.Code)
	}
	if got := decodeBody(t, w)["hasAdmins"]; got != false {
		t.Errorf("expected hasAdmins false, got %v", got)
	}

	// bootstrap the first admin
	payload := map[string]string{"email": "a@x.com", "password": "secret1", "adminKey": testSetupKey}
	w = doJSON(t, handler, http.MethodPost, "/auth/admin/signup", "", payload)
	if w.Code != http.StatusOK {
		t.Fatalf("admin signup: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, handler, http.MethodGet, "/admin/exists", "", nil)
	if got := decodeBody(t, w)["hasAdmins"]; got != true {
		t.Errorf("expected hasAdmins true after bootstrap, got %v", got)
	}

	// second identical call conflicts with a suggestion
	w = doJSON(t, handler, http.MethodPost, "/auth/admin/signup", "", payload)
	if w.Code != http.StatusConflict {
		t.Fatalf("repeat admin signup: expected 409, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["error"] == "" || body["error"] == nil {
		t.Error("expected an error message")
	}
	if s, _ := body["suggestion"].(string); s == "" {
		t.Error("conflict response must carry a suggestion")
	}
}

func TestAdminSignup_BadKey(t *testing.T) {
	handler, _ := setupTestRouter(t)

	payload := map[string]string{"email": "a@x.com", "password": "secret1", "adminKey": "wrong"}
	w := doJSON(t, handler, http.MethodPost, "/auth/admin/signup", "", payload)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestSignupThenPromote(t *testing.T) {
	handler, provider := setupTestRouter(t)

	w := doJSON(t, handler, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": "b@x.com", "password": "secret1", "name": "Bob",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("signup: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	// promote the existing user with the correct key
	w = doJSON(t, handler, http.MethodPost, "/auth/admin/signup", "", map[string]string{
		"email": "b@x.com", "password": "whatever", "adminKey": testSetupKey,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("promotion: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if msg, _ := decodeBody(t, w)["message"].(string); !strings.Contains(msg, "upgraded") {
		t.Errorf("expected an upgrade message, got %q", msg)
	}

	// the promoted user's profile now reports isAdmin true
	token, err := provider.Authenticate(context.Background(), "b@x.com", "secret1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	w = doJSON(t, handler, http.MethodGet, "/auth/profile", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d", w.Code)
	}
	user, _ := decodeBody(t, w)["user"].(map[string]any)
	if user == nil {
		t.Fatal("expected a user object")
	}
	if user["isAdmin"] != true {
		t.Errorf("expected isAdmin true, got %v", user["isAdmin"])
	}
	if user["name"] != "Bob" {
		t.Errorf("promotion must preserve the name, got %v", user["name"])
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	handler, _ := setupTestRouter(t)

	payload := map[string]string{"email": "c@x.com", "password": "secret1"}
	if w := doJSON(t, handler, http.MethodPost, "/auth/signup", "", payload); w.Code != http.StatusOK {
		t.Fatalf("signup: expected 200, got %d", w.Code)
	}
	if w := doJSON(t, handler, http.MethodPost, "/auth/signup", "", payload); w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate signup: expected 400, got %d", w.Code)
	}
}

func TestBearerRoutes_RejectMissingOrInvalidToken(t *testing.T) {
	handler, _ := setupTestRouter(t)

	protected := []struct {
		method, path string
	}{
		{http.MethodGet, "/auth/profile"},
		{http.MethodPost, "/auth/update-login"},
		{http.MethodGet, "/analysis/history"},
		{http.MethodPost, "/analysis/history"},
	}
	for _, route := range protected {
		if w := doJSON(t, handler, route.method, route.path, "", nil); w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: expected 401, got %d", route.method, route.path, w.Code)
		}
		if w := doJSON(t, handler, route.method, route.path, "garbage", nil); w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s with bad token: expected 401, got %d", route.method, route.path, w.Code)
		}
	}
}

func TestAnalysisHistory_RoundTrip(t *testing.T) {
	handler, provider := setupTestRouter(t)
	ctx := context.Background()

	signup := func(email string) string {
		w := doJSON(t, handler, http.MethodPost, "/auth/signup", "", map[string]string{
			"email": email, "password": "secret1",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("signup %s: expected 200, got %d", email, w.Code)
		}
		token, err := provider.Authenticate(ctx, email, "secret1")
		if err != nil {
			t.Fatalf("authenticate %s: %v", email, err)
		}
		return token
	}
	token := signup("d@x.com")
	otherToken := signup("e@x.com")

	// zero saved records: empty array, not an error
	w := doJSON(t, handler, http.MethodGet, "/analysis/history", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("empty history: expected 200, got %d", w.Code)
	}
	if analyses, ok := decodeBody(t, w)["analyses"].([]any); !ok || len(analyses) != 0 {
		t.Errorf("expected empty analyses array, got %s", w.Body.String())
	}

	record := map[string]any{
		"type":             "url",
		"title":            "Viral claim",
		"content":          "https://example.com/claim",
		"credibilityScore": 17.5,
		"status":           "debunked",
	}
	w = doJSON(t, handler, http.MethodPost, "/analysis/history", token, record)
	if w.Code != http.StatusOK {
		t.Fatalf("save: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	analysisID, _ := decodeBody(t, w)["analysisId"].(string)
	if analysisID == "" {
		t.Fatal("expected a generated analysisId")
	}

	w = doJSON(t, handler, http.MethodGet, "/analysis/history", token, nil)
	analyses, _ := decodeBody(t, w)["analyses"].([]any)
	if len(analyses) != 1 {
		t.Fatalf("expected 1 analysis, got %d", len(analyses))
	}
	got, _ := analyses[0].(map[string]any)
	if got["id"] != analysisID {
		t.Errorf("expected id %q, got %v", analysisID, got["id"])
	}
	for field, want := range record {
		if got[field] != want {
			t.Errorf("field %s: expected %v, got %v", field, want, got[field])
		}
	}
	if createdAt, _ := got["createdAt"].(string); createdAt == "" {
		t.Error("expected a stamped createdAt")
	}

	// the other user's history stays empty
	w = doJSON(t, handler, http.MethodGet, "/analysis/history", otherToken, nil)
	if analyses, _ := decodeBody(t, w)["analyses"].([]any); len(analyses) != 0 {
		t.Errorf("cross-user leak: expected empty history, got %d records", len(analyses))
	}
}

func TestAnalysisHistory_RejectsUnknownKind(t *testing.T) {
	handler, provider := setupTestRouter(t)

	w := doJSON(t, handler, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": "f@x.com", "password": "secret1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("signup: expected 200, got %d", w.Code)
	}
	token, err := provider.Authenticate(context.Background(), "f@x.com", "secret1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	w = doJSON(t, handler, http.MethodPost, "/analysis/history", token, map[string]any{
		"type": "podcast", "title": "t", "content": "c", "credibilityScore": 50, "status": "verified",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown type, got %d", w.Code)
	}
}

func TestUpdateLogin(t *testing.T) {
	handler, provider := setupTestRouter(t)

	w := doJSON(t, handler, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": "g@x.com", "password": "secret1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("signup: expected 200, got %d", w.Code)
	}
	token, err := provider.Authenticate(context.Background(), "g@x.com", "secret1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	w = doJSON(t, handler, http.MethodPost, "/auth/update-login", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if msg, _ := decodeBody(t, w)["message"].(string); msg == "" {
		t.Error("expected a confirmation message")
	}
}
