package identity

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/questline-app/questline/internal/store"
)

func TestGenerateAnonID(t *testing.T) {
	id, err := generateAnonID()
	if err != nil {
		t.Fatalf("generateAnonID failed: %v", err)
	}
	if !isValidAnonID(id) {
		t.Errorf("Generated ID %q does not match the expected format", id)
	}

	other, _ := generateAnonID()
	if id == other {
		t.Error("Expected unique IDs")
	}
}

func TestIsValidAnonID(t *testing.T) {
	cases := map[string]bool{
		"anon_0123456789abcdef0123456789abcdef": true,
		"anon_short":                            false,
		"0123456789abcdef0123456789abcdef":      false,
		"anon_0123456789ABCDEF0123456789ABCDEF": false,
		"":                                      false,
	}
	for id, want := range cases {
		if got := isValidAnonID(id); got != want {
			t.Errorf("isValidAnonID(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestDeriveUsername(t *testing.T) {
	if got := deriveUsername("anon_0123456789abcdef0123456789abcdef"); got != "founder-89abcdef" {
		t.Errorf("Unexpected username %q", got)
	}
	if got := deriveUsername("short"); got != "founder" {
		t.Errorf("Expected fallback username, got %q", got)
	}
}

func TestMiddlewareMintsIdentity(t *testing.T) {
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	var seenUserID string
	handler := Middleware(repo, "", true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seenUserID = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !isValidAnonID(seenUserID) {
		t.Errorf("Expected a minted anon ID, got %q", seenUserID)
	}

	cookies := w.Result().Cookies()
	var found bool
	for _, c := range cookies {
		if c.Name == AnonCookieName && c.Value == seenUserID {
			found = true
			if !c.HttpOnly {
				t.Error("Expected HttpOnly cookie")
			}
		}
	}
	if !found {
		t.Error("Expected identity cookie to be set")
	}

	user, err := repo.GetUser(req.Context(), seenUserID)
	if err != nil {
		t.Fatalf("Failed to load user: %v", err)
	}
	if user == nil {
		t.Fatal("Expected user row to be created")
	}
	if !strings.HasPrefix(user.Username, "founder-") {
		t.Errorf("Unexpected username %q", user.Username)
	}
	if user.CurrentLevel != 1 {
		t.Errorf("Expected level 1, got %d", user.CurrentLevel)
	}
}

func TestMiddlewareReusesCookieIdentity(t *testing.T) {
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	const id = "anon_0123456789abcdef0123456789abcdef"
	var seenUserID string
	handler := Middleware(repo, "", true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seenUserID = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: id})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if seenUserID != id {
		t.Errorf("Expected cookie identity %q, got %q", id, seenUserID)
	}
}

func TestMiddlewareDevFallback(t *testing.T) {
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	var seenUserID string
	handler := Middleware(repo, "dev-user", true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seenUserID = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seenUserID != "dev-user" {
		t.Errorf("Expected dev fallback identity, got %q", seenUserID)
	}
}
