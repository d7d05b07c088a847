package httpapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dmitrijs2005/accountd/internal/server/auth"
)

func TestAuthorizer_MissingToken(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s.Router(), http.MethodGet, "/user", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthorizer_MalformedToken(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s.Router(), http.MethodGet, "/user", "not-a-valid-jwt", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthorizer_WrongSecret(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	reg := registerViaAPI(t, router, "wrong-secret@example.com")

	forged, err := auth.GenerateToken(reg.Data.User.ID, []byte("some-other-secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	w := doJSON(t, router, http.MethodGet, "/user", forged, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthorizer_ExpiredToken(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	reg := registerViaAPI(t, router, "expired@example.com")

	expired, err := auth.GenerateToken(reg.Data.User.ID, []byte(testSecret), -1*time.Second)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	w := doJSON(t, router, http.MethodGet, "/user", expired, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthorizer_DeletedSubject(t *testing.T) {
	s, repo := newTestServer(t)
	router := s.Router()

	reg := registerViaAPI(t, router, "deleted@example.com")

	// The token is still valid, but its subject is gone.
	repo.Delete(context.Background(), reg.Data.User.ID)

	w := doJSON(t, router, http.MethodGet, "/user", reg.Data.Token, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthorizer_ValidToken_AttachesSubject(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	reg := registerViaAPI(t, router, "valid@example.com")

	w := doJSON(t, router, http.MethodGet, "/user", reg.Data.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if decodeEnvelope(t, w).Data.User.ID != reg.Data.User.ID {
		t.Fatal("authorizer attached the wrong subject id")
	}
}
