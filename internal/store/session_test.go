package store

import (
	"errors"
	"testing"
	"time"

	"github.com/efreitasn/stockmarket/internal/domain"
)

func TestSessionStore_CreateLookupDelete(t *testing.T) {
	s := NewSessionStore(time.Hour)

	token := s.Create(7)
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	id, err := s.Lookup(token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if id != 7 {
		t.Fatalf("expected trader 7, got %d", id)
	}

	s.Delete(token)
	if _, err := s.Lookup(token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated after delete, got %v", err)
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	s := NewSessionStore(time.Minute)
	now := base
	s.now = func() time.Time { return now }

	token := s.Create(1)
	other := s.Create(2)

	now = now.Add(time.Minute)
	if _, err := s.Lookup(token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected expired session, got %v", err)
	}
	if n := s.Sweep(); n != 1 {
		t.Fatalf("expected sweep to remove 1 session, got %d", n)
	}
	if _, err := s.Lookup(other); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected swept session to be gone, got %v", err)
	}
}

func TestSessionStore_UnknownToken(t *testing.T) {
	s := NewSessionStore(time.Hour)
	if _, err := s.Lookup("nope"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	s.Delete("nope")
}
