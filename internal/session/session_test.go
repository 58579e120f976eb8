package session

import (
	"context"
	"testing"

	"github.com/shinyyama/farmmarket-backend/internal/model"
)

func TestSessionContext(t *testing.T) {
	if _, ok := From(context.Background()); ok {
		t.Fatal("empty context has no session")
	}
	s := New(model.User{ID: 3, Role: model.RoleFarmer})
	got, ok := From(With(context.Background(), s))
	if !ok || got.UserID() != 3 || !got.IsFarmer() || got.IsBuyer() || got.IsAdmin() {
		t.Fatalf("session=%+v ok=%v", got, ok)
	}
}

func TestNilSession(t *testing.T) {
	var s *Session
	if s.UserID() != 0 || s.Role() != "" || s.IsAdmin() || s.IsFarmer() || s.IsBuyer() {
		t.Fatal("nil session must have no identity")
	}
}
