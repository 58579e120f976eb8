// Package session carries the authenticated caller through a request.
package session

import (
	"context"

	"github.com/shinyyama/farmmarket-backend/internal/model"
)

type ctxKey struct{}

// Session is resolved once per request from a verified bearer token.
type Session struct {
	User model.User
}

func New(u model.User) *Session {
	return &Session{User: u}
}

func (s *Session) UserID() uint64 {
	if s == nil {
		return 0
	}
	return s.User.ID
}

func (s *Session) Role() model.Role {
	if s == nil {
		return ""
	}
	return s.User.Role
}

func (s *Session) IsAdmin() bool  { return s.Role() == model.RoleAdmin }
func (s *Session) IsFarmer() bool { return s.Role() == model.RoleFarmer }
func (s *Session) IsBuyer() bool  { return s.Role() == model.RoleBuyer }

// With stores s on ctx.
func With(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// From returns the session stored by With, if any.
func From(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
