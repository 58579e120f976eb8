package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shinyyama/farmmarket-backend/internal/auth"
	"github.com/shinyyama/farmmarket-backend/internal/model"
	"github.com/shinyyama/farmmarket-backend/internal/repository"
	"github.com/shinyyama/farmmarket-backend/internal/session"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     model.Role
}

type AuthResult struct {
	Token string
	User  *model.User
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	// Authenticate verifies a bearer token and loads the caller fresh from the store.
	Authenticate(ctx context.Context, token string) (*session.Session, error)
}

type authService struct {
	users            repository.UserRepository
	hasher           auth.PasswordHasher
	tokens           *auth.TokenIssuer
	allowAdminSignup bool
}

func NewAuthService(users repository.UserRepository, hasher auth.PasswordHasher, tokens *auth.TokenIssuer, allowAdminSignup bool) AuthService {
	if hasher == nil {
		hasher = auth.BcryptHasher{Cost: 12}
	}
	return &authService{users: users, hasher: hasher, tokens: tokens, allowAdminSignup: allowAdminSignup}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" || email == "" || in.Password == "" || in.Role == "" {
		return nil, newError(ErrInvalidInput, "username, email, password and role are required")
	}
	if len(username) > 64 {
		return nil, newError(ErrInvalidInput, "username is too long")
	}
	if !strings.Contains(email, "@") {
		return nil, newError(ErrInvalidInput, "invalid email")
	}
	if !in.Role.Valid() {
		return nil, newError(ErrInvalidInput, "role must be farmer, buyer or admin")
	}
	if in.Role == model.RoleAdmin && !s.allowAdminSignup {
		return nil, newError(ErrForbidden, "admin accounts cannot be self-registered")
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, newError(ErrDuplicateUser, "User already exists")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{Username: username, Email: email, PasswordHash: hash, Role: in.Role}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, newError(ErrDuplicateUser, "User already exists")
		}
		return nil, err
	}
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: u}, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, newError(ErrInvalidCredentials, "Invalid credentials")
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrInvalidCredentials, "Invalid credentials")
		}
		return nil, err
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, newError(ErrInvalidCredentials, "Invalid credentials")
	}
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: u}, nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*session.Session, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, newError(ErrUnauthorized, "invalid_token")
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrUnauthorized, "invalid_token")
		}
		return nil, err
	}
	return session.New(*u), nil
}
