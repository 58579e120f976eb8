package service

import (
	"context"
	"errors"
	"time"

	"github.com/shinyyama/farmmarket-backend/internal/model"
	"github.com/shinyyama/farmmarket-backend/internal/repository"
	"github.com/shinyyama/farmmarket-backend/internal/session"
	"gorm.io/gorm"
)

// UserVerification is a farmer or buyer merged with their verification record.
// VerificationID is nil when the user was never reviewed.
type UserVerification struct {
	User             model.User
	VerifiedStatus   bool
	VerificationDate *time.Time
	VerificationID   *uint64
}

type VerificationService interface {
	// IsEligible reads the current status on every call; revocation takes
	// effect on the next privileged write.
	IsEligible(ctx context.Context, userID uint64) (bool, error)
	List(ctx context.Context, actor *session.Session) ([]UserVerification, error)
	SetStatus(ctx context.Context, actor *session.Session, userID uint64, status bool) (*model.Verification, error)
}

type verificationService struct {
	repo   repository.VerificationRepository
	users  repository.UserRepository
	notify NotificationService
	now    func() time.Time
}

func NewVerificationService(repo repository.VerificationRepository, users repository.UserRepository, notify NotificationService) VerificationService {
	return &verificationService{repo: repo, users: users, notify: notify, now: func() time.Time { return time.Now().UTC() }}
}

func (s *verificationService) IsEligible(ctx context.Context, userID uint64) (bool, error) {
	v, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return v.VerifiedStatus, nil
}

func (s *verificationService) List(ctx context.Context, actor *session.Session) ([]UserVerification, error) {
	if !actor.IsAdmin() {
		return nil, newError(ErrForbidden, "Admin access required")
	}
	users, err := s.users.ListByRoles(ctx, model.RoleFarmer, model.RoleBuyer)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	byUser := make(map[uint64]model.Verification, len(records))
	for _, v := range records {
		byUser[v.UserID] = v
	}
	out := make([]UserVerification, 0, len(users))
	for _, u := range users {
		row := UserVerification{User: u}
		if v, ok := byUser[u.ID]; ok {
			row.VerifiedStatus = v.VerifiedStatus
			row.VerificationDate = v.VerificationDate
			row.VerificationID = uint64Ptr(v.ID)
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *verificationService) SetStatus(ctx context.Context, actor *session.Session, userID uint64, status bool) (*model.Verification, error) {
	if !actor.IsAdmin() {
		return nil, newError(ErrForbidden, "Admin access required")
	}
	target, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrNotFound, "User not found")
		}
		return nil, err
	}
	if !target.Role.Transacting() {
		return nil, newError(ErrInvalidInput, "only farmers and buyers can be verified")
	}
	v, err := s.repo.Upsert(ctx, target.ID, status, actor.UserID(), s.now())
	if err != nil {
		return nil, err
	}
	if s.notify != nil {
		title, body := "Account verification revoked", "An admin revoked your verification. You cannot transact until approved again."
		if status {
			title, body = "Account verified", "An admin approved your account. You can now transact on the marketplace."
		}
		s.notify.Notify(ctx, target.ID, model.NotificationVerification, title, body, nil, nil)
	}
	return v, nil
}
