package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shinyyama/farmmarket-backend/internal/model"
	"github.com/shinyyama/farmmarket-backend/internal/service"
	"github.com/shinyyama/farmmarket-backend/internal/testutil"
)

func TestIsEligible(t *testing.T) {
	f := newFixture(t)
	verified := testutil.CreateVerifiedUser(t, f.db, "verified", model.RoleBuyer)
	rejected := testutil.CreateUser(t, f.db, "rejected", model.RoleBuyer)
	testutil.SetVerified(t, f.db, rejected.ID, false)
	absent := testutil.CreateUser(t, f.db, "absent", model.RoleBuyer)

	tests := []struct {
		name string
		id   uint64
		want bool
	}{
		{"verified", verified.ID, true},
		{"rejected", rejected.ID, false},
		{"never reviewed", absent.ID, false},
		{"unknown user", 9999, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.verification.IsEligible(context.Background(), tt.id)
			if err != nil {
				t.Fatalf("err=%v", err)
			}
			if got != tt.want {
				t.Fatalf("got=%v want=%v", got, tt.want)
			}
		})
	}
}

func TestVerificationList(t *testing.T) {
	f := newFixture(t)
	admin := testutil.CreateUser(t, f.db, "admin", model.RoleAdmin)
	farmer := testutil.CreateVerifiedUser(t, f.db, "farmer", model.RoleFarmer)
	buyer := testutil.CreateUser(t, f.db, "buyer", model.RoleBuyer)
	ctx := context.Background()

	if _, err := f.verification.List(ctx, testutil.Session(farmer)); !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("err=%v want ErrForbidden", err)
	}
	list, err := f.verification.List(ctx, testutil.Session(admin))
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("len=%d", len(list))
	}
	byID := map[uint64]service.UserVerification{}
	for _, row := range list {
		byID[row.User.ID] = row
	}
	if row := byID[farmer.ID]; !row.VerifiedStatus || row.VerificationID == nil || row.VerificationDate == nil {
		t.Fatalf("farmer row=%+v", row)
	}
	if row := byID[buyer.ID]; row.VerifiedStatus || row.VerificationID != nil {
		t.Fatalf("buyer row=%+v", row)
	}
}

func TestVerificationSetStatus(t *testing.T) {
	f := newFixture(t)
	admin := testutil.CreateUser(t, f.db, "admin", model.RoleAdmin)
	other := testutil.CreateUser(t, f.db, "admin-2", model.RoleAdmin)
	buyer := testutil.CreateUser(t, f.db, "buyer", model.RoleBuyer)
	ctx := context.Background()
	s := testutil.Session(admin)

	tests := []struct {
		name   string
		actor  *model.User
		target uint64
		want   error
	}{
		{"non admin", buyer, buyer.ID, service.ErrForbidden},
		{"unknown user", admin, 9999, service.ErrNotFound},
		{"admin target", admin, other.ID, service.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.verification.SetStatus(ctx, testutil.Session(tt.actor), tt.target, true)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err=%v want %v", err, tt.want)
			}
		})
	}

	v, err := f.verification.SetStatus(ctx, s, buyer.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if !v.VerifiedStatus || v.VerificationDate == nil || v.VerifiedBy == nil || *v.VerifiedBy != admin.ID {
		t.Fatalf("approved=%+v", v)
	}
	if ok, _ := f.verification.IsEligible(ctx, buyer.ID); !ok {
		t.Fatal("buyer should be eligible")
	}

	v, err = f.verification.SetStatus(ctx, s, buyer.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if v.VerifiedStatus || v.VerificationDate != nil {
		t.Fatalf("revoked=%+v", v)
	}
	if ok, _ := f.verification.IsEligible(ctx, buyer.ID); ok {
		t.Fatal("revoked buyer must not be eligible")
	}

	list, unread, err := f.notify.List(ctx, buyer.ID, true, 10)
	if err != nil {
		t.Fatal(err)
	}
	if unread != 2 || len(list) != 2 || list[0].Type != model.NotificationVerification {
		t.Fatalf("notifications=%+v unread=%d", list, unread)
	}
}
