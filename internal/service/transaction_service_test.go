package service_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/shinyyama/farmmarket-backend/internal/metrics"
	"github.com/shinyyama/farmmarket-backend/internal/model"
	"github.com/shinyyama/farmmarket-backend/internal/service"
	"github.com/shinyyama/farmmarket-backend/internal/testutil"
)

func TestPurchaseScenarioA(t *testing.T) {
	f := newFixture(t)
	farmer := testutil.CreateVerifiedUser(t, f.db, "farmer", model.RoleFarmer)
	buyer := testutil.CreateVerifiedUser(t, f.db, "buyer", model.RoleBuyer)
	p := testutil.CreateProduct(t, f.db, farmer.ID, "Tomatoes", 100, 2.5)

	res, err := f.transactions.Purchase(context.Background(), testutil.Session(buyer), p.ID, 30)
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if res.Transaction.QuantityPurchased != 30 || res.Transaction.TotalPrice != 75 {
		t.Fatalf("transaction=%+v", res.Transaction)
	}
	if res.Transaction.Status != model.TransactionStatusPending || res.Transaction.BuyerID != buyer.ID {
		t.Fatalf("transaction=%+v", res.Transaction)
	}
	if res.RemainingStock != 70 {
		t.Fatalf("remaining=%v", res.RemainingStock)
	}
	got := testutil.Reload(t, f.db, p)
	if got.Quantity != 70 || !got.IsAvailable {
		t.Fatalf("product=%+v", got)
	}
	if n := f.metrics.PurchaseCount(metrics.ResultOK); n != 1 {
		t.Fatalf("ok purchases metric=%v", n)
	}

	// the farmer is told about the order
	list, unread, err := f.notify.List(context.Background(), farmer.ID, true, 10)
	if err != nil {
		t.Fatal(err)
	}
	if unread != 1 || len(list) != 1 || list[0].Type != model.NotificationNewOrder {
		t.Fatalf("notifications=%+v unread=%d", list, unread)
	}
}

func TestPurchaseScenarioB(t *testing.T) {
	f := newFixture(t)
	farmer := testutil.CreateVerifiedUser(t, f.db, "farmer", model.RoleFarmer)
	buyer := testutil.CreateVerifiedUser(t, f.db, "buyer", model.RoleBuyer)
	p := testutil.CreateProduct(t, f.db, farmer.ID, "Potatoes", 10, 1)

	_, err := f.transactions.Purchase(context.Background(), testutil.Session(buyer), p.ID, 15)
	if !errors.Is(err, service.ErrInsufficientStock) {
		t.Fatalf("err=%v want ErrInsufficientStock", err)
	}
	var stockErr *service.InsufficientStockError
	if !errors.As(err, &stockErr) || stockErr.Available != 10 {
		t.Fatalf("err=%#v", err)
	}
	if err.Error() != "Not enough stock. Only 10 kg available." {
		t.Fatalf("message=%q", err.Error())
	}
	if got := testutil.Reload(t, f.db, p); got.Quantity != 10 || !got.IsAvailable {
		t.Fatalf("product changed: %+v", got)
	}
	if n := f.metrics.PurchaseCount(metrics.ResultInsufficientStock); n != 1 {
		t.Fatalf("metric=%v", n)
	}
}

func TestPurchaseScenarioC(t *testing.T) {
	f := newFixture(t)
	farmer := testutil.CreateVerifiedUser(t, f.db, "farmer", model.RoleFarmer)
	buyer := testutil.CreateVerifiedUser(t, f.db, "buyer", model.RoleBuyer)
	p := testutil.CreateProduct(t, f.db, farmer.ID, "Carrots", 5, 1)
	ctx := context.Background()

	res, err := f.transactions.Purchase(ctx, testutil.Session(buyer), p.ID, 5)
	if err != nil {
		t.Fatal(err)
	}
	if res.RemainingStock != 0 {
		t.Fatalf("remaining=%v", res.RemainingStock)
	}
	got := testutil.Reload(t, f.db, p)
	if got.Quantity != 0 || got.IsAvailable {
		t.Fatalf("product=%+v", got)
	}
	list, err := f.products.ListAvailable(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, item := range list {
		if item.Product.ID == p.ID {
			t.Fatal("sold out product still listed")
		}
	}

	_, err = f.transactions.Purchase(ctx, testutil.Session(buyer), p.ID, 1)
	if !errors.Is(err, service.ErrNotFound) || err.Error() != "Product not found or unavailable" {
		t.Fatalf("err=%v", err)
	}
}

func TestPurchaseScenarioD(t *testing.T) {
	f := newFixture(t)
	farmer := testutil.CreateVerifiedUser(t, f.db, "farmer", model.RoleFarmer)
	neverReviewed := testutil.CreateUser(t, f.db, "new-buyer", model.RoleBuyer)
	rejected := testutil.CreateUser(t, f.db, "rejected-buyer", model.RoleBuyer)
	testutil.SetVerified(t, f.db, rejected.ID, false)
	p := testutil.CreateProduct(t, f.db, farmer.ID, "Onions", 10, 1)

	for _, u := range []*model.User{neverReviewed, rejected} {
		_, err := f.transactions.Purchase(context.Background(), testutil.Session(u), p.ID, 1)
		if !errors.Is(err, service.ErrNotVerified) {
			t.Fatalf("%s: err=%v want ErrNotVerified", u.Username, err)
		}
		if !errors.Is(err, service.ErrForbidden) {
			t.Fatalf("%s: not verified must be a forbidden error", u.Username)
		}
		if !strings.Contains(err.Error(), "approved by an Admin") {
			t.Fatalf("message=%q", err.Error())
		}
	}
	if got := testutil.Reload(t, f.db, p); got.Quantity != 10 {
		t.Fatalf("product changed: %+v", got)
	}
	var n int64
	f.db.Model(&model.Transaction{}).Count(&n)
	if n != 0 {
		t.Fatalf("transactions=%d", n)
	}
}

func TestPurchaseValidation(t *testing.T) {
	f := newFixture(t)
	farmer := testutil.CreateVerifiedUser(t, f.db, "farmer", model.RoleFarmer)
	buyer := testutil.CreateVerifiedUser(t, f.db, "buyer", model.RoleBuyer)
	p := testutil.CreateProduct(t, f.db, farmer.ID, "Beans", 10, 1)

	tests := []struct {
		name      string
		actor     *model.User
		productID uint64
		qty       float64
		want      error
	}{
		{"missing product", buyer, 0, 1, service.ErrInvalidInput},
		{"zero quantity", buyer, p.ID, 0, service.ErrInvalidInput},
		{"negative quantity", buyer, p.ID, -2, service.ErrInvalidInput},
		{"nan quantity", buyer, p.ID, math.NaN(), service.ErrInvalidInput},
		{"infinite quantity", buyer, p.ID, math.Inf(1), service.ErrInvalidInput},
		{"farmer cannot buy", farmer, p.ID, 1, service.ErrForbidden},
		{"unknown product", buyer, 9999, 1, service.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.transactions.Purchase(context.Background(), testutil.Session(tt.actor), tt.productID, tt.qty)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err=%v want %v", err, tt.want)
			}
		})
	}
}

func TestPurchaseRevokedBuyerIsRejected(t *testing.T) {
	f := newFixture(t)
	admin := testutil.CreateUser(t, f.db, "admin", model.RoleAdmin)
	farmer := testutil.CreateVerifiedUser(t, f.db, "farmer", model.RoleFarmer)
	buyer := testutil.CreateVerifiedUser(t, f.db, "buyer", model.RoleBuyer)
	p := testutil.CreateProduct(t, f.db, farmer.ID, "Leeks", 10, 1)
	ctx := context.Background()
	s := testutil.Session(buyer)

	if _, err := f.transactions.Purchase(ctx, s, p.ID, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.verification.SetStatus(ctx, testutil.Session(admin), buyer.ID, false); err != nil {
		t.Fatal(err)
	}
	if _, err := f.transactions.Purchase(ctx, s, p.ID, 1); !errors.Is(err, service.ErrNotVerified) {
		t.Fatalf("err=%v want ErrNotVerified", err)
	}
}

func TestPurchaseConcurrent(t *testing.T) {
	f := newFixture(t)
	farmer := testutil.CreateVerifiedUser(t, f.db, "farmer", model.RoleFarmer)
	p := testutil.CreateProduct(t, f.db, farmer.ID, "Melons", 10, 2)

	buyers := make([]*model.User, 4)
	for i := range buyers {
		buyers[i] = testutil.CreateVerifiedUser(t, f.db, fmt.Sprintf("buyer-%d", i), model.RoleBuyer)
	}

	// 4 x 3 kg against 10 kg: exactly three can succeed
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sold float64
	)
	for _, b := range buyers {
		wg.Add(1)
		go func(u *model.User) {
			defer wg.Done()
			res, err := f.transactions.Purchase(context.Background(), testutil.Session(u), p.ID, 3)
			if err != nil {
				if !errors.Is(err, service.ErrInsufficientStock) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			mu.Lock()
			sold += res.Transaction.QuantityPurchased
			mu.Unlock()
		}(b)
	}
	wg.Wait()

	if sold != 9 {
		t.Fatalf("sold=%v want 9", sold)
	}
	got := testutil.Reload(t, f.db, p)
	if got.Quantity != 1 || !got.IsAvailable {
		t.Fatalf("product=%+v", got)
	}
}

func TestPurchaseSnapshotSurvivesEdit(t *testing.T) {
	f := newFixture(t)
	farmer := testutil.CreateVerifiedUser(t, f.db, "farmer", model.RoleFarmer)
	buyer := testutil.CreateVerifiedUser(t, f.db, "buyer", model.RoleBuyer)
	p := testutil.CreateProduct(t, f.db, farmer.ID, "Apples", 10, 2)
	ctx := context.Background()

	res, err := f.transactions.Purchase(ctx, testutil.Session(buyer), p.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	name, price := "Red Apples", 9.0
	if _, err := f.products.Update(ctx, testutil.Session(farmer), p.ID, service.UpdateProductInput{ProductName: &name, PricePerUnit: &price}); err != nil {
		t.Fatal(err)
	}
	views, err := f.transactions.List(ctx, testutil.Session(buyer))
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || views[0].Transaction.ID != res.Transaction.ID {
		t.Fatalf("views=%+v", views)
	}
	v := views[0]
	if v.Transaction.ProductNameSnapshot != "Apples" || v.Transaction.PriceSnapshot != 2 || v.Transaction.TotalPrice != 4 {
		t.Fatalf("snapshot changed: %+v", v.Transaction)
	}
	if v.Product == nil || v.Product.ProductName != "Red Apples" || v.Product.FarmerUsername != "farmer" {
		t.Fatalf("live product=%+v", v.Product)
	}
	if v.Buyer == nil || v.Buyer.Username != "buyer" {
		t.Fatalf("buyer=%+v", v.Buyer)
	}

	if err := f.products.Delete(ctx, testutil.Session(farmer), p.ID); err != nil {
		t.Fatal(err)
	}
	views, err = f.transactions.List(ctx, testutil.Session(buyer))
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || views[0].Product != nil || views[0].Transaction.ProductNameSnapshot != "Apples" {
		t.Fatalf("after delete=%+v", views)
	}
}

type statusFixture struct {
	*fixture
	admin, farmerA, farmerB, buyer *model.User
	tx                             *model.Transaction
}

func newStatusFixture(t *testing.T) *statusFixture {
	t.Helper()
	f := newFixture(t)
	sf := &statusFixture{
		fixture: f,
		admin:   testutil.CreateUser(t, f.db, "admin", model.RoleAdmin),
		farmerA: testutil.CreateVerifiedUser(t, f.db, "farmer-a", model.RoleFarmer),
		farmerB: testutil.CreateVerifiedUser(t, f.db, "farmer-b", model.RoleFarmer),
		buyer:   testutil.CreateVerifiedUser(t, f.db, "buyer", model.RoleBuyer),
	}
	p := testutil.CreateProduct(t, f.db, sf.farmerB.ID, "Pears", 10, 1)
	res, err := f.transactions.Purchase(context.Background(), testutil.Session(sf.buyer), p.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	sf.tx = res.Transaction
	return sf
}

func TestSetStatusScenarioE(t *testing.T) {
	sf := newStatusFixture(t)
	_, err := sf.transactions.SetStatus(context.Background(), testutil.Session(sf.farmerA), sf.tx.ID, model.TransactionStatusConfirmed)
	if !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("err=%v want ErrForbidden", err)
	}
}

func TestSetStatusBuyerAlwaysForbidden(t *testing.T) {
	sf := newStatusFixture(t)
	for _, status := range []model.TransactionStatus{"confirmed", "cancelled", "pending", "bogus", ""} {
		_, err := sf.transactions.SetStatus(context.Background(), testutil.Session(sf.buyer), sf.tx.ID, status)
		if !errors.Is(err, service.ErrForbidden) {
			t.Fatalf("status %q: err=%v want ErrForbidden", status, err)
		}
	}
	_, err := sf.transactions.SetStatus(context.Background(), testutil.Session(sf.buyer), 9999, "confirmed")
	if !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("missing transaction: err=%v want ErrForbidden", err)
	}
}

func TestSetStatusFlow(t *testing.T) {
	sf := newStatusFixture(t)
	ctx := context.Background()
	owner := testutil.Session(sf.farmerB)

	if _, err := sf.transactions.SetStatus(ctx, owner, sf.tx.ID, "shipped"); !errors.Is(err, service.ErrInvalidInput) {
		t.Fatalf("err=%v want ErrInvalidInput", err)
	}
	if _, err := sf.transactions.SetStatus(ctx, owner, 9999, model.TransactionStatusConfirmed); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
	if _, err := sf.transactions.SetStatus(ctx, owner, sf.tx.ID, model.TransactionStatusDelivered); !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("pending->delivered: err=%v want ErrInvalidTransition", err)
	}

	tx, err := sf.transactions.SetStatus(ctx, owner, sf.tx.ID, model.TransactionStatusConfirmed)
	if err != nil || tx.Status != model.TransactionStatusConfirmed {
		t.Fatalf("confirm: tx=%+v err=%v", tx, err)
	}
	// same status again is a no-op
	if tx, err = sf.transactions.SetStatus(ctx, owner, sf.tx.ID, model.TransactionStatusConfirmed); err != nil || tx.Status != model.TransactionStatusConfirmed {
		t.Fatalf("repeat confirm: tx=%+v err=%v", tx, err)
	}
	if tx, err = sf.transactions.SetStatus(ctx, testutil.Session(sf.admin), sf.tx.ID, model.TransactionStatusDelivered); err != nil || tx.Status != model.TransactionStatusDelivered {
		t.Fatalf("admin deliver: tx=%+v err=%v", tx, err)
	}
	for _, next := range []model.TransactionStatus{model.TransactionStatusCancelled, model.TransactionStatusPending, model.TransactionStatusConfirmed} {
		if _, err := sf.transactions.SetStatus(ctx, testutil.Session(sf.admin), sf.tx.ID, next); !errors.Is(err, service.ErrInvalidTransition) {
			t.Fatalf("delivered->%s: err=%v want ErrInvalidTransition", next, err)
		}
	}

	list, _, err := sf.notify.List(ctx, sf.buyer.ID, false, 10)
	if err != nil {
		t.Fatal(err)
	}
	changes := 0
	for _, n := range list {
		if n.Type == model.NotificationOrderStatus {
			changes++
		}
	}
	if changes != 2 {
		t.Fatalf("status notifications=%d want 2", changes)
	}
}

func TestSetStatusAdminAfterProductDeleted(t *testing.T) {
	sf := newStatusFixture(t)
	ctx := context.Background()
	if err := sf.products.Delete(ctx, testutil.Session(sf.farmerB), sf.tx.ProductID); err != nil {
		t.Fatal(err)
	}
	if _, err := sf.transactions.SetStatus(ctx, testutil.Session(sf.farmerB), sf.tx.ID, model.TransactionStatusCancelled); !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("farmer after delete: err=%v want ErrForbidden", err)
	}
	tx, err := sf.transactions.SetStatus(ctx, testutil.Session(sf.admin), sf.tx.ID, model.TransactionStatusCancelled)
	if err != nil || tx.Status != model.TransactionStatusCancelled {
		t.Fatalf("admin cancel: tx=%+v err=%v", tx, err)
	}
}

func TestListTransactionsScoping(t *testing.T) {
	f := newFixture(t)
	admin := testutil.CreateUser(t, f.db, "admin", model.RoleAdmin)
	farmerA := testutil.CreateVerifiedUser(t, f.db, "farmer-a", model.RoleFarmer)
	farmerB := testutil.CreateVerifiedUser(t, f.db, "farmer-b", model.RoleFarmer)
	idle := testutil.CreateVerifiedUser(t, f.db, "farmer-idle", model.RoleFarmer)
	buyer1 := testutil.CreateVerifiedUser(t, f.db, "buyer-1", model.RoleBuyer)
	buyer2 := testutil.CreateVerifiedUser(t, f.db, "buyer-2", model.RoleBuyer)
	pa := testutil.CreateProduct(t, f.db, farmerA.ID, "Figs", 10, 1)
	pb := testutil.CreateProduct(t, f.db, farmerB.ID, "Plums", 10, 1)
	ctx := context.Background()

	for _, b := range []struct {
		u *model.User
		p *model.Product
	}{{buyer1, pa}, {buyer2, pa}, {buyer1, pb}} {
		if _, err := f.transactions.Purchase(ctx, testutil.Session(b.u), b.p.ID, 1); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name  string
		actor *model.User
		want  int
	}{
		{"buyer 1", buyer1, 2},
		{"buyer 2", buyer2, 1},
		{"farmer A", farmerA, 2},
		{"farmer B", farmerB, 1},
		{"farmer without products", idle, 0},
		{"admin", admin, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views, err := f.transactions.List(ctx, testutil.Session(tt.actor))
			if err != nil {
				t.Fatal(err)
			}
			if len(views) != tt.want {
				t.Fatalf("len=%d want %d", len(views), tt.want)
			}
			for _, v := range views {
				switch tt.actor.Role {
				case model.RoleBuyer:
					if v.Transaction.BuyerID != tt.actor.ID {
						t.Fatalf("foreign purchase %+v", v.Transaction)
					}
				case model.RoleFarmer:
					if v.Product == nil || v.Product.FarmerID != tt.actor.ID {
						t.Fatalf("foreign sale %+v", v.Transaction)
					}
				}
			}
		})
	}
}
