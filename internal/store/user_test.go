package store

import (
	"database/sql"
	"testing"

	"github.com/tallyloyalty/tally/internal/database"
	"github.com/tallyloyalty/tally/internal/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestCustomer(t *testing.T, db *sql.DB, email string) *model.User {
	t.Helper()
	u, err := NewUserStore(db).Create(email, "hash", "Test Customer", "", model.UserTypeCustomer, "", "")
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return u
}

func createTestMerchant(t *testing.T, db *sql.DB, email string) *model.User {
	t.Helper()
	u, err := NewUserStore(db).Create(email, "hash", "Test Merchant", "", model.UserTypeMerchant, "Corner Cafe", "1 Main St")
	if err != nil {
		t.Fatalf("create merchant: %v", err)
	}
	return u
}

func TestUserCreateAndGet(t *testing.T) {
	db := openTestDB(t)
	us := NewUserStore(db)

	u, err := us.Create("merchant@example.com", "hash", "Maria", "555-0100", model.UserTypeMerchant, "Corner Cafe", "1 Main St")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.ID == 0 {
		t.Error("expected non-zero id")
	}
	if u.UserType != model.UserTypeMerchant {
		t.Errorf("user_type = %q, want %q", u.UserType, model.UserTypeMerchant)
	}
	if u.BusinessName != "Corner Cafe" {
		t.Errorf("business_name = %q, want %q", u.BusinessName, "Corner Cafe")
	}

	got, err := us.GetByEmail("merchant@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Fatalf("get by email returned %+v, want id %d", got, u.ID)
	}
}

func TestUserDuplicateEmail(t *testing.T) {
	db := openTestDB(t)
	us := NewUserStore(db)

	if _, err := us.Create("dup@example.com", "hash", "First", "", model.UserTypeCustomer, "", ""); err != nil {
		t.Fatalf("create first user: %v", err)
	}
	_, err := us.Create("dup@example.com", "hash", "Second", "", model.UserTypeCustomer, "", "")
	if err != ErrDuplicateEmail {
		t.Errorf("err = %v, want ErrDuplicateEmail", err)
	}
}

func TestUserNotFound(t *testing.T) {
	db := openTestDB(t)
	us := NewUserStore(db)

	u, err := us.GetByEmail("nobody@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil for missing user, got %+v", u)
	}

	u, err = us.GetByID(9999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil for missing user, got %+v", u)
	}
}

func TestCustomerStartsWithZeroBalance(t *testing.T) {
	db := openTestDB(t)

	customer := createTestCustomer(t, db, "customer@example.com")

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM balances WHERE customer_id = ?`, customer.ID).Scan(&count); err != nil {
		t.Fatalf("count balances: %v", err)
	}
	if count != 1 {
		t.Errorf("customer balance rows = %d, want 1", count)
	}

	b, err := NewBalanceStore(db).Get(customer.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if b.TotalPoints != 0 {
		t.Errorf("total_points = %d, want 0", b.TotalPoints)
	}
}

func TestMerchantHasNoBalanceRow(t *testing.T) {
	db := openTestDB(t)

	merchant := createTestMerchant(t, db, "merchant@example.com")

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM balances WHERE customer_id = ?`, merchant.ID).Scan(&count); err != nil {
		t.Fatalf("count balances: %v", err)
	}
	if count != 0 {
		t.Errorf("merchant balance rows = %d, want 0", count)
	}
}
