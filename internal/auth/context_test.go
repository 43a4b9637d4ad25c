package auth

import (
	"context"
	"testing"

	"github.com/tallyloyalty/tally/internal/model"
)

func TestIdentityContext(t *testing.T) {
	ctx := WithIdentity(context.Background(), Identity{
		UserID:   7,
		Email:    "merchant@example.com",
		UserType: model.UserTypeMerchant,
	})

	id, ok := FromContext(ctx)
	if !ok {
		t.Fatal("identity should be present")
	}
	if id.UserID != 7 {
		t.Errorf("user_id = %d, want 7", id.UserID)
	}
	if UserID(ctx) != 7 {
		t.Errorf("UserID = %d, want 7", UserID(ctx))
	}
	if !IsMerchant(ctx) {
		t.Error("IsMerchant should be true")
	}
	if IsCustomer(ctx) {
		t.Error("IsCustomer should be false")
	}
}

func TestIdentityContextEmpty(t *testing.T) {
	ctx := context.Background()

	if _, ok := FromContext(ctx); ok {
		t.Error("empty context should have no identity")
	}
	if UserID(ctx) != 0 {
		t.Errorf("UserID = %d, want 0", UserID(ctx))
	}
	if IsMerchant(ctx) || IsCustomer(ctx) {
		t.Error("empty context should have no role")
	}
}
