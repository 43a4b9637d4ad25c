package auth

import (
	"context"

	"github.com/tallyloyalty/tally/internal/model"
)

type contextKey struct{}

// Identity is the authenticated caller, produced at the HTTP boundary and
// passed into core operations explicitly.
type Identity struct {
	UserID   int64
	Email    string
	UserType string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

func UserID(ctx context.Context) int64 {
	id, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return id.UserID
}

func IsMerchant(ctx context.Context) bool {
	id, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return id.UserType == model.UserTypeMerchant
}

func IsCustomer(ctx context.Context) bool {
	id, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return id.UserType == model.UserTypeCustomer
}
