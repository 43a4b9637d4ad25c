package model

import "time"

// User type constants
const (
	UserTypeCustomer = "customer"
	UserTypeMerchant = "merchant"
)

type User struct {
	ID              int64     `json:"id"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone,omitempty"`
	UserType        string    `json:"user_type"`
	BusinessName    string    `json:"business_name,omitempty"`
	BusinessAddress string    `json:"business_address,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
