package model

import "time"

type Balance struct {
	CustomerID  int64     `json:"customer_id"`
	TotalPoints int       `json:"total_points"`
	UpdatedAt   time.Time `json:"updated_at"`
}
