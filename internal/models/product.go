package models

import "time"

type Product struct {
	ID          string
	SellerID    string
	Name        string
	Description string
	Price       float64
	Stock       string
	ImageKeys   []string
	CreatedAt   time.Time
}
