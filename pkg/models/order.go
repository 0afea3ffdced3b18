package models

import (
	"time"
)

type Order struct {
	ID        string      `json:"id"`
	ClientID  string      `json:"client"`
	CreatedAt time.Time   `json:"created_at"`
	IsSent    bool        `json:"is_sent"`
	Items     []OrderItem `json:"items"`
}

type OrderItem struct {
	ID          int64  `json:"id,omitempty"`
	ProductID   string `json:"product"`
	ProductName string `json:"product_name,omitempty"`
	Quantity    int    `json:"quantity"`
}

type OrderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Order   *Order `json:"order,omitempty"`
}
