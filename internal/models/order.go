package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderItem is a line item embedded in an order. Name, qty, image and
// price are an immutable snapshot taken at order time; Product is a weak
// reference used only for stock reconciliation, never for re-deriving
// the displayed values.
type OrderItem struct {
	Name    string             `json:"name" bson:"name" binding:"required"`
	Qty     int                `json:"qty" bson:"qty" binding:"required"`
	Image   string             `json:"image" bson:"image"`
	Price   float64            `json:"price" bson:"price"`
	Product primitive.ObjectID `json:"product" bson:"product" binding:"required"`
}

// ShippingAddress is embedded in an order; it has no identity of its own.
type ShippingAddress struct {
	Address    string `json:"address" bson:"address" binding:"required"`
	City       string `json:"city" bson:"city" binding:"required"`
	PostalCode string `json:"postalCode" bson:"postalCode" binding:"required"`
	Country    string `json:"country" bson:"country" binding:"required"`
}

// Order owns its items and shipping address exclusively. Tax, shipping
// and total are caller-computed at checkout; only the admin item
// replacement path recomputes them server-side.
type Order struct {
	ID              primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	User            primitive.ObjectID `json:"user" bson:"user"`
	OrderItems      []OrderItem        `json:"orderItems" bson:"orderItems"`
	ShippingAddress ShippingAddress    `json:"shippingAddress" bson:"shippingAddress"`
	TaxPrice        float64            `json:"taxPrice" bson:"taxPrice"`
	ShippingPrice   float64            `json:"shippingPrice" bson:"shippingPrice"`
	TotalPrice      float64            `json:"totalPrice" bson:"totalPrice"`
	IsDelivered     bool               `json:"isDelivered" bson:"isDelivered"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// UserRef is the subset of a user resolved into order listings for display.
type UserRef struct {
	ID    primitive.ObjectID `json:"_id" bson:"_id"`
	Name  string             `json:"name" bson:"name"`
	Email string             `json:"email,omitempty" bson:"email,omitempty"`
}

// OrderWithUser is an order with its owner resolved via $lookup. The
// Customer field shadows the raw user id in the JSON output so clients
// see an embedded {_id, name, email} object under "user".
type OrderWithUser struct {
	Order    `bson:",inline"`
	Customer UserRef `json:"user" bson:"customer"`
}

// MonthlySales is one bucket of the per-month revenue aggregation.
type MonthlySales struct {
	Month string  `json:"_id" bson:"_id"`
	Sales float64 `json:"sales" bson:"sales"`
	Count int     `json:"count" bson:"count"`
}

// TopProduct is one row of the top-sellers-by-quantity aggregation.
type TopProduct struct {
	Name string `json:"_id" bson:"_id"`
	Qty  int    `json:"qty" bson:"qty"`
}

// OrderStats is the admin dashboard summary for a time window.
type OrderStats struct {
	TotalOrders     int            `json:"totalOrders"`
	DeliveredOrders int            `json:"deliveredOrders"`
	PendingOrders   int            `json:"pendingOrders"`
	TotalRevenue    float64        `json:"totalRevenue"`
	MonthlySales    []MonthlySales `json:"monthlySales"`
	TopProducts     []TopProduct   `json:"topProducts"`
}

// UserOrderStats is the per-customer order aggregate shown in the admin
// customer listing.
type UserOrderStats struct {
	TotalOrders int     `bson:"totalOrders"`
	TotalSpent  float64 `bson:"totalSpent"`
}
