// Package service holds the order processor: the one place where an
// order and the products it references must be kept consistent across
// multiple writes. Every multi-document mutation runs inside a single
// transaction so a mid-sequence failure aborts cleanly instead of
// leaving stock counts half-adjusted.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/models"
	"storefront-api/internal/repository"
)

// ErrNoOrderItems rejects a checkout with an empty item list.
var ErrNoOrderItems = errors.New("No order items")

// ProductNotFoundError names the missing item from a checkout request.
type ProductNotFoundError struct {
	Name string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("Product not found: %s", e.Name)
}

// InsufficientStockError names the product whose stock cannot cover the
// requested quantity.
type InsufficientStockError struct {
	Name string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Not enough stock for %s", e.Name)
}

// ProductStore is the slice of the product repository the processor needs.
type ProductStore interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
	AdjustStock(ctx context.Context, id primitive.ObjectID, delta int) error
}

// OrderStore is the slice of the order repository the processor needs.
type OrderStore interface {
	Insert(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	UpdateItems(ctx context.Context, id primitive.ObjectID, items []models.OrderItem, taxPrice, shippingPrice, totalPrice float64) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// TxnRunner executes a function as one atomic unit against the store.
type TxnRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderInput is the caller-supplied checkout payload. Items, address
// and amounts are persisted verbatim; totals are not re-derived here.
type OrderInput struct {
	Items           []models.OrderItem
	ShippingAddress models.ShippingAddress
	TaxPrice        float64
	ShippingPrice   float64
	TotalPrice      float64
}

// OrderProcessor validates availability against the product store,
// persists orders and reconciles stock on order lifecycle events.
type OrderProcessor struct {
	products ProductStore
	orders   OrderStore
	txn      TxnRunner
}

func NewOrderProcessor(products ProductStore, orders OrderStore, txn TxnRunner) *OrderProcessor {
	return &OrderProcessor{
		products: products,
		orders:   orders,
		txn:      txn,
	}
}

// PlaceOrder validates every requested item before any mutation, then
// persists the order and decrements stock for each item.
func (p *OrderProcessor) PlaceOrder(ctx context.Context, userID primitive.ObjectID, in OrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrNoOrderItems
	}

	order := &models.Order{
		User:            userID,
		OrderItems:      in.Items,
		ShippingAddress: in.ShippingAddress,
		TaxPrice:        in.TaxPrice,
		ShippingPrice:   in.ShippingPrice,
		TotalPrice:      in.TotalPrice,
	}

	err := p.txn.Run(ctx, func(ctx context.Context) error {
		// Full validation pass before any write. Only a definitive
		// missing product becomes a 404; store failures propagate as-is.
		for _, item := range in.Items {
			product, err := p.products.FindByID(ctx, item.Product.Hex())
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return &ProductNotFoundError{Name: item.Name}
				}
				return err
			}
			if product.CountInStock < item.Qty {
				return &InsufficientStockError{Name: product.Name}
			}
		}

		if err := p.orders.Insert(ctx, order); err != nil {
			return err
		}

		for _, item := range in.Items {
			if err := p.products.AdjustStock(ctx, item.Product, -item.Qty); err != nil {
				return stockError(item, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// ReplaceItems restores stock for every current item, deducts stock for
// the replacement list, and recomputes the order's prices: 10% tax on
// the item subtotal, zero shipping. Replacement quantities are not
// re-validated against stock, so a replacement can drive a count
// negative.
func (p *OrderProcessor) ReplaceItems(ctx context.Context, orderID string, items []models.OrderItem) (*models.Order, error) {
	var updated *models.Order

	err := p.txn.Run(ctx, func(ctx context.Context) error {
		order, err := p.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}

		for _, item := range order.OrderItems {
			if err := p.products.AdjustStock(ctx, item.Product, item.Qty); err != nil {
				return stockError(item, err)
			}
		}

		for _, item := range items {
			if err := p.products.AdjustStock(ctx, item.Product, -item.Qty); err != nil {
				return stockError(item, err)
			}
		}

		taxPrice, shippingPrice, totalPrice := recomputePrices(items)
		if err := p.orders.UpdateItems(ctx, order.ID, items, taxPrice, shippingPrice, totalPrice); err != nil {
			return err
		}

		order.OrderItems = items
		order.TaxPrice = taxPrice
		order.ShippingPrice = shippingPrice
		order.TotalPrice = totalPrice
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteOrder restores stock for every item on the order, then removes
// the order record.
func (p *OrderProcessor) DeleteOrder(ctx context.Context, orderID string) error {
	return p.txn.Run(ctx, func(ctx context.Context) error {
		order, err := p.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}

		for _, item := range order.OrderItems {
			if err := p.products.AdjustStock(ctx, item.Product, item.Qty); err != nil {
				return stockError(item, err)
			}
		}

		return p.orders.Delete(ctx, order.ID)
	})
}

// stockError keeps a missing product during stock reconciliation from
// masquerading as a missing order: the order exists, so the failure
// surfaces as a server error, not a 404.
func stockError(item models.OrderItem, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("stock adjustment for %q: product %s no longer exists", item.Name, item.Product.Hex())
	}
	return err
}

// recomputePrices derives tax, shipping and total from a replacement
// item list: total = round(subtotal * 1.1, 2), shipping fixed at zero.
// decimal keeps the rounding exact on binary-float prices.
func recomputePrices(items []models.OrderItem) (taxPrice, shippingPrice, totalPrice float64) {
	subtotal := decimal.Zero
	for _, item := range items {
		price := decimal.NewFromFloat(item.Price)
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(item.Qty))))
	}

	taxRate := decimal.NewFromFloat(0.1)
	tax := subtotal.Mul(taxRate).Round(2)
	total := subtotal.Add(subtotal.Mul(taxRate)).Round(2)

	return tax.InexactFloat64(), 0, total.InexactFloat64()
}
