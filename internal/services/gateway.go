package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CheckoutParams struct {
	BookingID       uuid.UUID
	TicketID        uuid.UUID
	TicketTitle     string
	UserEmail       string
	UnitPrice       decimal.Decimal
	BookingQuantity int
}

type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentGateway is the boundary to the external checkout provider. It never
// mutates local state; all inventory and booking mutation happens in the
// settlement workflow.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	IsSessionPaid(ctx context.Context, sessionID string) (bool, error)
}

// MinorUnitAmount converts a unit price and quantity into integer cents for
// the gateway. Prices and quantities must be strictly positive.
func MinorUnitAmount(unitPrice decimal.Decimal, quantity int) (int64, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("%w: quantity must be positive", ErrInvalidAmount)
	}
	if unitPrice.LessThanOrEqual(decimal.Zero) {
		return 0, fmt.Errorf("%w: unit price must be positive", ErrInvalidAmount)
	}

	amount := unitPrice.
		Mul(decimal.NewFromInt(int64(quantity))).
		Mul(decimal.NewFromInt(100)).
		Round(0)

	return amount.IntPart(), nil
}
