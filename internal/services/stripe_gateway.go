package services

import (
	"context"
	"fmt"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
)

// StripeGateway creates Stripe Checkout sessions carrying the booking
// reference as opaque metadata so the webhook and the reconciliation sweep
// can tie a completed payment back to a booking.
type StripeGateway struct {
	siteDomain string
}

func NewStripeGateway(secretKey, siteDomain string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{siteDomain: siteDomain}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	amount, err := MinorUnitAmount(p.UnitPrice, p.BookingQuantity)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(p.UserEmail),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(p.TicketTitle),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(fmt.Sprintf("%s/dashboard/payment-success?bookingId=%s", g.siteDomain, p.BookingID)),
		CancelURL:  stripe.String(fmt.Sprintf("%s/dashboard/myBookedTickets", g.siteDomain)),
	}
	params.Context = ctx
	params.AddMetadata("bookingId", p.BookingID.String())
	params.AddMetadata("ticketId", p.TicketID.String())
	params.AddMetadata("bookingQuantity", fmt.Sprintf("%d", p.BookingQuantity))

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: creating checkout session: %v", ErrUpstream, err)
	}

	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) IsSessionPaid(ctx context.Context, sessionID string) (bool, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := session.Get(sessionID, params)
	if err != nil {
		return false, fmt.Errorf("%w: fetching checkout session: %v", ErrUpstream, err)
	}

	return s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid, nil
}
