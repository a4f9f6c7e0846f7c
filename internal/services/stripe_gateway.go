// internal/services/stripe_gateway.go
package services

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// PaymentGateway is the card processor used for donations.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*PaymentIntent, error)
	GetIntent(ctx context.Context, id string) (*PaymentIntent, error)
}

type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Currency     string
	LastError    string
}

const (
	IntentSucceeded             = string(stripe.PaymentIntentStatusSucceeded)
	IntentCanceled              = string(stripe.PaymentIntentStatusCanceled)
	IntentRequiresPaymentMethod = string(stripe.PaymentIntentStatusRequiresPaymentMethod)
)

type StripeGateway struct{}

func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return toPaymentIntent(pi), nil
}

func (g *StripeGateway) GetIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}
	return toPaymentIntent(pi), nil
}

func toPaymentIntent(pi *stripe.PaymentIntent) *PaymentIntent {
	out := &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}
	if pi.LastPaymentError != nil {
		out.LastError = pi.LastPaymentError.Msg
	}
	return out
}
