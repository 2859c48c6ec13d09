// Package payments forwards checkout amounts to Stripe and hands the
// resulting client secret back to the browser. No payment state is stored
// locally; Stripe owns the payment lifecycle.
package payments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/diagnosis/elevro/pkg/events"
	"github.com/diagnosis/elevro/pkg/logger"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// ErrInvalidAmount is returned for prices that cannot be charged.
var ErrInvalidAmount = errors.New("price must be greater than zero")

// ErrAmountTooLarge is returned for prices above what a single intent accepts.
var ErrAmountTooLarge = errors.New("price exceeds the maximum chargeable amount")

// MaxMinorUnits is the largest amount, in cents, a payment intent may carry.
const MaxMinorUnits = 99_999_999

// ErrNotConfigured is returned when no Stripe secret key is set.
var ErrNotConfigured = errors.New("payment processor not configured")

// IntentCreator is the slice of the Stripe API the bridge needs.
type IntentCreator interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type Bridge struct {
	intents  IntentCreator
	currency string
	eventBus events.Publisher
}

// NewStripeBridge builds a bridge on the Stripe API client. An empty key
// yields a bridge that rejects every request with ErrNotConfigured.
func NewStripeBridge(secretKey, currency string, eventBus events.Publisher) *Bridge {
	var intents IntentCreator
	if secretKey != "" {
		sc := &client.API{}
		sc.Init(secretKey, nil)
		intents = sc.PaymentIntents
	}
	return NewBridge(intents, currency, eventBus)
}

func NewBridge(intents IntentCreator, currency string, eventBus events.Publisher) *Bridge {
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &Bridge{
		intents:  intents,
		currency: strings.ToLower(currency),
		eventBus: eventBus,
	}
}

// ToMinorUnits converts a decimal price to cents. Rounding avoids float
// artifacts such as 19.99*100 = 1998.9999.
func ToMinorUnits(price float64) (int64, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, ErrInvalidAmount
	}
	if price > float64(MaxMinorUnits)/100 {
		return 0, ErrAmountTooLarge
	}
	amount := int64(math.Round(price * 100))
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}

// CreateIntent asks Stripe for a card-only payment intent and returns its
// client secret.
func (b *Bridge) CreateIntent(ctx context.Context, price float64) (string, error) {
	amount, err := ToMinorUnits(price)
	if err != nil {
		return "", err
	}
	if b.intents == nil {
		return "", ErrNotConfigured
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(b.currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx

	pi, err := b.intents.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create payment intent: %w", err)
	}

	logger.InfoContext(ctx, "Payment intent created", "intent_id", pi.ID, "amount", amount, "currency", b.currency)
	event := events.PaymentIntentCreatedEvent{IntentID: pi.ID, Amount: amount, Currency: b.currency}
	if err := b.eventBus.Publish(ctx, events.PaymentIntentCreated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish payment intent event", "error", err, "intent_id", pi.ID)
	}

	return pi.ClientSecret, nil
}
