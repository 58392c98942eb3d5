package payment

import (
	"context"
	"fmt"

	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
)

// StripeGateway はStripeのPaymentIntentで決済を開始する。
// コールバックの検証は共有シークレットのHMACで行う。
type StripeGateway struct {
	Signer
}

func NewStripeGateway(secretKey string, webhookSecret string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{Signer: NewSigner(webhookSecret)}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req usecase.IntentRequest) (usecase.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: req.Metadata,
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return usecase.Intent{}, fmt.Errorf("create payment intent: %w", err)
	}
	return usecase.Intent{
		ExternalOrderID: pi.ID,
		ClientSecret:    pi.ClientSecret,
		Amount:          pi.Amount,
		Currency:        string(pi.Currency),
	}, nil
}

// LocalGateway は外部に接続しない開発用ゲートウェイ。
type LocalGateway struct {
	Signer
}

func NewLocalGateway(webhookSecret string) *LocalGateway {
	return &LocalGateway{Signer: NewSigner(webhookSecret)}
}

func (g *LocalGateway) CreateIntent(ctx context.Context, req usecase.IntentRequest) (usecase.Intent, error) {
	if req.Amount <= 0 {
		return usecase.Intent{}, fmt.Errorf("amount must be positive")
	}
	return usecase.Intent{
		ExternalOrderID: "local_" + uuid.NewString(),
		ClientSecret:    uuid.NewString(),
		Amount:          req.Amount,
		Currency:        req.Currency,
	}, nil
}
