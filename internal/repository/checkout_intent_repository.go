package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CheckoutIntentRepository interface {
	Create(ctx context.Context, intent model.CheckoutIntent) (model.CheckoutIntent, error)
	FindByExternalOrderID(ctx context.Context, externalOrderID string) (model.CheckoutIntent, error)
}
