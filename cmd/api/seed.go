package main

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/memory"
)

// STORE=memory のときの動作確認用データ
func seedDemo(ctx context.Context, store *memory.Store, now time.Time) error {
	store.SeedProduct(model.Product{Name: "Masala Chai", Price: 120, Stock: 50, IsActive: true}, nil, nil)
	store.SeedProduct(
		model.Product{Name: "Cotton Kurta", Price: 900, StockShape: model.StockShapeSize, IsActive: true},
		[]model.SizeVariant{{Size: "S", Stock: 5}, {Size: "M", Stock: 8}, {Size: "L", Stock: 3}},
		nil,
	)
	store.SeedProduct(
		model.Product{Name: "Basmati Rice", StockShape: model.StockShapeWeight, IsActive: true},
		nil,
		[]model.WeightOption{{Label: "1kg", Price: 180, Stock: 20}, {Label: "5kg", Price: 820, Stock: 6}},
	)

	threshold := int64(1000)
	if _, err := store.DeliveryRules().Create(ctx, model.DeliveryRule{
		MinOrderAmount:        0,
		DeliveryFee:           50,
		FreeDeliveryThreshold: &threshold,
		IsActive:              true,
	}); err != nil {
		return fmt.Errorf("seed rule: %w", err)
	}

	seats := int64(5)
	for day := 1; day <= 3; day++ {
		for _, window := range [][2]string{{"10:00", "13:00"}, {"16:00", "19:00"}} {
			if _, err := store.Slots().Create(ctx, model.DeliverySlot{
				Date:      model.DateOf(now.AddDate(0, 0, day)),
				StartTime: window[0],
				EndTime:   window[1],
				MaxOrders: &seats,
				IsActive:  true,
			}); err != nil {
				return fmt.Errorf("seed slot: %w", err)
			}
		}
	}

	for i, name := range []string{"Ravi", "Anita"} {
		if _, err := store.Drivers().Create(ctx, model.Driver{
			AccountID: int64(900 + i),
			Name:      name,
			Status:    model.DriverStatusAvailable,
		}); err != nil {
			return fmt.Errorf("seed driver: %w", err)
		}
	}
	return nil
}
