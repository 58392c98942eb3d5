// Package pricing は配送料の計算（純粋関数）。
package pricing

import "storefront/internal/domain/model"

type Quote struct {
	Subtotal       int64 `json:"subtotal"`
	Fee            int64 `json:"delivery_fee"`
	IsFreeDelivery bool  `json:"is_free_delivery"`
	Total          int64 `json:"total"`
}

// PriceFor は小計に対する配送料を返す。
// 小計以下で最大のmin_order_amountを持つ有効なルールを使う。
// 送料無料になるのは「閾値以上」または「ルールの送料が0」のとき。
func PriceFor(rules []model.DeliveryRule, subtotal int64) Quote {
	if subtotal <= 0 {
		return Quote{Subtotal: subtotal, Fee: 0, IsFreeDelivery: true, Total: subtotal}
	}

	rule, ok := applicableRule(rules, subtotal)
	if !ok {
		// 該当ルールなし（エラーではない）
		return Quote{Subtotal: subtotal, Fee: 0, IsFreeDelivery: false, Total: subtotal}
	}

	free := rule.DeliveryFee == 0 ||
		(rule.FreeDeliveryThreshold != nil && subtotal >= *rule.FreeDeliveryThreshold)

	fee := rule.DeliveryFee
	if free {
		fee = 0
	}
	return Quote{Subtotal: subtotal, Fee: fee, IsFreeDelivery: free, Total: subtotal + fee}
}

func applicableRule(rules []model.DeliveryRule, subtotal int64) (model.DeliveryRule, bool) {
	var best model.DeliveryRule
	found := false
	for _, r := range rules {
		if !r.IsActive || r.MinOrderAmount > subtotal {
			continue
		}
		// 同じminなら先に見つかった方（IDが小さい方）
		if !found || r.MinOrderAmount > best.MinOrderAmount ||
			(r.MinOrderAmount == best.MinOrderAmount && r.ID < best.ID) {
			best = r
			found = true
		}
	}
	return best, found
}
