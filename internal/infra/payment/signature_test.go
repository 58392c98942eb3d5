package payment

import (
	"context"
	"strings"
	"testing"

	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_RoundTrip(t *testing.T) {
	s := NewSigner("whsec")
	sig := s.Sign("ext_1", "pay_1")

	assert.Len(t, sig, 64)
	assert.True(t, s.VerifyCallback("ext_1", "pay_1", sig))
	assert.True(t, s.VerifyCallback("ext_1", "pay_1", strings.ToUpper(sig)))
}

func TestSigner_RejectsTampering(t *testing.T) {
	s := NewSigner("whsec")
	sig := s.Sign("ext_1", "pay_1")

	assert.False(t, s.VerifyCallback("ext_1", "pay_2", sig))
	assert.False(t, s.VerifyCallback("ext_2", "pay_1", sig))
	assert.False(t, NewSigner("other").VerifyCallback("ext_1", "pay_1", sig))
	assert.False(t, s.VerifyCallback("ext_1", "pay_1", "zz-not-hex"))
	assert.False(t, s.VerifyCallback("ext_1", "pay_1", ""))
	assert.False(t, s.VerifyCallback("", "", s.Sign("", "")))
}

func TestSigner_SeparatorPreventsAmbiguity(t *testing.T) {
	s := NewSigner("whsec")
	assert.NotEqual(t, s.Sign("ab", "c"), s.Sign("a", "bc"))
}

func TestLocalGateway_CreateIntent(t *testing.T) {
	g := NewLocalGateway("whsec")

	in, err := g.CreateIntent(context.Background(), usecase.IntentRequest{Amount: 850, Currency: "inr"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(in.ExternalOrderID, "local_"))
	assert.NotEmpty(t, in.ClientSecret)
	assert.Equal(t, int64(850), in.Amount)

	_, err = g.CreateIntent(context.Background(), usecase.IntentRequest{Amount: 0, Currency: "inr"})
	assert.Error(t, err)
}
