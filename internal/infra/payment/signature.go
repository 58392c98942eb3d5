package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signer はコールバック署名（HMAC-SHA256, hex）を作成・検証する。
// 署名対象は externalOrderID + "|" + paymentID。
type Signer struct {
	secret []byte
}

func NewSigner(secret string) Signer {
	return Signer{secret: []byte(secret)}
}

func (s Signer) Sign(externalOrderID string, paymentID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(externalOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s Signer) VerifyCallback(externalOrderID string, paymentID string, signature string) bool {
	if externalOrderID == "" || paymentID == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(externalOrderID + "|" + paymentID))
	return hmac.Equal(got, mac.Sum(nil))
}
