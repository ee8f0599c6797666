package wompi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// ComputeSignature returns the lower-case hex HMAC-SHA256 of the raw request
// body. It must run over the exact bytes the gateway sent; re-serializing the
// JSON can reorder fields and break the signature.
func ComputeSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook signature in constant time. It returns
// false on empty input, malformed hex or length mismatch, never an error.
func VerifySignature(payload []byte, signatureHex, secret string) bool {
	sig := strings.TrimSpace(signatureHex)
	if sig == "" || secret == "" {
		return false
	}

	decoded, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decoded)
}

// IntegritySignature builds the SHA256 checkout integrity signature Wompi
// expects for Web Checkout: reference + amount + currency [+ expiration] + secret.
func IntegritySignature(reference string, amountInCents int64, currency, expirationTime, secret string) string {
	concat := reference + strconv.FormatInt(amountInCents, 10) + currency
	if expirationTime != "" {
		concat += expirationTime
	}
	concat += secret

	sum := sha256.Sum256([]byte(concat))
	return hex.EncodeToString(sum[:])
}
