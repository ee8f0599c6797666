package wompi

import (
	"strings"
	"testing"
)

const (
	testPayload = `{"event":"transaction.updated","data":{"transaction":{"id":"tx_123","reference":"INV-1","status":"APPROVED"}}}`
	testSecret  = "test-secret"
)

func TestVerifySignatureRoundTrip(t *testing.T) {
	sig := ComputeSignature([]byte(testPayload), testSecret)

	if !VerifySignature([]byte(testPayload), sig, testSecret) {
		t.Fatalf("expected computed signature to verify")
	}
	if !VerifySignature([]byte(testPayload), strings.ToUpper(sig), testSecret) {
		t.Fatalf("expected upper-case hex signature to verify")
	}
}

func TestVerifySignatureTamperedPayload(t *testing.T) {
	sig := ComputeSignature([]byte(testPayload), testSecret)

	tampered := []byte(testPayload)
	tampered[0] ^= 0x01
	if VerifySignature(tampered, sig, testSecret) {
		t.Fatalf("expected tampered payload to fail verification")
	}
}

func TestVerifySignatureTamperedSignature(t *testing.T) {
	sig := ComputeSignature([]byte(testPayload), testSecret)

	corrupted := "0000" + sig[4:]
	if corrupted == sig {
		corrupted = "1111" + sig[4:]
	}
	if VerifySignature([]byte(testPayload), corrupted, testSecret) {
		t.Fatalf("expected corrupted signature to fail verification")
	}
}

func TestVerifySignatureMalformedInput(t *testing.T) {
	sig := ComputeSignature([]byte(testPayload), testSecret)

	tests := []struct {
		name      string
		signature string
		secret    string
	}{
		{name: "empty signature", signature: "", secret: testSecret},
		{name: "empty secret", signature: sig, secret: ""},
		{name: "non-hex signature", signature: "not-hex-at-all!", secret: testSecret},
		{name: "odd length hex", signature: sig[:len(sig)-1], secret: testSecret},
		{name: "truncated signature", signature: sig[:8], secret: testSecret},
		{name: "wrong secret", signature: sig, secret: "other-secret"},
	}

	for _, tt := range tests {
		if VerifySignature([]byte(testPayload), tt.signature, tt.secret) {
			t.Fatalf("%s: expected verification to fail", tt.name)
		}
	}
}

func TestIntegritySignatureDeterministic(t *testing.T) {
	a := IntegritySignature("INV-1", 250000, "COP", "", "integrity-secret")
	b := IntegritySignature("INV-1", 250000, "COP", "", "integrity-secret")
	if a != b {
		t.Fatalf("expected identical inputs to yield identical signatures")
	}

	withExpiration := IntegritySignature("INV-1", 250000, "COP", "2030-01-01T00:00:00Z", "integrity-secret")
	if withExpiration == a {
		t.Fatalf("expected expiration time to change the signature")
	}

	otherAmount := IntegritySignature("INV-1", 250001, "COP", "", "integrity-secret")
	if otherAmount == a {
		t.Fatalf("expected amount to change the signature")
	}
}
