package wompi

import (
	"strings"
	"testing"
)

func TestNewInvoiceReference(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		ref := NewInvoiceReference()
		if !strings.HasPrefix(ref, "INV-") {
			t.Fatalf("unexpected reference prefix: %q", ref)
		}
		if _, dup := seen[ref]; dup {
			t.Fatalf("duplicate reference generated: %q", ref)
		}
		seen[ref] = struct{}{}
	}
}

func TestNewRetryReference(t *testing.T) {
	invoiceID := "0f8fad5b-d9cb-469f-a165-70867728950e"

	ref := NewRetryReference(invoiceID, 3)
	if !strings.HasPrefix(ref, "RETRY-0f8fad5b-3-") {
		t.Fatalf("expected reference to embed invoice id and attempt, got %q", ref)
	}

	other := NewRetryReference(invoiceID, 4)
	if ref == other {
		t.Fatalf("expected different attempts to yield different references")
	}
}
