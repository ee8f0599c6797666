package wompi

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewInvoiceReference returns a fresh unique invoice reference ("INV-…").
func NewInvoiceReference() string {
	return newReference("INV")
}

func newReference(prefix string) string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", prefix, strings.ToUpper(ts), random)
}

// NewRetryReference embeds the invoice id and attempt number so every retry
// hits the gateway with a reference it has never seen before.
func NewRetryReference(invoiceID string, attempt int) string {
	shortID := invoiceID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	return fmt.Sprintf("RETRY-%s-%d-%s", shortID, attempt, ts)
}
