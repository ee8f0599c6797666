package wompi

import (
	"encoding/json"
	"fmt"
	"strings"

	"wompi-billing-service/internal/model"
)

type rawEvent struct {
	Event  string          `json:"event"`
	SentAt string          `json:"sent_at"`
	Data   json.RawMessage `json:"data"`
}

// DecodeEvent parses a webhook body into a typed event. Wompi nests the
// transaction under data.transaction; some sandbox payloads put it directly
// under data, so both shapes are accepted. A transaction carrying a status
// outside the known set is rejected here rather than stored.
func DecodeEvent(body []byte) (*model.WompiEvent, error) {
	var raw rawEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}

	ev := &model.WompiEvent{
		Event:  raw.Event,
		SentAt: raw.SentAt,
	}

	if len(raw.Data) > 0 {
		var envelope struct {
			Transaction *model.WompiTransaction `json:"transaction"`
		}
		if err := json.Unmarshal(raw.Data, &envelope); err == nil && envelope.Transaction != nil {
			ev.Data.Transaction = envelope.Transaction
		} else {
			var tx model.WompiTransaction
			if err := json.Unmarshal(raw.Data, &tx); err == nil && (tx.ID != "" || tx.Reference != "") {
				ev.Data.Transaction = &tx
			}
		}
	}

	if tx := ev.Data.Transaction; tx != nil && tx.Status != "" {
		if _, err := model.ParseTransactionStatus(tx.Status); err != nil {
			return nil, err
		}
	}

	return ev, nil
}

// DeriveIdempotencyKey builds the dedup key "<event>:<id>:<reference>:<status>",
// joining only the segments that are present. It returns "" when the event
// type is missing or when both the transaction id and reference are absent,
// since such an event cannot be deduplicated safely.
func DeriveIdempotencyKey(ev *model.WompiEvent) string {
	if ev == nil || ev.Event == "" {
		return ""
	}

	tx := ev.Data.Transaction
	if tx == nil || (tx.ID == "" && tx.Reference == "") {
		return ""
	}

	parts := []string{ev.Event}
	if tx.ID != "" {
		parts = append(parts, tx.ID)
	}
	if tx.Reference != "" {
		parts = append(parts, tx.Reference)
	}
	if tx.Status != "" {
		parts = append(parts, tx.Status)
	}
	return strings.Join(parts, ":")
}
