package wompi

import (
	"testing"

	"wompi-billing-service/internal/model"
)

func TestDecodeEventNestedTransaction(t *testing.T) {
	body := []byte(`{"event":"transaction.updated","data":{"transaction":{"id":"tx_123","reference":"INV-1","status":"APPROVED","amount_in_cents":250000}}}`)

	ev, err := DecodeEvent(body)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if ev.Event != "transaction.updated" {
		t.Fatalf("unexpected event type %q", ev.Event)
	}
	tx := ev.Data.Transaction
	if tx == nil {
		t.Fatalf("expected transaction to be decoded")
	}
	if tx.ID != "tx_123" || tx.Reference != "INV-1" || tx.Status != "APPROVED" {
		t.Fatalf("unexpected transaction fields: %+v", tx)
	}
	if tx.AmountInCents != 250000 {
		t.Fatalf("unexpected amount %d", tx.AmountInCents)
	}
}

func TestDecodeEventDirectDataTransaction(t *testing.T) {
	body := []byte(`{"event":"transaction.updated","data":{"id":"tx_456","reference":"INV-2","status":"DECLINED"}}`)

	ev, err := DecodeEvent(body)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if ev.Data.Transaction == nil || ev.Data.Transaction.ID != "tx_456" {
		t.Fatalf("expected transaction from direct data shape, got %+v", ev.Data.Transaction)
	}
}

func TestDecodeEventRejectsUnknownStatus(t *testing.T) {
	body := []byte(`{"event":"transaction.updated","data":{"transaction":{"id":"tx_123","reference":"INV-1","status":"MAYBE"}}}`)

	if _, err := DecodeEvent(body); err == nil {
		t.Fatalf("expected unknown status to be rejected")
	}
}

func TestDecodeEventInvalidJSON(t *testing.T) {
	if _, err := DecodeEvent([]byte(`{not json`)); err == nil {
		t.Fatalf("expected invalid json to be rejected")
	}
}

func TestDeriveIdempotencyKey(t *testing.T) {
	tests := []struct {
		name string
		ev   *model.WompiEvent
		want string
	}{
		{
			name: "all segments present",
			ev: &model.WompiEvent{
				Event: "transaction.updated",
				Data: model.WompiEventData{Transaction: &model.WompiTransaction{
					ID: "tx_123", Reference: "INV-1", Status: "APPROVED",
				}},
			},
			want: "transaction.updated:tx_123:INV-1:APPROVED",
		},
		{
			name: "missing reference",
			ev: &model.WompiEvent{
				Event: "transaction.updated",
				Data: model.WompiEventData{Transaction: &model.WompiTransaction{
					ID: "tx_123", Status: "APPROVED",
				}},
			},
			want: "transaction.updated:tx_123:APPROVED",
		},
		{
			name: "missing id",
			ev: &model.WompiEvent{
				Event: "transaction.updated",
				Data: model.WompiEventData{Transaction: &model.WompiTransaction{
					Reference: "INV-1", Status: "APPROVED",
				}},
			},
			want: "transaction.updated:INV-1:APPROVED",
		},
		{
			name: "missing status",
			ev: &model.WompiEvent{
				Event: "transaction.updated",
				Data: model.WompiEventData{Transaction: &model.WompiTransaction{
					ID: "tx_123", Reference: "INV-1",
				}},
			},
			want: "transaction.updated:tx_123:INV-1",
		},
		{
			name: "missing both id and reference",
			ev: &model.WompiEvent{
				Event: "transaction.updated",
				Data:  model.WompiEventData{Transaction: &model.WompiTransaction{Status: "APPROVED"}},
			},
			want: "",
		},
		{
			name: "missing event type",
			ev: &model.WompiEvent{
				Data: model.WompiEventData{Transaction: &model.WompiTransaction{ID: "tx_123"}},
			},
			want: "",
		},
		{
			name: "no transaction",
			ev:   &model.WompiEvent{Event: "transaction.updated"},
			want: "",
		},
		{
			name: "nil event",
			ev:   nil,
			want: "",
		},
	}

	for _, tt := range tests {
		if got := DeriveIdempotencyKey(tt.ev); got != tt.want {
			t.Fatalf("%s: DeriveIdempotencyKey() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDeriveIdempotencyKeyDeterministic(t *testing.T) {
	ev := &model.WompiEvent{
		Event: "transaction.updated",
		Data: model.WompiEventData{Transaction: &model.WompiTransaction{
			ID: "tx_123", Reference: "INV-1", Status: "APPROVED",
		}},
	}

	first := DeriveIdempotencyKey(ev)
	for i := 0; i < 10; i++ {
		if got := DeriveIdempotencyKey(ev); got != first {
			t.Fatalf("expected stable key, got %q then %q", first, got)
		}
	}
}
