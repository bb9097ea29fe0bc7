package models

import (
	"testing"
)

func TestNotificationPayloadRoundTrip(t *testing.T) {
	req := NotificationRequest{
		Title: "Sale",
		Body:  "50% off",
		Icon:  "/pwa-192x192.png",
		URL:   "/promotions",
		Tag:   "promo",
	}

	payload, err := req.EncodePayload()
	if err != nil {
		t.Fatalf("EncodePayload failed: %v", err)
	}

	decoded, err := DecodeNotificationPayload(payload)
	if err != nil {
		t.Fatalf("DecodeNotificationPayload failed: %v", err)
	}

	if decoded != req {
		t.Errorf("decoded request = %+v, want %+v", decoded, req)
	}
}

func TestDecodeNotificationPayloadRejectsGarbage(t *testing.T) {
	if _, err := DecodeNotificationPayload([]byte("not msgpack")); err == nil {
		t.Error("expected error decoding garbage payload")
	}
}

func TestQueueItemTableName(t *testing.T) {
	if got := (QueueItem{}).TableName(); got != "queue_items" {
		t.Errorf("TableName = %q, want %q", got, "queue_items")
	}
	if got := (SchemaVersion{}).TableName(); got != "queue_schema_version" {
		t.Errorf("TableName = %q, want %q", got, "queue_schema_version")
	}
}
