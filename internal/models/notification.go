package models

import (
	"github.com/vmihailenco/msgpack/v5"
)

// Defaults applied when an inbound push payload omits fields.
const (
	DefaultNotificationTitle = "Gorod"
	DefaultNotificationBody  = "Новое уведомление"
	DefaultNotificationIcon  = "/pwa-192x192.png"
	DefaultNotificationURL   = "/"
)

// NotificationRequest describes a notification to display. It is transient;
// when delivery is deferred it travels inside a QueueItem payload.
type NotificationRequest struct {
	Title string `msgpack:"title" json:"title"`
	Body  string `msgpack:"body,omitempty" json:"body,omitempty"`
	Icon  string `msgpack:"icon,omitempty" json:"icon,omitempty"`
	URL   string `msgpack:"url,omitempty" json:"url,omitempty"`

	// Tag deduplicates notifications: a new notification with the same tag
	// replaces the previous one instead of stacking.
	Tag string `msgpack:"tag,omitempty" json:"tag,omitempty"`
}

// EncodePayload serializes the request for storage in a QueueItem.
func (n NotificationRequest) EncodePayload() ([]byte, error) {
	return msgpack.Marshal(n)
}

// DecodeNotificationPayload restores a request from a QueueItem payload.
func DecodeNotificationPayload(payload []byte) (NotificationRequest, error) {
	var n NotificationRequest
	err := msgpack.Unmarshal(payload, &n)
	return n, err
}
