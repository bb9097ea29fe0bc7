package models

// Predefined broadcast message types shared by every page context and the
// worker. Subscribing to BroadcastAll receives every type.
const (
	BroadcastCartUpdate    = "CART_UPDATE"
	BroadcastUserLogin     = "USER_LOGIN"
	BroadcastUserLogout    = "USER_LOGOUT"
	BroadcastNotification  = "NOTIFICATION"
	BroadcastProductUpdate = "PRODUCT_UPDATE"
	BroadcastThemeChange   = "THEME_CHANGE"

	// Worker control types.
	BroadcastSkipWaiting     = "SKIP_WAITING"
	BroadcastWorkerActivated = "WORKER_ACTIVATED"
	BroadcastUpdateAvailable = "UPDATE_AVAILABLE"

	BroadcastAll = "*"
)

// BroadcastMessage is the ephemeral envelope exchanged on the shared
// channel. Messages are never persisted; a context that is not listening
// at send time misses the message permanently.
type BroadcastMessage struct {
	Type      string `msgpack:"type" json:"type"`
	Payload   []byte `msgpack:"payload,omitempty" json:"payload,omitempty"`
	Timestamp int64  `msgpack:"timestamp" json:"timestamp"`

	// Origin is the sending context's ID. Receivers drop messages carrying
	// their own origin so a sender never hears its own broadcast.
	Origin string `msgpack:"origin" json:"origin"`
}
