package models

import "time"

// RegistrationState mirrors the worker lifecycle as seen from outside.
type RegistrationState string

const (
	RegistrationNone       RegistrationState = "none"
	RegistrationInstalling RegistrationState = "installing"
	RegistrationWaiting    RegistrationState = "waiting"
	RegistrationActive     RegistrationState = "active"
)

// Registration is the worker's shared lifecycle record. The worker writes
// it on every state change; diagnostics read it without holding any direct
// reference to the worker.
type Registration struct {
	Version        string            `msgpack:"version" json:"version"`
	State          RegistrationState `msgpack:"state" json:"state"`
	WaitingVersion string            `msgpack:"waiting_version,omitempty" json:"waiting_version,omitempty"`
	PushSubscribed bool              `msgpack:"push_subscribed" json:"push_subscribed"`
	UpdatedAt      time.Time         `msgpack:"updated_at" json:"updated_at"`
}

// Diagnostics is a read-only snapshot of the offline subsystem's health.
// Fields describing an absent collaborator carry zero values, never errors.
type Diagnostics struct {
	StorageSupported  bool              `json:"storage_supported"`
	WorkerSupported   bool              `json:"worker_supported"`
	ChannelSupported  bool              `json:"channel_supported"`
	IsRegistered      bool              `json:"is_registered"`
	RegistrationState RegistrationState `json:"registration_state"`
	Permission        string            `json:"notification_permission"`
	PushSubscription  bool              `json:"push_subscription"`
	IsOnline          bool              `json:"is_online"`
	IsStandalone      bool              `json:"is_standalone"`
	QueueDepth        int64             `json:"queue_depth"`
	CacheNames        []string          `json:"cache_names"`
	UserAgent         string            `json:"user_agent"`
	Timestamp         time.Time         `json:"timestamp"`
}
