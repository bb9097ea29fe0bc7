package capability

import (
	"log"
	"os"
)

// Set describes which collaborators this process found at startup. Probed
// once and injected; components consult their flag instead of re-testing
// the environment on every call.
type Set struct {
	// Storage means the local queue database opened.
	Storage bool
	// Channel means the shared broadcast transport is reachable.
	Channel bool
	// Worker means the background worker's registration or API answered.
	Worker bool
	// Notifications means a delivery surface is configured.
	Notifications bool
	// Standalone marks an installed-app launch.
	Standalone bool
}

// Checks are the individual probes. Nil checks report false.
type Checks struct {
	Storage       func() bool
	Channel       func() bool
	Worker        func() bool
	Notifications func() bool
}

// Probe runs every check once and logs what is missing.
func Probe(checks Checks) Set {
	set := Set{
		Storage:       run(checks.Storage),
		Channel:       run(checks.Channel),
		Worker:        run(checks.Worker),
		Notifications: run(checks.Notifications),
		Standalone:    StandaloneFromEnv(),
	}

	if !set.Storage {
		log.Println("[Capability] Durable storage unavailable, queue operations will be lost")
	}
	if !set.Channel {
		log.Println("[Capability] Broadcast channel unavailable, contexts run isolated")
	}
	if !set.Worker {
		log.Println("[Capability] Background worker unreachable")
	}
	if !set.Notifications {
		log.Println("[Capability] No notification surface configured")
	}
	return set
}

// StandaloneFromEnv reads the installed-app flag.
func StandaloneFromEnv() bool {
	v := os.Getenv("STANDALONE_MODE")
	return v == "1" || v == "true"
}

func run(check func() bool) bool {
	if check == nil {
		return false
	}
	return check()
}
