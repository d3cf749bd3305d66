package types

import "time"

// RemoteStatus is the Square connectivity report served to operators.
type RemoteStatus struct {
	ServiceAvailable      bool      `json:"serviceAvailable"`
	APIWorking            bool      `json:"apiWorking"`
	Environment           string    `json:"environment"`
	LastCheck             time.Time `json:"lastCheck"`
	SyncFrequency         string    `json:"syncFrequency"`
	CredentialsConfigured bool      `json:"credentialsConfigured"`
	LocationCount         *int      `json:"locationCount,omitempty"`
	LastError             string    `json:"lastError,omitempty"`
}
