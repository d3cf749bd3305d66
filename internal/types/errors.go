package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidConfig = errors.New("invalid config")
	ErrInvalidMenu   = errors.New("invalid menu seed")
	ErrUnauthorized  = errors.New("unauthorized")

	// ErrRemoteUnavailable covers network failures, timeouts and non-2xx answers from Square
	// or the hours upstream. Read paths recover from it by serving cached or static data.
	ErrRemoteUnavailable = errors.New("remote unavailable")
	// ErrCredentialsMissing means the Square integration is disabled.
	ErrCredentialsMissing = errors.New("square credentials missing")
	// ErrReconciliationMiss marks a local item without a remote counterpart. Never fatal.
	ErrReconciliationMiss = errors.New("reconciliation miss")
	// ErrSyncCycleFailure wraps whatever aborted a sync cycle.
	ErrSyncCycleFailure = errors.New("sync cycle failed")
)

func Err(typedError error, innerErr error, msgTemplate string, args ...any) error {
	if msgTemplate == "" {
		return errors.Join(typedError, innerErr)
	} else {
		return errors.Join(typedError, innerErr, fmt.Errorf(msgTemplate, args...))
	}
}
