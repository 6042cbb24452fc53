package suggest

import "errors"

// Sentinel errors for the suggestion model.
var (
	// ErrModelClosed is returned when operations are attempted on a closed model.
	ErrModelClosed = errors.New("suggestion model is closed")

	// ErrNilClient is returned when SetClientAndInit is given a nil client.
	ErrNilClient = errors.New("client cannot be nil")

	// ErrClientAlreadySet is returned when a client has already been attached.
	ErrClientAlreadySet = errors.New("client already set")

	// ErrNoSuchItem is returned when no buffered item matches the given key.
	ErrNoSuchItem = errors.New("no item with that key")
)
