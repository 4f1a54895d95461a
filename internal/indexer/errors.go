package indexer

import (
	"errors"

	"github.com/canopy-network/course-indexer/pkg/blob"
)

var (
	// ErrMalformedEvent and ErrUnknownKind are re-exported from the decoder.
	ErrMalformedEvent = blob.ErrMalformedEvent
	ErrUnknownKind    = blob.ErrUnknownKind

	// ErrOutOfOrder marks an unprocessed event positioned at or before the cursor.
	ErrOutOfOrder = errors.New("event out of order")

	// ErrCorruptState marks a stored document that no longer decodes into its model.
	ErrCorruptState = errors.New("corrupt stored state")
)

// IsFatal reports whether err must halt ingestion. Anything else is transient
// and the event may be retried.
func IsFatal(err error) bool {
	return errors.Is(err, ErrMalformedEvent) ||
		errors.Is(err, ErrUnknownKind) ||
		errors.Is(err, ErrOutOfOrder) ||
		errors.Is(err, ErrCorruptState)
}
