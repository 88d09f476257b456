package services

import (
	"errors"

	"github.com/dmitrijs2005/fieldsync/internal/signing"
)

var (
	// ErrIncomplete reports a sync pass that left work pending.
	ErrIncomplete = errors.New("sync pass incomplete")

	ErrInvalidTransition = errors.New("invalid status transition")
)

// fatal reports errors that end a pass and are not retried by the scheduler.
func fatal(err error) bool {
	return errors.Is(err, signing.ErrUnsupportedEncoding)
}
