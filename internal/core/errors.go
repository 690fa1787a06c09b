package core

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrTurnNotFound        = errors.New("turn not found")
	ErrInvalidVersionPath  = errors.New("invalid version path")
	ErrGenerationTimeout   = errors.New("generation timed out")
	ErrGenerationFailure   = errors.New("generation failed")
	ErrStorageFault        = errors.New("storage fault")
	ErrCompactionFailure   = errors.New("compaction failed")
	ErrInvariant           = errors.New("internal invariant violated")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrSegmentRefined      = errors.New("segment already refined")
	ErrSegmentNotFound     = errors.New("segment not found")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrDocumentCorrupt     = errors.New("document corrupt")
	errGenerationCancelled = errors.New("generation cancelled")
)

func TurnNotFound(turnID int) error {
	return fmt.Errorf("%w: turn %d", ErrTurnNotFound, turnID)
}

func InvalidVersionPath(path string, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidVersionPath, path, reason)
}

// GenerationError classifies a generator error: deadline hits become
// ErrGenerationTimeout, anything else ErrGenerationFailure.
func GenerationError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrGenerationTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", errGenerationCancelled, err)
	default:
		return fmt.Errorf("%w: %v", ErrGenerationFailure, err)
	}
}

// ErrorKind maps an error to the name the API layer uses for status codes.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTurnNotFound):
		return "TurnNotFound"
	case errors.Is(err, ErrInvalidVersionPath):
		return "InvalidVersionPath"
	case errors.Is(err, ErrGenerationTimeout):
		return "GenerationTimeout"
	case errors.Is(err, ErrGenerationFailure):
		return "GenerationFailure"
	case errors.Is(err, ErrStorageFault), errors.Is(err, ErrDocumentCorrupt):
		return "StorageFault"
	case errors.Is(err, ErrCompactionFailure):
		return "CompactionFailure"
	case errors.Is(err, ErrInvariant):
		return "InvariantViolation"
	case errors.Is(err, ErrInvalidRequest):
		return "InvalidRequest"
	case errors.Is(err, context.Canceled):
		return "Cancelled"
	default:
		return "Internal"
	}
}
