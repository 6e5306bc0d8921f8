package renamer

import (
	"context"
	"errors"

	"github.com/slipstream/tvrenamer/internal/library/organizer"
	"github.com/slipstream/tvrenamer/internal/library/scanner"
	"github.com/slipstream/tvrenamer/internal/metadata"
)

var (
	ErrConflict   = errors.New("target conflict")
	ErrCancelled  = errors.New("batch run cancelled")
	ErrNoResolver = errors.New("no metadata resolver configured")
)

// reasonFor maps a per-file error onto its reason code.
func reasonFor(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, scanner.ErrUnsupportedFormat):
		return ReasonUnsupportedFormat
	case errors.Is(err, scanner.ErrUnrecognizedFormat):
		return ReasonUnrecognizedFormat
	case errors.Is(err, metadata.ErrAmbiguousShow):
		return ReasonAmbiguousShow
	case errors.Is(err, metadata.ErrEpisodeNotFound):
		return ReasonEpisodeNotFound
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCancelled
	case errors.Is(err, ErrConflict):
		return ReasonConflict
	case errors.Is(err, organizer.ErrTargetExists):
		return ReasonTargetExists
	case errors.Is(err, metadata.ErrProvider):
		return ReasonProviderError
	}
	return ReasonIOFailed
}
