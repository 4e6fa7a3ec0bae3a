package classify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"darkroom/internal/config"
	"darkroom/internal/decode"
	"darkroom/internal/logging"
	"darkroom/internal/photo"
)

// TimestampFunc resolves a photo's capture time and its source.
type TimestampFunc func(path string) (time.Time, string, error)

// Classifier turns watcher events into classified photos by attempting one
// marker decode per file.
type Classifier struct {
	decoder   decode.Decoder
	timestamp TimestampFunc
	prefix    string
	logger    *slog.Logger
}

// New constructs a classifier using the default QR decoder and EXIF timestamp
// resolution.
func New(cfg *config.Config, logger *slog.Logger) *Classifier {
	return NewWithDependencies(cfg, decode.NewQRDecoder(), photo.CaptureTime, logger)
}

// NewWithDependencies allows injecting collaborators (used in tests).
func NewWithDependencies(cfg *config.Config, decoder decode.Decoder, timestamp TimestampFunc, logger *slog.Logger) *Classifier {
	return &Classifier{
		decoder:   decoder,
		timestamp: timestamp,
		prefix:    cfg.Trigger.PatientIDPrefix,
		logger:    logging.NewComponentLogger(logger, "classifier"),
	}
}

// Classify decodes and timestamps one event. Decoding is attempted exactly
// once; there is no retry for unreadable files.
func (c *Classifier) Classify(ctx context.Context, event photo.Event) photo.Classified {
	logger := logging.WithContext(ctx, c.logger)

	classified := photo.Classified{Event: event}

	payload, decodeErr := c.decoder.Decode(ctx, event.Path)
	if decodeErr != nil && !errors.Is(decodeErr, decode.ErrNoMarker) {
		logger.Warn("photo unreadable",
			logging.String(logging.FieldPhoto, event.Path),
			logging.Error(decodeErr),
		)
		classified.Class = photo.ClassUnreadable
		return classified
	}

	captureTime, source, err := c.timestamp(event.Path)
	if err != nil {
		// The file disappeared between stabilization and classification.
		logger.Warn("photo vanished before classification",
			logging.String(logging.FieldPhoto, event.Path),
			logging.Error(err),
		)
		classified.Class = photo.ClassUnreadable
		return classified
	}
	classified.CaptureTime = captureTime
	classified.TimeSource = source

	if decodeErr == nil {
		if id := decode.ParsePatientID(payload, c.prefix); id != "" {
			classified.Class = photo.ClassTrigger
			classified.PatientID = id
			logger.Info("trigger photo detected",
				logging.String(logging.FieldPhoto, event.Path),
				logging.String(logging.FieldPatientID, id),
				logging.Time("capture_time", captureTime),
			)
			return classified
		}
		logger.Debug("marker payload empty, treating as ordinary",
			logging.String(logging.FieldPhoto, event.Path),
		)
	}

	classified.Class = photo.ClassOrdinary
	logger.Debug("ordinary photo",
		logging.String(logging.FieldPhoto, event.Path),
		logging.Time("capture_time", captureTime),
		logging.String("time_source", source),
	)
	return classified
}
