package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"darkroom/internal/config"
	"darkroom/internal/errsink"
	"darkroom/internal/logging"
	"darkroom/internal/photo"
	"darkroom/internal/session"
)

// Classifier labels one stabilized event.
type Classifier interface {
	Classify(ctx context.Context, event photo.Event) photo.Classified
}

// Migrator archives one closed session.
type Migrator interface {
	Migrate(ctx context.Context, sess *session.Session) error
}

// Runner drains the watcher's event stream through classification, session
// assembly and migration. It is the single consumer: one photo is fully
// handled before the next is looked at, so a trigger can never race the
// photos that belong to its session.
type Runner struct {
	cfg        *config.Config
	classifier Classifier
	assembler  *session.Assembler
	migrator   Migrator
	sink       *errsink.Sink
	logger     *slog.Logger
}

func New(cfg *config.Config, classifier Classifier, assembler *session.Assembler, migrator Migrator, sink *errsink.Sink, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:        cfg,
		classifier: classifier,
		assembler:  assembler,
		migrator:   migrator,
		sink:       sink,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run consumes events until the channel closes or the context is canceled.
//
// The returned error is non-nil in two cases: the error sink itself failed
// (always fatal), or a session migration failed while stop_on_error is set.
// Per-photo problems such as unreadable files are quarantined and processing
// continues regardless of stop_on_error.
func (r *Runner) Run(ctx context.Context, events <-chan photo.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := r.handle(ctx, event); err != nil {
				return err
			}
		}
	}
}

func (r *Runner) handle(ctx context.Context, event photo.Event) error {
	ctx = logging.WithCorrelationID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, r.logger)

	classified := r.classifier.Classify(ctx, event)

	if classified.Class == photo.ClassUnreadable {
		return r.sink.QuarantineFile(ctx, event.Path, errsink.ReasonDecodeFailure, "", "")
	}

	outcome := r.assembler.Observe(classified)

	switch {
	case outcome.Rejection != nil:
		rejection := outcome.Rejection
		logger.Warn("session rejected over capacity",
			logging.String(logging.FieldPatientID, rejection.Trigger.PatientID),
			logging.Int("selected", len(rejection.Selected)),
			logging.Int("limit", rejection.Limit))
		if err := r.sink.QuarantineSession(ctx, rejection); err != nil {
			return err
		}

	case outcome.Session != nil:
		if err := r.migrator.Migrate(ctx, outcome.Session); err != nil {
			if errors.Is(err, errsink.ErrSinkFailure) {
				return err
			}
			if r.cfg.Watcher.StopOnError {
				logger.Error("stopping after failed session",
					logging.String(logging.FieldSessionID, outcome.Session.ID),
					logging.Error(err))
				return errStopped
			}
			logger.Warn("continuing after failed migration", logging.Error(err))
		}

	default:
		if r.assembler.OverCapacity() {
			logger.Warn("buffer exceeds session capacity, next trigger will reject",
				logging.Int("buffered", r.assembler.Buffered()),
				logging.Int("limit", r.cfg.Session.MaxPhotos))
		}
	}
	return nil
}

// errStopped marks a deliberate stop_on_error shutdown. The daemon logs it
// and exits cleanly.
var errStopped = errors.New("processing stopped on error")

// IsStopped reports whether the error is the deliberate stop_on_error halt
// rather than a failure.
func IsStopped(err error) bool {
	return errors.Is(err, errStopped)
}
