package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/notification-dispatcher/internal/model"
	"github.com/aliskhannn/notification-dispatcher/internal/repository/notification"
	"github.com/aliskhannn/notification-dispatcher/pkg/email"
)

var (
	// ErrRunInProgress is returned when Run is called while another run of the same service is active.
	ErrRunInProgress = errors.New("dispatch run already in progress")
	// ErrNoRecipient is returned when a single email notification carries no address.
	ErrNoRecipient = errors.New("no recipient address found")
	// ErrInvalidRecipient is returned when the recipient address cannot be parsed.
	ErrInvalidRecipient = errors.New("invalid recipient address")
	// ErrNotImplemented marks single-recipient in-app notifications without a user id.
	ErrNotImplemented = errors.New("single user in-app notification not implemented")
)

//go:generate mockgen -source=service.go -destination=../../mocks/service/dispatch/mock.go -package=mocks

type notificationStore interface {
	SelectDue(ctx context.Context, window model.Window) ([]model.QueuedNotification, error)
	CountStale(ctx context.Context, before time.Time) (int, error)
	MarkSent(ctx context.Context, id int64) error
	InsertInApp(ctx context.Context, notifications []model.InAppNotification) (int, error)
}

type userDirectory interface {
	ListEmails(ctx context.Context) ([]string, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

type emailSender interface {
	Send(ctx context.Context, msg email.Message) (string, error)
}

type claimer interface {
	Claim(ctx context.Context, id int64, runID uuid.UUID) (bool, error)
	Release(ctx context.Context, id int64) error
}

type eventPublisher interface {
	Publish(event model.DispatchEvent, strategy retry.Strategy) error
}

// Options configure a dispatch Service.
type Options struct {
	From         string         // sender address of every email
	DefaultTitle string         // subject and heading for untitled notifications
	DueWindow    time.Duration  // width of the selection window, zero means unbounded
	StaleCheck   bool           // count pending rows that fell out of the window
	Retry        retry.Strategy // retry strategy for idempotent database calls
}

// Service turns due rows of the notifications queue into emails and in-app
// notifications. Rows are processed one at a time in selection order.
type Service struct {
	store  notificationStore
	users  userDirectory
	mailer emailSender
	claims claimer
	events eventPublisher
	opts   Options
	now    func() time.Time

	running sync.Mutex
}

// NewService creates a dispatch service. events may be nil.
func NewService(
	store notificationStore,
	users userDirectory,
	mailer emailSender,
	claims claimer,
	events eventPublisher,
	opts Options,
) *Service {
	if opts.Retry.Attempts < 1 {
		opts.Retry.Attempts = 1
	}

	return &Service{
		store:  store,
		users:  users,
		mailer: mailer,
		claims: claims,
		events: events,
		opts:   opts,
		now:    time.Now,
	}
}

// Run performs one dispatch cycle and returns its report.
//
// Only a failed selection is returned as an error; failures of single rows
// are collected in the report.
func (s *Service) Run(ctx context.Context) (*model.Report, error) {
	if !s.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()

	runID := uuid.New()
	log := zlog.Logger.With().Str("run_id", runID.String()).Logger()
	window := model.DueWindow(s.now(), s.opts.DueWindow)

	var due []model.QueuedNotification
	err := retry.Do(func() error {
		var err error
		due, err = s.store.SelectDue(ctx, window)
		return err
	}, s.opts.Retry)
	if err != nil {
		log.Error().Err(err).Msg("failed to select due notifications")
		return nil, fmt.Errorf("select due notifications: %w", err)
	}

	report := model.NewReport(runID)
	report.Success = true

	if s.opts.StaleCheck && window.Bounded() {
		s.checkStale(ctx, log, window, report)
	}

	if len(due) == 0 {
		log.Debug().Msg("no notifications to process")
		report.MarkIdle()
		report.Timestamp = s.now()
		return report, nil
	}

	log.Info().Int("due", len(due)).Msg("processing due notifications")

	for _, n := range due {
		s.process(ctx, log, runID, n, report)
	}

	report.Timestamp = s.now()

	log.Info().
		Int("processed", report.Processed).
		Int("emails_sent", report.EmailsSent).
		Int("in_app_created", report.InAppNotificationsCreated).
		Int("skipped", report.Skipped).
		Int("errors", len(report.Errors)).
		Msg("dispatch run finished")

	return report, nil
}

func (s *Service) checkStale(ctx context.Context, log zerolog.Logger, window model.Window, report *model.Report) {
	stale, err := s.store.CountStale(ctx, window.From)
	if err != nil {
		log.Warn().Err(err).Msg("failed to count stale notifications")
		return
	}

	if stale > 0 {
		report.StaleNotifications = stale
		log.Warn().
			Int("stale", stale).
			Time("before", window.From).
			Msg("pending notifications fell out of the due window and will not be dispatched")
	}
}

func (s *Service) process(ctx context.Context, log zerolog.Logger, runID uuid.UUID, n model.QueuedNotification, report *model.Report) {
	route := Classify(n)
	log = log.With().
		Int64("id", n.ID).
		Str("scope", string(route.Scope)).
		Str("channel", string(route.Channel)).
		Logger()

	granted, err := s.claims.Claim(ctx, n.ID, runID)
	if err != nil {
		log.Warn().Err(err).Msg("claim unavailable, dispatching without it")
		granted = true
	}
	if !granted {
		log.Info().Msg("notification claimed by another run, skipping")
		report.Skipped++
		return
	}

	result, err := s.deliver(ctx, n, route)
	if err != nil {
		s.release(ctx, log, n.ID)

		if errors.Is(err, ErrNotImplemented) {
			log.Warn().Msg("single user in-app notification has no recipient user id")
			report.AddError(fmt.Sprintf("Single user in-app notification not fully implemented for notification %d", n.ID))
			return
		}

		log.Error().Err(err).Msg("failed to deliver notification")
		report.AddError(fmt.Sprintf("Notification %d: %s", n.ID, err.Error()))
		return
	}

	report.EmailsSent += result.emailsSent
	report.InAppNotificationsCreated += result.inAppCreated

	err = s.markSent(ctx, n.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to update notification status")
		report.AddError(fmt.Sprintf("Notification %d: failed to update notification status: %s", n.ID, err.Error()))
		return
	}

	report.Processed++
	log.Info().Int("recipients", result.recipients()).Msg("notification dispatched")

	s.publish(log, model.DispatchEvent{
		RunID:          runID,
		NotificationID: n.ID,
		Scope:          route.Scope,
		Channel:        route.Channel,
		Recipients:     result.recipients(),
		DispatchedAt:   s.now(),
	})
}

// markSent flips the row with retries. The flip only matches pending rows,
// so a retry that finds nothing to flip means an earlier attempt committed
// before its error was reported.
func (s *Service) markSent(ctx context.Context, id int64) error {
	attempt := 0

	return retry.Do(func() error {
		attempt++

		err := s.store.MarkSent(ctx, id)
		if attempt > 1 && errors.Is(err, notification.ErrNotificationNotFound) {
			return nil
		}

		return err
	}, s.opts.Retry)
}

func (s *Service) release(ctx context.Context, log zerolog.Logger, id int64) {
	if err := s.claims.Release(ctx, id); err != nil {
		log.Warn().Err(err).Msg("failed to release claim")
	}
}

func (s *Service) publish(log zerolog.Logger, event model.DispatchEvent) {
	if s.events == nil {
		return
	}

	if err := s.events.Publish(event, s.opts.Retry); err != nil {
		log.Error().Err(err).Msg("failed to publish dispatch event")
	}
}
