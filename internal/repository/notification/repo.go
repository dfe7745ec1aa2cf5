package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/wb-go/wbf/dbpg"

	"github.com/aliskhannn/notification-dispatcher/internal/model"
)

// ErrNotificationNotFound is returned when a pending notification with the given ID does not exist.
var ErrNotificationNotFound = errors.New("notification not found")

const queueTable = "notifications"

var (
	baseColumns       = []string{"id", "title", "description", "time_created", "status"}
	structuredColumns = []string{"channel", "scope", "recipient", "recipient_user_id"}
)

// insertInAppQuery writes any number of feed rows with five array parameters.
const insertInAppQuery = `INSERT INTO %s (user_id, title, message, type, is_read) ` +
	`SELECT * FROM unnest($1::uuid[], $2::text[], $3::text[], $4::text[], $5::boolean[])`

// Options configure the tables and columns the repository works with.
type Options struct {
	InAppTable        string // in-app notification feed table
	StructuredColumns bool   // read channel, scope and recipient columns
}

// Repository provides methods to interact with the notifications queue table
// and the in-app notification feed.
type Repository struct {
	db   *dbpg.DB
	opts Options
}

// NewRepository creates a new notification repository.
func NewRepository(db *dbpg.DB, opts Options) *Repository {
	return &Repository{db: db, opts: opts}
}

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// SelectDue returns pending notifications whose time_created falls inside
// the window, oldest first.
func (r *Repository) SelectDue(ctx context.Context, window model.Window) ([]model.QueuedNotification, error) {
	columns := baseColumns
	if r.opts.StructuredColumns {
		columns = append(append([]string{}, baseColumns...), structuredColumns...)
	}

	builder := psql().
		Select(columns...).
		From(queueTable).
		Where(sq.Eq{"status": false})
	if window.Bounded() {
		builder = builder.Where(sq.GtOrEq{"time_created": window.From})
	}
	builder = builder.
		Where(sq.LtOrEq{"time_created": window.To}).
		OrderBy("time_created ASC", "id ASC")

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build due notifications query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select due notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.QueuedNotification
	for rows.Next() {
		var n model.QueuedNotification
		dest := []any{&n.ID, &n.Title, &n.Description, &n.TimeCreated, &n.Status}
		if r.opts.StructuredColumns {
			dest = append(dest, &n.Channel, &n.Scope, &n.Recipient, &n.RecipientUserID)
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read due notifications: %w", err)
	}

	return notifications, nil
}

// CountStale counts pending notifications that became due before the given time
// and can no longer be selected by a bounded window.
func (r *Repository) CountStale(ctx context.Context, before time.Time) (int, error) {
	query, args, err := psql().
		Select("count(*)").
		From(queueTable).
		Where(sq.Eq{"status": false}).
		Where(sq.Lt{"time_created": before}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build stale notifications query: %w", err)
	}

	var count int
	if err := r.db.Master.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stale notifications: %w", err)
	}

	return count, nil
}

// MarkSent flips the status of a pending notification to true.
//
// The update only matches rows that are still pending, so a row is never
// flipped twice.
func (r *Repository) MarkSent(ctx context.Context, id int64) error {
	query, args, err := psql().
		Update(queueTable).
		Set("status", true).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"status": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build status update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}

	if rows == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// InsertInApp bulk-inserts in-app notifications in a single statement and
// returns the number of rows written. The statement binds one array per
// column, so its parameter count does not depend on the number of rows.
func (r *Repository) InsertInApp(ctx context.Context, notifications []model.InAppNotification) (int, error) {
	if len(notifications) == 0 {
		return 0, nil
	}

	var (
		userIDs  = make(pq.StringArray, 0, len(notifications))
		titles   = make(pq.StringArray, 0, len(notifications))
		messages = make(pq.StringArray, 0, len(notifications))
		types    = make(pq.StringArray, 0, len(notifications))
		isRead   = make(pq.BoolArray, 0, len(notifications))
	)
	for _, n := range notifications {
		userIDs = append(userIDs, n.UserID.String())
		titles = append(titles, n.Title)
		messages = append(messages, n.Message)
		types = append(types, n.Type)
		isRead = append(isRead, n.IsRead)
	}

	query := fmt.Sprintf(insertInAppQuery, r.opts.InAppTable)

	res, err := r.db.ExecContext(ctx, query, userIDs, titles, messages, types, isRead)
	if err != nil {
		return 0, fmt.Errorf("failed to create in-app notifications: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to create in-app notifications: %w", err)
	}

	return int(rows), nil
}
