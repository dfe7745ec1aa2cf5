package notification

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/dbpg"

	"github.com/aliskhannn/notification-dispatcher/internal/model"
)

func setupMockDB(t *testing.T, opts Options) (*Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open mock db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	wrappedDB := &dbpg.DB{Master: db}
	if opts.InAppTable == "" {
		opts.InAppTable = "community_notifications"
	}
	repo := NewRepository(wrappedDB, opts)

	return repo, mock
}

func TestSelectDue(t *testing.T) {
	repo, mock := setupMockDB(t, Options{})

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	window := model.DueWindow(now, time.Minute)

	rows := sqlmock.NewRows([]string{"id", "title", "description", "time_created", "status"}).
		AddRow(int64(1), "Frost warning", "Broadcast Email:\n\nCover your seedlings", now.Add(-30*time.Second), false).
		AddRow(int64(2), nil, "Email to: a@b.com\n\nHi", now.Add(-10*time.Second), false)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, title, description, time_created, status FROM notifications ` +
			`WHERE status = $1 AND time_created >= $2 AND time_created <= $3 ORDER BY time_created ASC, id ASC`,
	)).
		WithArgs(false, window.From, window.To).
		WillReturnRows(rows)

	list, err := repo.SelectDue(context.Background(), window)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, int64(1), list[0].ID)
	assert.Equal(t, "Frost warning", list[0].Title.String)
	assert.False(t, list[1].Title.Valid)
	assert.Equal(t, "Email to: a@b.com\n\nHi", list[1].Description.String)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectDue_UnboundedWithStructuredColumns(t *testing.T) {
	repo, mock := setupMockDB(t, Options{StructuredColumns: true})

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	window := model.DueWindow(now, 0)
	userID := uuid.New()

	rows := sqlmock.NewRows([]string{
		"id", "title", "description", "time_created", "status",
		"channel", "scope", "recipient", "recipient_user_id",
	}).AddRow(int64(7), "Welcome", "Glad you joined", now.Add(-time.Hour), false,
		"in_app", "single", nil, userID.String())

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, title, description, time_created, status, channel, scope, recipient, recipient_user_id ` +
			`FROM notifications WHERE status = $1 AND time_created <= $2`,
	)).
		WithArgs(false, window.To).
		WillReturnRows(rows)

	list, err := repo.SelectDue(context.Background(), window)
	require.NoError(t, err)
	require.Len(t, list, 1)

	assert.Equal(t, "in_app", list[0].Channel.String)
	assert.Equal(t, "single", list[0].Scope.String)
	assert.False(t, list[0].Recipient.Valid)
	assert.True(t, list[0].RecipientUserID.Valid)
	assert.Equal(t, userID, list[0].RecipientUserID.UUID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectDue_QueryError(t *testing.T) {
	repo, mock := setupMockDB(t, Options{})

	mock.ExpectQuery("SELECT (.+) FROM notifications").
		WillReturnError(errors.New("connection refused"))

	_, err := repo.SelectDue(context.Background(), model.DueWindow(time.Now(), time.Minute))
	assert.ErrorContains(t, err, "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountStale(t *testing.T) {
	repo, mock := setupMockDB(t, Options{})
	before := time.Date(2026, 3, 1, 11, 59, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT count(*) FROM notifications WHERE status = $1 AND time_created < $2`,
	)).
		WithArgs(false, before).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountStale(context.Background(), before)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSent(t *testing.T) {
	repo, mock := setupMockDB(t, Options{})
	query := regexp.QuoteMeta(`UPDATE notifications SET status = $1 WHERE id = $2 AND status = $3`)

	mock.ExpectExec(query).
		WithArgs(true, int64(3), false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkSent(context.Background(), 3)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectExec(query).
		WithArgs(true, int64(3), false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.MarkSent(context.Background(), 3)
	assert.ErrorIs(t, err, ErrNotificationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertInApp(t *testing.T) {
	repo, mock := setupMockDB(t, Options{})

	u1, u2 := uuid.New(), uuid.New()
	entries := []model.InAppNotification{
		{UserID: u1, Title: "Swap meet", Message: "Saturday at noon", Type: "system"},
		{UserID: u2, Title: "Swap meet", Message: "Saturday at noon", Type: "system"},
	}

	mock.ExpectExec(regexp.QuoteMeta(
		`INSERT INTO community_notifications (user_id, title, message, type, is_read) ` +
			`SELECT * FROM unnest($1::uuid[], $2::text[], $3::text[], $4::text[], $5::boolean[])`,
	)).
		WithArgs(
			pq.StringArray{u1.String(), u2.String()},
			pq.StringArray{"Swap meet", "Swap meet"},
			pq.StringArray{"Saturday at noon", "Saturday at noon"},
			pq.StringArray{"system", "system"},
			pq.BoolArray{false, false},
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.InsertInApp(context.Background(), entries)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertInApp_ParameterCountIsFixed(t *testing.T) {
	repo, mock := setupMockDB(t, Options{})

	// Postgres caps a statement at 65535 parameters; five per row would
	// overflow well below this audience size.
	const users = 20000
	entries := make([]model.InAppNotification, 0, users)
	for i := 0; i < users; i++ {
		entries = append(entries, model.InAppNotification{UserID: uuid.New(), Title: "Frost", Message: "Cover beds", Type: "system"})
	}

	mock.ExpectExec("INSERT INTO community_notifications").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, users))

	n, err := repo.InsertInApp(context.Background(), entries)
	require.NoError(t, err)
	assert.Equal(t, users, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertInApp_Empty(t *testing.T) {
	repo, mock := setupMockDB(t, Options{})

	n, err := repo.InsertInApp(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertInApp_Error(t *testing.T) {
	repo, mock := setupMockDB(t, Options{})

	mock.ExpectExec("INSERT INTO community_notifications").
		WillReturnError(errors.New("permission denied"))

	_, err := repo.InsertInApp(context.Background(), []model.InAppNotification{{UserID: uuid.New()}})
	assert.ErrorContains(t, err, "permission denied")
	assert.NoError(t, mock.ExpectationsWereMet())
}
