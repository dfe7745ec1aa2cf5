package user

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"
)

// Repository reads the user directory view.
type Repository struct {
	db   *dbpg.DB
	view string
}

// NewRepository creates a new user directory repository over the given view.
func NewRepository(db *dbpg.DB, view string) *Repository {
	return &Repository{db: db, view: view}
}

// ListEmails returns the email address of every user that has one.
func (r *Repository) ListEmails(ctx context.Context) ([]string, error) {
	query, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("email").
		From(r.view).
		Where(sq.NotEq{"email": nil}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user emails query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan user email: %w", err)
		}

		if email != "" {
			emails = append(emails, email)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}

	return emails, nil
}

// ListIDs returns the ID of every user in the directory.
func (r *Repository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	query, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("id").
		From(r.view).
		Where(sq.NotEq{"id": nil}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user ids query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}

	return ids, nil
}
