package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oleksandrmytro/timecapsule-auth/internal/core/domain"
	"github.com/oleksandrmytro/timecapsule-auth/internal/repository"
)

// PendingRepository implements port.PendingRepository using PostgreSQL.
type PendingRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPendingRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewPendingRepository(exec pgExecutor) *PendingRepository {
	repo := &PendingRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

var pendingColumns = []string{
	"email",
	"username",
	"password_hash",
	"code",
	"code_expires_at",
	"created_at",
}

// Upsert creates or overwrites the staged record for the email.
func (r *PendingRepository) Upsert(ctx context.Context, pending domain.PendingRegistration) error {
	stmt, args, err := r.builder.Insert("auth.pending_registrations").
		Columns(pendingColumns...).
		Values(
			pending.Email,
			pending.Username,
			pending.PasswordHash,
			pending.Code,
			pending.CodeExpiresAt,
			pending.CreatedAt,
		).
		Suffix(`ON CONFLICT (email) DO UPDATE SET
			username = EXCLUDED.username,
			password_hash = EXCLUDED.password_hash,
			code = EXCLUDED.code,
			code_expires_at = EXCLUDED.code_expires_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert pending sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert pending registration: %w", err)
	}
	return nil
}

// GetByEmail retrieves the staged record for the email.
func (r *PendingRepository) GetByEmail(ctx context.Context, email string) (*domain.PendingRegistration, error) {
	return r.getOne(ctx, squirrel.Eq{"email": email})
}

// GetByCode retrieves a staged record by verification code.
func (r *PendingRepository) GetByCode(ctx context.Context, code string) (*domain.PendingRegistration, error) {
	return r.getOne(ctx, squirrel.Eq{"code": code})
}

// DeleteByEmail removes the staged record. Deleting an absent record is not
// an error.
func (r *PendingRepository) DeleteByEmail(ctx context.Context, email string) error {
	stmt, args, err := r.builder.Delete("auth.pending_registrations").
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete pending sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete pending registration: %w", err)
	}
	return nil
}

func (r *PendingRepository) getOne(ctx context.Context, where squirrel.Eq) (*domain.PendingRegistration, error) {
	stmt, args, err := r.builder.
		Select(pendingColumns...).
		From("auth.pending_registrations").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select pending sql: %w", err)
	}

	var pending domain.PendingRegistration
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&pending.Email,
		&pending.Username,
		&pending.PasswordHash,
		&pending.Code,
		&pending.CodeExpiresAt,
		&pending.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan pending registration: %w", err)
	}
	return &pending, nil
}
