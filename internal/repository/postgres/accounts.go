package postgres

import (
	"context"
	"database/sql"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oleksandrmytro/timecapsule-auth/internal/core/domain"
	"github.com/oleksandrmytro/timecapsule-auth/internal/repository"
)

// AccountRepository implements port.AccountRepository using PostgreSQL.
// Provider links live in auth.account_providers ordered by position, so the
// insertion order survives round trips.
type AccountRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	repo := &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

var accountColumns = []string{
	"id",
	"username",
	"email",
	"password_hash",
	"role",
	"enabled",
	"avatar_url",
	"created_at",
	"updated_at",
}

// Create inserts a new account row together with its provider links.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	stmt, args, err := r.builder.Insert("auth.accounts").
		Columns(accountColumns...).
		Values(
			account.ID,
			account.Username,
			nullable(account.Email),
			nullable(account.PasswordHash),
			string(account.Role),
			account.Enabled,
			nullable(account.AvatarURL),
			account.CreatedAt,
			account.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	return r.insertProviders(ctx, r.exec, account)
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves an account by its unique email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"email": email})
}

// GetByUsername retrieves an account by its unique username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"username": username})
}

// GetByProvider resolves the account owning the (provider, providerID) link.
func (r *AccountRepository) GetByProvider(ctx context.Context, provider, providerID string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select("account_id").
		From("auth.account_providers").
		Where(squirrel.Eq{"provider": provider, "provider_id": providerID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select provider link sql: %w", err)
	}

	var accountID string
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&accountID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan provider link: %w", err)
	}

	return r.GetByID(ctx, accountID)
}

// Save replaces the account row keyed by id and rewrites its provider links
// in a single transaction. The caller supplies the fully merged account.
func (r *AccountRepository) Save(ctx context.Context, account domain.Account) error {
	if r.pool == nil {
		return r.save(ctx, r.exec, account)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save account: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := r.save(ctx, tx, account); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save account: %w", err)
	}
	return nil
}

func (r *AccountRepository) save(ctx context.Context, exec pgExecutor, account domain.Account) error {
	stmt, args, err := r.builder.Update("auth.accounts").
		Set("username", account.Username).
		Set("email", nullable(account.Email)).
		Set("password_hash", nullable(account.PasswordHash)).
		Set("role", string(account.Role)).
		Set("enabled", account.Enabled).
		Set("avatar_url", nullable(account.AvatarURL)).
		Set("updated_at", account.UpdatedAt).
		Where(squirrel.Eq{"id": account.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update account sql: %w", err)
	}

	tag, err := exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	del, delArgs, err := r.builder.Delete("auth.account_providers").
		Where(squirrel.Eq{"account_id": account.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete provider links sql: %w", err)
	}
	if _, err := exec.Exec(ctx, del, delArgs...); err != nil {
		return fmt.Errorf("delete provider links: %w", err)
	}

	return r.insertProviders(ctx, exec, account)
}

func (r *AccountRepository) insertProviders(ctx context.Context, exec pgExecutor, account domain.Account) error {
	if len(account.Providers) == 0 {
		return nil
	}

	insert := r.builder.Insert("auth.account_providers").
		Columns("account_id", "position", "provider", "provider_id", "email", "name")
	for i, link := range account.Providers {
		insert = insert.Values(account.ID, i, link.Provider, link.ProviderID, nullable(link.Email), nullable(link.Name))
	}

	stmt, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build insert provider links sql: %w", err)
	}
	if _, err := exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert provider links: %w", err)
	}
	return nil
}

func (r *AccountRepository) getOne(ctx context.Context, where squirrel.Eq) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("auth.accounts").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		account   domain.Account
		email     sql.NullString
		hash      sql.NullString
		role      string
		avatarURL sql.NullString
	)
	if err := row.Scan(
		&account.ID,
		&account.Username,
		&email,
		&hash,
		&role,
		&account.Enabled,
		&avatarURL,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	account.Email = email.String
	account.PasswordHash = hash.String
	account.Role = domain.ParseRole(role)
	account.AvatarURL = avatarURL.String

	if err := r.loadProviders(ctx, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) loadProviders(ctx context.Context, account *domain.Account) error {
	stmt, args, err := r.builder.
		Select("provider", "provider_id", "email", "name").
		From("auth.account_providers").
		Where(squirrel.Eq{"account_id": account.ID}).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("build select provider links sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("query provider links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			link  domain.ProviderLink
			email sql.NullString
			name  sql.NullString
		)
		if err := rows.Scan(&link.Provider, &link.ProviderID, &email, &name); err != nil {
			return fmt.Errorf("scan provider link: %w", err)
		}
		link.Email = email.String
		link.Name = name.String
		account.Providers = append(account.Providers, link)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate provider links: %w", err)
	}
	return nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
