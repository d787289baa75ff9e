package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/oleksandrmytro/timecapsule-auth/internal/core/domain"
	"github.com/oleksandrmytro/timecapsule-auth/internal/repository"
)

func TestAccountRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	now := time.Now().UTC()
	account := domain.Account{
		ID:           "acc-1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		Role:         domain.RoleRegular,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
		Providers: []domain.ProviderLink{
			{Provider: "google", ProviderID: "g-1", Email: "alice@example.com"},
		},
	}

	mock.ExpectExec(`INSERT INTO auth\.accounts`).
		WithArgs(
			account.ID,
			account.Username,
			account.Email,
			account.PasswordHash,
			"regular",
			account.Enabled,
			nil,
			account.CreatedAt,
			account.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectExec(`INSERT INTO auth\.account_providers`).
		WithArgs(account.ID, 0, "google", "g-1", "alice@example.com", nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), account); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_GetByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	now := time.Now().UTC()
	accountRows := pgxmock.NewRows([]string{
		"id", "username", "email", "password_hash", "role", "enabled", "avatar_url", "created_at", "updated_at",
	}).AddRow(
		"acc-1", "alice", "alice@example.com", "hash", "regular", true, nil, now, now,
	)

	mock.ExpectQuery(`SELECT .*FROM auth\.accounts`).
		WithArgs("alice@example.com").
		WillReturnRows(accountRows)

	providerRows := pgxmock.NewRows([]string{
		"provider", "provider_id", "email", "name",
	}).AddRow(
		"google", "g-1", "alice@example.com", "Alice",
	).AddRow(
		"github", "gh-7", nil, nil,
	)

	mock.ExpectQuery(`SELECT .*FROM auth\.account_providers`).
		WithArgs("acc-1").
		WillReturnRows(providerRows)

	account, err := repo.GetByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail returned error: %v", err)
	}
	if account.ID != "acc-1" {
		t.Fatalf("expected account acc-1, got %s", account.ID)
	}
	if account.Role != domain.RoleRegular {
		t.Fatalf("expected regular role, got %s", account.Role)
	}
	if len(account.Providers) != 2 {
		t.Fatalf("expected two provider links, got %d", len(account.Providers))
	}
	if account.Providers[0].Provider != "google" || account.Providers[1].Provider != "github" {
		t.Fatalf("expected links in insertion order, got %+v", account.Providers)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_GetByProviderNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	mock.ExpectQuery(`SELECT account_id FROM auth\.account_providers`).
		WithArgs("google", "unknown").
		WillReturnRows(pgxmock.NewRows([]string{"account_id"}))

	if _, err := repo.GetByProvider(context.Background(), "google", "unknown"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_SaveMissingAccount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	now := time.Now().UTC()
	account := domain.Account{
		ID:        "missing",
		Username:  "ghost",
		Email:     "ghost@example.com",
		Role:      domain.RoleRegular,
		Enabled:   true,
		UpdatedAt: now,
	}

	mock.ExpectExec(`UPDATE auth\.accounts`).
		WithArgs(
			account.Username,
			account.Email,
			nil,
			"regular",
			account.Enabled,
			nil,
			account.UpdatedAt,
			account.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.Save(context.Background(), account); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
