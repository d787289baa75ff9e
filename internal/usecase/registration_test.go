package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oleksandrmytro/timecapsule-auth/internal/core/domain"
)

func newTestRegistrationService(accounts *fakeAccountRepository, pending *fakePendingRepository, codes CodeSource) *RegistrationService {
	return NewRegistrationService(accounts, pending, stubHasher{}, allowAllPolicy{}, codes, nil, 24*time.Hour, nil)
}

func TestSignupStagesRecordWithCode(t *testing.T) {
	accounts := newFakeAccountRepository()
	pending := newFakePendingRepository()
	service := newTestRegistrationService(accounts, pending, &stubCodeSource{codes: []string{"123456"}})

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	service.WithClock(func() time.Time { return base })

	staged, err := service.Signup(context.Background(), "Alice@Example.com", "alice", "secret1")
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	if staged.Code != "123456" {
		t.Fatalf("expected staged code 123456, got %q", staged.Code)
	}
	if !staged.ExpiresAt.Equal(base.Add(24 * time.Hour)) {
		t.Fatalf("expected expiry 24h after staging, got %v", staged.ExpiresAt)
	}

	record, err := pending.GetByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("expected staged record for lowered email: %v", err)
	}
	if record.PasswordHash != "hashed:secret1" {
		t.Fatalf("expected hashed credential in staged record, got %q", record.PasswordHash)
	}
}

func TestSignupConflictsWithExistingAccount(t *testing.T) {
	accounts := newFakeAccountRepository()
	pending := newFakePendingRepository()
	seedAccount(accounts, domain.Account{ID: "u1", Username: "alice", Email: "alice@example.com", Enabled: true})

	service := newTestRegistrationService(accounts, pending, &stubCodeSource{codes: []string{"123456"}})

	if _, err := service.Signup(context.Background(), "alice@example.com", "alice2", "secret1"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if pending.count() != 0 {
		t.Fatalf("conflicting signup must not stage a record")
	}
}

func TestVerifyPromotesStagedRecord(t *testing.T) {
	accounts := newFakeAccountRepository()
	pending := newFakePendingRepository()
	service := newTestRegistrationService(accounts, pending, &stubCodeSource{codes: []string{"654321"}})

	ctx := context.Background()
	if _, err := service.Signup(ctx, "bob@example.com", "bob", "secret1"); err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}

	account, err := service.Verify(ctx, "654321")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !account.Enabled {
		t.Fatal("promoted account must be enabled")
	}
	if account.Role != domain.RoleRegular {
		t.Fatalf("expected regular role, got %q", account.Role)
	}
	if account.PasswordHash != "hashed:secret1" {
		t.Fatalf("promoted account lost its credential: %q", account.PasswordHash)
	}
	if pending.count() != 0 {
		t.Fatal("staged record must be deleted after promotion")
	}
}

func TestVerifyRejectsUnknownCode(t *testing.T) {
	accounts := newFakeAccountRepository()
	pending := newFakePendingRepository()
	service := newTestRegistrationService(accounts, pending, &stubCodeSource{codes: []string{"654321"}})

	ctx := context.Background()
	if _, err := service.Signup(ctx, "bob@example.com", "bob", "secret1"); err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}

	if _, err := service.Verify(ctx, "111111"); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid, got %v", err)
	}
	if accounts.createCalls != 0 {
		t.Fatal("no account may be created for a wrong code")
	}
	if pending.count() != 1 {
		t.Fatal("staged record must survive a wrong code")
	}
}

func TestExpiredCodePurgesRecord(t *testing.T) {
	accounts := newFakeAccountRepository()
	pending := newFakePendingRepository()
	service := newTestRegistrationService(accounts, pending, &stubCodeSource{codes: []string{"222333"}})

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	service.WithClock(func() time.Time { return current })

	ctx := context.Background()
	if _, err := service.Signup(ctx, "carol@example.com", "carol", "secret1"); err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}

	current = base.Add(24*time.Hour + time.Minute)

	if _, err := service.Verify(ctx, "222333"); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}
	if pending.count() != 0 {
		t.Fatal("expired record must be purged on detection")
	}

	// The purged code now behaves like any unknown code.
	if _, err := service.Verify(ctx, "222333"); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid after purge, got %v", err)
	}
}

func TestResendInvalidatesPreviousCode(t *testing.T) {
	accounts := newFakeAccountRepository()
	pending := newFakePendingRepository()
	service := newTestRegistrationService(accounts, pending, &stubCodeSource{codes: []string{"111111", "222222"}})

	ctx := context.Background()
	if _, err := service.Signup(ctx, "dave@example.com", "dave", "secret1"); err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}

	staged, err := service.Resend(ctx, "dave@example.com")
	if err != nil {
		t.Fatalf("Resend returned error: %v", err)
	}
	if staged.Code != "222222" {
		t.Fatalf("expected regenerated code, got %q", staged.Code)
	}

	if _, err := service.Verify(ctx, "111111"); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("old code must be invalid after resend, got %v", err)
	}
	if _, err := service.Verify(ctx, "222222"); err != nil {
		t.Fatalf("new code must verify, got %v", err)
	}
}

func TestResendWithoutStagedRecord(t *testing.T) {
	service := newTestRegistrationService(newFakeAccountRepository(), newFakePendingRepository(), &stubCodeSource{})

	if _, err := service.Resend(context.Background(), "nobody@example.com"); !errors.Is(err, ErrPendingNotFound) {
		t.Fatalf("expected ErrPendingNotFound, got %v", err)
	}
}

func TestResendSelfHealsOrphanedRecord(t *testing.T) {
	accounts := newFakeAccountRepository()
	pending := newFakePendingRepository()
	service := newTestRegistrationService(accounts, pending, &stubCodeSource{codes: []string{"333444"}})

	ctx := context.Background()
	if _, err := service.Signup(ctx, "eve@example.com", "eve", "secret1"); err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}

	// The email gains a verified account behind the staged record's back.
	seedAccount(accounts, domain.Account{ID: "u9", Username: "eve", Email: "eve@example.com", Enabled: true})

	if _, err := service.Resend(ctx, "eve@example.com"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if pending.count() != 0 {
		t.Fatal("orphaned staged record must be deleted")
	}
}

func TestRedeemConflictPurgesRecord(t *testing.T) {
	accounts := newFakeAccountRepository()
	pending := newFakePendingRepository()
	service := newTestRegistrationService(accounts, pending, &stubCodeSource{codes: []string{"555666"}})

	ctx := context.Background()
	if _, err := service.Signup(ctx, "frank@example.com", "frank", "secret1"); err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}

	seedAccount(accounts, domain.Account{ID: "u2", Username: "frank", Email: "frank@example.com", Enabled: true})

	if _, err := service.Redeem(ctx, "555666"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken from duplicate promotion guard, got %v", err)
	}
	if pending.count() != 0 {
		t.Fatal("conflicting staged record must be deleted")
	}
}

func TestVerifyEmitsEvents(t *testing.T) {
	accounts := newFakeAccountRepository()
	pending := newFakePendingRepository()
	publisher := &recordingPublisher{}
	service := NewRegistrationService(accounts, pending, stubHasher{}, allowAllPolicy{}, &stubCodeSource{codes: []string{"777888"}}, publisher, 24*time.Hour, nil)

	ctx := context.Background()
	if _, err := service.Signup(ctx, "grace@example.com", "grace", "secret1"); err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	if _, err := service.Verify(ctx, "777888"); err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}

	if len(publisher.staged) != 1 {
		t.Fatalf("expected one staged event, got %d", len(publisher.staged))
	}
	if len(publisher.verify) != 1 {
		t.Fatalf("expected one verified event, got %d", len(publisher.verify))
	}
}
