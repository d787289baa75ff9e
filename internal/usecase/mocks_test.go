package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/oleksandrmytro/timecapsule-auth/internal/core/domain"
	"github.com/oleksandrmytro/timecapsule-auth/internal/repository"
)

// fakeAccountRepository is an in-memory port.AccountRepository used to drive
// full lifecycle scenarios.
type fakeAccountRepository struct {
	mu       sync.Mutex
	accounts map[string]domain.Account

	createCalls int
	saveCalls   int
	createErr   error
	saveErr     error
}

func newFakeAccountRepository() *fakeAccountRepository {
	return &fakeAccountRepository{accounts: make(map[string]domain.Account)}
}

func (f *fakeAccountRepository) Create(_ context.Context, account domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.accounts {
		if existing.Email == account.Email {
			return fmt.Errorf("duplicate email %s", account.Email)
		}
	}
	f.accounts[account.ID] = account
	return nil
}

func (f *fakeAccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if account, ok := f.accounts[id]; ok {
		copied := account
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAccountRepository) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.accounts {
		if account.Email == email {
			copied := account
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAccountRepository) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.accounts {
		if account.Username == username {
			copied := account
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAccountRepository) GetByProvider(_ context.Context, provider, providerID string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.accounts {
		if account.HasProvider(provider, providerID) {
			copied := account
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAccountRepository) Save(_ context.Context, account domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, ok := f.accounts[account.ID]; !ok {
		return repository.ErrNotFound
	}
	f.accounts[account.ID] = account
	return nil
}

// fakePendingRepository is an in-memory port.PendingRepository keyed by email.
type fakePendingRepository struct {
	mu      sync.Mutex
	records map[string]domain.PendingRegistration

	upsertCalls int
	deleteCalls int
	upsertErr   error
}

func newFakePendingRepository() *fakePendingRepository {
	return &fakePendingRepository{records: make(map[string]domain.PendingRegistration)}
}

func (f *fakePendingRepository) Upsert(_ context.Context, pending domain.PendingRegistration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.records[pending.Email] = pending
	return nil
}

func (f *fakePendingRepository) GetByEmail(_ context.Context, email string) (*domain.PendingRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record, ok := f.records[email]; ok {
		copied := record
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakePendingRepository) GetByCode(_ context.Context, code string) (*domain.PendingRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.records {
		if record.Code == code {
			copied := record
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakePendingRepository) DeleteByEmail(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	delete(f.records, email)
	return nil
}

func (f *fakePendingRepository) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// stubCodeSource hands out a fixed sequence of codes.
type stubCodeSource struct {
	codes []string
	index int
}

func (s *stubCodeSource) Generate() (string, error) {
	if s.index >= len(s.codes) {
		return "", fmt.Errorf("stub code source exhausted")
	}
	code := s.codes[s.index]
	s.index++
	return code, nil
}

// stubHasher is a transparent hasher so tests can assert on stored values
// without paying for Argon2.
type stubHasher struct{}

func (stubHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (stubHasher) Verify(password, encoded string) (bool, error) {
	return encoded == "hashed:"+password, nil
}

// allowAllPolicy accepts every password.
type allowAllPolicy struct{}

func (allowAllPolicy) Validate(string, ...string) error { return nil }

// recordingPublisher counts published events per type.
type recordingPublisher struct {
	mu     sync.Mutex
	staged []domain.RegistrationStagedEvent
	verify []domain.AccountVerifiedEvent
	logins []domain.LoginSucceededEvent
	linked []domain.OAuthLinkedEvent
}

func (p *recordingPublisher) PublishRegistrationStaged(_ context.Context, event domain.RegistrationStagedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.staged = append(p.staged, event)
	return nil
}

func (p *recordingPublisher) PublishAccountVerified(_ context.Context, event domain.AccountVerifiedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verify = append(p.verify, event)
	return nil
}

func (p *recordingPublisher) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logins = append(p.logins, event)
	return nil
}

func (p *recordingPublisher) PublishOAuthLinked(_ context.Context, event domain.OAuthLinkedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.linked = append(p.linked, event)
	return nil
}

func seedAccount(repo *fakeAccountRepository, account domain.Account) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.accounts[account.ID] = account
}

func normalizedEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
