package service

import (
	"context"
	"errors"
	"sync"
	"time"

	identitydomain "piiwatch/internal/identity/domain"
	identityrepo "piiwatch/internal/identity/repository"
	sessiondomain "piiwatch/internal/session/domain"
	userdomain "piiwatch/internal/user/domain"
	userrepo "piiwatch/internal/user/repository"
)

var errStoreDown = errors.New("connection refused")

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type memUserRepo struct {
	mu        sync.Mutex
	byID      map[string]*userdomain.User
	getErr    error
	createErr error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*userdomain.User{}}
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) Create(_ context.Context, u *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return userrepo.ErrDuplicateEmail
		}
	}
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

// racingUserRepo stores rival right after the first email lookup and still reports
// the email as free, the way a concurrent first sign-in interleaves.
type racingUserRepo struct {
	*memUserRepo
	rival *userdomain.User
	once  sync.Once
}

func (r *racingUserRepo) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	raced := false
	r.once.Do(func() { raced = true })
	if raced {
		if err := r.memUserRepo.Create(ctx, r.rival); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return r.memUserRepo.GetByEmail(ctx, email)
}

type failingLinker struct {
	err   error
	calls int
}

func (l *failingLinker) CreateAndLink(context.Context, *userdomain.User, *identitydomain.Identity) error {
	l.calls++
	return l.err
}

type memIdentityRepo struct {
	mu    sync.Mutex
	links []*identitydomain.Identity
}

func (r *memIdentityRepo) GetByProviderAccount(_ context.Context, provider identitydomain.Provider, accountID string) (*identitydomain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.links {
		if i.Provider == provider && i.ProviderAccountID == accountID {
			cp := *i
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memIdentityRepo) Create(_ context.Context, i *identitydomain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.links {
		if existing.Provider == i.Provider && existing.ProviderAccountID == i.ProviderAccountID {
			return identityrepo.ErrAlreadyLinked
		}
	}
	cp := *i
	r.links = append(r.links, &cp)
	return nil
}

// memRefreshRepo mirrors the Postgres store: Revoke is a single conditional update.
type memRefreshRepo struct {
	mu        sync.Mutex
	tokens    map[string]*sessiondomain.RefreshToken
	createErr error
	getErr    error
	deleteErr error
}

func newMemRefreshRepo() *memRefreshRepo {
	return &memRefreshRepo{tokens: map[string]*sessiondomain.RefreshToken{}}
}

func (r *memRefreshRepo) Create(_ context.Context, t *sessiondomain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	cp := *t
	r.tokens[t.ID] = &cp
	return nil
}

func (r *memRefreshRepo) GetByID(_ context.Context, id string) (*sessiondomain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	t, ok := r.tokens[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *memRefreshRepo) Revoke(_ context.Context, id string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok || t.Revoked || !now.Before(t.ExpiresAt) {
		return false, nil
	}
	t.Revoked = true
	t.UpdatedAt = now
	return true, nil
}

func (r *memRefreshRepo) RevokeAllByUser(_ context.Context, userID string, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.tokens {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			t.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (r *memRefreshRepo) DeleteStale(_ context.Context, now time.Time, grace time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}
	var n int64
	for id, t := range r.tokens {
		if t.Stale(now, grace) {
			delete(r.tokens, id)
			n++
		}
	}
	return n, nil
}

func (r *memRefreshRepo) get(id string) (sessiondomain.RefreshToken, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return sessiondomain.RefreshToken{}, false
	}
	return *t, true
}

type recordingAudit struct {
	mu      sync.Mutex
	actions []string
}

func (a *recordingAudit) LogEvent(_ context.Context, _, action, _, _ string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
}

func (a *recordingAudit) has(action string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, got := range a.actions {
		if got == action {
			return true
		}
	}
	return false
}

type countingSweeper struct {
	mu    sync.Mutex
	calls int
}

func (s *countingSweeper) Sweep(context.Context) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return 0
}

type stubLimiter struct {
	checkErr error
	failures int
	resets   int
}

func (l *stubLimiter) CheckLogin(context.Context, string, string) error { return l.checkErr }

func (l *stubLimiter) RecordFailure(context.Context, string, string) error {
	l.failures++
	return nil
}

func (l *stubLimiter) Reset(context.Context, string) error {
	l.resets++
	return nil
}
