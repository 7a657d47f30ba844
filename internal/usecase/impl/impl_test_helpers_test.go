package impl

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"sitewatch/config"
	"sitewatch/internal/domain/entity"
	domainerrors "sitewatch/internal/domain/errors"
	"sitewatch/internal/domain/repository"
	"sitewatch/internal/domain/service"
	infraauth "sitewatch/internal/infra/auth"
	"sitewatch/internal/infra/challenge"
	"sitewatch/internal/infra/ratelimit"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	cfg := &config.Config{
		Auth: &config.AuthConfig{
			BcryptCost:          4,
			MaxAttempts:         3,
			WindowMinutes:       15,
			LockoutMinutes:      15,
			AccessTTLMinutes:    15,
			RefreshTTLDays:      7,
			TwoFactorEnabled:    true,
			TwoFactorIssuer:     "sitewatch",
			ChallengeTTLMinutes: 5,
			ResetTokenMinutes:   30,
		},
	}
	cfg.SecretKey.Access = "test-access-secret"
	cfg.SecretKey.Refresh = "test-refresh-secret"

	return cfg
}

// fakeClock is a controllable clock for deterministic expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memStore is an in-memory persistence backend implementing both
// TransactionManager and RepositoryFactory. Execute snapshots the state and
// restores it when the callback errors, matching the rollback contract of the
// real transaction manager; the conditional-update semantics of the real
// repositories are preserved.
type memStore struct {
	mu          sync.Mutex
	clock       service.Clock
	users       map[uuid.UUID]*entity.User
	sessions    map[uuid.UUID]*entity.AuthSession
	resetTokens map[uuid.UUID]*entity.PasswordResetToken
}

func newMemStore(clock service.Clock) *memStore {
	return &memStore{
		clock:       clock,
		users:       make(map[uuid.UUID]*entity.User),
		sessions:    make(map[uuid.UUID]*entity.AuthSession),
		resetTokens: make(map[uuid.UUID]*entity.PasswordResetToken),
	}
}

func (s *memStore) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	users, sessions, resetTokens := s.snapshot()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.users, s.sessions, s.resetTokens = users, sessions, resetTokens
		s.mu.Unlock()

		return err
	}

	return nil
}

// snapshot copies the store state. Repository writes replace pointer fields
// rather than mutating through them, so struct copies are deep enough.
func (s *memStore) snapshot() (
	map[uuid.UUID]*entity.User,
	map[uuid.UUID]*entity.AuthSession,
	map[uuid.UUID]*entity.PasswordResetToken,
) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make(map[uuid.UUID]*entity.User, len(s.users))
	for id, u := range s.users {
		cp := *u
		users[id] = &cp
	}
	sessions := make(map[uuid.UUID]*entity.AuthSession, len(s.sessions))
	for id, sess := range s.sessions {
		cp := *sess
		sessions[id] = &cp
	}
	resetTokens := make(map[uuid.UUID]*entity.PasswordResetToken, len(s.resetTokens))
	for id, tok := range s.resetTokens {
		cp := *tok
		resetTokens[id] = &cp
	}

	return users, sessions, resetTokens
}

func (s *memStore) UserRepo() repository.UserRepository           { return &memUserRepo{s: s} }
func (s *memStore) SessionRepo() repository.SessionRepository     { return &memSessionRepo{s: s} }
func (s *memStore) ResetTokenRepo() repository.ResetTokenRepository { return &memResetRepo{s: s} }

func (s *memStore) putUser(u *entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
}

func (s *memStore) user(id uuid.UUID) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		cp := *u

		return &cp
	}

	return nil
}

func (s *memStore) session(id uuid.UUID) *entity.AuthSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		cp := *sess

		return &cp
	}

	return nil
}

func (s *memStore) sessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

func (s *memStore) resetToken(id uuid.UUID) *entity.PasswordResetToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok, ok := s.resetTokens[id]; ok {
		cp := *tok

		return &cp
	}

	return nil
}

func (s *memStore) resetTokensForUser(userID uuid.UUID) []*entity.PasswordResetToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.PasswordResetToken
	for _, tok := range s.resetTokens {
		if tok.UserID == userID {
			cp := *tok
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	return out
}

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	if u := r.s.user(id); u != nil {
		return u, nil
	}

	return nil, repository.ErrUserNotFound
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u

			return &cp, nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (r *memUserRepo) UpdatePasswordHash(_ context.Context, userID uuid.UUID, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = passwordHash

	return nil
}

func (r *memUserRepo) SetPendingTwoFactorSecret(_ context.Context, userID uuid.UUID, secret string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.TwoFactorPendingSecret = secret

	return nil
}

func (r *memUserRepo) PromoteTwoFactorSecret(_ context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	if u.TwoFactorPendingSecret == "" {
		return domainerrors.ErrTwoFactorNotPending
	}
	u.TwoFactorSecret = u.TwoFactorPendingSecret
	u.TwoFactorPendingSecret = ""
	u.TwoFactorEnabled = true

	return nil
}

type memSessionRepo struct{ s *memStore }

func (r *memSessionRepo) Create(_ context.Context, session *entity.AuthSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.sessions {
		if existing.TokenHash == session.TokenHash {
			return repository.ErrDuplicateTokenHash
		}
	}
	if _, ok := r.s.users[session.UserID]; !ok {
		return repository.ErrUserNotFound
	}
	cp := *session
	r.s.sessions[session.ID] = &cp

	return nil
}

func (r *memSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.AuthSession, error) {
	if sess := r.s.session(id); sess != nil {
		return sess, nil
	}

	return nil, repository.ErrSessionNotFound
}

func (r *memSessionRepo) FindActiveByUserID(_ context.Context, userID uuid.UUID) ([]*entity.AuthSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.clock.Now()
	var out []*entity.AuthSession
	for _, sess := range r.s.sessions {
		if sess.UserID == userID && sess.Active(now) {
			cp := *sess
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	return out, nil
}

func (r *memSessionRepo) MarkUsed(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sess, ok := r.s.sessions[id]; ok {
		now := r.s.clock.Now()
		sess.LastUsedAt = &now
	}

	return nil
}

func (r *memSessionRepo) Revoke(_ context.Context, id uuid.UUID, reason string, replacedBy *uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	if sess.RevokedAt != nil || (replacedBy != nil && sess.ReplacedBy != nil) {
		return repository.ErrSessionAlreadyRevoked
	}
	now := r.s.clock.Now()
	sess.RevokedAt = &now
	sess.RevokedReason = &reason
	if replacedBy != nil {
		sess.ReplacedBy = replacedBy
	}

	return nil
}

func (r *memSessionRepo) RevokeAllForUser(_ context.Context, userID uuid.UUID, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.clock.Now()
	for _, sess := range r.s.sessions {
		if sess.UserID == userID && sess.RevokedAt == nil {
			revokedAt := now
			revokedReason := reason
			sess.RevokedAt = &revokedAt
			sess.RevokedReason = &revokedReason
		}
	}

	return nil
}

func (r *memSessionRepo) DeleteExpired(_ context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.clock.Now()
	for id, sess := range r.s.sessions {
		if !sess.ExpiresAt.After(now) {
			delete(r.s.sessions, id)
		}
	}

	return nil
}

func (r *memSessionRepo) CountActiveForUser(_ context.Context, userID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.clock.Now()
	count := 0
	for _, sess := range r.s.sessions {
		if sess.UserID == userID && sess.Active(now) {
			count++
		}
	}

	return count, nil
}

type memResetRepo struct{ s *memStore }

func (r *memResetRepo) Create(_ context.Context, token *entity.PasswordResetToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *token
	r.s.resetTokens[token.ID] = &cp

	return nil
}

func (r *memResetRepo) FindByHash(_ context.Context, tokenHash string) (*entity.PasswordResetToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *entity.PasswordResetToken
	for _, tok := range r.s.resetTokens {
		if tok.TokenHash != tokenHash {
			continue
		}
		if latest == nil || tok.CreatedAt.After(latest.CreatedAt) {
			latest = tok
		}
	}
	if latest == nil {
		return nil, repository.ErrResetTokenNotFound
	}
	cp := *latest

	return &cp, nil
}

func (r *memResetRepo) MarkUsed(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tok, ok := r.s.resetTokens[id]
	if !ok {
		return repository.ErrResetTokenNotFound
	}
	if tok.UsedAt != nil {
		return repository.ErrResetTokenAlreadyUsed
	}
	now := r.s.clock.Now()
	tok.UsedAt = &now

	return nil
}

func (r *memResetRepo) InvalidateAllForUser(_ context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.clock.Now()
	for _, tok := range r.s.resetTokens {
		if tok.UserID == userID && tok.UsedAt == nil {
			usedAt := now
			tok.UsedAt = &usedAt
		}
	}

	return nil
}

// fakeTOTP accepts a single configured code for any non-empty secret.
type fakeTOTP struct{ valid string }

func (f *fakeTOTP) GenerateSecret() (string, error) { return "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP", nil }

func (f *fakeTOTP) ProvisionURI(secret, account string) string {
	return "otpauth://totp/sitewatch:" + account + "?secret=" + secret + "&issuer=sitewatch"
}

func (f *fakeTOTP) Verify(secret, code string, _ time.Time) bool {
	return secret != "" && code == f.valid
}

type sentMail struct {
	email string
	token string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) SendPasswordResetEmail(_ context.Context, email, token string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{email: email, token: token})

	return nil
}

func (m *fakeMailer) last() (sentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMail{}, false
	}

	return m.sent[len(m.sent)-1], true
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sent)
}

type fakeQR struct{}

func (fakeQR) GeneratePNG(content string) ([]byte, error) {
	return append([]byte("png:"), content...), nil
}

// fixture wires the auth stack against in-memory infrastructure.
type fixture struct {
	cfg        *config.Config
	clock      *fakeClock
	store      *memStore
	tokenSvc   service.TokenService
	hasher     service.PasswordHasher
	totp       *fakeTOTP
	limiter    service.LoginRateLimiter
	challenges service.ChallengeStore
	mailer     *fakeMailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := newTestConfig()
	clock := newFakeClock()
	tokenSvc, err := infraauth.NewJWTService(cfg, clock)
	require.NoError(t, err)

	return &fixture{
		cfg:      cfg,
		clock:    clock,
		store:    newMemStore(clock),
		tokenSvc: tokenSvc,
		hasher:   infraauth.NewBcryptHasher(cfg),
		totp:     &fakeTOTP{valid: "123456"},
		limiter: ratelimit.New(ratelimit.Config{
			MaxAttempts: cfg.Auth.MaxAttempts,
			Window:      cfg.Auth.Window(),
			Lockout:     cfg.Auth.Lockout(),
		}, clock),
		challenges: challenge.New(cfg.Auth.ChallengeTTL(), clock),
		mailer:     &fakeMailer{},
	}
}

// addUser seeds an account with a bcrypt hash of the given password.
func (fx *fixture) addUser(t *testing.T, email, password string, role entity.Role, twoFactorSecret string) *entity.User {
	t.Helper()

	hash, err := fx.hasher.Hash(password)
	require.NoError(t, err)

	user := &entity.User{
		ID:           uuid.New(),
		TenantID:     uuid.New(),
		Email:        email,
		Name:         "Test User",
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    fx.clock.Now(),
	}
	if twoFactorSecret != "" {
		user.TwoFactorSecret = twoFactorSecret
		user.TwoFactorEnabled = true
	}
	fx.store.putUser(user)

	return user
}

func (fx *fixture) authService() *authService {
	return NewAuthService(
		fx.store, fx.tokenSvc, fx.hasher, fx.totp, fx.limiter, fx.challenges,
		fx.clock, fx.cfg, newDiscardLogger(),
	).(*authService)
}

func (fx *fixture) sessionService() *sessionService {
	return NewSessionService(fx.store, fx.tokenSvc, fx.clock, newDiscardLogger()).(*sessionService)
}

func (fx *fixture) twoFactorService() *twoFactorService {
	return NewTwoFactorService(fx.store, fx.totp, fakeQR{}, fx.clock, newDiscardLogger()).(*twoFactorService)
}

func (fx *fixture) resetService() *resetService {
	return NewResetService(
		fx.store, fx.tokenSvc, fx.hasher, fx.mailer, fx.clock, fx.cfg, newDiscardLogger(),
	).(*resetService)
}
