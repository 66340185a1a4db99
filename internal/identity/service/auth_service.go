// Package service implements the session token lifecycle: registration, credential
// verification, token issuance, rotation on session read, and sign-out revocation.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"piiwatch/internal/audit"
	identitydomain "piiwatch/internal/identity/domain"
	identityrepo "piiwatch/internal/identity/repository"
	"piiwatch/internal/logging"
	"piiwatch/internal/ratelimit"
	"piiwatch/internal/security"
	sessiondomain "piiwatch/internal/session/domain"
	"piiwatch/internal/telemetry"
	telemetrydomain "piiwatch/internal/telemetry/domain"
	userdomain "piiwatch/internal/user/domain"
	userrepo "piiwatch/internal/user/repository"
)

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
}

// IdentityRepo is the minimal identity repository needed by the auth service.
type IdentityRepo interface {
	GetByProviderAccount(ctx context.Context, provider identitydomain.Provider, accountID string) (*identitydomain.Identity, error)
	Create(ctx context.Context, i *identitydomain.Identity) error
}

// ProviderLinker creates a password-less user together with its first provider identity.
// It returns userrepo.ErrDuplicateEmail or identityrepo.ErrAlreadyLinked on a lost race,
// and persists neither row on any error.
type ProviderLinker interface {
	CreateAndLink(ctx context.Context, u *userdomain.User, i *identitydomain.Identity) error
}

// RefreshTokenRepo is the refresh store as seen by the auth service.
type RefreshTokenRepo interface {
	Create(ctx context.Context, t *sessiondomain.RefreshToken) error
	GetByID(ctx context.Context, id string) (*sessiondomain.RefreshToken, error)
	Revoke(ctx context.Context, id string, now time.Time) (bool, error)
	RevokeAllByUser(ctx context.Context, userID string, now time.Time) (int64, error)
}

// Sweeper runs the best-effort refresh token cleanup before each issuance.
type Sweeper interface {
	Sweep(ctx context.Context) int64
}

// LoginLimiter throttles password sign-in attempts.
type LoginLimiter interface {
	CheckLogin(ctx context.Context, email, ip string) error
	RecordFailure(ctx context.Context, email, ip string) error
	Reset(ctx context.Context, email string) error
}

// Deps holds the auth service dependencies. Sweeper, Limiter, Audit, Metrics and Logger are optional.
type Deps struct {
	Users      UserRepo
	Identities IdentityRepo
	// Linker defaults to two separate writes on Users and Identities.
	Linker        ProviderLinker
	RefreshTokens RefreshTokenRepo
	Hasher        *security.Hasher
	Tokens        *security.TokenProvider
	// RefreshTTL is the refresh token lifetime; 7 days when zero.
	RefreshTTL time.Duration
	Sweeper    Sweeper
	Limiter    LoginLimiter
	Audit      audit.AuditLogger
	Metrics    *telemetry.AuthMetrics
	Logger     logging.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// AuthService implements the session token lifecycle.
type AuthService struct {
	users         UserRepo
	identities    IdentityRepo
	linker        ProviderLinker
	refreshTokens RefreshTokenRepo
	hasher        *security.Hasher
	tokens        *security.TokenProvider
	refreshTTL    time.Duration
	sweeper       Sweeper
	limiter       LoginLimiter
	audit         audit.AuditLogger
	metrics       *telemetry.AuthMetrics
	logger        logging.Logger
	now           func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(d Deps) *AuthService {
	s := &AuthService{
		users:         d.Users,
		identities:    d.Identities,
		linker:        d.Linker,
		refreshTokens: d.RefreshTokens,
		hasher:        d.Hasher,
		tokens:        d.Tokens,
		refreshTTL:    d.RefreshTTL,
		sweeper:       d.Sweeper,
		limiter:       d.Limiter,
		audit:         d.Audit,
		metrics:       d.Metrics,
		logger:        d.Logger,
		now:           d.Now,
	}
	if s.refreshTTL <= 0 {
		s.refreshTTL = 7 * 24 * time.Hour
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.linker == nil {
		s.linker = repoLinker{users: s.users, identities: s.identities}
	}
	return s
}

type repoLinker struct {
	users      UserRepo
	identities IdentityRepo
}

func (l repoLinker) CreateAndLink(ctx context.Context, u *userdomain.User, i *identitydomain.Identity) error {
	if err := l.users.Create(ctx, u); err != nil {
		return err
	}
	return l.identities.Create(ctx, i)
}

// Register validates the input, rejects a taken email, and creates a password user.
// The returned user never carries the password hash.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*userdomain.User, error) {
	in = in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	existing, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, s.storeFailure(ctx, "register: lookup user", err)
	}
	if existing != nil {
		return nil, ErrDuplicateAccount
	}
	hashed, err := s.hasher.Hash([]byte(in.Password))
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}
	now := s.now().UTC()
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, userrepo.ErrDuplicateEmail) {
			return nil, ErrDuplicateAccount
		}
		return nil, s.storeFailure(ctx, "register: create user", err)
	}
	s.logEvent(ctx, user.ID, telemetrydomain.EventRegister, "user", "")
	return &userdomain.User{ID: user.ID, Name: user.Name, Email: user.Email, CreatedAt: user.CreatedAt, UpdatedAt: user.UpdatedAt}, nil
}

// VerifyCredentials returns the user whose stored hash matches password.
// Unknown email, provider-only account and wrong password all yield ErrInvalidCredentials.
func (s *AuthService) VerifyCredentials(ctx context.Context, email, password string) (*userdomain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, s.storeFailure(ctx, "verify credentials: lookup user", err)
	}
	if user == nil || !user.HasPassword() {
		s.hasher.CompareDummy([]byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// SignIn resolves cred to a user and always mints a fresh token pair; it never rotates.
func (s *AuthService) SignIn(ctx context.Context, cred Credential) (sessiondomain.Session, error) {
	var (
		userID string
		err    error
	)
	switch c := cred.(type) {
	case PasswordLogin:
		userID, err = s.passwordLogin(ctx, c)
	case ProviderLogin:
		userID, err = s.providerLogin(ctx, c)
	default:
		err = fmt.Errorf("sign in: unknown credential %T", cred)
	}
	if err != nil {
		return sessiondomain.Session{}, err
	}
	sess, err := s.issue(ctx, userID)
	if err != nil {
		s.metrics.RecordSignIn(ctx, telemetry.OutcomeFailure)
		return sessiondomain.Session{}, err
	}
	s.metrics.RecordSignIn(ctx, telemetry.OutcomeSuccess)
	s.logEvent(ctx, userID, telemetrydomain.EventSignInSuccess, "session", jsonObject("refresh_token_id", sess.RefreshTokenID))
	return sess, nil
}

func (s *AuthService) passwordLogin(ctx context.Context, c PasswordLogin) (string, error) {
	email := c.Email
	if s.limiter != nil {
		if err := s.limiter.CheckLogin(ctx, email, c.ClientIP); err != nil {
			if errors.Is(err, ratelimit.ErrRateLimited) {
				s.metrics.RecordSignIn(ctx, telemetry.OutcomeInvalid)
				return "", ErrRateLimited
			}
			s.logger.Warn(ctx, "auth: login limiter unavailable, continuing", "error", err)
		}
	}
	user, err := s.VerifyCredentials(ctx, email, c.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.metrics.RecordSignIn(ctx, telemetry.OutcomeFailure)
			s.logEvent(ctx, "", telemetrydomain.EventSignInFailure, "session", "")
			if s.limiter != nil {
				if lerr := s.limiter.RecordFailure(ctx, email, c.ClientIP); lerr != nil {
					s.logger.Warn(ctx, "auth: record login failure", "error", lerr)
				}
			}
		}
		return "", err
	}
	if s.limiter != nil {
		if lerr := s.limiter.Reset(ctx, email); lerr != nil {
			s.logger.Warn(ctx, "auth: reset login counter", "error", lerr)
		}
	}
	return user.ID, nil
}

// providerLogin finds the user linked to the provider account, links an existing
// user with the same verified email, or creates a password-less user.
func (s *AuthService) providerLogin(ctx context.Context, c ProviderLogin) (string, error) {
	if !c.Provider.Valid() || c.ProviderAccountID == "" {
		return "", ErrUnsupportedProvider
	}
	ident, err := s.identities.GetByProviderAccount(ctx, c.Provider, c.ProviderAccountID)
	if err != nil {
		return "", s.storeFailure(ctx, "provider login: lookup identity", err)
	}
	if ident != nil {
		return ident.UserID, nil
	}

	now := s.now().UTC()
	user, err := s.users.GetByEmail(ctx, c.Email)
	if err != nil {
		return "", s.storeFailure(ctx, "provider login: lookup user", err)
	}
	if user == nil {
		user = &userdomain.User{
			ID:        uuid.New().String(),
			Name:      c.Name,
			Email:     c.Email,
			CreatedAt: now,
			UpdatedAt: now,
		}
		createErr := s.linker.CreateAndLink(ctx, user, newIdentity(user.ID, c, now))
		switch {
		case createErr == nil:
			s.logEvent(ctx, user.ID, telemetrydomain.EventRegister, "user", jsonObject("provider", string(c.Provider)))
			return user.ID, nil
		case errors.Is(createErr, identityrepo.ErrAlreadyLinked):
			return s.linkedUser(ctx, c, createErr)
		case !errors.Is(createErr, userrepo.ErrDuplicateEmail):
			return "", s.storeFailure(ctx, "provider login: create user", createErr)
		}
		// A concurrent sign-in registered the email first; link to that user instead.
		user, err = s.users.GetByEmail(ctx, c.Email)
		if err != nil {
			return "", s.storeFailure(ctx, "provider login: lookup user", err)
		}
		if user == nil {
			return "", s.storeFailure(ctx, "provider login: create user", createErr)
		}
	}

	if !c.EmailVerified {
		s.logger.Warn(ctx, "auth: refusing to link provider account by unverified email", "provider", string(c.Provider), "user_id", user.ID)
		s.metrics.RecordSignIn(ctx, telemetry.OutcomeInvalid)
		return "", ErrUnverifiedEmail
	}
	if err := s.identities.Create(ctx, newIdentity(user.ID, c, now)); err != nil {
		if errors.Is(err, identityrepo.ErrAlreadyLinked) {
			return s.linkedUser(ctx, c, err)
		}
		return "", s.storeFailure(ctx, "provider login: link identity", err)
	}
	return user.ID, nil
}

// linkedUser resolves the owner of a provider account another callback linked first.
func (s *AuthService) linkedUser(ctx context.Context, c ProviderLogin, cause error) (string, error) {
	ident, err := s.identities.GetByProviderAccount(ctx, c.Provider, c.ProviderAccountID)
	if err == nil && ident != nil {
		return ident.UserID, nil
	}
	return "", s.storeFailure(ctx, "provider login: link identity", cause)
}

func newIdentity(userID string, c ProviderLogin, now time.Time) *identitydomain.Identity {
	return &identitydomain.Identity{
		ID:                uuid.New().String(),
		UserID:            userID,
		Provider:          c.Provider,
		ProviderAccountID: c.ProviderAccountID,
		CreatedAt:         now,
	}
}

// Refresh runs the session state machine once. A fresh session is returned unchanged,
// an expired one is rotated, and anything else comes back stripped with an error marker
// together with ErrInvalidSession or ErrTokenRotationFailure.
func (s *AuthService) Refresh(ctx context.Context, sess sessiondomain.Session) (sessiondomain.Session, error) {
	switch sess.Error {
	case "":
	case sessiondomain.ErrorRefreshAccessToken:
		return sess.Invalidated(sess.Error), ErrTokenRotationFailure
	default:
		return sess.Invalidated(sess.Error), ErrInvalidSession
	}

	subject, err := s.tokens.ValidateAccess(sess.AccessToken)
	switch {
	case err == nil && subject == sess.UserID && !sess.AccessExpired(s.now()):
		return sess, nil
	case err == nil && subject == sess.UserID:
	case errors.Is(err, security.ErrTokenExpired) && subject == sess.UserID:
	default:
		s.logger.Warn(ctx, "auth: session access token rejected", "user_id", sess.UserID)
		return sess.Invalidated(sessiondomain.ErrorInvalidAccessToken), ErrInvalidSession
	}

	return s.Rotate(ctx, sess)
}

// Rotate exchanges the session's refresh token for a new access and refresh pair.
// The old token is revoked by a conditional update before the new pair is minted,
// so a refresh token rotates at most once.
func (s *AuthService) Rotate(ctx context.Context, sess sessiondomain.Session) (sessiondomain.Session, error) {
	next, err := s.rotate(ctx, sess)
	if err != nil {
		s.metrics.RecordRotation(ctx, telemetry.OutcomeFailure)
		s.logger.Warn(ctx, "auth: refresh token rotation failed", "user_id", sess.UserID, "refresh_token_id", sess.RefreshTokenID, "reason", err.Error())
		s.logEvent(ctx, sess.UserID, telemetrydomain.EventSessionRotationFailed, "refresh_token:"+sess.RefreshTokenID, jsonObject("reason", err.Error()))
		return sess.Invalidated(sessiondomain.ErrorRefreshAccessToken), fmt.Errorf("%w: %w", ErrTokenRotationFailure, err)
	}
	s.metrics.RecordRotation(ctx, telemetry.OutcomeSuccess)
	s.logEvent(ctx, sess.UserID, telemetrydomain.EventSessionRotated, "refresh_token:"+sess.RefreshTokenID, jsonObject("next_refresh_token_id", next.RefreshTokenID))
	return next, nil
}

func (s *AuthService) rotate(ctx context.Context, sess sessiondomain.Session) (sessiondomain.Session, error) {
	if sess.RefreshTokenID == "" || sess.RefreshToken == "" {
		return sessiondomain.Session{}, errRefreshNotFound
	}
	rec, err := s.refreshTokens.GetByID(ctx, sess.RefreshTokenID)
	if err != nil {
		return sessiondomain.Session{}, s.storeFailure(ctx, "rotate: lookup refresh token", err)
	}
	if rec == nil {
		return sessiondomain.Session{}, errRefreshNotFound
	}
	if rec.UserID != sess.UserID || !security.VerifyRefreshSecret(sess.RefreshToken, rec.TokenHash) {
		return sessiondomain.Session{}, errRefreshMismatch
	}
	now := s.now().UTC()
	if rec.Revoked {
		return sessiondomain.Session{}, errRefreshRevoked
	}
	if !rec.Usable(now) {
		return sessiondomain.Session{}, errRefreshExpired
	}
	won, err := s.refreshTokens.Revoke(ctx, rec.ID, now)
	if err != nil {
		return sessiondomain.Session{}, s.storeFailure(ctx, "rotate: revoke refresh token", err)
	}
	if !won {
		return sessiondomain.Session{}, errRefreshReused
	}
	return s.issue(ctx, sess.UserID)
}

// SignOut revokes every unrevoked refresh token of userID and returns how many changed.
// Repeating it is a no-op.
func (s *AuthService) SignOut(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, nil
	}
	n, err := s.refreshTokens.RevokeAllByUser(ctx, userID, s.now().UTC())
	if err != nil {
		return 0, s.storeFailure(ctx, "sign out: revoke refresh tokens", err)
	}
	s.logEvent(ctx, userID, telemetrydomain.EventSignOut, "session", jsonObject("revoked", strconv.FormatInt(n, 10)))
	return n, nil
}

// SignOutSession revokes every refresh token of sess.UserID, but only while sess still
// holds a live refresh token owned by that user. A stale or rotated-away cookie is a no-op.
func (s *AuthService) SignOutSession(ctx context.Context, sess sessiondomain.Session) (int64, error) {
	if sess.UserID == "" || sess.RefreshTokenID == "" {
		return 0, nil
	}
	rec, err := s.refreshTokens.GetByID(ctx, sess.RefreshTokenID)
	if err != nil {
		return 0, s.storeFailure(ctx, "sign out: lookup refresh token", err)
	}
	if rec == nil || rec.UserID != sess.UserID || rec.Revoked {
		s.logger.Warn(ctx, "auth: sign out with stale session, nothing revoked", "user_id", sess.UserID)
		return 0, nil
	}
	return s.SignOut(ctx, sess.UserID)
}

// issue mints an access token and a refresh token record for userID.
func (s *AuthService) issue(ctx context.Context, userID string) (sessiondomain.Session, error) {
	if s.sweeper != nil {
		s.sweeper.Sweep(ctx)
	}

	access, accessExp, err := s.tokens.IssueAccess(userID)
	if err != nil {
		s.logger.Error(ctx, "auth: cannot sign access token", "reason", "configuration", "error", err)
		return sessiondomain.Session{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	secret, err := security.NewRefreshSecret()
	if err != nil {
		return sessiondomain.Session{}, fmt.Errorf("issue: refresh secret: %w", err)
	}
	hash, err := security.HashRefreshSecret(secret)
	if err != nil {
		return sessiondomain.Session{}, fmt.Errorf("issue: hash refresh secret: %w", err)
	}
	now := s.now().UTC()
	rec := &sessiondomain.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.refreshTokens.Create(ctx, rec); err != nil {
		return sessiondomain.Session{}, s.storeFailure(ctx, "issue: create refresh token", err)
	}

	return sessiondomain.Session{
		UserID:          userID,
		AccessToken:     access,
		AccessExpiresAt: accessExp,
		RefreshTokenID:  rec.ID,
		RefreshToken:    secret,
	}, nil
}

func (s *AuthService) storeFailure(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, "auth: store unavailable", "reason", "store_unavailable", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

func (s *AuthService) logEvent(ctx context.Context, userID, action, resource, metadata string) {
	if s.audit == nil {
		return
	}
	s.audit.LogEvent(ctx, userID, action, resource, metadata)
}

// jsonObject renders a single string pair as a JSON object.
func jsonObject(key, value string) string {
	return "{" + strconv.Quote(key) + ":" + strconv.Quote(value) + "}"
}
