package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"

	"github.com/goliatone/go-token-auth/middleware/jwtware"
)

// LoginResult is returned by a successful login
type LoginResult struct {
	IssuedToken
	Account *Account
}

// SignupInput holds the attributes of a new account
type SignupInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

// ProfileInput holds the mutable profile attributes
type ProfileInput struct {
	Name  string
	Phone string
}

// Auther implements login, signup, logout and account maintenance on top of
// a UserDirectory, a TokenService and a RevocationStore.
type Auther struct {
	directory    UserDirectory
	tokens       TokenService
	revocations  RevocationStore
	hasher       PasswordHasher
	authScheme   string
	clock        func() time.Time
	logger       Logger
	activitySink ActivitySink
}

// NewAuthenticator returns a new Auther
func NewAuthenticator(directory UserDirectory, tokens TokenService, revocations RevocationStore, hasher PasswordHasher) *Auther {
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	return &Auther{
		directory:    directory,
		tokens:       tokens,
		revocations:  revocations,
		hasher:       hasher,
		authScheme:   "Bearer",
		clock:        time.Now,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithAuthScheme sets the scheme expected in the Authorization header.
func (s *Auther) WithAuthScheme(scheme string) *Auther {
	if scheme != "" {
		s.authScheme = scheme
	}
	return s
}

// WithClock overrides the time source for emitted events.
func (s *Auther) WithClock(clock func() time.Time) *Auther {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// TokenService returns the TokenService used by this Auther
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login verifies credentials and issues a token whose subject is the
// account email. Unknown accounts and wrong passwords return the same
// ErrInvalidCredentials value after one hash comparison each.
func (s *Auther) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	identity := NormalizeIdentity(email)

	account, err := s.directory.FindByIdentity(ctx, identity)
	if err != nil {
		if !isAccountNotFound(err) {
			s.logger.Error("Login directory lookup failed", "error", err)
			return nil, withSource(ErrInternal, err, map[string]any{"operation": "login"})
		}
		// keep the cost equal to a wrong password
		s.hasher.Verify(password, "")
		s.emit(ctx, ActivityEventLoginFailure, identity, "", "", map[string]any{"reason": "unknown_account"})
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		s.emit(ctx, ActivityEventLoginFailure, identity, account.ID.String(), "", map[string]any{"reason": "password_mismatch"})
		return nil, ErrInvalidCredentials
	}

	issued, err := s.tokens.Mint(account.Email)
	if err != nil {
		s.logger.Error("Login failed to sign token", "error", err)
		return nil, withSource(ErrInternal, err, map[string]any{"operation": "sign"})
	}

	s.emit(ctx, ActivityEventLoginSuccess, account.Email, account.ID.String(), issued.TokenID, nil)

	return &LoginResult{IssuedToken: issued, Account: account}, nil
}

// Signup creates an account. Existing identities fail with
// ErrDuplicateAccount before any hashing or insert takes place.
func (s *Auther) Signup(ctx context.Context, input SignupInput) (*Account, error) {
	identity := NormalizeIdentity(input.Email)

	exists, err := s.directory.ExistsByIdentity(ctx, identity)
	if err != nil {
		return nil, withSource(ErrInternal, err, map[string]any{"operation": "signup"})
	}

	if exists {
		s.emit(ctx, ActivityEventSignupRejected, identity, "", "", map[string]any{"reason": "duplicate"})
		return nil, ErrDuplicateAccount
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	account := &Account{
		ID:           accountID(identity),
		Email:        identity,
		PasswordHash: hash,
		Name:         input.Name,
		Phone:        input.Phone,
	}

	created, err := s.directory.Create(ctx, account)
	if err != nil {
		if HasTextCode(err, TextCodeDuplicateAccount) {
			return nil, ErrDuplicateAccount
		}
		// a concurrent signup may have won the unique constraint
		if again, checkErr := s.directory.ExistsByIdentity(ctx, identity); checkErr == nil && again {
			return nil, ErrDuplicateAccount
		}
		s.logger.Error("Signup failed to create account", "error", err)
		return nil, withSource(ErrInternal, err, map[string]any{"operation": "signup"})
	}

	s.emit(ctx, ActivityEventSignup, created.Email, created.ID.String(), "", nil)

	return created, nil
}

// Logout revokes the bearer token carried by an Authorization header value.
func (s *Auther) Logout(ctx context.Context, authorization string) error {
	raw, err := jwtware.ExtractBearer(authorization, s.authScheme)
	if err != nil {
		return ErrTokenRequired
	}
	return s.RevokeToken(ctx, raw)
}

// RevokeToken adds a raw token to the revocation store. It is the only
// write path into the store.
func (s *Auther) RevokeToken(ctx context.Context, raw string) error {
	if raw == "" {
		return ErrTokenRequired
	}

	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return withSource(ErrInvalidToken, err, map[string]any{"cause": ErrorTextCode(err)})
	}

	if !claims.Revocable() {
		return withSource(ErrInvalidToken, nil, map[string]any{"cause": "missing jti or exp"})
	}

	if err := s.revocations.Revoke(ctx, claims.TokenID(), claims.Expires()); err != nil {
		s.logger.Error("Logout failed to revoke token", "jti", claims.TokenID(), "error", err)
		return withSource(ErrInternal, err, map[string]any{"operation": "revoke"})
	}

	s.emit(ctx, ActivityEventLogout, claims.Subject(), "", claims.TokenID(), nil)

	return nil
}

// Account returns the directory record for an identity
func (s *Auther) Account(ctx context.Context, email string) (*Account, error) {
	account, err := s.directory.FindByIdentity(ctx, NormalizeIdentity(email))
	if err != nil {
		if isAccountNotFound(err) {
			return nil, ErrAuthenticationRequired
		}
		return nil, withSource(ErrInternal, err, map[string]any{"operation": "account"})
	}
	return account, nil
}

// IsIdentityAvailable reports whether no account uses email
func (s *Auther) IsIdentityAvailable(ctx context.Context, email string) (bool, error) {
	exists, err := s.directory.ExistsByIdentity(ctx, NormalizeIdentity(email))
	if err != nil {
		return false, withSource(ErrInternal, err, map[string]any{"operation": "check_email"})
	}
	return !exists, nil
}

// UpdateProfile changes the name and phone of an account
func (s *Auther) UpdateProfile(ctx context.Context, email string, input ProfileInput) (*Account, error) {
	account, err := s.Account(ctx, email)
	if err != nil {
		return nil, err
	}

	account.Name = input.Name
	account.Phone = input.Phone

	updated, err := s.directory.Update(ctx, account)
	if err != nil {
		return nil, withSource(ErrInternal, err, map[string]any{"operation": "update_profile"})
	}

	s.emit(ctx, ActivityEventProfileUpdated, updated.Email, updated.ID.String(), "", nil)

	return updated, nil
}

// ChangePassword replaces the password hash after verifying the current
// password. Tokens issued before the change stay valid until they expire
// or are revoked.
func (s *Auther) ChangePassword(ctx context.Context, email, current, next string) error {
	account, err := s.Account(ctx, email)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(current, account.PasswordHash) {
		return withSource(ErrInvalidCredentials, nil, map[string]any{"field": "currentPassword"})
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	account.PasswordHash = hash
	if _, err := s.directory.Update(ctx, account); err != nil {
		return withSource(ErrInternal, err, map[string]any{"operation": "change_password"})
	}

	s.emit(ctx, ActivityEventPasswordChanged, account.Email, account.ID.String(), "", nil)

	return nil
}

func (s *Auther) emit(ctx context.Context, eventType ActivityEventType, subject, accountID, tokenID string, meta map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Subject:    subject,
		AccountID:  accountID,
		TokenID:    tokenID,
		Metadata:   meta,
		OccurredAt: s.clock().UTC(),
	}

	if err := s.activitySink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink failed", "event", string(eventType), "error", err)
	}
}

func isAccountNotFound(err error) bool {
	return HasTextCode(err, TextCodeAccountNotFound) || errors.IsNotFound(err)
}

// accountID derives a stable id from the normalized email.
func accountID(identity string) uuid.UUID {
	if id, err := hashid.NewUUID(identity); err == nil {
		return id
	}
	return uuid.New()
}
