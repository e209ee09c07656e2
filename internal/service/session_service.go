package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/jikgumate/internal/apperr"
	"github.com/iliyamo/jikgumate/internal/config"
	"github.com/iliyamo/jikgumate/internal/model"
	"github.com/iliyamo/jikgumate/internal/repository"
	"github.com/iliyamo/jikgumate/internal/utils"
)

// SessionService issues, rotates and revokes the dual-token sessions.
//
// The user row carries a bcrypt digest of the current refresh token and the
// refresh_tokens table carries its SHA‑256 digest with an expiry.  Both are
// written in the same transaction, which starts by updating the user row so
// concurrent logins and rotations for one user serialize on its row lock.
type SessionService struct {
	db     *sql.DB
	users  *repository.UserRepo
	tokens *repository.TokenRepo
	carts  *repository.CartRepo
	issuer *utils.TokenIssuer
	cfg    config.AuthConfig
	log    zerolog.Logger
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewSessionService wires the session manager.
func NewSessionService(db *sql.DB, issuer *utils.TokenIssuer, cfg config.AuthConfig, log zerolog.Logger) *SessionService {
	return &SessionService{
		db:     db,
		users:  repository.NewUserRepo(db),
		tokens: repository.NewTokenRepo(db),
		carts:  repository.NewCartRepo(db),
		issuer: issuer,
		cfg:    cfg,
		log:    log.With().Str("component", "session").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SignUpInput is the registration payload after transport validation.
type SignUpInput struct {
	Email          string
	Password       string
	Name           string
	Phone          *string
	PCCCNumber     *string
	DefaultAddress *string
}

// IssueTokenPair signs an access/refresh pair carrying the same claims.
func (s *SessionService) IssueTokenPair(userID uint64, email string, isAdmin bool) (utils.TokenPair, error) {
	return s.issuer.Issue(model.Identity{UserID: userID, Email: email, IsAdmin: isAdmin})
}

// SignUp registers a user together with an empty cart and logs them in.
func (s *SessionService) SignUp(ctx context.Context, in SignUpInput) (model.User, utils.TokenPair, error) {
	in.Email = repository.NormalizeEmail(in.Email)
	if in.Email == "" || in.Password == "" || strings.TrimSpace(in.Name) == "" {
		return model.User{}, utils.TokenPair{}, apperr.NewValidation("email, password and name are required")
	}
	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return model.User{}, utils.TokenPair{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	u := model.User{
		Email:          in.Email,
		PasswordHash:   hash,
		Name:           strings.TrimSpace(in.Name),
		Phone:          in.Phone,
		PCCCNumber:     in.PCCCNumber,
		DefaultAddress: in.DefaultAddress,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, utils.TokenPair{}, fmt.Errorf("begin signup: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	taken, err := s.users.EmailTakenTx(ctx, tx, in.Email)
	if err != nil {
		return model.User{}, utils.TokenPair{}, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return model.User{}, utils.TokenPair{}, ErrEmailTaken
	}
	if err := s.users.CreateTx(ctx, tx, &u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, utils.TokenPair{}, ErrEmailTaken
		}
		return model.User{}, utils.TokenPair{}, fmt.Errorf("create user: %w", err)
	}
	if _, err := s.carts.CreateTx(ctx, tx, u.ID, now); err != nil {
		return model.User{}, utils.TokenPair{}, fmt.Errorf("create cart: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.User{}, utils.TokenPair{}, fmt.Errorf("commit signup: %w", err)
	}
	committed = true

	pair, err := s.Login(ctx, u)
	if err != nil {
		return model.User{}, utils.TokenPair{}, err
	}
	s.log.Info().Uint64("user_id", u.ID).Msg("user signed up")
	return u.Sanitized(), pair, nil
}

// Authenticate checks an email/password pair.  Unknown emails and wrong
// passwords yield the same error, and an unknown email still pays for a
// bcrypt comparison.
func (s *SessionService) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		utils.VerifyPassword(s.dummy(), password)
		return model.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, fmt.Errorf("load user: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, ErrInvalidCredentials
	}
	return u.Sanitized(), nil
}

func (s *SessionService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = utils.HashPassword("dummy-password-for-timing", s.cfg.BcryptCost)
	})
	return s.dummyHash
}

// Login issues a pair for an authenticated user and replaces any previous
// session with it.  After it returns, exactly one token row exists for the
// user.
func (s *SessionService) Login(ctx context.Context, u model.User) (utils.TokenPair, error) {
	pair, err := s.IssueTokenPair(u.ID, u.Email, u.IsAdmin)
	if err != nil {
		return utils.TokenPair{}, err
	}
	if err := s.replaceSession(ctx, u.ID, pair.RefreshToken, ""); err != nil {
		return utils.TokenPair{}, err
	}
	return pair, nil
}

// Rotate exchanges a presented refresh token for a new pair.  The presented
// token must match the user's stored digest and must still be present in
// the token table; it is consumed in the same transaction that stores its
// replacement, so of several concurrent rotations with one token at most
// one succeeds.
func (s *SessionService) Rotate(ctx context.Context, userID uint64, presented string) (utils.TokenPair, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return utils.TokenPair{}, ErrAccessDenied
	}
	if err != nil {
		return utils.TokenPair{}, fmt.Errorf("load user: %w", err)
	}
	if u.HashedRT == nil || !utils.VerifyRefreshToken(*u.HashedRT, presented) {
		return utils.TokenPair{}, ErrAccessDenied
	}

	pair, err := s.IssueTokenPair(u.ID, u.Email, u.IsAdmin)
	if err != nil {
		return utils.TokenPair{}, err
	}
	if err := s.replaceSession(ctx, u.ID, pair.RefreshToken, presented); err != nil {
		return utils.TokenPair{}, err
	}
	return pair, nil
}

// replaceSession stores refresh as the user's only session.  When consume is
// non-empty, its row must exist (unexpired) and is deleted first; otherwise
// the transaction is rolled back with ErrRefreshNotFound.
func (s *SessionService) replaceSession(ctx context.Context, userID uint64, refresh, consume string) error {
	digest, err := utils.HashRefreshToken(refresh, s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash refresh token: %w", err)
	}
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// row lock on the user for the rest of the transaction
	n, err := s.users.SetHashedRTTx(ctx, tx, userID, &digest, now)
	if err != nil {
		return fmt.Errorf("store refresh digest: %w", err)
	}
	if n == 0 {
		return ErrAccessDenied
	}
	if consume != "" {
		ok, err := s.tokens.ConsumeTx(ctx, tx, userID, utils.HashRefreshRaw(consume), now)
		if err != nil {
			return fmt.Errorf("consume refresh token: %w", err)
		}
		if !ok {
			return ErrRefreshNotFound
		}
	}
	if err := s.tokens.DeleteAllForUserTx(ctx, tx, userID); err != nil {
		return fmt.Errorf("purge refresh tokens: %w", err)
	}
	if err := s.tokens.StoreRefreshTx(ctx, tx, userID, utils.HashRefreshRaw(refresh), now.Add(s.cfg.SessionTTL), now); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session tx: %w", err)
	}
	committed = true
	return nil
}

// Logout clears the user's stored digest and every token row.  Calling it
// for a user without a session, or an unknown user, is not an error.
func (s *SessionService) Logout(ctx context.Context, userID uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin logout: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := s.users.SetHashedRTTx(ctx, tx, userID, nil, s.now()); err != nil {
		return fmt.Errorf("clear refresh digest: %w", err)
	}
	if err := s.tokens.DeleteAllForUserTx(ctx, tx, userID); err != nil {
		return fmt.Errorf("delete refresh tokens: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit logout: %w", err)
	}
	committed = true
	return nil
}

// Me returns the caller's profile without credential material.
func (s *SessionService) Me(ctx context.Context, userID uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, apperr.NewNotFound("user not found")
	}
	if err != nil {
		return model.User{}, fmt.Errorf("load user: %w", err)
	}
	return u.Sanitized(), nil
}

// ProfileInput carries the profile fields to change.  Nil fields are kept.
type ProfileInput struct {
	Name            *string
	Phone           *string
	PCCCNumber      *string
	DefaultAddress  *string
	ProfileImageURL *string
}

// UpdateProfile edits the caller's own profile and returns it.  Email,
// password and the admin flag are not editable here.
func (s *SessionService) UpdateProfile(ctx context.Context, userID uint64, in ProfileInput) (model.User, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return model.User{}, apperr.NewValidation("name must not be empty")
	}
	err := s.users.UpdateProfile(ctx, userID, repository.ProfilePatch{
		Name: in.Name, Phone: in.Phone, PCCCNumber: in.PCCCNumber,
		DefaultAddress: in.DefaultAddress, ProfileImageURL: in.ProfileImageURL,
	}, s.now())
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, apperr.NewNotFound("user not found")
	}
	if err != nil {
		return model.User{}, fmt.Errorf("update profile: %w", err)
	}
	return s.Me(ctx, userID)
}
