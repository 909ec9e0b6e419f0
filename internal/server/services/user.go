// Package services contains server-side business logic. This file implements
// UserService: registration, credential verification, access and refresh
// token issuance, logout and account removal.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/aiaccountant/internal/common"
	"github.com/dmitrijs2005/aiaccountant/internal/cryptox"
	"github.com/dmitrijs2005/aiaccountant/internal/dbx"
	"github.com/dmitrijs2005/aiaccountant/internal/server/auth"
	"github.com/dmitrijs2005/aiaccountant/internal/server/config"
	"github.com/dmitrijs2005/aiaccountant/internal/server/models"
	"github.com/dmitrijs2005/aiaccountant/internal/server/repositories/repomanager"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 64
	maxPasswordLen = 256
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type UserService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	tokens          *auth.TokenService
	refreshTokenTTL time.Duration
	params          cryptox.Params
	now             func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenService, cfg *config.Config) *UserService {
	return &UserService{
		db:              db,
		repomanager:     m,
		tokens:          tokens,
		refreshTokenTTL: cfg.RefreshTokenTTL,
		params:          cryptox.DefaultParams,
		now:             time.Now,
	}
}

// NormalizeUsername trims surrounding whitespace; stored and looked-up
// usernames always go through it.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

func validateCredentials(username, password string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLen || n > maxUsernameLen {
		return fmt.Errorf("%w: username must be %d to %d characters", common.ErrorValidation, minUsernameLen, maxUsernameLen)
	}
	if strings.IndexFunc(username, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: username must not contain whitespace", common.ErrorValidation)
	}
	if len(password) == 0 || len(password) > maxPasswordLen {
		return fmt.Errorf("%w: password must be 1 to %d bytes", common.ErrorValidation, maxPasswordLen)
	}
	return nil
}

// Register creates a user with an argon2id hash of password and issues its
// first TokenPair. The user row and the refresh token are written in one
// transaction, so a failed issuance leaves the username free. A taken
// username yields common.ErrorAlreadyExists, also when two registrations race.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, *TokenPair, error) {
	username = NormalizeUsername(username)
	if err := validateCredentials(username, password); err != nil {
		return nil, nil, err
	}

	hash, err := cryptox.HashPasswordWithParams([]byte(password), s.params)
	if err != nil {
		return nil, nil, fmt.Errorf("error hashing password: %w", err)
	}

	var (
		user *models.User
		pair *TokenPair
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.GetUserByLogin(ctx, username)
		switch {
		case err == nil:
			return common.ErrorAlreadyExists
		case !errors.Is(err, common.ErrorNotFound):
			return fmt.Errorf("error checking username: %w", err)
		}

		user, err = repo.Create(ctx, &models.User{UserName: username, PasswordHash: hash})
		if err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return common.ErrorAlreadyExists
			}
			return fmt.Errorf("error creating user: %w", err)
		}

		pair, err = s.generateTokenPair(ctx, user.ID, tx)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Verify checks a username/password pair and returns the user id. Unknown
// users and wrong passwords both yield common.ErrorUnauthorized; for unknown
// users a dummy hash is still verified so both paths cost about the same.
func (s *UserService) Verify(ctx context.Context, username, password string) (string, error) {
	username = NormalizeUsername(username)

	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = cryptox.VerifyPassword(s.getDummyHash(), []byte(password))
			return "", common.ErrorUnauthorized
		}
		return "", fmt.Errorf("error loading user: %w", err)
	}

	ok, err := cryptox.VerifyPassword(user.PasswordHash, []byte(password))
	if err != nil {
		return "", fmt.Errorf("error verifying password: %w", err)
	}
	if !ok {
		return "", common.ErrorUnauthorized
	}
	return user.ID, nil
}

// Login verifies credentials and, on success, returns a new TokenPair.
func (s *UserService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	userID, err := s.Verify(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s.generateTokenPair(ctx, userID, s.db)
}

// RefreshToken redeems refreshToken and returns a fresh TokenPair. The old
// token is consumed and the new one stored in the same transaction. Unknown
// tokens yield common.ErrorUnauthorized, expired ones
// common.ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair *TokenPair
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.repomanager.RefreshTokens(tx).Take(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error redeeming refresh token: %w", err)
		}
		if token.Expired(s.now()) {
			return common.ErrRefreshTokenExpired
		}

		pair, err = s.generateTokenPair(ctx, token.UserID, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes refreshToken if it belongs to userID. Access tokens stay
// valid until they expire.
func (s *UserService) Logout(ctx context.Context, userID, refreshToken string) error {
	if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, userID, refreshToken); err != nil {
		return fmt.Errorf("error revoking refresh token: %w", err)
	}
	return nil
}

// Exists reports whether userID still refers to an account.
func (s *UserService) Exists(ctx context.Context, userID string) (bool, error) {
	return s.repomanager.Users(s.db).Exists(ctx, userID)
}

// DeleteAccount removes the user together with refresh tokens, sessions and
// messages.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.repomanager.Users(s.db).Delete(ctx, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error deleting user: %w", err)
	}
	return nil
}

// --- helpers below ---

func (s *UserService) getDummyHash() string {
	s.dummyOnce.Do(func() {
		h, err := cryptox.HashPasswordWithParams(common.GenerateRandByteArray(16), s.params)
		if err != nil {
			panic(fmt.Sprintf("dummy hash: %v", err))
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func (s *UserService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.tokens.Issue(userID)
	if err != nil {
		return nil, fmt.Errorf("error issuing access token: %w", err)
	}
	refresh, err := auth.NewRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("error generating refresh token: %w", err)
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, userID, refresh, s.now().Add(s.refreshTokenTTL)); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
