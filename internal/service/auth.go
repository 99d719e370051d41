package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mvtran/authd/internal/auth"
	"github.com/mvtran/authd/internal/domain"
	"github.com/mvtran/authd/internal/event"
	"github.com/mvtran/authd/internal/repository"
	apperrors "github.com/mvtran/authd/pkg/errors"
)

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// AuthService implements registration, login, and session lifecycle logic.
type AuthService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	tokens           *auth.TokenManager
	hasher           auth.PasswordHasher
	producer         *event.Producer
	logger           *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	tokens *auth.TokenManager,
	hasher auth.PasswordHasher,
	producer *event.Producer,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		tokens:           tokens,
		hasher:           hasher,
		producer:         producer,
		logger:           logger,
	}
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Register creates a new user account with the USER role. It does not log
// the user in; the caller must follow up with Login to obtain tokens.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if input.Email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        input.Email,
		PasswordHash: passwordHash,
		Name:         input.Name,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Login authenticates a user with email and password and returns a fresh
// token pair. Unknown email and wrong password produce the same error so
// the response does not reveal which check failed.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if password == "" {
		return nil, apperrors.InvalidInput("password is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidCredentials()
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, apperrors.InvalidCredentials()
	}

	tokens, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return tokens, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued. Exactly one of any set of concurrent calls with the same
// token succeeds. Forged, expired, revoked, and unknown tokens all fail
// with the same error.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.InvalidInput("refresh token is required")
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.InvalidToken()
	}

	tokenHash := hashToken(refreshToken)
	stored, err := s.refreshTokenRepo.GetByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidToken()
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}

	if !stored.Active(time.Now().UTC()) {
		return nil, apperrors.InvalidToken()
	}

	// Conditional revoke is the rotation lock: of N concurrent refreshes
	// with the same token, exactly one observes the unrevoked record.
	revoked, err := s.refreshTokenRepo.RevokeIfActive(ctx, tokenHash)
	if err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}
	if !revoked {
		return nil, apperrors.InvalidToken()
	}

	// Re-fetch the user so the new access token carries the current role,
	// not the role at the time the refresh token was minted.
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidToken()
		}
		return nil, fmt.Errorf("get user for token refresh: %w", err)
	}

	tokens, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "tokens refreshed",
		slog.String("user_id", user.ID),
	)

	return tokens, nil
}

// Revoke marks a refresh token revoked. It is idempotent: revoking an
// already-revoked or never-issued token succeeds.
func (s *AuthService) Revoke(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return apperrors.InvalidInput("refresh token is required")
	}

	tokenHash := hashToken(refreshToken)
	if err := s.refreshTokenRepo.Revoke(ctx, tokenHash); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	// Publish the revocation event only when the token names a user we can
	// attribute it to (non-blocking on failure).
	if claims, err := s.tokens.VerifyRefreshToken(refreshToken); err == nil {
		if err := s.producer.PublishSessionRevoked(ctx, claims.UserID); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish session.revoked event",
				slog.String("user_id", claims.UserID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "refresh token revoked")

	return nil
}

// issueTokenPair mints an access/refresh token pair and stores the refresh
// token hash with the expiry embedded in the token itself.
func (s *AuthService) issueTokenPair(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.tokens.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	// Every minted token carries a fresh jti, so a hash conflict in the
	// store means a duplicate mint rather than token state worth reporting.
	// Re-mint once; a second conflict is treated as an internal failure so
	// nothing about existing records leaks through this path.
	var refreshToken string
	for attempt := 0; ; attempt++ {
		refreshToken, err = s.tokens.IssueRefreshToken(user.ID)
		if err != nil {
			return nil, fmt.Errorf("issue refresh token: %w", err)
		}

		claims, err := s.tokens.VerifyRefreshToken(refreshToken)
		if err != nil {
			return nil, fmt.Errorf("read refresh token expiry: %w", err)
		}

		err = s.refreshTokenRepo.Create(ctx, user.ID, hashToken(refreshToken), claims.ExpiresAt.Time)
		if err == nil {
			break
		}
		if !errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, fmt.Errorf("store refresh token: %w", err)
		}
		if attempt >= 1 {
			return nil, errors.New("store refresh token: repeated token hash conflict")
		}
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// hashToken returns the SHA256 hex digest of the given token string.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// validatePassword checks that the password meets the minimum length.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	return nil
}
