package services

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"samaj/internal/apperrors"
	"samaj/internal/metrics"
	"samaj/internal/models"
	"samaj/internal/repositories"
)

// TokenConfig carries the signing secrets and lifetimes for the two session
// credentials. Secrets are injected once at construction.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// SessionTokens is a freshly minted access/refresh pair.
type SessionTokens struct {
	AccessToken  string
	RefreshToken string
}

// AccessClaims is the payload of the short-lived access token.
type AccessClaims struct {
	ID       string `json:"_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of the long-lived refresh token. The jti
// makes every issued refresh token distinct even within one second.
type RefreshClaims struct {
	ID string `json:"_id"`
	jwt.RegisteredClaims
}

// AuthService covers the credential check that gates the OTP flow and the
// session lifecycle that follows a verified OTP.
type AuthService interface {
	VerifyCredentials(ctx context.Context, email, password string, adminAudience bool) (*models.User, error)
	IssueSession(ctx context.Context, user *models.User) (*SessionTokens, error)
	RefreshSession(ctx context.Context, refreshToken string) (*models.User, *SessionTokens, error)
	Logout(ctx context.Context, refreshToken string) error
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
}

type authService struct {
	userRepo repositories.UserRepository
	cfg      TokenConfig
}

func NewAuthService(userRepo repositories.UserRepository, cfg TokenConfig) AuthService {
	return &authService{userRepo: userRepo, cfg: cfg}
}

// VerifyCredentials checks email+password and, when the admin portal is the
// caller, the account role. Unknown email and wrong password are reported
// identically so accounts cannot be enumerated.
func (s *authService) VerifyCredentials(ctx context.Context, email, password string, adminAudience bool) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		log.Error().Err(err).Str("email", email).Msg("Error finding user for login")
		return nil, apperrors.Internal("internal server error")
	}
	if user == nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failed").Inc()
		log.Warn().Str("email", email).Msg("Invalid credentials during login attempt")
		return nil, apperrors.BadRequest("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failed").Inc()
		log.Warn().Str("email", email).Msg("Invalid credentials during login attempt")
		return nil, apperrors.BadRequest("invalid email or password")
	}

	if adminAudience && user.Role != models.RoleAdmin {
		metrics.LoginAttemptsTotal.WithLabelValues("failed").Inc()
		log.Warn().Str("email", email).Str("role", user.Role).Msg("Admin portal login attempt by non-admin account")
		return nil, apperrors.Forbidden("access restricted to administrators")
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return user, nil
}

// IssueSession mints both session credentials and persists the refresh token
// on the user document. Overwriting the stored token revokes any previous
// session for the account: one active session per identity.
func (s *authService) IssueSession(ctx context.Context, user *models.User) (*SessionTokens, error) {
	now := time.Now()

	accessClaims := &AccessClaims{
		ID:       user.ID.Hex(),
		Email:    user.Email,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(s.cfg.AccessSecret))
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID.Hex()).Msg("Could not sign access token")
		return nil, apperrors.Internal("could not generate token")
	}

	refreshClaims := &RefreshClaims{
		ID: user.ID.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.RefreshTTL)),
		},
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(s.cfg.RefreshSecret))
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID.Hex()).Msg("Could not sign refresh token")
		return nil, apperrors.Internal("could not generate token")
	}

	if err := s.userRepo.SetRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return nil, apperrors.Internal("could not persist session")
	}

	metrics.SessionsIssuedTotal.Inc()
	log.Info().Str("user_id", user.ID.Hex()).Msg("Session issued")
	return &SessionTokens{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// RefreshSession validates a refresh token against both its signature and
// the copy stored server-side, then rotates the pair.
func (s *authService) RefreshSession(ctx context.Context, refreshToken string) (*models.User, *SessionTokens, error) {
	claims := &RefreshClaims{}
	token, err := jwt.ParseWithClaims(refreshToken, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.RefreshSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, nil, apperrors.Unauthorized("invalid refresh token")
	}

	userID, err := parseObjectID(claims.ID)
	if err != nil {
		return nil, nil, apperrors.Unauthorized("invalid refresh token")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, apperrors.Internal("internal server error")
	}
	// The stored token is authoritative: a rotated-away or logged-out token
	// fails here even though its signature still checks out.
	if user == nil || user.RefreshToken != refreshToken {
		return nil, nil, apperrors.Unauthorized("invalid refresh token")
	}

	tokens, err := s.IssueSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// Logout revokes the stored refresh token of whichever account owns the
// presented one. Unknown or absent tokens are not an error; logout is
// idempotent.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	user, err := s.userRepo.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		log.Error().Err(err).Msg("Error finding user for logout")
		return apperrors.Internal("internal server error")
	}
	if user == nil {
		return nil
	}

	if err := s.userRepo.ClearRefreshToken(ctx, user.ID); err != nil {
		return apperrors.Internal("could not revoke session")
	}

	metrics.SessionsRevokedTotal.Inc()
	log.Info().Str("user_id", user.ID.Hex()).Msg("Session revoked")
	return nil
}

// CurrentUser resolves an access token to the member it belongs to, with
// secrets redacted.
func (s *authService) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(accessToken, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.AccessSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, apperrors.Unauthorized("unauthorized access")
	}

	userID, err := parseObjectID(claims.ID)
	if err != nil {
		return nil, apperrors.Unauthorized("unauthorized access")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("internal server error")
	}
	if user == nil {
		return nil, apperrors.Unauthorized("invalid token")
	}
	return user.Redacted(), nil
}
