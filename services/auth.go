package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/foloup/backend/models"
	"github.com/foloup/backend/repository"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessCookie    = "access_token"
	refreshCookie   = "refresh_token"
	permanentCookie = "permanent_token"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidToken       = errors.New("invalid token")
)

type AuthService struct {
	repo            *repository.GORMRepository
	jwtSecret       []byte
	secureCookies   bool
	accessExpiry    time.Duration
	refreshExpiry   time.Duration
	permanentExpiry time.Duration
}

// Claims carried by the access token. The organization scopes every
// recruiter-facing route.
type CookieClaims struct {
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}

type AuthResponse struct {
	User           *models.User `json:"user"`
	AccessToken    string       `json:"access_token,omitempty"`
	RefreshToken   string       `json:"refresh_token,omitempty"`
	PermanentToken string       `json:"permanent_token,omitempty"`
}

type SignupInput struct {
	Email            string
	Password         string
	FullName         string
	OrganizationID   string
	OrganizationName string
}

func NewAuthService(repo *repository.GORMRepository, jwtSecret, environment string) *AuthService {
	return &AuthService{
		repo:            repo,
		jwtSecret:       []byte(jwtSecret),
		secureCookies:   environment == "production",
		accessExpiry:    5 * time.Minute,
		refreshExpiry:   7 * 24 * time.Hour,
		permanentExpiry: 30 * 24 * time.Hour,
	}
}

func newOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// hashToken is what gets stored; raw tokens only live in cookies
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	resp, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	slog.Info("User logged in successfully", "user_id", user.ID, "organization_id", user.OrganizationID)
	return resp, nil
}

// Signup creates the user inside an existing organization, or in a new one
// named after OrganizationName (falling back to the user's name).
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, errors.New("email and password are required")
	}

	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	orgID := in.OrganizationID
	if orgID != "" {
		org, err := s.repo.GetOrganization(ctx, orgID)
		if err != nil {
			return nil, fmt.Errorf("failed to get organization: %w", err)
		}
		if org == nil {
			return nil, fmt.Errorf("organization %s: %w", orgID, ErrNotFound)
		}
	} else {
		name := strings.TrimSpace(in.OrganizationName)
		if name == "" {
			name = strings.TrimSpace(in.FullName + " Organization")
		}
		org := &models.Organization{Name: name}
		if err := s.repo.CreateOrganization(ctx, org); err != nil {
			return nil, err
		}
		orgID = org.ID
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		OrganizationID: orgID,
		Email:          email,
		Password:       string(hashed),
		FullName:       in.FullName,
		Role:           "user",
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	resp, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	slog.Info("User signed up successfully", "user_id", user.ID, "organization_id", orgID)
	return resp, nil
}

func (s *AuthService) issueSession(ctx context.Context, user *models.User) (*AuthResponse, error) {
	access, err := s.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := newOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	permanent, err := newOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate permanent token: %w", err)
	}

	if err := s.repo.CreateRefreshToken(ctx, &models.RefreshToken{
		UserID:    user.ID,
		Token:     hashToken(refresh),
		ExpiresAt: time.Now().Add(s.refreshExpiry),
	}); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	if err := s.repo.CreatePermanentToken(ctx, &models.PermanentToken{
		UserID: user.ID,
		Token:  hashToken(permanent),
	}); err != nil {
		return nil, fmt.Errorf("failed to store permanent token: %w", err)
	}

	return &AuthResponse{
		User:           user,
		AccessToken:    access,
		RefreshToken:   refresh,
		PermanentToken: permanent,
	}, nil
}

// RefreshToken mints a new access token from a stored refresh token
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	record, err := s.repo.GetRefreshToken(ctx, hashToken(refreshToken))
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	if record == nil || time.Now().After(record.ExpiresAt) {
		return nil, ErrInvalidToken
	}
	return s.reissueAccess(ctx, record.UserID)
}

func (s *AuthService) VerifyPermanentToken(ctx context.Context, permanentToken string) (*AuthResponse, error) {
	record, err := s.repo.GetPermanentToken(ctx, hashToken(permanentToken))
	if err != nil {
		return nil, fmt.Errorf("failed to get permanent token: %w", err)
	}
	if record == nil {
		return nil, ErrInvalidToken
	}
	return s.reissueAccess(ctx, record.UserID)
}

func (s *AuthService) reissueAccess(ctx context.Context, userID string) (*AuthResponse, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	access, err := s.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	slog.Info("Access token reissued", "user_id", user.ID)
	return &AuthResponse{User: user, AccessToken: access}, nil
}

func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.repo.DeleteAllUserTokens(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user tokens: %w", err)
	}
	slog.Info("User logged out", "user_id", userID)
	return nil
}

func (s *AuthService) VerifyAccessToken(ctx context.Context, token string) (*models.User, error) {
	claims := &CookieClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	user, err := s.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", claims.UserID, ErrNotFound)
	}
	return user, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &CookieClaims{
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Email:          user.Email,
		Role:           user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func (s *AuthService) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// SetAuthCookies writes the non-empty tokens as HTTP-only cookies
func (s *AuthService) SetAuthCookies(w http.ResponseWriter, accessToken, refreshToken, permanentToken string) {
	if accessToken != "" {
		s.setCookie(w, accessCookie, accessToken, int(s.accessExpiry.Seconds()))
	}
	if refreshToken != "" {
		s.setCookie(w, refreshCookie, refreshToken, int(s.refreshExpiry.Seconds()))
	}
	if permanentToken != "" {
		s.setCookie(w, permanentCookie, permanentToken, int(s.permanentExpiry.Seconds()))
	}
}

func (s *AuthService) ClearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookie, refreshCookie, permanentCookie} {
		s.setCookie(w, name, "", -1)
	}
}

func tokenFromCookie(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// authenticate tries the access token, then the refresh token, then the
// permanent token. A fallback success refreshes the access cookie.
func (s *AuthService) authenticate(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	if token := tokenFromCookie(r, accessCookie); token != "" {
		if user, err := s.VerifyAccessToken(r.Context(), token); err == nil {
			return user, true
		}
	}

	fallbacks := []struct {
		cookie string
		verify func(context.Context, string) (*AuthResponse, error)
	}{
		{refreshCookie, s.RefreshToken},
		{permanentCookie, s.VerifyPermanentToken},
	}
	for _, fb := range fallbacks {
		token := tokenFromCookie(r, fb.cookie)
		if token == "" {
			continue
		}
		resp, err := fb.verify(r.Context(), token)
		if err != nil {
			continue
		}
		s.SetAuthCookies(w, resp.AccessToken, "", "")
		return resp.User, true
	}
	return nil, false
}

// Middleware puts the authenticated user into the request context under "user"
func (s *AuthService) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authenticate(w, r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), "user", user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
