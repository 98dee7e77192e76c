package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tradeloom/tradeloom/internal/config"
	"github.com/tradeloom/tradeloom/internal/domain"
	"github.com/tradeloom/tradeloom/internal/domain/tenant"
	"github.com/tradeloom/tradeloom/internal/domain/user"
	"github.com/tradeloom/tradeloom/internal/port/database"
)

const (
	tokenIssuer   = "tradeloom-core"
	tokenAudience = "tradeloom"
)

var errInvalidCredentials = fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)

// AuthService handles users, password login, guest login and access tokens.
type AuthService struct {
	store   database.UserStore
	tenants *TenantLookup
	cfg     *config.Auth
	tenancy *config.Tenancy
	secret  []byte
	now     func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(store database.UserStore, tenants *TenantLookup, cfg *config.Auth, tenancy *config.Tenancy) *AuthService {
	return &AuthService{
		store:   store,
		tenants: tenants,
		cfg:     cfg,
		tenancy: tenancy,
		secret:  []byte(cfg.JWTSecret),
		now:     time.Now,
	}
}

// HashPassword returns the bcrypt hash of password.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Register creates a new user with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, req *user.CreateRequest) (*user.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := &user.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(req.Email),
		Name:         req.Name,
		PasswordHash: hash,
		Superuser:    req.Superuser,
		Guest:        req.Guest,
		Enabled:      true,
	}

	created, ok, err := s.store.CreateUser(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: user %s already exists", domain.ErrConflict, u.Email)
	}
	return created, nil
}

// Login authenticates a user. When req.Tenant is set the token is bound to
// that tenant, which the user must be allowed to enter.
func (s *AuthService) Login(ctx context.Context, req user.LoginRequest) (*user.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	u, err := s.store.GetUserByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errInvalidCredentials
	}
	if !u.Enabled {
		return nil, fmt.Errorf("%w: account is disabled", domain.ErrUnauthorized)
	}

	var selected *tenant.Tenant
	if req.Tenant != "" {
		selected, err = s.selectTenant(ctx, u, req.Tenant)
		if err != nil {
			return nil, err
		}
	}
	return s.issue(ctx, u, selected)
}

// GuestLogin signs in as the fixed guest user, bound to the guest tenant.
func (s *AuthService) GuestLogin(ctx context.Context) (*user.LoginResponse, error) {
	if !s.tenancy.GuestEnabled {
		return nil, fmt.Errorf("%w: guest access is disabled", domain.ErrNotFound)
	}

	t, err := s.tenants.BySlug(ctx, s.tenancy.GuestSlug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: guest tenant is not provisioned", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("guest tenant: %w", err)
	}
	if !t.IsActive(s.now()) {
		return nil, fmt.Errorf("%w: guest tenant is inactive", domain.ErrTenantForbidden)
	}

	u, err := s.store.GetUserByEmail(ctx, strings.ToLower(s.tenancy.GuestEmail))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: guest user is not provisioned", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("guest user: %w", err)
	}
	if !u.Guest || u.Superuser || !u.Enabled {
		slog.ErrorContext(ctx, "guest account misconfigured", "email", u.Email, "superuser", u.Superuser, "guest", u.Guest)
		return nil, fmt.Errorf("%w: guest account unavailable", domain.ErrTenantForbidden)
	}
	if _, err := s.store.GetMembership(ctx, t.ID, u.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: guest is not a member of %s", domain.ErrTenantForbidden, t.Slug)
		}
		return nil, err
	}

	return s.issue(ctx, u, t)
}

// Profile returns the user and their memberships.
func (s *AuthService) Profile(ctx context.Context, userID string) (*user.Profile, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ms, err := s.store.ListMemberships(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ms == nil {
		ms = []tenant.Membership{}
	}
	return &user.Profile{User: *u, Memberships: ms}, nil
}

// ListUsers returns all users.
func (s *AuthService) ListUsers(ctx context.Context) ([]user.User, error) {
	return s.store.ListUsers(ctx)
}

// ValidateToken verifies an access token and returns the caller identity.
func (s *AuthService) ValidateToken(tokenStr string) (*user.Identity, error) {
	claims := &user.TokenClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", domain.ErrUnauthorized)
	}
	return user.IdentityFromClaims(claims), nil
}

// selectTenant resolves an id or slug for a login and checks that u may
// enter it.
func (s *AuthService) selectTenant(ctx context.Context, u *user.User, selector string) (*tenant.Tenant, error) {
	t, err := lookupSelector(ctx, s.tenants, selector)
	if err != nil {
		return nil, err
	}
	if !t.IsActive(s.now()) {
		return nil, fmt.Errorf("%w: tenant %s is inactive", domain.ErrTenantForbidden, t.Slug)
	}
	if u.Superuser {
		return t, nil
	}
	m, err := s.store.GetMembership(ctx, t.ID, u.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: not a member of %s", domain.ErrTenantForbidden, t.Slug)
		}
		return nil, err
	}
	if !m.Active {
		return nil, fmt.Errorf("%w: membership in %s is inactive", domain.ErrTenantForbidden, t.Slug)
	}
	return t, nil
}

func (s *AuthService) issue(ctx context.Context, u *user.User, t *tenant.Tenant) (*user.LoginResponse, error) {
	var tid string
	if t != nil {
		tid = t.ID
	}
	token, err := s.signJWT(u, tid)
	if err != nil {
		return nil, fmt.Errorf("sign jwt: %w", err)
	}

	ms, err := s.store.ListMemberships(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}

	resp := &user.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int(s.cfg.AccessTokenExpiry.Seconds()),
		User:        *u,
		Memberships: ms,
	}
	if t != nil {
		d := t.Describe()
		resp.Tenant = &d
	}
	return resp, nil
}

func (s *AuthService) signJWT(u *user.User, tenantID string) (string, error) {
	now := s.now()
	claims := user.TokenClaims{
		Email:     u.Email,
		Name:      u.Name,
		Superuser: u.Superuser,
		Guest:     u.Guest,
		TenantID:  tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenExpiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// lookupSelector finds a tenant by id, falling back to slug. An unknown
// selector is ErrTenantNotResolved.
func lookupSelector(ctx context.Context, tenants *TenantLookup, selector string) (*tenant.Tenant, error) {
	selector = strings.TrimSpace(selector)
	var (
		t   *tenant.Tenant
		err error
	)
	if uuid.Validate(selector) == nil {
		t, err = tenants.ByID(ctx, selector)
		if err == nil || !errors.Is(err, domain.ErrNotFound) {
			return t, err
		}
	}
	t, err = tenants.BySlug(ctx, strings.ToLower(selector))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown tenant %q", domain.ErrTenantNotResolved, selector)
	}
	return t, err
}
