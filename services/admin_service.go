package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"storefront/database"
	"storefront/models"
	"storefront/utils"
)

type AdminRepository interface {
	CreateAdmin(ctx context.Context, admin *models.Admin) error
	GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
	UpdateAdminLastLogin(ctx context.Context, adminID string) error
}

type CreateAdminRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Username  string `json:"username" validate:"required"`
	MasterKey string `json:"masterKey" validate:"required"`
}

type AdminLogin struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expires_at"`
	Admin     models.AdminSummary `json:"admin"`
}

type AdminService struct {
	repo      AdminRepository
	masterKey string
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAdminService(repo AdminRepository, masterKey, jwtSecret string, tokenTTL time.Duration) *AdminService {
	return &AdminService{
		repo:      repo,
		masterKey: masterKey,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

// CreateAdmin provisions an admin account when the caller presents the
// server's master key.
func (s *AdminService) CreateAdmin(ctx context.Context, req CreateAdminRequest) (*models.Admin, error) {
	if s.masterKey == "" {
		return nil, fmt.Errorf("%w: admin master key not set", ErrConfiguration)
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(req.MasterKey), []byte(s.masterKey)) != 1 {
		slog.Warn("create-admin with wrong master key", slog.String(utils.LogKeyTraceID, utils.GetTraceID(ctx)))
		return nil, fmt.Errorf("%w: invalid master key", ErrUnauthenticated)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	admin := &models.Admin{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, fmt.Errorf("%w: admin already exists", ErrConflict)
		}
		return nil, err
	}

	slog.Info("admin created", slog.String(utils.LogKeyTraceID, utils.GetTraceID(ctx)),
		slog.String(utils.LogKeyUserID, admin.ID), slog.String("username", admin.Username))
	return admin, nil
}

// Login checks the admin's password, stamps last_login_at and issues a
// bearer token carrying the admin role.
func (s *AdminService) Login(ctx context.Context, email, password string) (*AdminLogin, error) {
	if s.jwtSecret == "" {
		return nil, fmt.Errorf("%w: jwt secret not set", ErrConfiguration)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, invalid("email", "")
	}
	if password == "" {
		return nil, invalid("password", "")
	}

	admin, err := s.repo.GetAdminByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	}

	if err := s.repo.UpdateAdminLastLogin(ctx, admin.ID); err != nil {
		slog.Warn("failed to record admin login", slog.String(utils.LogKeyTraceID, utils.GetTraceID(ctx)),
			slog.String(utils.LogKeyUserID, admin.ID), slog.String(utils.LogKeyError, err.Error()))
	}

	expiresAt := time.Now().Add(s.tokenTTL)
	token, err := utils.GenerateToken(s.jwtSecret, admin.ID, admin.Email, utils.RoleAdmin, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AdminLogin{Token: token, ExpiresAt: expiresAt, Admin: admin.Summary()}, nil
}

func (s *AdminService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	return s.repo.IsAdmin(ctx, userID)
}

// UpdateLastLogin backs the update_admin_last_login RPC.
func (s *AdminService) UpdateLastLogin(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	if err := s.repo.UpdateAdminLastLogin(ctx, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrForbidden
		}
		return err
	}
	return nil
}
