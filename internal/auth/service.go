package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/tilekart/tilekart/internal/shared"
)

// LoginLimiter throttles authentication attempts per identifier.
type LoginLimiter interface {
	Allow(ctx context.Context, action, key string) (bool, error)
}

// userStore is the persistence surface Login and friends need. Satisfied by
// *Repository.
type userStore interface {
	Create(ctx context.Context, u User) (int64, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

// auditRecorder is the audit surface. Satisfied by *shared.AuditLogger,
// including a nil one.
type auditRecorder interface {
	Record(ctx context.Context, entry shared.AuditEntry)
}

// Service implements account operations.
type Service struct {
	repo     userStore
	limiter  LoginLimiter
	audit    auditRecorder
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService builds a Service. limiter may be nil, in which case login
// attempts are not throttled.
func NewService(repo *Repository, limiter LoginLimiter, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		limiter:  limiter,
		audit:    audit,
		validate: validator.New(),
		logger:   logger,
	}
}

// Register creates a local account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	id, err := s.repo.Create(ctx, User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, fmt.Errorf("%w: email", shared.ErrDuplicate)
		}
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Login verifies credentials and returns the principal to bind to the
// session. Failed attempts land in the audit log so the security module can
// count them.
func (s *Service) Login(ctx context.Context, req LoginRequest) (shared.Principal, error) {
	if err := s.validate.Struct(req); err != nil {
		return shared.Principal{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, "login", req.Email)
		if err != nil {
			s.logger.Warn("login limiter unavailable", slog.Any("error", err))
		} else if !allowed {
			return shared.Principal{}, fmt.Errorf("%w: too many attempts", shared.ErrForbidden)
		}
	}

	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.recordFailedLogin(ctx, 0, req.Email)
			return shared.Principal{}, shared.ErrInvalidCredentials
		}
		return shared.Principal{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.recordFailedLogin(ctx, user.ID, req.Email)
		return shared.Principal{}, shared.ErrInvalidCredentials
	}

	meta := shared.RequestMetaFromContext(ctx)
	s.audit.Record(ctx, shared.AuditEntry{
		UserID:    user.ID,
		Action:    "auth.login",
		TableName: "users",
		RecordID:  strconv.FormatInt(user.ID, 10),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})

	return shared.Principal{UserID: user.ID, Email: user.Email, Name: user.Name}, nil
}

// ChangePassword rotates the user's bcrypt hash after verifying the current
// password.
func (s *Service) ChangePassword(ctx context.Context, userID int64, req ChangePasswordRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: user", shared.ErrNotFound)
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return shared.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}

	meta := shared.RequestMetaFromContext(ctx)
	s.audit.Record(ctx, shared.AuditEntry{
		UserID:    userID,
		Action:    "auth.password_change",
		TableName: "users",
		RecordID:  strconv.FormatInt(userID, 10),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	return nil
}

// Me returns the account behind the principal.
func (s *Service) Me(ctx context.Context, userID int64) (*User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: user", shared.ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

// recordFailedLogin appends the failure to the audit trail. userID is the
// resolved account when the email matched and the password did not; it stays
// zero only for unknown emails. The per-user failed-login heuristics count on
// that id; the email lands in the value blob for the audit-table fallback.
func (s *Service) recordFailedLogin(ctx context.Context, userID int64, email string) {
	meta := shared.RequestMetaFromContext(ctx)
	s.audit.Record(ctx, shared.AuditEntry{
		UserID:    userID,
		Action:    "auth.login_failed",
		TableName: "users",
		RecordID:  strconv.FormatInt(userID, 10),
		NewValues: map[string]any{"email": email},
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
}
