package security

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/tilekart/tilekart/internal/shared"
)

const activityWindow = 24 * time.Hour

// Service implements the security settings and heuristics operations.
type Service struct {
	repo     *Repository
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService builds a Service.
func NewService(repo *Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, validate: validator.New(), logger: logger}
}

// GetSettings returns the user's settings, falling back to the in-memory
// defaults when no row exists. The default is never written here.
func (s *Service) GetSettings(ctx context.Context, userID int64) (*Settings, error) {
	settings, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoSettings) {
			def := DefaultSettings(userID)
			return &def, nil
		}
		return nil, err
	}
	return settings, nil
}

// UpdateSettings merges the partial request over the current settings (stored
// or default) and persists the result.
func (s *Service) UpdateSettings(ctx context.Context, userID int64, req UpdateSettingsRequest) (*Settings, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if req.PasswordPolicy != nil {
		if err := s.validate.Struct(req.PasswordPolicy); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
		}
	}

	current, err := s.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.TwoFactorEnabled != nil {
		current.TwoFactorEnabled = *req.TwoFactorEnabled
	}
	if req.SessionTimeoutMin != nil {
		current.SessionTimeoutMin = *req.SessionTimeoutMin
	}
	if req.MaxLoginAttempts != nil {
		current.MaxLoginAttempts = *req.MaxLoginAttempts
	}
	if req.PasswordPolicy != nil {
		current.PasswordPolicy = *req.PasswordPolicy
	}
	if req.IPWhitelist != nil {
		current.IPWhitelist = req.IPWhitelist
	}

	if err := s.repo.UpsertSettings(ctx, *current); err != nil {
		return nil, err
	}
	return s.GetSettings(ctx, userID)
}

// ListAuditLogs pages the user's audit timeline.
func (s *Service) ListAuditLogs(ctx context.Context, userID int64, limit, offset int) ([]AuditLogEntry, int, error) {
	return s.repo.ListAuditLogs(ctx, userID, limit, offset)
}

// CheckActivity runs the suspicious-activity heuristics over the last 24h of
// audit records. The result is advisory; nothing is blocked on it.
func (s *Service) CheckActivity(ctx context.Context, userID int64) (*ActivityReport, error) {
	var report ActivityReport

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, err := s.repo.CountFailedLogins(ctx, userID, activityWindow)
		if err != nil {
			return err
		}
		report.FailedLogins24h = count
		return nil
	})
	g.Go(func() error {
		count, err := s.repo.CountDistinctIPs(ctx, userID, activityWindow)
		if err != nil {
			return err
		}
		report.DistinctIPs24h = count
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scoreActivity(&report)
	return &report, nil
}

// scoreActivity applies the heuristics to the raw counts. Thresholds follow
// the advisory model: repeated failures against one account and fan-out
// across addresses each cost score independently.
func scoreActivity(report *ActivityReport) {
	score := 100
	if report.FailedLogins24h >= 3 {
		report.Reasons = append(report.Reasons, "repeated failed logins")
		score -= 30
	}
	if report.DistinctIPs24h >= 4 {
		report.Reasons = append(report.Reasons, "activity from many addresses")
		score -= 20
	}
	if score < 0 {
		score = 0
	}
	report.Score = score
	report.Suspicious = len(report.Reasons) > 0
}
