package security

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNoSettings = errors.New("security: no settings row")

// Repository reads security settings and the audit trail. audit_logs is
// append-only; this layer never writes to it.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository over the pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetSettings loads the user's settings row. ErrNoSettings when absent.
func (r *Repository) GetSettings(ctx context.Context, userID int64) (*Settings, error) {
	var (
		s          Settings
		policyJSON []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, two_factor_enabled, session_timeout_minutes, max_login_attempts,
		       password_policy, ip_whitelist, updated_at
		FROM security_settings WHERE user_id = $1`,
		userID,
	).Scan(&s.UserID, &s.TwoFactorEnabled, &s.SessionTimeoutMin, &s.MaxLoginAttempts,
		&policyJSON, &s.IPWhitelist, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSettings
		}
		return nil, fmt.Errorf("security: get settings: %w", err)
	}
	if err := json.Unmarshal(policyJSON, &s.PasswordPolicy); err != nil {
		return nil, fmt.Errorf("security: decode password policy: %w", err)
	}
	return &s, nil
}

// UpsertSettings writes the full settings row for the user.
func (r *Repository) UpsertSettings(ctx context.Context, s Settings) error {
	policyJSON, err := json.Marshal(s.PasswordPolicy)
	if err != nil {
		return fmt.Errorf("security: encode password policy: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO security_settings (user_id, two_factor_enabled, session_timeout_minutes,
			max_login_attempts, password_policy, ip_whitelist, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			two_factor_enabled = EXCLUDED.two_factor_enabled,
			session_timeout_minutes = EXCLUDED.session_timeout_minutes,
			max_login_attempts = EXCLUDED.max_login_attempts,
			password_policy = EXCLUDED.password_policy,
			ip_whitelist = EXCLUDED.ip_whitelist,
			updated_at = NOW()`,
		s.UserID, s.TwoFactorEnabled, s.SessionTimeoutMin, s.MaxLoginAttempts, policyJSON, s.IPWhitelist,
	)
	if err != nil {
		return fmt.Errorf("security: upsert settings: %w", err)
	}
	return nil
}

// ListAuditLogs pages through the user's audit trail, newest first.
func (r *Repository) ListAuditLogs(ctx context.Context, userID int64, limit, offset int) ([]AuditLogEntry, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_logs WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("security: count audit logs: %w", err)
	}

	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, action, table_name, record_id, old_values, new_values,
		       ip_address, user_agent, created_at
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("security: list audit logs: %w", err)
	}
	defer rows.Close()

	var entries []AuditLogEntry
	for rows.Next() {
		var (
			a                AuditLogEntry
			oldJSON, newJSON []byte
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Action, &a.TableName, &a.RecordID,
			&oldJSON, &newJSON, &a.IPAddress, &a.UserAgent, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		if len(oldJSON) > 0 {
			_ = json.Unmarshal(oldJSON, &a.OldValues)
		}
		if len(newJSON) > 0 {
			_ = json.Unmarshal(newJSON, &a.NewValues)
		}
		entries = append(entries, a)
	}
	return entries, total, rows.Err()
}

// CountFailedLogins counts failed login records for the user in the window.
func (r *Repository) CountFailedLogins(ctx context.Context, userID int64, window time.Duration) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM audit_logs
		WHERE user_id = $1 AND action = 'auth.login_failed' AND created_at > NOW() - $2::interval`,
		userID, window.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("security: count failed logins: %w", err)
	}
	return count, nil
}

// CountDistinctIPs counts distinct source addresses for the user in the window.
func (r *Repository) CountDistinctIPs(ctx context.Context, userID int64, window time.Duration) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT ip_address) FROM audit_logs
		WHERE user_id = $1 AND created_at > NOW() - $2::interval`,
		userID, window.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("security: count distinct ips: %w", err)
	}
	return count, nil
}

// CountRecentActions counts matching actions for a key; the key is matched
// against the new-value blob, which is where login failures record the email.
func (r *Repository) CountRecentActions(ctx context.Context, action, key string, window time.Duration) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM audit_logs
		WHERE action = $1 AND new_values::text LIKE $2 AND created_at > NOW() - $3::interval`,
		"auth."+action+"_failed", "%"+key+"%", window.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("security: count recent actions: %w", err)
	}
	return count, nil
}
