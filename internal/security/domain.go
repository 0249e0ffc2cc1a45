package security

import "time"

// PasswordPolicy is the nested policy object stored as JSONB inside
// security_settings.
type PasswordPolicy struct {
	MinLength        int  `json:"min_length" validate:"gte=6,lte=128"`
	RequireUppercase bool `json:"require_uppercase"`
	RequireNumbers   bool `json:"require_numbers"`
	RequireSymbols   bool `json:"require_symbols"`
}

// Settings is the one-per-user security configuration row. When no row
// exists, callers receive DefaultSettings; the default is never persisted
// until the user saves a change.
type Settings struct {
	UserID            int64          `json:"user_id"`
	TwoFactorEnabled  bool           `json:"two_factor_enabled"`
	SessionTimeoutMin int            `json:"session_timeout_minutes"`
	MaxLoginAttempts  int            `json:"max_login_attempts"`
	PasswordPolicy    PasswordPolicy `json:"password_policy"`
	IPWhitelist       []string       `json:"ip_whitelist"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// DefaultSettings returns the in-memory defaults for users without a row.
func DefaultSettings(userID int64) Settings {
	return Settings{
		UserID:            userID,
		TwoFactorEnabled:  false,
		SessionTimeoutMin: 60,
		MaxLoginAttempts:  5,
		PasswordPolicy: PasswordPolicy{
			MinLength:        8,
			RequireUppercase: true,
			RequireNumbers:   true,
			RequireSymbols:   false,
		},
		IPWhitelist: []string{},
	}
}

type UpdateSettingsRequest struct {
	TwoFactorEnabled  *bool           `json:"two_factor_enabled,omitempty"`
	SessionTimeoutMin *int            `json:"session_timeout_minutes,omitempty" validate:"omitempty,gte=5,lte=1440"`
	MaxLoginAttempts  *int            `json:"max_login_attempts,omitempty" validate:"omitempty,gte=1,lte=20"`
	PasswordPolicy    *PasswordPolicy `json:"password_policy,omitempty"`
	IPWhitelist       []string        `json:"ip_whitelist,omitempty"`
}

// AuditLogEntry is a read model over audit_logs for the timeline.
type AuditLogEntry struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"`
	Action    string         `json:"action"`
	TableName string         `json:"table_name"`
	RecordID  string         `json:"record_id"`
	OldValues map[string]any `json:"old_values,omitempty"`
	NewValues map[string]any `json:"new_values,omitempty"`
	IPAddress string         `json:"ip_address"`
	UserAgent string         `json:"user_agent"`
	CreatedAt time.Time      `json:"created_at"`
}

// ActivityReport is the advisory output of the suspicious-activity check.
type ActivityReport struct {
	FailedLogins24h int64    `json:"failed_logins_24h"`
	DistinctIPs24h  int64    `json:"distinct_ips_24h"`
	Suspicious      bool     `json:"suspicious"`
	Reasons         []string `json:"reasons,omitempty"`
	Score           int      `json:"score"`
}
