package security

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestDefaultSettings(t *testing.T) {
	def := DefaultSettings(7)
	assert.Equal(t, int64(7), def.UserID)
	assert.False(t, def.TwoFactorEnabled)
	assert.Equal(t, 60, def.SessionTimeoutMin)
	assert.Equal(t, 5, def.MaxLoginAttempts)
	assert.Equal(t, 8, def.PasswordPolicy.MinLength)
	assert.True(t, def.PasswordPolicy.RequireUppercase)
	assert.True(t, def.PasswordPolicy.RequireNumbers)
	assert.False(t, def.PasswordPolicy.RequireSymbols)
	assert.Empty(t, def.IPWhitelist)
}

func TestScoreActivity(t *testing.T) {
	cases := []struct {
		name       string
		failed     int64
		ips        int64
		score      int
		suspicious bool
	}{
		{"quiet", 0, 1, 100, false},
		{"below thresholds", 2, 3, 100, false},
		{"repeated failures", 3, 1, 70, true},
		{"many addresses", 0, 4, 80, true},
		{"both signals", 5, 6, 50, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			report := ActivityReport{FailedLogins24h: tc.failed, DistinctIPs24h: tc.ips}
			scoreActivity(&report)
			assert.Equal(t, tc.score, report.Score)
			assert.Equal(t, tc.suspicious, report.Suspicious)
			assert.Equal(t, tc.suspicious, len(report.Reasons) > 0)
		})
	}
}

func TestPasswordPolicyValidation(t *testing.T) {
	v := validator.New()

	assert.NoError(t, v.Struct(PasswordPolicy{MinLength: 8}))
	assert.NoError(t, v.Struct(PasswordPolicy{MinLength: 6}))
	assert.Error(t, v.Struct(PasswordPolicy{MinLength: 5}))
	assert.Error(t, v.Struct(PasswordPolicy{MinLength: 129}))
}
