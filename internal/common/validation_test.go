package common

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestValidatorCollectsOneErrorPerField(t *testing.T) {
	v := NewValidator().
		Field("email", "", Required, Email).
		Field("password", "short", Required, MinLength(8)).
		Field("otp", "12a4", Required, Digits).
		Field("name", "Ann", Required)

	assert.True(t, v.HasErrors())
	assert.Equal(t, []string{"email", "password", "otp"}, v.Fields())
	assert.Equal(t, "email is required; password must be at least 8 characters; otp must contain digits only", v.ErrorMessage())
}

func TestValidatorPasses(t *testing.T) {
	v := NewValidator().
		Field("email", "ann@example.com", Required, Email).
		Field("otp", "123456", Digits)
	assert.False(t, v.HasErrors())
	assert.Empty(t, v.ErrorMessage())
}

func TestFailureUnwrapsToSentinels(t *testing.T) {
	tests := []struct {
		f    *Failure
		want error
	}{
		{&Failure{Kind: KindValidation, Status: 400}, ErrValidation},
		{&Failure{Kind: KindAuth, Status: 401}, ErrUnauthorized},
		{&Failure{Kind: KindUpstream, Status: 404}, ErrNotFound},
		{&Failure{Kind: KindUpstream, Status: 502}, ErrUpstream},
		{&Failure{Kind: KindNetwork}, ErrUpstream},
		{&Failure{Kind: KindInternal}, ErrInternal},
	}
	for _, tt := range tests {
		var err error = tt.f
		assert.True(t, errors.Is(err, tt.want), "%s", tt.f)
	}

	_, err := Fail[int](KindAuth, "please log in again").Unwrap()
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestEmailRule(t *testing.T) {
	assert.Nil(t, Email("email", "a@b.co"))
	assert.NotNil(t, Email("email", "not-an-email"))
	assert.NotNil(t, Email("email", 12))
}

func TestExtractMessage(t *testing.T) {
	assert.Equal(t, "bad otp", ExtractMessage([]byte(`{"error":"bad otp"}`), 400))
	assert.Equal(t, "nested", ExtractMessage([]byte(`{"error":{"message":"nested"}}`), 400))
	assert.Equal(t, "gateway down", ExtractMessage([]byte("gateway down"), 502))
	assert.Equal(t, "request failed: not found", ExtractMessage(nil, 404))
	assert.Equal(t, "request failed with status 599", ExtractMessage([]byte(`{}`), 599))
}

func TestExtractMessageTruncatesOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("a", maxTextMessage-1) + "€ tail"
	got := ExtractMessage([]byte(body), 502)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", maxTextMessage-1)+"…", got)

	short := "Dienst nicht verfügbar"
	assert.Equal(t, short, ExtractMessage([]byte(short), 503))
}

func TestResultAndKind(t *testing.T) {
	v, err := Ok("fine").Unwrap()
	assert.NoError(t, err)
	assert.Equal(t, "fine", v)

	_, err = Fail[string](KindNetwork, "offline").Unwrap()
	var f *Failure
	assert.ErrorAs(t, err, &f)
	assert.Equal(t, KindNetwork, f.Kind)

	assert.Equal(t, KindValidation, KindFromStatus(422))
	assert.Equal(t, KindAuth, KindFromStatus(403))
	assert.Equal(t, KindUpstream, KindFromStatus(500))
	assert.Equal(t, Kind(""), KindFromStatus(201))
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("ZPU_API_BASE_URL", "https://api.test/zpu/")
	t.Setenv("CORS_ORIGINS", "https://a.test, https://b.test")
	t.Setenv("OTP_RATE_PER_MIN", "5")
	t.Setenv("ZPU_MOCK_MODE", "true")
	t.Setenv("ZPU_RETRY_DELAY", "250ms")

	cfg := LoadConfig()
	assert.Equal(t, "https://api.test/zpu", cfg.Upstream.BaseURL)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 5, cfg.OTP.PerMinute)
	assert.True(t, cfg.Client.MockMode)
	assert.Equal(t, "250ms", cfg.Client.RetryDelay.String())
	assert.NoError(t, cfg.Validate())

	cfg.OTP.Burst = 0
	cfg.Client.RetryAttempts = 0
	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "OTP_BURST")
	assert.Contains(t, err.Error(), "ZPU_RETRY_ATTEMPTS")
}
