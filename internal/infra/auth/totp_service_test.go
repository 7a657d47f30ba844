package auth

import (
	"encoding/base32"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitewatch/config"
)

func totpTestService() *totpService {
	cfg := &config.Config{Auth: &config.AuthConfig{TwoFactorIssuer: "sitewatch"}}

	return NewTOTPService(cfg).(*totpService)
}

// Base32 form of the RFC 6238 appendix B SHA-1 test secret "12345678901234567890".
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestTOTP_VerifyRFCVectors(t *testing.T) {
	svc := totpTestService()

	cases := []struct {
		ts   int64
		code string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
		{20000000000, "353130"},
	}

	for _, tc := range cases {
		assert.True(t, svc.Verify(rfcSecret, tc.code, time.Unix(tc.ts, 0)), "vector at t=%d", tc.ts)
	}
}

func TestTOTP_VerifyDriftWindow(t *testing.T) {
	svc := totpTestService()

	now := time.Unix(1234567890, 0)
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(rfcSecret)
	require.NoError(t, err)

	prev := hotpCode(key, now.Unix()/totpPeriod-1)
	next := hotpCode(key, now.Unix()/totpPeriod+1)
	far := hotpCode(key, now.Unix()/totpPeriod+2)

	assert.True(t, svc.Verify(rfcSecret, prev, now))
	assert.True(t, svc.Verify(rfcSecret, next, now))
	assert.False(t, svc.Verify(rfcSecret, far, now))
}

func TestTOTP_VerifyRejectsMalformedCodes(t *testing.T) {
	svc := totpTestService()
	now := time.Unix(1234567890, 0)

	assert.False(t, svc.Verify(rfcSecret, "12345", now))
	assert.False(t, svc.Verify(rfcSecret, "1234567", now))
	assert.False(t, svc.Verify(rfcSecret, "abcdef", now))
	assert.False(t, svc.Verify("", "005924", now))
	assert.False(t, svc.Verify("not-base32!", "005924", now))
}

func TestTOTP_GenerateSecret(t *testing.T) {
	svc := totpTestService()

	secret, err := svc.GenerateSecret()
	require.NoError(t, err)
	assert.NotContains(t, secret, "=")

	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	require.NoError(t, err)
	assert.Len(t, raw, totpSecretBytes)

	other, err := svc.GenerateSecret()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}

func TestTOTP_ProvisionURI(t *testing.T) {
	svc := totpTestService()

	uri := svc.ProvisionURI(rfcSecret, "ops@example.com")
	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/sitewatch:ops@example.com?"))
	assert.Contains(t, uri, "secret="+rfcSecret)
	assert.Contains(t, uri, "issuer=sitewatch")
	assert.Contains(t, uri, "digits=6")
	assert.Contains(t, uri, "period=30")
}
