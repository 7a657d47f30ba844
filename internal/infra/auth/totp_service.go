// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"sitewatch/config"
	"sitewatch/internal/domain/service"
)

// RFC 6238 parameters. SHA-1 with 6 digits and a 30 second period is what
// the common authenticator apps default to.
const (
	totpSecretBytes = 20
	totpDigits      = 6
	totpPeriod      = 30
	totpSkew        = 1
)

// totpService is a concrete implementation of the TOTPService interface.
type totpService struct {
	issuer string
}

// NewTOTPService is the constructor for totpService.
func NewTOTPService(cfg *config.Config) service.TOTPService {
	return &totpService{issuer: cfg.Auth.TwoFactorIssuer}
}

// GenerateSecret returns a fresh random secret, base32-encoded without padding.
func (s *totpService) GenerateSecret() (string, error) {
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", errors.Wrap(err, "generate totp secret")
	}

	enc := base32.StdEncoding.WithPadding(base32.NoPadding)

	return enc.EncodeToString(raw), nil
}

// ProvisionURI builds the otpauth:// enrollment URI for authenticator apps.
func (s *totpService) ProvisionURI(secret, account string) string {
	label := url.PathEscape(s.issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", s.issuer)
	v.Set("period", strconv.Itoa(totpPeriod))
	v.Set("digits", strconv.Itoa(totpDigits))
	v.Set("algorithm", "SHA1")

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// Verify checks a code against the secret at the given time, accepting one
// period of clock drift in either direction.
func (s *totpService) Verify(secret, code string, now time.Time) bool {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != totpDigits || !isDigits(trimmed) {
		return false
	}

	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	key, err := enc.DecodeString(strings.ToUpper(secret))
	if err != nil || len(key) == 0 {
		return false
	}

	baseCounter := now.Unix() / totpPeriod
	for step := -totpSkew; step <= totpSkew; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(hotpCode(key, counter)), []byte(trimmed)) == 1 {
			return true
		}
	}

	return false
}

func hotpCode(key []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, key)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for range totpDigits {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", totpDigits, bin%mod)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
