package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const defaultPath = "."

// Defaults for the authentication subsystem. Non-positive overrides fall
// back to these values.
const (
	DefaultMaxAttempts       = 5
	DefaultWindowMinutes     = 15
	DefaultLockoutMinutes    = 15
	DefaultResetTokenMinutes = 30
	DefaultChallengeMinutes  = 5
	DefaultAccessTTLMinutes  = 15
	DefaultRefreshTTLDays    = 7
	DefaultCleanupMinutes    = 60
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port int `json:"port" yaml:"port"`
	} `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	SecretKey struct {
		Access  string `json:"access" yaml:"access"`
		Refresh string `json:"refresh" yaml:"refresh"`
	} `json:"secretKey" yaml:"secretKey"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	PasswordStrength *PasswordStrengthConfig `json:"passwordStrength" yaml:"passwordStrength"`

	// SMTP configures outbound mail for password-reset delivery. Optional:
	// absent config degrades to log-only delivery.
	SMTP *SMTPConfig `json:"smtp" yaml:"smtp"`

	// QRCode configures the two-factor enrollment QR endpoint.
	QRCode *QRCodeConfig `json:"qrcode" yaml:"qrcode"`
}

// AuthConfig defines authentication-related configuration.
type AuthConfig struct {
	BcryptCost int `json:"bcryptCost" yaml:"bcryptCost"`

	// Brute-force lockout (sliding window).
	MaxAttempts    int `json:"maxAttempts" yaml:"maxAttempts"`
	WindowMinutes  int `json:"windowMinutes" yaml:"windowMinutes"`
	LockoutMinutes int `json:"lockoutMinutes" yaml:"lockoutMinutes"`

	// Access/refresh token lifetimes.
	AccessTTLMinutes int `json:"accessTtlMinutes" yaml:"accessTtlMinutes"`
	RefreshTTLDays   int `json:"refreshTtlDays" yaml:"refreshTtlDays"`

	// Two-factor authentication.
	TwoFactorEnabled      bool     `json:"twoFactorEnabled" yaml:"twoFactorEnabled"`
	TwoFactorEnforceRoles []string `json:"twoFactorEnforceRoles" yaml:"twoFactorEnforceRoles"`
	TwoFactorIssuer       string   `json:"twoFactorIssuer" yaml:"twoFactorIssuer"`
	ChallengeTTLMinutes   int      `json:"challengeTtlMinutes" yaml:"challengeTtlMinutes"`

	// Password reset.
	ResetTokenMinutes int `json:"resetTokenMinutes" yaml:"resetTokenMinutes"`

	// Expired-session cleanup cadence.
	CleanupIntervalMinutes int `json:"cleanupIntervalMinutes" yaml:"cleanupIntervalMinutes"`
}

// Window returns the sliding-window span for failure counting.
func (a *AuthConfig) Window() time.Duration {
	return time.Duration(a.WindowMinutes) * time.Minute
}

// Lockout returns the fixed lock duration applied once the threshold is crossed.
func (a *AuthConfig) Lockout() time.Duration {
	return time.Duration(a.LockoutMinutes) * time.Minute
}

// AccessTTL returns the access-token lifetime.
func (a *AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTTLMinutes) * time.Minute
}

// RefreshTTL returns the refresh-token lifetime.
func (a *AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTTLDays) * 24 * time.Hour
}

// ChallengeTTL returns the two-factor challenge lifetime.
func (a *AuthConfig) ChallengeTTL() time.Duration {
	return time.Duration(a.ChallengeTTLMinutes) * time.Minute
}

// ResetTokenTTL returns the password-reset token lifetime.
func (a *AuthConfig) ResetTokenTTL() time.Duration {
	return time.Duration(a.ResetTokenMinutes) * time.Minute
}

// CleanupInterval returns how often expired session rows are deleted.
func (a *AuthConfig) CleanupInterval() time.Duration {
	return time.Duration(a.CleanupIntervalMinutes) * time.Minute
}

// EnforcesRole reports whether two-factor setup is required for the role.
func (a *AuthConfig) EnforcesRole(role string) bool {
	for _, r := range a.TwoFactorEnforceRoles {
		if strings.EqualFold(strings.TrimSpace(r), role) {
			return true
		}
	}

	return false
}

// PasswordStrengthConfig defines password strength requirements.
type PasswordStrengthConfig struct {
	MinLength        int  `json:"minLength" yaml:"minLength"`
	RequireUppercase bool `json:"requireUppercase" yaml:"requireUppercase"`
	RequireLowercase bool `json:"requireLowercase" yaml:"requireLowercase"`
	RequireNumbers   bool `json:"requireNumbers" yaml:"requireNumbers"`
	RequireSpecial   bool `json:"requireSpecial" yaml:"requireSpecial"`
}

// SMTPConfig defines outbound mail settings.
type SMTPConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	From     string `json:"from" yaml:"from"`
}

// QRCodeConfig defines QR code generation configuration.
type QRCodeConfig struct {
	Size                 int    `json:"size" yaml:"size"`
	ErrorCorrectionLevel string `json:"errorCorrectionLevel" yaml:"errorCorrectionLevel"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: AUTH_MAXATTEMPTS -> auth.maxAttempts (not auth.maxattempts)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	applyAuthDefaults(cfg)

	// Build replicas from environment variables (POSTGRES_REPLICAS_0_HOST,
	// POSTGRES_REPLICAS_0_PORT, etc.)
	if cfg.Postgres != nil {
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	return cfg, nil
}

// applyAuthDefaults fills unset or invalid auth values with platform defaults.
func applyAuthDefaults(cfg *Config) {
	if cfg.Auth == nil {
		cfg.Auth = &AuthConfig{}
	}

	auth := cfg.Auth
	if auth.MaxAttempts <= 0 {
		auth.MaxAttempts = DefaultMaxAttempts
	}
	if auth.WindowMinutes <= 0 {
		auth.WindowMinutes = DefaultWindowMinutes
	}
	if auth.LockoutMinutes <= 0 {
		auth.LockoutMinutes = DefaultLockoutMinutes
	}
	if auth.AccessTTLMinutes <= 0 {
		auth.AccessTTLMinutes = DefaultAccessTTLMinutes
	}
	if auth.RefreshTTLDays <= 0 {
		auth.RefreshTTLDays = DefaultRefreshTTLDays
	}
	if auth.ChallengeTTLMinutes <= 0 {
		auth.ChallengeTTLMinutes = DefaultChallengeMinutes
	}
	if auth.ResetTokenMinutes <= 0 {
		auth.ResetTokenMinutes = DefaultResetTokenMinutes
	}
	if auth.CleanupIntervalMinutes <= 0 {
		auth.CleanupIntervalMinutes = DefaultCleanupMinutes
	}
	if auth.TwoFactorIssuer == "" {
		auth.TwoFactorIssuer = "sitewatch"
	}
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
// Example: POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			// No more replicas or incomplete configuration.
			break
		}

		replica := postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		}

		replicas = append(replicas, replica)
	}

	return replicas
}
