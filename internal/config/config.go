// ABOUTME: Dashboard configuration from .env files, XYLEN_ environment variables and flags.
// ABOUTME: Flags are bound into viper; Load validates the merged result.

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	cerrors "github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys shared by flags, environment variables and viper.
const (
	KeyPort           = "port"
	KeyAPIURL         = "api-url"
	KeyDB             = "db"
	KeySessionSecret  = "session-secret"
	KeySessionTTL     = "session-ttl"
	KeySecureCookies  = "secure-cookies"
	KeySignupGateHash = "signup-gate-hash"
	KeyViewTTL        = "view-ttl"
	KeyDebug          = "debug"
	KeyOpenAIModel    = "openai-model"
	KeyOpenAIKey      = "openai-api-key"
	KeySeedUsername   = "seed-username"
	KeySeedPassword   = "seed-password"
	KeySeedCount      = "seed-count"
)

// EnvPrefix prefixes every environment variable (XYLEN_API_URL, ...).
const EnvPrefix = "XYLEN"

// Config is the validated dashboard configuration.
type Config struct {
	Port           string
	APIURL         string
	DBPath         string
	SessionSecret  string
	SessionTTL     time.Duration
	SecureCookies  bool
	SignupGateHash string // bcrypt hash; empty disables the gate
	ViewTTL        time.Duration
	Debug          bool
	OpenAIModel    string
	OpenAIKey      string
	SeedUsername   string
	SeedPassword   string
	SeedCount      int
}

// LoadDotEnv loads .env files into the environment. Missing files are
// ignored; already-set variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return cerrors.Wrapf(err, "loading %s", p)
		}
	}
	return nil
}

// New returns a viper instance reading XYLEN_* variables with defaults set.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyAPIURL, "http://localhost:3000")
	v.SetDefault(KeyDB, DefaultDBPath())
	v.SetDefault(KeySessionTTL, 24*time.Hour)
	v.SetDefault(KeyViewTTL, 30*time.Minute)
	v.SetDefault(KeyOpenAIModel, "gpt-4o-mini")
	v.SetDefault(KeySeedCount, 5)

	// OPENAI_API_KEY is read unprefixed, like every other OpenAI tool.
	_ = v.BindEnv(KeyOpenAIKey, EnvPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY")
	return v
}

// ServeFlags registers the serve command flags.
func ServeFlags(fs *pflag.FlagSet) {
	fs.StringP(KeyPort, "p", "8080", "Port to listen on")
	fs.String(KeyAPIURL, "http://localhost:3000", "Base URL of the warehouse API")
	fs.StringP(KeyDB, "d", DefaultDBPath(), "Activity database path")
	fs.String(KeySessionSecret, "", "Secret used to sign session cookies (at least 16 bytes)")
	fs.Duration(KeySessionTTL, 24*time.Hour, "Session cookie lifetime")
	fs.Bool(KeySecureCookies, false, "Mark session cookies Secure (serve over HTTPS)")
	fs.String(KeySignupGateHash, "", "bcrypt hash of the sign-up passphrase; empty disables the gate")
	fs.Duration(KeyViewTTL, 30*time.Minute, "Idle time before a mounted table view is dropped")
	fs.Bool(KeyDebug, false, "Enable development logging")
}

// SeedFlags registers the seed command flags.
func SeedFlags(fs *pflag.FlagSet) {
	fs.String(KeyAPIURL, "http://localhost:3000", "Base URL of the warehouse API")
	fs.String(KeyOpenAIModel, "gpt-4o-mini", "OpenAI model used to generate demo data")
	fs.StringP(KeySeedUsername, "u", "", "Admin account used to create the demo records")
	fs.String(KeySeedPassword, "", "Password of the seed account")
	fs.IntP(KeySeedCount, "n", 5, "Records to create per collection")
	fs.Bool(KeyDebug, false, "Enable development logging")
}

// Bind binds only the flags that were set, so environment variables win
// over flag defaults.
func Bind(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		if f.Changed {
			err = v.BindPFlag(f.Name, f)
		}
	})
	return err
}

// Load reads and validates the configuration.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:           strings.TrimSpace(v.GetString(KeyPort)),
		APIURL:         strings.TrimSpace(v.GetString(KeyAPIURL)),
		SessionSecret:  v.GetString(KeySessionSecret),
		SessionTTL:     v.GetDuration(KeySessionTTL),
		SecureCookies:  v.GetBool(KeySecureCookies),
		SignupGateHash: strings.TrimSpace(v.GetString(KeySignupGateHash)),
		ViewTTL:        v.GetDuration(KeyViewTTL),
		Debug:          v.GetBool(KeyDebug),
		OpenAIModel:    v.GetString(KeyOpenAIModel),
		OpenAIKey:      v.GetString(KeyOpenAIKey),
		SeedUsername:   strings.TrimSpace(v.GetString(KeySeedUsername)),
		SeedPassword:   v.GetString(KeySeedPassword),
		SeedCount:      v.GetInt(KeySeedCount),
	}

	if cfg.Port == "" {
		return Config{}, cerrors.New("port cannot be empty")
	}
	if !strings.HasPrefix(cfg.APIURL, "http://") && !strings.HasPrefix(cfg.APIURL, "https://") {
		return Config{}, cerrors.Newf("api-url %q must start with http:// or https://", cfg.APIURL)
	}
	if cfg.SignupGateHash != "" && !strings.HasPrefix(cfg.SignupGateHash, "$2") {
		return Config{}, cerrors.New("signup-gate-hash must be a bcrypt hash")
	}
	if cfg.SessionTTL <= 0 || cfg.ViewTTL <= 0 {
		return Config{}, cerrors.New("session-ttl and view-ttl must be positive")
	}

	dbPath, err := ValidateDBPath(v.GetString(KeyDB))
	if err != nil {
		return Config{}, err
	}
	cfg.DBPath = dbPath
	return cfg, nil
}

// DefaultDBPath puts the activity database in the user's home directory.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "xylen.db"
	}
	return filepath.Join(home, ".xylen", "xylen.db")
}

// ValidateDBPath validates and cleans a database path.
// Handles Unix/Linux, macOS, and Windows paths (including UNC and drive letters).
func ValidateDBPath(path string) (string, error) {
	cleanPath := filepath.Clean(strings.TrimSpace(path))

	if cleanPath == "" || cleanPath == "." || cleanPath == "/" {
		return "", cerrors.New("database path cannot be empty, '.', or '/'")
	}
	if runtime.GOOS == "windows" && len(cleanPath) == 2 && cleanPath[1] == ':' {
		return "", cerrors.New("database path cannot be a bare drive letter")
	}
	if strings.Contains(cleanPath, "..") {
		return "", cerrors.New("database path cannot contain '..'")
	}

	badPatterns := []string{".git", ".svn", "node_modules", ".env", "credentials", "secret"}
	lowerPath := strings.ToLower(cleanPath)
	for _, pattern := range badPatterns {
		if strings.Contains(lowerPath, pattern) {
			return "", cerrors.Newf("database path cannot contain '%s' directory", pattern)
		}
	}
	return cleanPath, nil
}
