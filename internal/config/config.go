package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oddseye/oddseye/internal/logger"
	"github.com/spf13/viper"
)

const (
	// DefaultAPIURL is the card-detection endpoint.
	DefaultAPIURL = "https://aipokertools.com/api/v1/detect-cards"
	// DefaultQualityURL reports the ideal JPEG upload quality.
	DefaultQualityURL = "https://aipokertools.com/api/v1/image-quality"

	DefaultScanInterval = time.Second
	DefaultJPEGQuality  = 100
	DefaultOpponents    = 1

	licenseFileName = "license_key"
)

// Config holds all runtime settings for a scan session.
type Config struct {
	APIURL       string        `mapstructure:"api_url"`
	QualityURL   string        `mapstructure:"quality_url"`
	LicenseFile  string        `mapstructure:"license_file"`
	ScanInterval time.Duration `mapstructure:"scan_interval"`
	Opponents    int           `mapstructure:"opponents"`
	JPEGQuality  int           `mapstructure:"jpeg_quality"`
	LogLevel     string        `mapstructure:"log_level"`
	LogFile      string        `mapstructure:"log_file"`
	PreviewPort  int           `mapstructure:"preview_port"`
}

// Dir returns the configuration directory, creating it if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".config", "oddseye")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// Load reads configuration from the given file (or the default location when
// empty), applying defaults for anything unset.
func Load(cfgFile string) (*Config, error) {
	log := logger.WithComponent("config")

	viper.SetDefault("api_url", DefaultAPIURL)
	viper.SetDefault("quality_url", DefaultQualityURL)
	viper.SetDefault("scan_interval", DefaultScanInterval)
	viper.SetDefault("opponents", DefaultOpponents)
	viper.SetDefault("jpeg_quality", DefaultJPEGQuality)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("preview_port", 0)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; every key has a default.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
		log.Debug().Err(err).Msg("no config file found, using defaults")
	} else {
		log.Debug().Str("file", viper.ConfigFileUsed()).Msg("config loaded")
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.LicenseFile == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		cfg.LicenseFile = filepath.Join(dir, licenseFileName)
	}
	if cfg.Opponents < 1 {
		cfg.Opponents = 1
	} else if cfg.Opponents > 9 {
		cfg.Opponents = 9
	}
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = DefaultScanInterval
	}

	return cfg, nil
}

// ReadLicenseKey returns the stored license key, or "" when none is saved.
func ReadLicenseKey(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// SaveLicenseKey persists the key for future sessions.
func SaveLicenseKey(path, key string) error {
	if err := os.WriteFile(path, []byte(key+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to save license key: %w", err)
	}
	return nil
}

// LicenseKey loads the license key from the configured file, prompting on
// stdin and persisting the answer when no key is stored yet.
func LicenseKey(path string) (string, error) {
	if key := ReadLicenseKey(path); key != "" {
		return key, nil
	}

	fmt.Println("License key not found.")
	fmt.Printf("Enter your license key (it will be saved to %s):\n", path)
	fmt.Print("License key: ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return "", fmt.Errorf("failed to read license key: %w", scanner.Err())
	}
	key := strings.TrimSpace(scanner.Text())
	if key == "" {
		return "", fmt.Errorf("no license key provided")
	}

	if err := SaveLicenseKey(path, key); err != nil {
		// Not fatal; the session can still run with the entered key.
		logger.WithComponent("config").Warn().Err(err).Msg("could not persist license key")
	}
	return key, nil
}
