// Package config handles loading and parsing of bleepbridge configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/bleepstore/bleepbridge/internal/logging"
	"github.com/bleepstore/bleepbridge/internal/storage"
)

// Config is the top-level configuration for bleepbridge.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Storage StorageConfig `yaml:"storage"`
}

// ServerConfig holds HTTP gateway settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// ShutdownTimeout is the graceful shutdown window in seconds.
	ShutdownTimeout int `yaml:"shutdown_timeout"`
}

// ShutdownWindow returns ShutdownTimeout as a duration.
func (s ServerConfig) ShutdownWindow() time.Duration {
	return time.Duration(s.ShutdownTimeout) * time.Second
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// StorageConfig selects the backend and holds the settings for each one.
// Only the block named by Backend is used.
type StorageConfig struct {
	// Backend is the discriminant tag: AWS, OCI, AZURE, DROPBOX or FTP.
	Backend string        `yaml:"backend"`
	AWS     AWSConfig     `yaml:"aws"`
	OCI     OCIConfig     `yaml:"oci"`
	Azure   AzureConfig   `yaml:"azure"`
	Dropbox DropboxConfig `yaml:"dropbox"`
	FTP     FTPConfig     `yaml:"ftp"`
}

// AWSConfig holds S3 settings. Leaving both keys empty uses the default AWS
// credential chain.
type AWSConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// OCIConfig holds OCI Object Storage settings for the S3 compatibility API.
type OCIConfig struct {
	Region          string `yaml:"region"`
	Namespace       string `yaml:"namespace"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// AzureConfig holds Azure Blob Storage shared-key settings.
type AzureConfig struct {
	AccountName    string `yaml:"account_name"`
	AccountKey     string `yaml:"account_key"`
	EndpointSuffix string `yaml:"endpoint_suffix"`
}

// DropboxConfig holds Dropbox app credentials and a long-lived refresh token.
type DropboxConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
}

// FTPConfig holds FTP server settings.
type FTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func staticCredentials(id, secret string) *storage.StaticCredentials {
	if id == "" && secret == "" {
		return nil
	}
	return &storage.StaticCredentials{AccessKeyID: id, SecretAccessKey: secret}
}

// SelectionRequest converts the storage section into a factory request.
func (s StorageConfig) SelectionRequest() (storage.SelectionRequest, error) {
	typ, err := storage.ParseBackendType(s.Backend)
	if err != nil {
		return storage.SelectionRequest{}, err
	}

	var details storage.BackendConfig
	switch typ {
	case storage.BackendAWS:
		details = storage.S3Config{
			Region:      s.AWS.Region,
			Credentials: staticCredentials(s.AWS.AccessKeyID, s.AWS.SecretAccessKey),
		}
	case storage.BackendOCI:
		details = storage.OCIConfig{
			Region:      s.OCI.Region,
			Namespace:   s.OCI.Namespace,
			Credentials: staticCredentials(s.OCI.AccessKeyID, s.OCI.SecretAccessKey),
		}
	case storage.BackendAzure:
		details = storage.AzureConfig{
			AccountName:    s.Azure.AccountName,
			AccountKey:     s.Azure.AccountKey,
			EndpointSuffix: s.Azure.EndpointSuffix,
		}
	case storage.BackendDropbox:
		details = storage.DropboxConfig{
			ClientID:     s.Dropbox.ClientID,
			ClientSecret: s.Dropbox.ClientSecret,
			RefreshToken: s.Dropbox.RefreshToken,
		}
	case storage.BackendFTP:
		details = storage.FTPConfig{
			Host:     s.FTP.Host,
			Port:     s.FTP.Port,
			Username: s.FTP.Username,
			Password: s.FTP.Password,
		}
	}
	return storage.SelectionRequest{Type: typ, Details: details}, nil
}

// Load reads a YAML configuration file from the given path and returns
// a parsed Config. ${VAR} references are expanded from the environment
// before parsing, and defaults are applied for unset values.
// If the primary path fails, it falls back to bleepbridge.example.yaml
// in the same directory or parent directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Try fallback paths
		fallbackPaths := []string{
			filepath.Join(filepath.Dir(path), "bleepbridge.example.yaml"),
			filepath.Join(filepath.Dir(path), "..", "bleepbridge.example.yaml"),
		}
		var fallbackErr error
		for _, fp := range fallbackPaths {
			data, fallbackErr = os.ReadFile(fp)
			if fallbackErr == nil {
				break
			}
		}
		if fallbackErr != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return Parse(data)
}

// envRef matches a braced environment reference such as ${FTP_PASSWORD}.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references with the variable's value. Any other
// '$' is kept literally, so secrets like "pa$$w0rd" survive.
func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(ref []byte) []byte {
		return []byte(os.Getenv(string(ref[2 : len(ref)-1])))
	})
}

// Parse decodes YAML configuration bytes, expanding ${VAR} references and
// applying defaults.
func Parse(data []byte) (*Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(expandEnv(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply defaults for empty fields that YAML didn't set
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that defaults cannot repair, including the
// settings the selected backend requires. All problems are reported together.
func (c *Config) Validate() error {
	var errs *multierror.Error
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("logging: %w", err))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = multierror.Append(errs, fmt.Errorf("server: port %d out of range", c.Server.Port))
	}
	typ, err := storage.ParseBackendType(c.Storage.Backend)
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("storage: %w", err))
		return errs.ErrorOrNil()
	}
	for _, field := range c.Storage.missingFields(typ) {
		errs = multierror.Append(errs, fmt.Errorf("storage: %s is required for backend %s", field, typ))
	}
	return errs.ErrorOrNil()
}

// missingFields lists the empty settings the given backend cannot work
// without. AWS may take region and credentials from the environment.
func (s StorageConfig) missingFields(typ storage.BackendType) []string {
	var required map[string]string
	switch typ {
	case storage.BackendOCI:
		required = map[string]string{"oci.region": s.OCI.Region, "oci.namespace": s.OCI.Namespace}
	case storage.BackendAzure:
		required = map[string]string{"azure.account_name": s.Azure.AccountName, "azure.account_key": s.Azure.AccountKey}
	case storage.BackendDropbox:
		required = map[string]string{
			"dropbox.client_id":     s.Dropbox.ClientID,
			"dropbox.client_secret": s.Dropbox.ClientSecret,
			"dropbox.refresh_token": s.Dropbox.RefreshToken,
		}
	case storage.BackendFTP:
		required = map[string]string{"ftp.host": s.FTP.Host}
	}

	var missing []string
	for name, value := range required {
		if value == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            9000,
			ShutdownTimeout: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Storage: StorageConfig{
			Backend: string(storage.BackendAWS),
			Azure: AzureConfig{
				EndpointSuffix: "core.windows.net",
			},
			FTP: FTPConfig{
				Port: 21,
			},
		},
	}
}

// applyDefaults fills in any fields that are still at their zero value
// after YAML unmarshaling.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9000
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 30
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = string(storage.BackendAWS)
	}
	if cfg.Storage.Azure.EndpointSuffix == "" {
		cfg.Storage.Azure.EndpointSuffix = "core.windows.net"
	}
	if cfg.Storage.FTP.Port == 0 {
		cfg.Storage.FTP.Port = 21
	}
}
