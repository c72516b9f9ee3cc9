package googfit

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Content holds the embedded default configuration
//
//go:embed etc/googfit.toml
var Content embed.FS

// Config of the command line and server
type Config struct {
	Timezone         string   `toml:"timezone"`
	Vendor           string   `toml:"vendor"`
	BaseURL          string   `toml:"base_url"`
	ClientSecretFile string   `toml:"client_secret_file"`
	CredentialsFile  string   `toml:"credentials_file"`
	RefreshToken     string   `toml:"refresh_token"`
	Timeout          Duration `toml:"timeout"`
	// logging
	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`
}

// Duration decodes TOML strings such as "30s"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// DefaultConfig decodes the embedded configuration
func DefaultConfig() (*Config, error) {
	val, err := Content.ReadFile("etc/googfit.toml")
	if err != nil {
		return nil, err
	}
	return ParseConfig(string(val))
}

// ParseConfig decodes TOML on top of the defaults
func ParseConfig(data string) (*Config, error) {
	cfg := &Config{
		Vendor:  DefaultVendor,
		BaseURL: BaseURL,
		Timeout: Duration{DefaultTimeout},
	}
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return cfg, nil
}

// LoadConfig decodes a TOML file on top of the defaults
func LoadConfig(filename string) (*Config, error) {
	val, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(string(val))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

// Merge returns a copy of `c` overridden by the non-zero fields of `o`
func (c *Config) Merge(o *Config) *Config {
	res := *c
	if o.Timezone != "" {
		res.Timezone = o.Timezone
	}
	if o.Vendor != "" {
		res.Vendor = o.Vendor
	}
	if o.BaseURL != "" {
		res.BaseURL = o.BaseURL
	}
	if o.ClientSecretFile != "" {
		res.ClientSecretFile = o.ClientSecretFile
	}
	if o.CredentialsFile != "" {
		res.CredentialsFile = o.CredentialsFile
	}
	if o.RefreshToken != "" {
		res.RefreshToken = o.RefreshToken
	}
	if o.Timeout.Duration != 0 {
		res.Timeout = o.Timeout
	}
	if o.LogLevel != "" {
		res.LogLevel = o.LogLevel
	}
	if o.LogFile != "" {
		res.LogFile = o.LogFile
	}
	return &res
}

// Validate checks the timezone resolves and a refresh token source exists
func (c *Config) Validate() error {
	if _, err := LoadLocation(c.Timezone); err != nil {
		return err
	}
	if c.RefreshToken == "" && c.CredentialsFile == "" {
		return fmt.Errorf("one of refresh_token or credentials_file is required")
	}
	if c.ClientSecretFile == "" {
		return fmt.Errorf("client_secret_file is required")
	}
	if c.Timeout.Duration <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// Token returns the configured refresh token, reading the credentials file if necessary
func (c *Config) Token() (string, error) {
	if c.RefreshToken != "" {
		return c.RefreshToken, nil
	}
	creds, err := ReadCredentials(c.CredentialsFile)
	if err != nil {
		return "", err
	}
	return creds.RefreshToken, nil
}

// ClientOptions returns the options for NewClient
func (c *Config) ClientOptions() []Option {
	return []Option{
		WithTimezone(c.Timezone),
		WithVendor(c.Vendor),
		WithBaseURL(c.BaseURL),
	}
}
