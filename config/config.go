package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/brettbedarf/bootfs"
	"github.com/brettbedarf/bootfs/internal/util"
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultTransport = TFTPTransport

	// DefaultTimeout is the per-packet (tftp) or per-request (http) timeout in seconds
	DefaultTimeout = 5.0

	// DefaultRetries matches the pin/tftp client default
	DefaultRetries = 5

	// DefaultBlockSize is the TFTP block size from RFC 1350. Larger values are
	// negotiated with the blksize option.
	DefaultBlockSize = 512

	// DefaultMaxHandles bounds the number of live nodes in the handle arena
	DefaultMaxHandles = 4096

	DefaultLogLvl = util.InfoLevel

	DefaultFsName = "bootfs"
	DefaultName   = "bootfs"

	// DefaultAttrTimeout is the attribute cache timeout in seconds
	DefaultAttrTimeout = 1.0

	// DefaultEntryTimeout is the directory entry cache timeout in seconds
	DefaultEntryTimeout = 1.0

	// DefaultDirectIO bypasses the page cache so every read reaches the server
	DefaultDirectIO = true
)

// Config contains runtime configuration values for the filesystem.
type Config struct {
	MountOptions
	Server     string            // Remote server; host[:port] for tftp, base URL for http
	Transport  string            // Transport name registered in the adapters registry (Default "tftp")
	Timeout    float64           // Remote call timeout in seconds (Default 5)
	Retries    int               // Retransmissions before a tftp transfer fails (Default 5)
	BlockSize  int               // TFTP block size (Default 512)
	Headers    map[string]string // Extra request headers for the http transport
	MaxHandles int               // Maximum number of live nodes (Default 4096)
	LogLvl     util.LogLevel
	// NOTE: Low-level FUSE config (strongly recommend defaults unless you really know what you're doing):

	AttrTimeout  float64 // Attribute cache timeout in seconds (Default 1.0)
	EntryTimeout float64 // Directory entry cache timeout in seconds (Default 1.0)
	DirectIO     bool    // Whether to bypass page cache (Default true)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	Server       *string           `yaml:"server,omitempty" json:"server,omitempty"`
	Transport    *string           `yaml:"transport,omitempty" json:"transport,omitempty"`
	Timeout      *float64          `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Retries      *int              `yaml:"retries,omitempty" json:"retries,omitempty"`
	BlockSize    *int              `yaml:"block_size,omitempty" json:"block_size,omitempty"`
	Headers      map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	MaxHandles   *int              `yaml:"max_handles,omitempty" json:"max_handles,omitempty"`
	LogLvl       *int              `yaml:"log_lvl,omitempty" json:"log_lvl,omitempty"` // verbosity 1 (error) to 5 (trace)
	FsName       *string           `yaml:"fs_name,omitempty" json:"fs_name,omitempty"`
	Name         *string           `yaml:"name,omitempty" json:"name,omitempty"`
	Debug        *bool             `yaml:"debug,omitempty" json:"debug,omitempty"`
	AttrTimeout  *float64          `yaml:"attr_timeout,omitempty" json:"attr_timeout,omitempty"`
	EntryTimeout *float64          `yaml:"entry_timeout,omitempty" json:"entry_timeout,omitempty"`
	DirectIO     *bool             `yaml:"direct_io,omitempty" json:"direct_io,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		MountOptions: MountOptions{
			FsName: DefaultFsName,
			Name:   DefaultName,
		},
		Transport:    DefaultTransport,
		Timeout:      DefaultTimeout,
		Retries:      DefaultRetries,
		BlockSize:    DefaultBlockSize,
		MaxHandles:   DefaultMaxHandles,
		LogLvl:       DefaultLogLvl,
		AttrTimeout:  DefaultAttrTimeout,
		EntryTimeout: DefaultEntryTimeout,
		DirectIO:     DefaultDirectIO,
	}
}

// NewConfig returns the defaults merged with override, which may be nil
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.Server != nil {
		c.Server = *override.Server
	}
	if override.Transport != nil {
		c.Transport = *override.Transport
	}
	if override.Timeout != nil {
		c.Timeout = *override.Timeout
	}
	if override.Retries != nil {
		c.Retries = *override.Retries
	}
	if override.BlockSize != nil {
		c.BlockSize = *override.BlockSize
	}
	if override.Headers != nil {
		c.Headers = override.Headers
	}
	if override.MaxHandles != nil {
		c.MaxHandles = *override.MaxHandles
	}
	if override.LogLvl != nil {
		c.LogLvl = VerboseToLogLevel(*override.LogLvl)
	}
	if override.FsName != nil {
		c.FsName = *override.FsName
	}
	if override.Name != nil {
		c.Name = *override.Name
	}
	if override.Debug != nil {
		c.Debug = *override.Debug
	}
	if override.AttrTimeout != nil {
		c.AttrTimeout = *override.AttrTimeout
	}
	if override.EntryTimeout != nil {
		c.EntryTimeout = *override.EntryTimeout
	}
	if override.DirectIO != nil {
		c.DirectIO = *override.DirectIO
	}
}

// Validate reports settings that would make the filesystem unusable
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server) == "" {
		return fmt.Errorf("server address is required")
	}
	switch c.Transport {
	case TFTPTransport, HTTPTransport:
	default:
		return fmt.Errorf("unknown transport: %q", c.Transport)
	}
	if c.MaxHandles < 1 {
		return fmt.Errorf("max_handles must be positive, got %d", c.MaxHandles)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// TransportOptions returns the subset of the config handed to transport providers
func (c *Config) TransportOptions() bootfs.TransportOptions {
	return bootfs.TransportOptions{
		TimeoutSecs: c.Timeout,
		Retries:     c.Retries,
		BlockSize:   c.BlockSize,
		Headers:     c.Headers,
	}
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewDefaultConfig, LoadConfigOverrideFile, and Merge.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Merge(override)
	return cfg, nil
}
