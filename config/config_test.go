package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/brettbedarf/bootfs/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestNewConfig_WithNilOverride tests that NewConfig creates a config with all default values
// when no override is provided.
func TestNewConfig_WithNilOverride(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(nil)

	require.NotNil(t, cfg)
	assert.Equal(t, createDefaultCfg(), cfg, "must use default values when no config provided")
}

// TestNewConfig_WithAllOverride tests that NewConfig properly applies every override.
func TestNewConfig_WithAllOverride(t *testing.T) {
	t.Parallel()

	override := createOverride()
	override.LogLvl = util.Pointer(TraceVerbose)
	cfg := NewConfig(override)

	expCfg := &Config{
		MountOptions: MountOptions{
			Debug:  true,
			FsName: "test_fs",
			Name:   "test_name",
		},
		Server:       *override.Server,
		Transport:    *override.Transport,
		Timeout:      *override.Timeout,
		Retries:      *override.Retries,
		BlockSize:    *override.BlockSize,
		Headers:      override.Headers,
		MaxHandles:   *override.MaxHandles,
		LogLvl:       util.TraceLevel,
		AttrTimeout:  *override.AttrTimeout,
		EntryTimeout: *override.EntryTimeout,
		DirectIO:     *override.DirectIO,
	}
	require.NotNil(t, cfg)
	assert.Equal(t, expCfg, cfg, "must override all provided fields")
}

func TestConfig_Merge_LogLvlConversion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		verboseValue  int
		expectedLevel util.LogLevel
	}{
		{"verbose_1_error", 1, util.ErrorLevel},
		{"verbose_2_warn", 2, util.WarnLevel},
		{"verbose_3_info", 3, util.InfoLevel},
		{"verbose_4_debug", 4, util.DebugLevel},
		{"verbose_5_trace", 5, util.TraceLevel},
		{"verbose_0_clamped_to_1", 0, util.ErrorLevel},
		{"verbose_100_clamped_to_5", 100, util.TraceLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			override := &ConfigOverride{
				LogLvl: &tt.verboseValue,
			}

			cfg := NewConfig(override)

			assert.Equal(t, tt.expectedLevel, cfg.LogLvl,
				"CLI verbose %d should map to util.LogLevel %v", tt.verboseValue, tt.expectedLevel)
		})
	}
}

func TestConfig_Merge_PartialOverride(t *testing.T) {
	t.Parallel()

	override := &ConfigOverride{
		Server:     util.Pointer("10.0.0.1:69"),
		MaxHandles: util.Pointer(DefaultMaxHandles + 1),
	}
	cfg := NewConfig(override)

	expCfg := createDefaultCfg()
	expCfg.Server = "10.0.0.1:69"
	expCfg.MaxHandles = DefaultMaxHandles + 1

	require.NotNil(t, cfg)
	assert.Equal(t, expCfg, cfg, "must override all provided fields and leave rest default")
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid tftp", func(c *Config) {}, ""},
		{"valid http", func(c *Config) { c.Transport = HTTPTransport; c.Server = "http://boot.lan" }, ""},
		{"missing server", func(c *Config) { c.Server = " " }, "server address is required"},
		{"unknown transport", func(c *Config) { c.Transport = "nfs" }, "unknown transport"},
		{"zero handles", func(c *Config) { c.MaxHandles = 0 }, "max_handles"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()
			cfg := NewDefaultConfig()
			cfg.Server = "127.0.0.1:69"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_TransportOptions(t *testing.T) {
	t.Parallel()

	cfg := NewDefaultConfig()
	cfg.Headers = map[string]string{"X-Boot": "1"}

	opts := cfg.TransportOptions()

	assert.Equal(t, DefaultTimeout, opts.TimeoutSecs)
	assert.Equal(t, DefaultRetries, opts.Retries)
	assert.Equal(t, DefaultBlockSize, opts.BlockSize)
	assert.Equal(t, cfg.Headers, opts.Headers)
}

func TestLoadConfigOverrideFile_Valid(t *testing.T) {
	t.Parallel()

	type tc struct {
		ext   string
		build func() (*ConfigOverride, []byte)
	}

	cases := []tc{
		{
			ext: ".yaml",
			build: func() (*ConfigOverride, []byte) {
				o := createOverride()
				b, err := yaml.Marshal(o)
				require.NoError(t, err)
				return o, b
			},
		},
		{
			ext: ".yml",
			build: func() (*ConfigOverride, []byte) {
				o := createOverride()
				b, err := yaml.Marshal(o)
				require.NoError(t, err)
				return o, b
			},
		},
		{
			ext: ".json",
			build: func() (*ConfigOverride, []byte) {
				o := createOverride()
				b, err := json.Marshal(o)
				require.NoError(t, err)
				return o, b
			},
		},
	}

	for _, c := range cases {
		name := "valid" + c.ext
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			override, data := c.build()
			dir := t.TempDir()
			path := filepath.Join(dir, "override"+c.ext)
			require.NoError(t, os.WriteFile(path, data, 0o600))

			loaded, err := LoadConfigOverrideFile(path)

			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, *override, *loaded)
		})
	}
}

func TestLoadConfigOverrideFile_NonExistentFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "does_not_exist.yaml")

	_, err := LoadConfigOverrideFile(path)
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err), "expected not exist error, got %v", err)
}

// TestLoadConfigOverrideFile_UnsupportedExtension tests error handling
// for file extensions that aren't supported (.txt, .xml, etc).
func TestLoadConfigOverrideFile_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "override.txt")
	require.NoError(t, os.WriteFile(path, []byte("server: 10.0.0.1"), 0o600))

	_, err := LoadConfigOverrideFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config file extension")
}

func TestNewConfigFromFile(t *testing.T) {
	t.Parallel()

	t.Run("merges yaml over defaults", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "bootfs.yaml")
		data := []byte("server: 192.168.1.10:69\nblock_size: 1468\n")
		require.NoError(t, os.WriteFile(path, data, 0o600))

		cfg, err := NewConfigFromFile(path)
		require.NoError(t, err)

		exp := createDefaultCfg()
		exp.Server = "192.168.1.10:69"
		exp.BlockSize = 1468
		assert.Equal(t, exp, cfg)
	})

	t.Run("file error", func(t *testing.T) {
		t.Parallel()
		_, err := NewConfigFromFile(filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
	})
}

func createDefaultCfg() *Config {
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

// createOverride makes a ConfigOverride with all non-default values
func createOverride() *ConfigOverride {
	testLogVerbose := TraceVerbose
	if DefaultLogLvl == util.TraceLevel {
		testLogVerbose = DebugVerbose
	}
	return &ConfigOverride{
		Server:       util.Pointer("http://boot.lan/images"),
		Transport:    util.Pointer(HTTPTransport),
		Timeout:      util.Pointer(DefaultTimeout + 1),
		Retries:      util.Pointer(DefaultRetries + 1),
		BlockSize:    util.Pointer(DefaultBlockSize * 2),
		Headers:      map[string]string{"Authorization": "Bearer token"},
		MaxHandles:   util.Pointer(DefaultMaxHandles + 1),
		LogLvl:       util.Pointer(testLogVerbose),
		FsName:       util.Pointer("test_fs"),
		Name:         util.Pointer("test_name"),
		Debug:        util.Pointer(true),
		AttrTimeout:  util.Pointer(float64(DefaultAttrTimeout + 1)),
		EntryTimeout: util.Pointer(float64(DefaultEntryTimeout + 1)),
		DirectIO:     util.Pointer(!DefaultDirectIO),
	}
}
