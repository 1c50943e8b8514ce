package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/brettbedarf/daapfs/internal/util"
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

// TestNewConfig_WithAllOverride tests that NewConfig properly applies every override
func TestNewConfig_WithAllOverride(t *testing.T) {
	t.Parallel()

	override := createOverride()
	// hack for bad log verbosity vs internal log level pattern
	override.LogLvl = util.Pointer(TraceVerbose)
	cfg := NewConfig(override)

	expCfg := &Config{
		MountOptions: MountOptions{
			Debug:      true,
			FsName:     "test_fs",
			Name:       "test_name",
			AllowOther: true,
		},
		LogLvl:          util.TraceLevel,
		ServiceType:     "_test._tcp",
		Domain:          "example.",
		CatalogType:     "test",
		CatalogPort:     8080,
		CatalogPassword: "secret",
		ResolveTimeout:  500 * time.Millisecond,
		ConnectTimeout:  2 * time.Second,
		BrowseInterval:  30 * time.Second,
		BrowseWindow:    time.Second,
		MissedBrowses:   DefaultMissedBrowses + 1,
		Charset:         "ascii",
		Views:           []string{HostsView},
		StaticHosts:     []StaticHost{{Name: "den", Address: "10.0.0.2"}},
		MetricsAddr:     ":9100",
		AttrTimeout:     *override.AttrTimeout,
		EntryTimeout:    *override.EntryTimeout,
		DirectIO:        *override.DirectIO,
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
		{"verbose_0_clamped_to_1", 0, util.ErrorLevel},     // clamped to 1
		{"verbose_100_clamped_to_5", 100, util.TraceLevel}, // clamped to 5
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

func TestConfig_Merge_NilOverrideVals(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(&ConfigOverride{})

	require.NotNil(t, cfg)
	assert.Equal(t, createDefaultCfg(), cfg, "must use default values for nil override fields")
}

func TestConfig_Merge_PartialOverride(t *testing.T) {
	t.Parallel()

	override := &ConfigOverride{
		FsName:      util.Pointer("test_fs"),
		CatalogPort: util.Pointer(DefaultCatalogPort + 1),
	}
	cfg := NewConfig(override)

	expCfg := createDefaultCfg()
	expCfg.FsName = "test_fs"
	expCfg.CatalogPort = DefaultCatalogPort + 1

	require.NotNil(t, cfg)
	assert.Equal(t, expCfg, cfg, "must override all provided fields and leave rest default")
}

func TestConfig_Merge_StaticHostsAccumulate(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(&ConfigOverride{StaticHosts: []StaticHost{{Name: "a", Address: "10.0.0.1"}}})
	cfg.Merge(&ConfigOverride{StaticHosts: []StaticHost{{Name: "b", Address: "10.0.0.2"}}})

	assert.Equal(t, []StaticHost{
		{Name: "a", Address: "10.0.0.1"},
		{Name: "b", Address: "10.0.0.2"},
	}, cfg.StaticHosts)
}

func TestConfig_ServiceName(t *testing.T) {
	t.Parallel()

	cfg := NewDefaultConfig()
	assert.Equal(t, "_daap._tcp.local.", cfg.ServiceSuffix())
	assert.Equal(t, "cool music._daap._tcp.local.", cfg.ServiceName("cool music"))

	cfg.ServiceType = "_daap._tcp."
	assert.Equal(t, "_daap._tcp.local.", cfg.ServiceSuffix(), "trailing dot on the type must not double up")
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
		{
			ext: ".toml",
			build: func() (*ConfigOverride, []byte) {
				o := createOverride()
				var buf bytes.Buffer
				require.NoError(t, toml.NewEncoder(&buf).Encode(o))
				return o, buf.Bytes()
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

// TestLoadConfigOverrideFile_NonExistentFile tests error handling
// when trying to load a file that doesn't exist.
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
	require.NoError(t, os.WriteFile(path, []byte("catalog_port: 1"), 0o600))

	_, err := LoadConfigOverrideFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config file extension")
}

func TestLoadConfigOverrideFile_Malformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "override.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadConfigOverrideFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal config file")
}

// TestNewConfigFromFile_FileError tests that file loading errors
// are properly propagated by the convenience function.
func TestNewConfigFromFile_FileError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing.json")

	_, err := NewConfigFromFile(path)
	require.Error(t, err)
}

func TestNewConfigFromFile_YAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "daapfs.yaml")
	data := []byte("catalog_port: 3690\nresolve_timeout: 1.5\nstatic_hosts:\n  - name: den\n    address: 10.0.0.2\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := NewConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 3690, cfg.CatalogPort)
	assert.Equal(t, 1500*time.Millisecond, cfg.ResolveTimeout)
	assert.Equal(t, []StaticHost{{Name: "den", Address: "10.0.0.2"}}, cfg.StaticHosts)
	assert.Equal(t, DefaultViews(), cfg.Views)
}

func createDefaultCfg() *Config {
	return &Config{
		MountOptions: MountOptions{
			FsName: DefaultFsName,
			Name:   DefaultName,
		},
		LogLvl:         DefaultLogLvl,
		ServiceType:    DefaultServiceType,
		Domain:         DefaultDomain,
		CatalogType:    DefaultCatalogType,
		CatalogPort:    DefaultCatalogPort,
		ResolveTimeout: DefaultResolveTimeout,
		ConnectTimeout: DefaultConnectTimeout,
		BrowseInterval: DefaultBrowseInterval,
		BrowseWindow:   DefaultBrowseWindow,
		MissedBrowses:  DefaultMissedBrowses,
		Charset:        DefaultCharset,
		Views:          DefaultViews(),
		AttrTimeout:    DefaultAttrTimeout,
		EntryTimeout:   DefaultEntryTimeout,
		DirectIO:       DefaultDirectIO,
	}
}

// createOverride makes a ConfigOverride with all non-default values
func createOverride() *ConfigOverride {
	testLogVerbose := TraceVerbose
	if DefaultLogLvl == util.TraceLevel {
		testLogVerbose = DebugVerbose
	}
	return &ConfigOverride{
		FsName:          util.Pointer("test_fs"),
		Name:            util.Pointer("test_name"),
		Debug:           util.Pointer(true),
		AllowOther:      util.Pointer(true),
		LogLvl:          util.Pointer(testLogVerbose),
		ServiceType:     util.Pointer("_test._tcp"),
		Domain:          util.Pointer("example."),
		CatalogType:     util.Pointer("test"),
		CatalogPort:     util.Pointer(8080),
		CatalogPassword: util.Pointer("secret"),
		ResolveTimeout:  util.Pointer(0.5),
		ConnectTimeout:  util.Pointer(2.0),
		BrowseInterval:  util.Pointer(30.0),
		BrowseWindow:    util.Pointer(1.0),
		MissedBrowses:   util.Pointer(DefaultMissedBrowses + 1),
		Charset:         util.Pointer("ascii"),
		Views:           []string{HostsView},
		StaticHosts:     []StaticHost{{Name: "den", Address: "10.0.0.2"}},
		MetricsAddr:     util.Pointer(":9100"),
		AttrTimeout:     util.Pointer(float64(DefaultAttrTimeout + 1)),
		EntryTimeout:    util.Pointer(float64(DefaultEntryTimeout + 1)),
		DirectIO:        util.Pointer(!DefaultDirectIO),
	}
}
