package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/brettbedarf/daapfs"
	"github.com/brettbedarf/daapfs/internal/util"
)

// CLI verbosity values accepted by [ConfigOverride.LogLvl]
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// View names leased below the root. Each names a first-level directory.
const (
	HostsView   = "hosts"
	ArtistsView = "artists"
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultFsName = "daapfs"
	DefaultName   = "daapfs"
	DefaultLogLvl = util.InfoLevel

	DefaultServiceType = daapfs.DefaultServiceType
	DefaultDomain      = daapfs.DefaultDomain
	DefaultCatalogType = "http"
	DefaultCatalogPort = daapfs.DefaultCatalogPort

	// DefaultResolveTimeout bounds a single zeroconf address resolution
	DefaultResolveTimeout = 3 * time.Second
	// DefaultConnectTimeout bounds connect + authenticate + track listing
	DefaultConnectTimeout = 10 * time.Second

	DefaultBrowseInterval = 15 * time.Second
	DefaultBrowseWindow   = 5 * time.Second
	// DefaultMissedBrowses is how many consecutive browse rounds a host may
	// be absent from before it is considered withdrawn
	DefaultMissedBrowses = 2

	DefaultCharset = "utf-8"

	// DefaultAttrTimeout is the attribute cache timeout in seconds
	DefaultAttrTimeout = 1.0

	// DefaultEntryTimeout is the directory entry cache timeout in seconds
	DefaultEntryTimeout = 1.0

	// DefaultDirectIO determines whether to bypass page cache for remote tracks
	DefaultDirectIO = true
)

// DefaultViews returns the views mounted when none are configured
func DefaultViews() []string {
	return []string{HostsView, ArtistsView}
}

// Config contains runtime configuration values for the filesystem.
type Config struct {
	MountOptions
	LogLvl util.LogLevel // Internal log level (Default info)

	ServiceType     string        // zeroconf service type browsed for (Default "_daap._tcp")
	Domain          string        // zeroconf domain (Default "local.")
	CatalogType     string        // Registered catalog adapter used to dial hosts (Default "http")
	CatalogPort     int           // Fixed port catalogs are dialed on (Default 3689)
	CatalogPassword string        // Optional password sent when authenticating
	ResolveTimeout  time.Duration // Per announcement address resolution bound (Default 3s)
	ConnectTimeout  time.Duration // Connect, login and track listing bound (Default 10s)
	BrowseInterval  time.Duration // Time between zeroconf browse rounds (Default 15s)
	BrowseWindow    time.Duration // How long each browse round listens (Default 5s)
	MissedBrowses   int           // Rounds a host may be missing before withdrawal (Default 2)
	Charset         string        // Charset file names must be representable in (Default "utf-8")
	Views           []string      // Views to mount (Default hosts, artists)
	StaticHosts     []StaticHost  // Hosts announced without zeroconf
	MetricsAddr     string        // Prometheus listen address; empty disables

	// NOTE: Low-level FUSE config (strongly recommend defaults unless you really know what you're doing):

	AttrTimeout  float64 // Attribute cache timeout in seconds (Default 1.0)
	EntryTimeout float64 // Directory entry cache timeout in seconds (Default 1.0)
	DirectIO     bool    // Whether to bypass page cache for remote tracks (Default true)
}

// StaticHost is a catalog host known ahead of time
type StaticHost struct {
	Name    string `yaml:"name" json:"name" toml:"name"`
	Address string `yaml:"address" json:"address" toml:"address"`
}

// ServiceName returns the full discovery instance name for the host, i.e.
// "cool music._daap._tcp.local."
func (c *Config) ServiceName(instance string) string {
	return instance + "." + c.ServiceSuffix()
}

// ServiceSuffix returns the service type qualified with its domain, i.e. "_daap._tcp.local."
func (c *Config) ServiceSuffix() string {
	return strings.TrimSuffix(c.ServiceType, ".") + "." + c.Domain
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
// Durations are expressed in seconds.
type ConfigOverride struct {
	FsName          *string      `yaml:"fs_name,omitempty" json:"fs_name,omitempty" toml:"fs_name,omitempty"`
	Name            *string      `yaml:"name,omitempty" json:"name,omitempty" toml:"name,omitempty"`
	Debug           *bool        `yaml:"debug,omitempty" json:"debug,omitempty" toml:"debug,omitempty"`
	AllowOther      *bool        `yaml:"allow_other,omitempty" json:"allow_other,omitempty" toml:"allow_other,omitempty"`
	LogLvl          *int         `yaml:"verbose,omitempty" json:"verbose,omitempty" toml:"verbose,omitempty"`
	ServiceType     *string      `yaml:"service_type,omitempty" json:"service_type,omitempty" toml:"service_type,omitempty"`
	Domain          *string      `yaml:"domain,omitempty" json:"domain,omitempty" toml:"domain,omitempty"`
	CatalogType     *string      `yaml:"catalog_type,omitempty" json:"catalog_type,omitempty" toml:"catalog_type,omitempty"`
	CatalogPort     *int         `yaml:"catalog_port,omitempty" json:"catalog_port,omitempty" toml:"catalog_port,omitempty"`
	CatalogPassword *string      `yaml:"catalog_password,omitempty" json:"catalog_password,omitempty" toml:"catalog_password,omitempty"`
	ResolveTimeout  *float64     `yaml:"resolve_timeout,omitempty" json:"resolve_timeout,omitempty" toml:"resolve_timeout,omitempty"`
	ConnectTimeout  *float64     `yaml:"connect_timeout,omitempty" json:"connect_timeout,omitempty" toml:"connect_timeout,omitempty"`
	BrowseInterval  *float64     `yaml:"browse_interval,omitempty" json:"browse_interval,omitempty" toml:"browse_interval,omitempty"`
	BrowseWindow    *float64     `yaml:"browse_window,omitempty" json:"browse_window,omitempty" toml:"browse_window,omitempty"`
	MissedBrowses   *int         `yaml:"missed_browses,omitempty" json:"missed_browses,omitempty" toml:"missed_browses,omitempty"`
	Charset         *string      `yaml:"charset,omitempty" json:"charset,omitempty" toml:"charset,omitempty"`
	Views           []string     `yaml:"views,omitempty" json:"views,omitempty" toml:"views,omitempty"`
	StaticHosts     []StaticHost `yaml:"static_hosts,omitempty" json:"static_hosts,omitempty" toml:"static_hosts,omitempty"`
	MetricsAddr     *string      `yaml:"metrics_addr,omitempty" json:"metrics_addr,omitempty" toml:"metrics_addr,omitempty"`
	AttrTimeout     *float64     `yaml:"attr_timeout,omitempty" json:"attr_timeout,omitempty" toml:"attr_timeout,omitempty"`
	EntryTimeout    *float64     `yaml:"entry_timeout,omitempty" json:"entry_timeout,omitempty" toml:"entry_timeout,omitempty"`
	DirectIO        *bool        `yaml:"direct_io,omitempty" json:"direct_io,omitempty" toml:"direct_io,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
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

// NewConfig returns the default config with override applied. A nil
// override yields the defaults.
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
	if override.FsName != nil {
		c.FsName = *override.FsName
	}
	if override.Name != nil {
		c.Name = *override.Name
	}
	if override.Debug != nil {
		c.Debug = *override.Debug
	}
	if override.AllowOther != nil {
		c.AllowOther = *override.AllowOther
	}
	if override.LogLvl != nil {
		c.LogLvl = verboseToLevel(*override.LogLvl)
	}
	if override.ServiceType != nil {
		c.ServiceType = *override.ServiceType
	}
	if override.Domain != nil {
		c.Domain = *override.Domain
	}
	if override.CatalogType != nil {
		c.CatalogType = *override.CatalogType
	}
	if override.CatalogPort != nil {
		c.CatalogPort = *override.CatalogPort
	}
	if override.CatalogPassword != nil {
		c.CatalogPassword = *override.CatalogPassword
	}
	if override.ResolveTimeout != nil {
		c.ResolveTimeout = util.Seconds(*override.ResolveTimeout)
	}
	if override.ConnectTimeout != nil {
		c.ConnectTimeout = util.Seconds(*override.ConnectTimeout)
	}
	if override.BrowseInterval != nil {
		c.BrowseInterval = util.Seconds(*override.BrowseInterval)
	}
	if override.BrowseWindow != nil {
		c.BrowseWindow = util.Seconds(*override.BrowseWindow)
	}
	if override.MissedBrowses != nil {
		c.MissedBrowses = *override.MissedBrowses
	}
	if override.Charset != nil {
		c.Charset = *override.Charset
	}
	if override.Views != nil {
		c.Views = append([]string(nil), override.Views...)
	}
	if override.StaticHosts != nil {
		c.StaticHosts = append(c.StaticHosts, override.StaticHosts...)
	}
	if override.MetricsAddr != nil {
		c.MetricsAddr = *override.MetricsAddr
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

// verboseToLevel maps CLI verbosity 1 (error) .. 5 (trace) to a [util.LogLevel],
// clamping out of range values
func verboseToLevel(verbose int) util.LogLevel {
	verbose = max(ErrorVerbose, min(TraceVerbose, verbose))
	lvls := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
	return lvls[verbose-1]
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports YAML (.yaml, .yml), JSON (.json) and TOML (.toml) formats.
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
	case ".toml":
		if err := toml.Unmarshal(data, &override); err != nil {
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
