package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/brettbedarf/memfs/internal/util"
)

// EnvPrefix is prepended to every environment override, e.g. MEMFS_SNAPSHOT_PATH
const EnvPrefix = "MEMFS"

// Verbosity levels as exposed to users (CLI flag, config files, env).
// Higher is noisier.
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultFsName       = "memfs"
	DefaultName         = "memfs"
	DefaultLogLvl       = util.InfoLevel
	DefaultSnapshotPath = "file_system_state.json"
	DefaultClobber      = true
	DefaultListenAddr   = ":8000"
	DefaultWatch        = false
)

// Config contains runtime configuration values for the namespace and its front-ends.
type Config struct {
	MountOptions               // Read-only FUSE view settings
	LogLvl       util.LogLevel // Internal log level (Default info)
	SnapshotPath string        // Snapshot file; extension selects the format (Default file_system_state.json)
	// Clobber lets mv/cp silently replace a same-named entry at the destination.
	// When false those operations fail with ErrAlreadyExists instead (Default true)
	Clobber    bool
	ListenAddr string // HTTP api listen address (Default :8000)
	Watch      bool   // Reload the snapshot when another process rewrites it (Default false)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	FsName       *string `yaml:"fs_name,omitempty" json:"fs_name,omitempty" envconfig:"FS_NAME"`
	Name         *string `yaml:"name,omitempty" json:"name,omitempty" envconfig:"NAME"`
	Debug        *bool   `yaml:"debug,omitempty" json:"debug,omitempty" envconfig:"DEBUG"`
	LogLvl       *int    `yaml:"verbose,omitempty" json:"verbose,omitempty" envconfig:"VERBOSE"` // 1 (error) .. 5 (trace)
	SnapshotPath *string `yaml:"snapshot_path,omitempty" json:"snapshot_path,omitempty" envconfig:"SNAPSHOT_PATH"`
	Clobber      *bool   `yaml:"clobber,omitempty" json:"clobber,omitempty" envconfig:"CLOBBER"`
	ListenAddr   *string `yaml:"listen_addr,omitempty" json:"listen_addr,omitempty" envconfig:"LISTEN_ADDR"`
	Watch        *bool   `yaml:"watch,omitempty" json:"watch,omitempty" envconfig:"WATCH"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		MountOptions: MountOptions{
			FsName: DefaultFsName,
			Name:   DefaultName,
		},
		LogLvl:       DefaultLogLvl,
		SnapshotPath: DefaultSnapshotPath,
		Clobber:      DefaultClobber,
		ListenAddr:   DefaultListenAddr,
		Watch:        DefaultWatch,
	}
}

// NewConfig returns the defaults with override applied; override may be nil
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
	if override.LogLvl != nil {
		c.LogLvl = VerbosityToLogLevel(*override.LogLvl)
	}
	if override.SnapshotPath != nil {
		c.SnapshotPath = *override.SnapshotPath
	}
	if override.Clobber != nil {
		c.Clobber = *override.Clobber
	}
	if override.ListenAddr != nil {
		c.ListenAddr = *override.ListenAddr
	}
	if override.Watch != nil {
		c.Watch = *override.Watch
	}
}

// VerbosityToLogLevel maps a user facing verbosity (clamped to 1..5) to [util.LogLevel]
func VerbosityToLogLevel(verbose int) util.LogLevel {
	verbose = max(ErrorVerbose, min(verbose, TraceVerbose))
	logLvls := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
	return logLvls[verbose-1]
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

// LoadEnvOverride reads MEMFS_* environment variables into a ConfigOverride.
// Unset variables stay nil.
func LoadEnvOverride() (*ConfigOverride, error) {
	var override ConfigOverride
	if err := envconfig.Process(EnvPrefix, &override); err != nil {
		return nil, fmt.Errorf("failed to load env config: %w", err)
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

// Load builds the effective Config: defaults, then the optional file at path,
// then MEMFS_* env vars, then flags (may be nil).
func Load(path string, flags *ConfigOverride) (*Config, error) {
	cfg := NewDefaultConfig()
	if path != "" {
		override, err := LoadConfigOverrideFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Merge(override)
	}
	env, err := LoadEnvOverride()
	if err != nil {
		return nil, err
	}
	cfg.Merge(env)
	if flags != nil {
		cfg.Merge(flags)
	}
	return cfg, nil
}
