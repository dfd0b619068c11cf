package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultConfigPath is the default path to the config file.
	DefaultConfigPath = "~/.pyre/config.yaml"

	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "PYRE_"
)

// Config holds all configuration for pyre.
type Config struct {
	Paths     PathsConfig     `koanf:"paths"`
	Engine    EngineConfig    `koanf:"engine"`
	Compiler  CompilerConfig  `koanf:"compiler"`
	Installer InstallerConfig `koanf:"installer"`
}

// PathsConfig locates everything pyre persists on disk.
type PathsConfig struct {
	// DataDir is the root for all pyre state.
	DataDir string `koanf:"data_dir"`

	// FunctionsDir holds uploaded source files.
	FunctionsDir string `koanf:"functions_dir"`

	// CompiledDir holds compiled TypeScript output.
	CompiledDir string `koanf:"compiled_dir"`

	// DepsDir holds per-function dependency directories.
	DepsDir string `koanf:"deps_dir"`

	// EnvDir holds per-function <name>.env files.
	EnvDir string `koanf:"env_dir"`

	// SchedulesFile is the persisted schedule list.
	SchedulesFile string `koanf:"schedules_file"`
}

// EngineConfig holds execution engine settings.
type EngineConfig struct {
	// Wall-clock limit for one invocation.
	DefaultTimeout time.Duration `koanf:"default_timeout"`

	// Node binary used to run functions.
	NodeBinary string `koanf:"node_binary"`

	// Capacity of the per-function invocation log ring buffer.
	LogStoreCapacity int `koanf:"log_store_capacity"`
}

// CompilerConfig holds the TypeScript toolchain settings.
type CompilerConfig struct {
	Command string   `koanf:"command"`
	Args    []string `koanf:"args"`
}

// InstallerConfig holds the package manager settings.
type InstallerConfig struct {
	Command string   `koanf:"command"`
	Args    []string `koanf:"args"`
}

// DefaultConfig returns a configuration with sensible defaults rooted
// at ~/.pyre.
func DefaultConfig() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	dataDir := filepath.Join(homeDir, ".pyre")

	return &Config{
		Paths: PathsConfig{
			DataDir:       dataDir,
			FunctionsDir:  filepath.Join(dataDir, "functions"),
			CompiledDir:   filepath.Join(dataDir, "compiled"),
			DepsDir:       filepath.Join(dataDir, "deps"),
			EnvDir:        filepath.Join(dataDir, "env"),
			SchedulesFile: filepath.Join(dataDir, "schedules.json"),
		},
		Engine: EngineConfig{
			DefaultTimeout:   30 * time.Second,
			NodeBinary:       "node",
			LogStoreCapacity: 1000,
		},
		Compiler: CompilerConfig{
			Command: "tsc",
			Args:    []string{"--target", "es2020", "--module", "commonjs"},
		},
		Installer: InstallerConfig{
			Command: "npm",
			Args:    []string{"install", "--no-audit", "--no-fund"},
		},
	}
}

// LoadConfig loads configuration from defaults, then the config file
// at configPath (if it exists), then PYRE_-prefixed environment
// variables. Later layers override earlier ones.
func LoadConfig(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(newStructProvider(DefaultConfig()), nil); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	expandedPath := ExpandPath(configPath)
	if _, err := os.Stat(expandedPath); err == nil {
		if err := k.Load(file.Provider(expandedPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var config Config
	if err := k.UnmarshalWithConf("", &config, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result: &config,
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// ExpandPath expands a leading ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if homeDir, err := os.UserHomeDir(); err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}

// structProvider loads configuration defaults from a struct.
type structProvider struct {
	cfg interface{}
}

func newStructProvider(cfg interface{}) *structProvider {
	return &structProvider{cfg: cfg}
}

func (s *structProvider) Read() (map[string]interface{}, error) {
	var out map[string]interface{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &out,
		TagName: "koanf",
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(s.cfg); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *structProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("ReadBytes not supported for struct provider")
}
