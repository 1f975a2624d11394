package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultBackend         = "bolt"
	defaultKey             = "polyTasks.todoList"
	defaultTransport       = "none"
	defaultServerAddr      = ":8080"
	defaultShutdownTimeout = 30 * time.Second
	defaultLogLevel        = "info"
	defaultLogMaxSizeMB    = 10
	defaultLogMaxFiles     = 5

	defaultResubscribeAttempts = 10
)

var ErrInvalidConfig = errors.New("invalid config")

var (
	validBackends   = map[string]struct{}{"memory": {}, "bolt": {}, "sqlite": {}, "mysql": {}, "redis": {}}
	validTransports = map[string]struct{}{"none": {}, "local": {}, "redis": {}}
)

type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	Transport TransportConfig `toml:"transport"`
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
}

type StorageConfig struct {
	Backend  string `toml:"backend"`
	Path     string `toml:"path"`
	DSN      string `toml:"dsn"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
	Key      string `toml:"key"`
}

type TransportConfig struct {
	Kind     string `toml:"kind"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Channel  string `toml:"channel"`
	// 间隔为0时沿用指数退避；次数只对固定间隔生效
	ResubscribeInterval time.Duration `toml:"resubscribe_interval"`
	ResubscribeAttempts int           `toml:"resubscribe_attempts"`
}

type ServerConfig struct {
	Addr            string        `toml:"addr"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

type LoadOptions struct {
	ConfigPath string
	Env        map[string]string
	Flags      FlagOverrides
}

type FlagOverrides struct {
	Backend    *string
	Path       *string
	ServerAddr *string
	LogLevel   *string
}

func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Backend: defaultBackend,
			Path:    "",
			Key:     defaultKey,
		},
		Transport: TransportConfig{
			Kind:                defaultTransport,
			ResubscribeAttempts: defaultResubscribeAttempts,
		},
		Server: ServerConfig{
			Addr:            defaultServerAddr,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:     defaultLogLevel,
			MaxSizeMB: defaultLogMaxSizeMB,
			MaxFiles:  defaultLogMaxFiles,
		},
	}
}

func Load(opts LoadOptions) (Config, error) {
	cfg := DefaultConfig()

	configPath, err := resolveConfigPath(opts)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}
	if err := loadAndApplyFile(configPath, &cfg); err != nil {
		return Config{}, err
	}

	if err := applyEnvOverrides(&cfg, opts); err != nil {
		return Config{}, err
	}
	applyFlagOverrides(&cfg, opts.Flags)

	if cfg.Storage.Path == "" && (cfg.Storage.Backend == "bolt" || cfg.Storage.Backend == "sqlite") {
		cfg.Storage.Path, err = defaultDataPath(opts, cfg.Storage.Backend)
		if err != nil {
			return Config{}, err
		}
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type rawConfig struct {
	Storage   *rawStorage   `toml:"storage"`
	Transport *rawTransport `toml:"transport"`
	Server    *rawServer    `toml:"server"`
	Logging   *rawLogging   `toml:"logging"`
}

type rawStorage struct {
	Backend  *string `toml:"backend"`
	Path     *string `toml:"path"`
	DSN      *string `toml:"dsn"`
	Addr     *string `toml:"addr"`
	Password *string `toml:"password"`
	DB       *int    `toml:"db"`
	Prefix   *string `toml:"prefix"`
	Key      *string `toml:"key"`
}

type rawTransport struct {
	Kind                *string `toml:"kind"`
	Addr                *string `toml:"addr"`
	Password            *string `toml:"password"`
	DB                  *int    `toml:"db"`
	Channel             *string `toml:"channel"`
	ResubscribeInterval *string `toml:"resubscribe_interval"`
	ResubscribeAttempts *int    `toml:"resubscribe_attempts"`
}

type rawServer struct {
	Addr            *string `toml:"addr"`
	ShutdownTimeout *string `toml:"shutdown_timeout"`
}

type rawLogging struct {
	Level     *string `toml:"level"`
	File      *string `toml:"file"`
	MaxSizeMB *int    `toml:"max_size_mb"`
	MaxFiles  *int    `toml:"max_files"`
}

func loadAndApplyFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file %q: %w", path, err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: parse TOML file %q: %v", ErrInvalidConfig, path, err)
	}
	return applyRawConfig(cfg, raw)
}

func applyRawConfig(cfg *Config, raw rawConfig) error {
	if raw.Storage != nil {
		setString(raw.Storage.Backend, &cfg.Storage.Backend)
		setString(raw.Storage.Path, &cfg.Storage.Path)
		setString(raw.Storage.DSN, &cfg.Storage.DSN)
		setString(raw.Storage.Addr, &cfg.Storage.Addr)
		setString(raw.Storage.Password, &cfg.Storage.Password)
		setInt(raw.Storage.DB, &cfg.Storage.DB)
		setString(raw.Storage.Prefix, &cfg.Storage.Prefix)
		setString(raw.Storage.Key, &cfg.Storage.Key)
	}

	if raw.Transport != nil {
		setString(raw.Transport.Kind, &cfg.Transport.Kind)
		setString(raw.Transport.Addr, &cfg.Transport.Addr)
		setString(raw.Transport.Password, &cfg.Transport.Password)
		setInt(raw.Transport.DB, &cfg.Transport.DB)
		setString(raw.Transport.Channel, &cfg.Transport.Channel)
		if err := setDuration("transport.resubscribe_interval", raw.Transport.ResubscribeInterval, &cfg.Transport.ResubscribeInterval); err != nil {
			return err
		}
		setInt(raw.Transport.ResubscribeAttempts, &cfg.Transport.ResubscribeAttempts)
	}

	if raw.Server != nil {
		setString(raw.Server.Addr, &cfg.Server.Addr)
		if err := setDuration("server.shutdown_timeout", raw.Server.ShutdownTimeout, &cfg.Server.ShutdownTimeout); err != nil {
			return err
		}
	}

	if raw.Logging != nil {
		setString(raw.Logging.Level, &cfg.Logging.Level)
		setString(raw.Logging.File, &cfg.Logging.File)
		setInt(raw.Logging.MaxSizeMB, &cfg.Logging.MaxSizeMB)
		setInt(raw.Logging.MaxFiles, &cfg.Logging.MaxFiles)
	}
	return nil
}

func applyEnvOverrides(cfg *Config, opts LoadOptions) error {
	if value, ok := lookupEnv(opts, "POLYTASKS_STORAGE_BACKEND"); ok {
		cfg.Storage.Backend = value
	}
	if value, ok := lookupEnv(opts, "POLYTASKS_STORAGE_PATH"); ok {
		cfg.Storage.Path = value
	}
	if value, ok := lookupEnv(opts, "POLYTASKS_STORAGE_DSN"); ok {
		cfg.Storage.DSN = value
	}
	if value, ok := lookupEnv(opts, "POLYTASKS_STORAGE_ADDR"); ok {
		cfg.Storage.Addr = value
	}
	if value, ok := lookupEnv(opts, "POLYTASKS_STORAGE_PASSWORD"); ok {
		cfg.Storage.Password = value
	}
	if value, ok := lookupEnv(opts, "POLYTASKS_STORAGE_DB"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse POLYTASKS_STORAGE_DB: %v", ErrInvalidConfig, err)
		}
		cfg.Storage.DB = parsed
	}
	if value, ok := lookupEnv(opts, "POLYTASKS_STORAGE_PREFIX"); ok {
		cfg.Storage.Prefix = value
	}
	if value, ok := lookupEnv(opts, "POLYTASKS_STORAGE_KEY"); ok {
		cfg.Storage.Key = value
	}

	if value, ok := lookupEnv(opts, "POLYTASKS_TRANSPORT_KIND"); ok {
		cfg.Transport.Kind = value
	}
	if value, ok := lookupEnv(opts, "POLYTASKS_TRANSPORT_ADDR"); ok {
		cfg.Transport.Addr = value
	}
	if value, ok := lookupEnv(opts, "POLYTASKS_TRANSPORT_PASSWORD"); ok {
		cfg.Transport.Password = value
	}
	if value, ok := lookupEnv(opts, "POLYTASKS_TRANSPORT_DB"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse POLYTASKS_TRANSPORT_DB: %v", ErrInvalidConfig, err)
		}
		cfg.Transport.DB = parsed
	}
	if value, ok := lookupEnv(opts, "POLYTASKS_TRANSPORT_CHANNEL"); ok {
		cfg.Transport.Channel = value
	}
	if value, ok := lookupEnv(opts, "POLYTASKS_TRANSPORT_RESUBSCRIBE_INTERVAL"); ok {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: parse POLYTASKS_TRANSPORT_RESUBSCRIBE_INTERVAL: %v", ErrInvalidConfig, err)
		}
		cfg.Transport.ResubscribeInterval = d
	}

	if value, ok := lookupEnv(opts, "POLYTASKS_SERVER_ADDR"); ok {
		cfg.Server.Addr = value
	}
	if value, ok := lookupEnv(opts, "POLYTASKS_SERVER_SHUTDOWN_TIMEOUT"); ok {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: parse POLYTASKS_SERVER_SHUTDOWN_TIMEOUT: %v", ErrInvalidConfig, err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	if value, ok := lookupEnv(opts, "POLYTASKS_LOG_LEVEL"); ok {
		cfg.Logging.Level = value
	}
	if value, ok := lookupEnv(opts, "POLYTASKS_LOG_FILE"); ok {
		cfg.Logging.File = value
	}
	return nil
}

func applyFlagOverrides(cfg *Config, flags FlagOverrides) {
	setString(flags.Backend, &cfg.Storage.Backend)
	setString(flags.Path, &cfg.Storage.Path)
	setString(flags.ServerAddr, &cfg.Server.Addr)
	setString(flags.LogLevel, &cfg.Logging.Level)
}

func validate(cfg Config) error {
	if _, ok := validBackends[cfg.Storage.Backend]; !ok {
		return fmt.Errorf("%w: storage.backend %q is not supported", ErrInvalidConfig, cfg.Storage.Backend)
	}
	if cfg.Storage.Key == "" {
		return fmt.Errorf("%w: storage.key must not be empty", ErrInvalidConfig)
	}
	switch cfg.Storage.Backend {
	case "mysql":
		if cfg.Storage.DSN == "" {
			return fmt.Errorf("%w: storage.dsn is required for mysql", ErrInvalidConfig)
		}
	case "redis":
		if cfg.Storage.Addr == "" {
			return fmt.Errorf("%w: storage.addr is required for redis", ErrInvalidConfig)
		}
	}

	if _, ok := validTransports[cfg.Transport.Kind]; !ok {
		return fmt.Errorf("%w: transport.kind %q is not supported", ErrInvalidConfig, cfg.Transport.Kind)
	}
	if cfg.Transport.Kind == "redis" && cfg.Transport.Addr == "" {
		return fmt.Errorf("%w: transport.addr is required for redis", ErrInvalidConfig)
	}
	if cfg.Transport.ResubscribeInterval < 0 {
		return fmt.Errorf("%w: transport.resubscribe_interval must be >= 0", ErrInvalidConfig)
	}
	if cfg.Transport.ResubscribeAttempts <= 0 {
		return fmt.Errorf("%w: transport.resubscribe_attempts must be > 0", ErrInvalidConfig)
	}

	if cfg.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: server.shutdown_timeout must be > 0", ErrInvalidConfig)
	}
	return nil
}

func setDuration(field string, raw *string, target *time.Duration) error {
	if raw == nil {
		return nil
	}
	d, err := time.ParseDuration(*raw)
	if err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, field, err)
	}
	*target = d
	return nil
}

func setString(raw *string, target *string) {
	if raw == nil {
		return
	}
	*target = *raw
}

func setInt(raw *int, target *int) {
	if raw == nil {
		return
	}
	*target = *raw
}

func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigPath != "" {
		return opts.ConfigPath, nil
	}
	if value, ok := lookupEnv(opts, "POLYTASKS_CONFIG_PATH"); ok {
		return value, nil
	}
	home, err := polytasksHome(opts)
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config.toml"), nil
}

func defaultDataPath(opts LoadOptions, backend string) (string, error) {
	home, err := polytasksHome(opts)
	if err != nil {
		return "", fmt.Errorf("resolve data path: %w", err)
	}
	return filepath.Join(home, "tasks."+backend+".db"), nil
}

func polytasksHome(opts LoadOptions) (string, error) {
	if value, ok := lookupEnv(opts, "POLYTASKS_HOME"); ok {
		return value, nil
	}
	if value, ok := lookupEnv(opts, "XDG_CONFIG_HOME"); ok {
		return filepath.Join(value, "polytasks"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "polytasks"), nil
}

func lookupEnv(opts LoadOptions, key string) (string, bool) {
	if opts.Env != nil {
		value, ok := opts.Env[key]
		return value, ok
	}
	return os.LookupEnv(key)
}
