package types

import (
	"time"
)

type ConfigManager interface {
	Load() error
	GetConfig() *ServiceConfig
	GetValue(path string, defaultValue interface{}) interface{}
	GetAs(path string, target interface{}) error
}

type ServiceConfig struct {
	Name        string             `yaml:"name" json:"name" env:"NAME" validate:"required"`
	Version     string             `yaml:"version" json:"version" env:"VERSION" validate:"required"`
	Server      *ServerConfig      `yaml:"server" json:"server" envPrefix:"SERVER_" validate:"required"`
	Logger      *LoggerConfig      `yaml:"logger" json:"logger" envPrefix:"LOGGER_" validate:"required"`
	Storage     *StorageConfig     `yaml:"storage" json:"storage" envPrefix:"STORAGE_" validate:"required"`
	Cache       *CacheConfig       `yaml:"cache" json:"cache" envPrefix:"CACHE_" validate:"required"`
	Coordinator *CoordinatorConfig `yaml:"coordinator" json:"coordinator" envPrefix:"COORDINATOR_" validate:"required"`
	Hash        *HashConfig        `yaml:"hash" json:"hash" envPrefix:"HASH_" validate:"required"`
	Metrics     *MetricsConfig     `yaml:"metrics" json:"metrics" envPrefix:"METRICS_" validate:"required"`
	Cron        *CronConfig        `yaml:"cron" json:"cron" envPrefix:"CRON_" validate:"required"`
	Health      *HealthConfig      `yaml:"health" json:"health" envPrefix:"HEALTH_" validate:"required"`
}

type ServerConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled" env:"ENABLED"`
	Host         string        `yaml:"host" json:"host" env:"HOST"`
	Port         int           `yaml:"port" json:"port" env:"PORT" validate:"min=0,max=65535"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout" env:"WRITE_TIMEOUT"`
}

type LoggerConfig struct {
	Type   string      `yaml:"type" json:"type" env:"TYPE"`
	Level  string      `yaml:"level" json:"level" env:"LEVEL" validate:"required"`
	Config interface{} `yaml:"config" json:"config"`
}

type StorageConfig struct {
	Primary          *PrimaryStoreConfig `yaml:"primary" json:"primary" envPrefix:"PRIMARY_" validate:"required"`
	Fallback         *FlatStoreConfig    `yaml:"fallback" json:"fallback" envPrefix:"FALLBACK_" validate:"required"`
	Legacy           *LegacyConfig       `yaml:"legacy" json:"legacy" envPrefix:"LEGACY_" validate:"required"`
	Collections      Schema              `yaml:"collections" json:"collections" validate:"required,min=1,dive"`
	OperationTimeout time.Duration       `yaml:"operation_timeout" json:"operation_timeout" env:"OPERATION_TIMEOUT" validate:"min=0"`
}

type PrimaryStoreConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled" env:"ENABLED"`
	Path        string        `yaml:"path" json:"path" env:"PATH" validate:"required_if=Enabled true"`
	BusyTimeout time.Duration `yaml:"busy_timeout" json:"busy_timeout" env:"BUSY_TIMEOUT"`
}

type FlatStoreConfig struct {
	Driver            string       `yaml:"driver" json:"driver" env:"DRIVER" validate:"required,oneof=memory clover redis"`
	Path              string       `yaml:"path" json:"path" env:"PATH" validate:"required_if=Driver clover"`
	CompressThreshold int          `yaml:"compress_threshold" json:"compress_threshold" env:"COMPRESS_THRESHOLD" validate:"min=0"`
	Redis             *RedisConfig `yaml:"redis" json:"redis" envPrefix:"REDIS_"`
}

type RedisConfig struct {
	Host         string        `yaml:"host" json:"host" env:"HOST"`
	Port         int           `yaml:"port" json:"port" env:"PORT"`
	Password     string        `yaml:"password" json:"password" env:"PASSWORD"`
	DB           int           `yaml:"db" json:"db" env:"DB"`
	PoolSize     int           `yaml:"pool_size" json:"pool_size" env:"POOL_SIZE"`
	DialTimeout  time.Duration `yaml:"dial_timeout" json:"dial_timeout" env:"DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout" env:"WRITE_TIMEOUT"`
	KeyPrefix    string        `yaml:"key_prefix" json:"key_prefix" env:"KEY_PREFIX"`
}

// LegacyConfig points at the flat store written by earlier releases.
// Keys maps a collection name to the legacy key holding its JSON array.
type LegacyConfig struct {
	Enabled        bool              `yaml:"enabled" json:"enabled" env:"ENABLED"`
	Source         *FlatStoreConfig  `yaml:"source" json:"source" envPrefix:"SOURCE_" validate:"required_if=Enabled true"`
	Keys           map[string]string `yaml:"keys" json:"keys"`
	GroupField     string            `yaml:"group_field" json:"group_field" env:"GROUP_FIELD"`
	CreatedAtField string            `yaml:"created_at_field" json:"created_at_field" env:"CREATED_AT_FIELD"`
}

type CacheConfig struct {
	DefaultTTL time.Duration `yaml:"default_ttl" json:"default_ttl" env:"DEFAULT_TTL" validate:"min=0"`
	KeyLength  int           `yaml:"key_length" json:"key_length" env:"KEY_LENGTH" validate:"min=8,max=64"`
	SweepSpec  string        `yaml:"sweep_spec" json:"sweep_spec" env:"SWEEP_SPEC"`
}

type CoordinatorConfig struct {
	DebounceInterval time.Duration `yaml:"debounce_interval" json:"debounce_interval" env:"DEBOUNCE_INTERVAL" validate:"min=0"`
	MaxPendingAge    time.Duration `yaml:"max_pending_age" json:"max_pending_age" env:"MAX_PENDING_AGE" validate:"min=0"`
}

type HashConfig struct {
	Algorithm string `yaml:"algorithm" json:"algorithm" env:"ALGORITHM" validate:"required,oneof=sha256 blake2b"`
	Key       string `yaml:"key" json:"key" env:"KEY"`
}

type MetricsConfig struct {
	Enabled         bool   `yaml:"enabled" json:"enabled" env:"ENABLED"`
	Type            string `yaml:"type" json:"type" env:"TYPE" validate:"required_if=Enabled true"`
	Namespace       string `yaml:"namespace" json:"namespace" env:"NAMESPACE"`
	Subsystem       string `yaml:"subsystem" json:"subsystem" env:"SUBSYSTEM"`
	EnableGoMetrics bool   `yaml:"enable_go_metrics" json:"enable_go_metrics" env:"ENABLE_GO_METRICS"`
}

type CronConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled" env:"ENABLED"`
	Timezone string `yaml:"timezone" json:"timezone" env:"TIMEZONE" validate:"required_if=Enabled true"`
}

type HealthConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled" env:"ENABLED"`
}
