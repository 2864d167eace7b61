package config

import (
	"context"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

// EnvPrefix namespaces every environment override, e.g. COURTCORE_STORAGE_PRIMARY_PATH.
const EnvPrefix = "COURTCORE_"

type Loader struct {
	validator *validator.Validate
	envPrefix string
}

func NewLoader() *Loader {
	return &Loader{
		validator: validator.New(validator.WithRequiredStructEnabled()),
		envPrefix: EnvPrefix,
	}
}

func (l *Loader) LoadFromFile(ctx context.Context, configPath string) (config *types.ServiceConfig, err error) {
	if configPath == "" {
		return config, types.ErrConfigNotFound
	}

	if _, err = os.Stat(configPath); os.IsNotExist(err) {
		return config, types.WrapError(err, "file not found: "+configPath)
	}

	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	data, err := l.ReadFileWithTimeout(readCtx, configPath)
	if err != nil {
		return config, types.WrapError(err, "failed to read config file")
	}

	return l.LoadFromBytes(data)
}

// LoadFromBytes layers YAML over Defaults, then environment overrides, then validates.
func (l *Loader) LoadFromBytes(data []byte) (*types.ServiceConfig, error) {
	config := l.Defaults()

	if err := yaml.Unmarshal(data, config); err != nil {
		return config, types.Errorf(types.ErrConfigParseFailed, "yaml: %v", err)
	}

	if err := env.ParseWithOptions(config, env.Options{Prefix: l.envPrefix}); err != nil {
		return config, types.Errorf(types.ErrConfigParseFailed, "env: %v", err)
	}

	if err := l.Validate(config); err != nil {
		return config, err
	}

	return config, nil
}

func (l *Loader) Validate(config *types.ServiceConfig) error {
	if config == nil {
		return types.ErrConfigIsNil
	}

	if err := l.validator.Struct(config); err != nil {
		return types.Errorf(types.ErrConfigValidateFailed, "%v", err)
	}

	return nil
}

func (l *Loader) ReadFileWithTimeout(ctx context.Context, filepath string) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}

	resultChan := make(chan result, 1)

	go func() {
		data, err := os.ReadFile(filepath)
		resultChan <- result{data: data, err: err}
	}()

	select {
	case res := <-resultChan:
		return res.data, res.err
	case <-ctx.Done():
		return nil, types.WrapError(ctx.Err(), "file read timeout")
	}
}

func (l *Loader) Defaults() *types.ServiceConfig {
	return Defaults()
}

// Defaults is the configuration used when a section is missing from the file.
func Defaults() *types.ServiceConfig {
	return &types.ServiceConfig{
		Name:    "courtcore",
		Version: "dev",
		Server: &types.ServerConfig{
			Enabled:      false,
			Host:         "localhost",
			Port:         8090,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Logger: &types.LoggerConfig{
			Level: "info",
		},
		Storage: &types.StorageConfig{
			Primary: &types.PrimaryStoreConfig{
				Enabled:     true,
				Path:        "data/courtcore.db",
				BusyTimeout: 5 * time.Second,
			},
			Fallback: &types.FlatStoreConfig{
				Driver:            "clover",
				Path:              "data/fallback",
				CompressThreshold: 64 * 1024,
			},
			Legacy: &types.LegacyConfig{
				Enabled:        false,
				GroupField:     "projectId",
				CreatedAtField: "createdAt",
				Keys:           map[string]string{},
			},
			Collections: types.Schema{
				{Name: "projects", Kind: types.KindRecords},
				{Name: "documents", Kind: types.KindRecords},
				{Name: "analyses", Kind: types.KindRecords},
				{Name: "events", Kind: types.KindRecords},
				{Name: "doc_meta", Kind: types.KindCache},
				{Name: "api_responses", Kind: types.KindCache},
				{Name: "analysis_results", Kind: types.KindCache},
			},
			OperationTimeout: 10 * time.Second,
		},
		Cache: &types.CacheConfig{
			DefaultTTL: 24 * time.Hour,
			KeyLength:  16,
			SweepSpec:  "0 */10 * * * *",
		},
		Coordinator: &types.CoordinatorConfig{
			DebounceInterval: 100 * time.Millisecond,
			MaxPendingAge:    5 * time.Minute,
		},
		Hash: &types.HashConfig{
			Algorithm: "sha256",
		},
		Metrics: &types.MetricsConfig{
			Enabled:   false,
			Type:      "memory",
			Namespace: "courtcore",
		},
		Cron: &types.CronConfig{
			Enabled:  true,
			Timezone: "UTC",
		},
		Health: &types.HealthConfig{
			Enabled: true,
		},
	}
}
