// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/gorse-io/transit/model"
	"github.com/juju/errors"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config is the configuration of one recommender instance.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Loader    LoaderConfig    `mapstructure:"loader"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// DatabaseConfig is the configuration for the stores.
type DatabaseConfig struct {
	DataStore   string `mapstructure:"data_store" validate:"required"`
	CacheStore  string `mapstructure:"cache_store"`
	TablePrefix string `mapstructure:"table_prefix"`
	FetchLimit  int    `mapstructure:"fetch_limit" validate:"gt=0"`

	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// ServerConfig is the configuration for the REST API.
type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	Mode     string `mapstructure:"mode" validate:"oneof=air rail"`
	DefaultN int    `mapstructure:"default_n" validate:"gt=0"`
	APIKey   string `mapstructure:"api_key"`
}

// RecommendConfig is the configuration of the recommendation engine.
type RecommendConfig struct {
	ItemFilter    string      `mapstructure:"item_filter"`
	RatingMin     float64     `mapstructure:"rating_min"`
	RatingMax     float64     `mapstructure:"rating_max" validate:"gtfield=RatingMin"`
	ValidateRatio float64     `mapstructure:"validate_ratio" validate:"gte=0,lt=1"`
	Model         ModelConfig `mapstructure:"model"`
}

// ModelConfig holds the hyper-parameters of the preference model.
type ModelConfig struct {
	NFactors    int     `mapstructure:"n_factors" validate:"gt=0"`
	NEpochs     int     `mapstructure:"n_epochs" validate:"gt=0"`
	Lr          float64 `mapstructure:"lr" validate:"gt=0"`
	Reg         float64 `mapstructure:"reg" validate:"gte=0"`
	InitMean    float64 `mapstructure:"init_mean"`
	InitStdDev  float64 `mapstructure:"init_std" validate:"gt=0"`
	RandomState int64   `mapstructure:"random_state"`
	UseBias     bool    `mapstructure:"use_bias"`
}

// Params converts the configuration to model hyper-parameters.
func (config *ModelConfig) Params() model.Params {
	return model.Params{
		model.NFactors:    config.NFactors,
		model.NEpochs:     config.NEpochs,
		model.Lr:          config.Lr,
		model.Reg:         config.Reg,
		model.InitMean:    config.InitMean,
		model.InitStdDev:  config.InitStdDev,
		model.RandomState: config.RandomState,
		model.UseBias:     config.UseBias,
	}
}

// LoaderConfig is the configuration of the model lifecycle.
type LoaderConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts" validate:"gt=0"`
	RetryDelay   time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
	ReloadPeriod time.Duration `mapstructure:"reload_period" validate:"gte=0"`
	DumpPath     string        `mapstructure:"dump_path"`
}

// TracingConfig is the configuration for OpenTelemetry tracing.
type TracingConfig struct {
	EnableTracing     bool    `mapstructure:"enable_tracing"`
	Exporter          string  `mapstructure:"exporter" validate:"oneof=zipkin otlp otlphttp"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	Sampler           string  `mapstructure:"sampler" validate:"oneof=always never ratio"`
	Ratio             float64 `mapstructure:"ratio" validate:"gte=0,lte=1"`
}

// NewTracerProvider creates a tracer provider. A no-op provider is returned
// if tracing is disabled.
func (config *TracingConfig) NewTracerProvider() (trace.TracerProvider, error) {
	if !config.EnableTracing {
		return noop.NewTracerProvider(), nil
	}

	var exporter tracesdk.SpanExporter
	var err error
	switch config.Exporter {
	case "zipkin":
		exporter, err = zipkin.New(config.CollectorEndpoint)
	case "otlp":
		client := otlptracegrpc.NewClient(otlptracegrpc.WithInsecure(), otlptracegrpc.WithEndpoint(config.CollectorEndpoint))
		exporter, err = otlptrace.New(context.Background(), client)
	case "otlphttp":
		client := otlptracehttp.NewClient(otlptracehttp.WithInsecure(), otlptracehttp.WithEndpoint(config.CollectorEndpoint))
		exporter, err = otlptrace.New(context.Background(), client)
	default:
		return nil, errors.NotSupportedf("exporter %s", config.Exporter)
	}
	if err != nil {
		return nil, errors.Trace(err)
	}

	var sampler tracesdk.Sampler
	switch config.Sampler {
	case "always":
		sampler = tracesdk.AlwaysSample()
	case "never":
		sampler = tracesdk.NeverSample()
	case "ratio":
		sampler = tracesdk.TraceIDRatioBased(config.Ratio)
	default:
		return nil, errors.NotSupportedf("sampler %s", config.Sampler)
	}

	return tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exporter),
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("transit"),
		)),
		tracesdk.WithSampler(sampler),
	), nil
}

func GetDefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			FetchLimit: 100,
		},
		Server: ServerConfig{
			Host:     "0.0.0.0",
			Port:     8087,
			Mode:     "air",
			DefaultN: 10,
		},
		Recommend: RecommendConfig{
			RatingMin: 1,
			RatingMax: 5,
			Model: ModelConfig{
				NFactors:   100,
				NEpochs:    20,
				Lr:         0.005,
				Reg:        0.02,
				InitMean:   0,
				InitStdDev: 0.1,
				UseBias:    true,
			},
		},
		Loader: LoaderConfig{
			MaxAttempts: 10,
			RetryDelay:  3 * time.Second,
		},
		Tracing: TracingConfig{
			Exporter: "otlp",
			Sampler:  "always",
			Ratio:    1,
		},
	}
}

func setDefault() {
	defaultConfig := GetDefaultConfig()
	// [database]
	viper.SetDefault("database.fetch_limit", defaultConfig.Database.FetchLimit)
	// [server]
	viper.SetDefault("server.host", defaultConfig.Server.Host)
	viper.SetDefault("server.port", defaultConfig.Server.Port)
	viper.SetDefault("server.mode", defaultConfig.Server.Mode)
	viper.SetDefault("server.default_n", defaultConfig.Server.DefaultN)
	// [recommend]
	viper.SetDefault("recommend.rating_min", defaultConfig.Recommend.RatingMin)
	viper.SetDefault("recommend.rating_max", defaultConfig.Recommend.RatingMax)
	// [recommend.model]
	viper.SetDefault("recommend.model.n_factors", defaultConfig.Recommend.Model.NFactors)
	viper.SetDefault("recommend.model.n_epochs", defaultConfig.Recommend.Model.NEpochs)
	viper.SetDefault("recommend.model.lr", defaultConfig.Recommend.Model.Lr)
	viper.SetDefault("recommend.model.reg", defaultConfig.Recommend.Model.Reg)
	viper.SetDefault("recommend.model.init_mean", defaultConfig.Recommend.Model.InitMean)
	viper.SetDefault("recommend.model.init_std", defaultConfig.Recommend.Model.InitStdDev)
	viper.SetDefault("recommend.model.use_bias", defaultConfig.Recommend.Model.UseBias)
	// [loader]
	viper.SetDefault("loader.max_attempts", defaultConfig.Loader.MaxAttempts)
	viper.SetDefault("loader.retry_delay", defaultConfig.Loader.RetryDelay)
	// [tracing]
	viper.SetDefault("tracing.exporter", defaultConfig.Tracing.Exporter)
	viper.SetDefault("tracing.sampler", defaultConfig.Tracing.Sampler)
	viper.SetDefault("tracing.ratio", defaultConfig.Tracing.Ratio)
}

type configBinding struct {
	key string
	env string
}

var bindings = []configBinding{
	{"database.data_store", "TRANSIT_DATA_STORE"},
	{"database.cache_store", "TRANSIT_CACHE_STORE"},
	{"database.table_prefix", "TRANSIT_TABLE_PREFIX"},
	{"server.host", "TRANSIT_SERVER_HOST"},
	{"server.port", "TRANSIT_SERVER_PORT"},
	{"server.mode", "TRANSIT_SERVER_MODE"},
	{"server.api_key", "TRANSIT_SERVER_API_KEY"},
}

// LoadConfig loads configuration from a TOML file. Environment variables
// override the file, and the file overrides defaults. An empty path loads
// defaults and environment variables only.
func LoadConfig(path string) (*Config, error) {
	setDefault()
	for _, binding := range bindings {
		if err := viper.BindEnv(binding.key, binding.env); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if path != "" {
		viper.SetConfigFile(path)
		viper.SetConfigType("toml")
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}
	var conf Config
	if err := viper.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

func (config *Config) Validate() error {
	validate := validator.New()
	return errors.Trace(validate.Struct(config))
}
