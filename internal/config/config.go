package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port             string        `validate:"required,numeric"`
	LogLevel         string        `validate:"oneof=trace debug info warn error"`
	LogFormat        string        `validate:"oneof=console json"`
	StoreDriver      string        `validate:"oneof=memory badger postgres"`
	BadgerPath       string        `validate:"required_if=StoreDriver badger"`
	DatabaseURL      string        `validate:"required_if=StoreDriver postgres"`
	RedisURL         string
	CacheTTLAnalysis time.Duration `validate:"gte=0"`
	RequestTimeout   time.Duration `validate:"gt=0"`
	RateLimitPerMin  int           `validate:"gte=0"`
	MaxUploadBytes   int64         `validate:"gt=0"`
	CORSOrigins      string
	EngineFile       string
	Engine           EngineConfig
}

// EngineConfig holds the analysis thresholds. Percentages are in percent units (5 means 5%).
type EngineConfig struct {
	WindowDays              int     `yaml:"window_days" validate:"min=1,max=90"`
	StableBandPct           float64 `yaml:"stable_band_pct" validate:"gt=0"`
	VolatilityLowPct        float64 `yaml:"volatility_low_pct" validate:"gt=0"`
	VolatilityHighPct       float64 `yaml:"volatility_high_pct" validate:"gtfield=VolatilityLowPct"`
	ZeroPreviousSentinelPct float64 `yaml:"zero_previous_sentinel_pct" validate:"gt=0"`
	ForecastDays            int     `yaml:"forecast_days" validate:"min=0,max=30"`
	MinPricePoints          int     `yaml:"min_price_points" validate:"min=1"`
	SharpMovePct            float64 `yaml:"sharp_move_pct" validate:"gt=0"`
	ConfidenceScale         float64 `yaml:"confidence_scale" validate:"gt=0"`
	TopInsights             int     `yaml:"top_insights" validate:"min=1"`
	ImmediateActions        int     `yaml:"immediate_actions" validate:"min=0"`
	SMSAlerts               int     `yaml:"sms_alerts" validate:"min=0"`
	Workers                 int     `yaml:"workers" validate:"min=1,max=64"`
}

type engineFile struct {
	Engine EngineConfig `yaml:"engine"`
}

func DefaultEngine() EngineConfig {
	return EngineConfig{
		WindowDays:              14,
		StableBandPct:           5,
		VolatilityLowPct:        5,
		VolatilityHighPct:       15,
		ZeroPreviousSentinelPct: 100,
		ForecastDays:            3,
		MinPricePoints:          3,
		SharpMovePct:            15,
		ConfidenceScale:         40,
		TopInsights:             3,
		ImmediateActions:        2,
		SMSAlerts:               5,
		Workers:                 4,
	}
}

func Load() (Config, error) {
	cfg := Config{
		Port:             getEnv("PORT", "8000"),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:        strings.ToLower(getEnv("LOG_FORMAT", "console")),
		StoreDriver:      strings.ToLower(getEnv("STORE_DRIVER", "memory")),
		BadgerPath:       getEnv("BADGER_PATH", "data/agris"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379"),
		CacheTTLAnalysis: getEnvDuration("CACHE_TTL_ANALYSIS", 60*time.Second),
		RequestTimeout:   getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MIN", 120),
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		CORSOrigins:      getEnv("CORS_ORIGINS", "*"),
		EngineFile:       os.Getenv("ENGINE_CONFIG"),
	}

	engine, err := LoadEngine(cfg.EngineFile)
	if err != nil {
		return cfg, err
	}
	cfg.Engine = overrideEngine(engine)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadEngine reads engine thresholds from a YAML file on top of the defaults.
// An empty path or a missing file yields the defaults.
func LoadEngine(path string) (EngineConfig, error) {
	file := engineFile{Engine: DefaultEngine()}
	if path == "" {
		return file.Engine, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return file.Engine, nil
		}
		return file.Engine, fmt.Errorf("reading engine config: %w", err)
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return file.Engine, fmt.Errorf("parsing engine config: %w", err)
	}
	return file.Engine, nil
}

func overrideEngine(e EngineConfig) EngineConfig {
	e.WindowDays = getEnvInt("WINDOW_DAYS", e.WindowDays)
	e.StableBandPct = getEnvFloat("STABLE_BAND_PCT", e.StableBandPct)
	e.VolatilityLowPct = getEnvFloat("VOLATILITY_LOW_PCT", e.VolatilityLowPct)
	e.VolatilityHighPct = getEnvFloat("VOLATILITY_HIGH_PCT", e.VolatilityHighPct)
	e.ZeroPreviousSentinelPct = getEnvFloat("ZERO_PREVIOUS_SENTINEL_PCT", e.ZeroPreviousSentinelPct)
	e.ForecastDays = getEnvInt("FORECAST_DAYS", e.ForecastDays)
	e.MinPricePoints = getEnvInt("MIN_PRICE_POINTS", e.MinPricePoints)
	e.SharpMovePct = getEnvFloat("SHARP_MOVE_PCT", e.SharpMovePct)
	e.ConfidenceScale = getEnvFloat("CONFIDENCE_SCALE", e.ConfidenceScale)
	e.Workers = getEnvInt("ENGINE_WORKERS", e.Workers)
	return e
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (e EngineConfig) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("invalid engine config: %w", err)
	}
	return nil
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return time.Duration(i) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
