package config

import (
	"time"

	"github.com/spf13/viper"
)

// The agent runs on kiosk tablets and site gateways, so every knob is
// an environment variable the provisioning image can bake in. No config
// file on disk beyond the sqlite database itself.

type Config struct {
	DBPath            string        `mapstructure:"DB_PATH"`
	ServerPort        string        `mapstructure:"SERVER_PORT"`
	BackendURL        string        `mapstructure:"BACKEND_URL"`
	BackendUsername   string        `mapstructure:"BACKEND_USERNAME"`
	BackendPassword   string        `mapstructure:"BACKEND_PASSWORD"`
	SiteID            int64         `mapstructure:"SITE_ID"`
	DeviceID          string        `mapstructure:"DEVICE_ID"`
	LocationSource    string        `mapstructure:"LOCATION_SOURCE"`
	GpsdAddr          string        `mapstructure:"GPSD_ADDR"`
	SimLat            float64       `mapstructure:"SIM_LAT"`
	SimLon            float64       `mapstructure:"SIM_LON"`
	SimAccuracyM      float64       `mapstructure:"SIM_ACCURACY_M"`
	FixTimeout        time.Duration `mapstructure:"FIX_TIMEOUT"`
	FixMaxAge         time.Duration `mapstructure:"FIX_MAX_AGE"`
	SyncInterval      time.Duration `mapstructure:"SYNC_INTERVAL"`
	SyncBatchSize     int           `mapstructure:"SYNC_BATCH_SIZE"`
	CatalogInterval   time.Duration `mapstructure:"CATALOG_INTERVAL"`
	PurgeInterval     time.Duration `mapstructure:"PURGE_INTERVAL"`
	PurgeRetention    time.Duration `mapstructure:"PURGE_RETENTION"`
	HTTPTimeout       time.Duration `mapstructure:"HTTP_TIMEOUT"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	LogPretty         bool          `mapstructure:"LOG_PRETTY"`
	TraceExporter     string        `mapstructure:"TRACE_EXPORTER"`
	TraceOTLPEndpoint string        `mapstructure:"TRACE_OTLP_ENDPOINT"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("DB_PATH", "/var/lib/clockout/clockout.db")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("BACKEND_URL", "http://localhost:8000")
	viper.SetDefault("BACKEND_USERNAME", "")
	viper.SetDefault("BACKEND_PASSWORD", "")
	viper.SetDefault("SITE_ID", 0)
	viper.SetDefault("DEVICE_ID", "")
	viper.SetDefault("LOCATION_SOURCE", "gpsd")
	viper.SetDefault("GPSD_ADDR", "localhost:2947")
	viper.SetDefault("SIM_LAT", 0.0)
	viper.SetDefault("SIM_LON", 0.0)
	viper.SetDefault("SIM_ACCURACY_M", 5.0)
	viper.SetDefault("FIX_TIMEOUT", "15s")
	viper.SetDefault("FIX_MAX_AGE", "30s")
	viper.SetDefault("SYNC_INTERVAL", "2m")
	viper.SetDefault("SYNC_BATCH_SIZE", 100)
	viper.SetDefault("CATALOG_INTERVAL", "15m")
	viper.SetDefault("PURGE_INTERVAL", "24h")
	viper.SetDefault("PURGE_RETENTION", "168h")
	viper.SetDefault("HTTP_TIMEOUT", "30s")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_PRETTY", false)
	viper.SetDefault("TRACE_EXPORTER", "none")
	viper.SetDefault("TRACE_OTLP_ENDPOINT", "localhost:4317")

	// Read in environment variables that match the keys.
	viper.AutomaticEnv()

	err = viper.Unmarshal(&config)
	return
}
