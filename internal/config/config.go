package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	FSRS     FSRSConfig     `mapstructure:"fsrs"`
	Forecast ForecastConfig `mapstructure:"forecast"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// FSRSConfig overrides individual memory-model constants. Zero values
// keep the engine defaults.
type FSRSConfig struct {
	GrowthFactor        float64 `mapstructure:"growth_factor" validate:"gte=0"`
	RetrievabilitySlope float64 `mapstructure:"retrievability_slope" validate:"gte=0"`
	LapseFactor         float64 `mapstructure:"lapse_factor" validate:"gte=0,lt=1"`
	MaxIntervalDays     int     `mapstructure:"max_interval_days" validate:"gte=0"`
}

// ForecastConfig contains forecast-engine settings.
type ForecastConfig struct {
	// DefaultHorizonDays applies when a forecast request does not name
	// a horizon.
	DefaultHorizonDays int `mapstructure:"default_horizon_days" validate:"required,gt=0,lte=1825"`
}
