package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/i474232898/weather-by-city/internal/weather"
)

// AppConfig holds every runtime setting.
type AppConfig struct {
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string

	// HTTPTimeout bounds a single provider request.
	HTTPTimeout time.Duration

	// ProviderBreakerEnabled wraps provider calls in a circuit breaker. Off by default.
	ProviderBreakerEnabled bool

	// RefreshInterval re-runs the last successful query (0 = disabled).
	RefreshInterval time.Duration

	// Notification feed retention.
	NotifyMaxHistory int           // max number of toasts kept (0 = unlimited)
	NotifyMaxAge     time.Duration // max age of toasts (0 = unlimited)

	Location LocationConfig

	Port            string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// LocationConfig describes where "current location" comes from. Coordinates win
// over a city; with neither, geolocation is unsupported.
type LocationConfig struct {
	Coords *weather.Coordinates

	City            string
	State           string
	Country         string
	GeocodingAPIKey string
}

// fileConfig is the optional TOML file layout. Environment variables override it.
type fileConfig struct {
	OpenWeather struct {
		APIKey         string `toml:"api_key"`
		BaseURL        string `toml:"base_url"`
		Timeout        string `toml:"timeout"`
		BreakerEnabled *bool  `toml:"breaker_enabled"`
	} `toml:"openweather"`
	Server struct {
		Port            string `toml:"port"`
		ShutdownTimeout string `toml:"shutdown_timeout"`
	} `toml:"server"`
	Logging struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"logging"`
	Widget struct {
		RefreshInterval  string `toml:"refresh_interval"`
		NotifyMaxHistory *int   `toml:"notify_max_history"`
		NotifyMaxAge     string `toml:"notify_max_age"`
	} `toml:"widget"`
	Location struct {
		Lat             *float64 `toml:"lat"`
		Lon             *float64 `toml:"lon"`
		City            string   `toml:"city"`
		State           string   `toml:"state"`
		Country         string   `toml:"country"`
		GeocodingAPIKey string   `toml:"geocoding_api_key"`
	} `toml:"location"`
}

// source resolves a key from the environment, then the config file, then a default.
type source map[string]string

func (s source) get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if v, ok := s[key]; ok && v != "" {
		return v
	}
	return def
}

// Load reads configuration from .env, the optional WEATHER_CONFIG_FILE and the
// environment, in increasing order of precedence.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	src, err := loadFile(os.Getenv("WEATHER_CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = src.get("OPENWEATHER_API_KEY", "")
	cfg.OpenWeatherBaseURL = src.get("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5")

	if cfg.HTTPTimeout, err = parseDuration(src, "HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: must be positive")
	}

	if cfg.ProviderBreakerEnabled, err = strconv.ParseBool(src.get("PROVIDER_BREAKER_ENABLED", "false")); err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_BREAKER_ENABLED: %w", err)
	}

	if cfg.RefreshInterval, err = parseDuration(src, "REFRESH_INTERVAL", "0s"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval < 0 {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: must not be negative")
	}

	if cfg.NotifyMaxHistory, err = getenvInt(src, "NOTIFY_MAX_HISTORY", 50); err != nil {
		return nil, err
	}
	if cfg.NotifyMaxAge, err = parseDuration(src, "NOTIFY_MAX_AGE", "1h"); err != nil {
		return nil, err
	}

	cfg.Port = src.get("PORT", "8080")
	cfg.LogLevel = src.get("LOG_LEVEL", "info")
	cfg.LogFormat = src.get("LOG_FORMAT", "json")
	if cfg.ShutdownTimeout, err = parseDuration(src, "SHUTDOWN_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	loc, err := loadLocation(src)
	if err != nil {
		return nil, err
	}
	cfg.Location = loc

	return cfg, nil
}

func loadLocation(src source) (LocationConfig, error) {
	loc := LocationConfig{
		City:            src.get("LOCATION_CITY", ""),
		State:           src.get("LOCATION_STATE", ""),
		Country:         src.get("LOCATION_COUNTRY", ""),
		GeocodingAPIKey: src.get("GOOGLE_GEOCODING_API_KEY", ""),
	}

	latStr := src.get("LOCATION_LAT", "")
	lonStr := src.get("LOCATION_LON", "")
	if latStr == "" && lonStr == "" {
		return loc, nil
	}
	if latStr == "" || lonStr == "" {
		return loc, fmt.Errorf("LOCATION_LAT and LOCATION_LON must be set together")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return loc, fmt.Errorf("invalid LOCATION_LAT: %w", err)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return loc, fmt.Errorf("invalid LOCATION_LON: %w", err)
	}
	c := weather.Coordinates{Lat: lat, Lon: lon}
	if !c.Valid() {
		return loc, fmt.Errorf("LOCATION_LAT/LOCATION_LON out of range: %s", c)
	}
	loc.Coords = &c
	return loc, nil
}

func loadFile(path string) (source, error) {
	src := source{}
	if path == "" {
		return src, nil
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return nil, fmt.Errorf("read WEATHER_CONFIG_FILE %s: %w", path, err)
	}

	src["OPENWEATHER_API_KEY"] = fc.OpenWeather.APIKey
	src["OPENWEATHER_BASE_URL"] = fc.OpenWeather.BaseURL
	src["HTTP_TIMEOUT"] = fc.OpenWeather.Timeout
	if fc.OpenWeather.BreakerEnabled != nil {
		src["PROVIDER_BREAKER_ENABLED"] = strconv.FormatBool(*fc.OpenWeather.BreakerEnabled)
	}
	src["PORT"] = fc.Server.Port
	src["SHUTDOWN_TIMEOUT"] = fc.Server.ShutdownTimeout
	src["LOG_LEVEL"] = fc.Logging.Level
	src["LOG_FORMAT"] = fc.Logging.Format
	src["REFRESH_INTERVAL"] = fc.Widget.RefreshInterval
	if fc.Widget.NotifyMaxHistory != nil {
		src["NOTIFY_MAX_HISTORY"] = strconv.Itoa(*fc.Widget.NotifyMaxHistory)
	}
	src["NOTIFY_MAX_AGE"] = fc.Widget.NotifyMaxAge
	if fc.Location.Lat != nil {
		src["LOCATION_LAT"] = strconv.FormatFloat(*fc.Location.Lat, 'f', -1, 64)
	}
	if fc.Location.Lon != nil {
		src["LOCATION_LON"] = strconv.FormatFloat(*fc.Location.Lon, 'f', -1, 64)
	}
	src["LOCATION_CITY"] = fc.Location.City
	src["LOCATION_STATE"] = fc.Location.State
	src["LOCATION_COUNTRY"] = fc.Location.Country
	src["GOOGLE_GEOCODING_API_KEY"] = fc.Location.GeocodingAPIKey

	return src, nil
}

func parseDuration(src source, key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(src.get(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvInt(src source, key string, def int) (int, error) {
	v := src.get(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
