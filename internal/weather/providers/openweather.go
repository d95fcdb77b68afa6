package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/i474232898/weather-by-city/internal/weather"
)

const (
	// DefaultOpenWeatherBaseURL is the current-weather API root.
	DefaultOpenWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

	// Units is fixed; temperatures are always requested in °C.
	Units = "metric"

	maxBodyBytes = 1 << 20
)

// OpenWeatherProvider implements weather.Provider for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	logger  *zap.Logger
}

// OpenWeatherOption customizes an OpenWeatherProvider.
type OpenWeatherOption func(*OpenWeatherProvider)

// WithBaseURL points the provider at a different API root.
func WithBaseURL(baseURL string) OpenWeatherOption {
	return func(p *OpenWeatherProvider) {
		if baseURL != "" {
			p.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithBreaker enables circuit breaking around outbound requests.
func WithBreaker() OpenWeatherOption {
	return func(p *OpenWeatherProvider) {
		p.httpCfg.Breaker = NewBreaker(p.name)
	}
}

// WithLogger sets the provider logger.
func WithLogger(logger *zap.Logger) OpenWeatherOption {
	return func(p *OpenWeatherProvider) {
		if logger != nil {
			p.logger = logger.Named("openweather")
		}
	}
}

func NewOpenWeatherProvider(client *http.Client, apiKey string, opts ...OpenWeatherOption) *OpenWeatherProvider {
	p := &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: DefaultOpenWeatherBaseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// FetchByCity requests /weather?q={city}.
func (p *OpenWeatherProvider) FetchByCity(ctx context.Context, city string) (weather.Reading, error) {
	values := url.Values{}
	values.Set("q", city)
	return p.fetch(ctx, values)
}

// FetchByCoords requests /weather?lat={lat}&lon={lon}.
func (p *OpenWeatherProvider) FetchByCoords(ctx context.Context, coords weather.Coordinates) (weather.Reading, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
	return p.fetch(ctx, values)
}

func (p *OpenWeatherProvider) fetch(ctx context.Context, values url.Values) (weather.Reading, error) {
	if p.apiKey == "" {
		return weather.Reading{}, weather.NewTransportError(fmt.Errorf("openweather %w", errNoAPIKey))
	}

	values.Set("units", Units)
	values.Set("appid", p.apiKey)

	u := fmt.Sprintf("%s/weather?%s", p.baseURL, values.Encode())
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return weather.Reading{}, weather.NewTransportError(fmt.Errorf("create request: %w", err))
	}

	resp, err := doRequest(ctx, p.httpCfg, req)
	if err != nil {
		return weather.Reading{}, weather.NewTransportError(fmt.Errorf("openweather request: %w", err))
	}
	defer resp.Body.Close()

	// The body carries cod/message even on non-2xx statuses, so it is decoded
	// regardless of resp.StatusCode.
	var payload response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&payload); err != nil {
		return weather.Reading{}, weather.NewTransportError(
			fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err))
	}

	if payload.Cod != http.StatusOK {
		p.logger.Debug("provider reported failure",
			zap.Int("cod", int(payload.Cod)),
			zap.Int("status", resp.StatusCode),
			zap.String("message", payload.Message.String()))
		return weather.Reading{}, &weather.ProviderError{
			Code:    int(payload.Cod),
			Message: payload.Message.String(),
		}
	}

	if len(payload.Weather) == 0 {
		return weather.Reading{}, weather.NewTransportError(fmt.Errorf("%w: empty weather list", errMalformed))
	}

	return weather.Reading{
		TemperatureC: payload.Main.Temp,
		Humidity:     payload.Main.Humidity,
		WindSpeed:    payload.Wind.Speed,
		Name:         payload.Name,
		IconCode:     payload.Weather[0].Icon,
	}, nil
}

// OpenWeatherMap response types.

type response struct {
	Cod     responseCode `json:"cod"`
	Message message      `json:"message,omitempty"`
	Main    struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Name    string `json:"name"`
	Weather []struct {
		Icon string `json:"icon"`
	} `json:"weather"`
}

// responseCode accepts both 200 and "404": the API sends errors with a string cod.
type responseCode int

func (c *responseCode) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid cod %s: %w", b, err)
	}
	*c = responseCode(n)
	return nil
}

// message keeps the provider text verbatim; some endpoints send a number here.
type message string

func (m *message) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*m = message(s)
		return nil
	}
	if string(b) == "null" {
		*m = ""
		return nil
	}
	*m = message(bytes.TrimSpace(b))
	return nil
}

func (m message) String() string {
	return string(m)
}
