package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/i474232898/weather-by-city/internal/notify"
	"github.com/i474232898/weather-by-city/internal/store"
	"github.com/i474232898/weather-by-city/internal/weather"
	"github.com/i474232898/weather-by-city/internal/widget"
)

var validate = validator.New()

// recentLimit caps the notifications embedded in GET /widget.
const recentLimit = 10

// Widget is the part of *widget.Runtime the handlers need.
type Widget interface {
	State() widget.State
	Dispatch(ctx context.Context, ev widget.Event) (widget.State, error)
}

// Feed is the notification history. *store.NotificationStore satisfies it.
type Feed interface {
	Latest() (notify.Notification, error)
	Recent(limit int) []notify.Notification
	Since(from time.Time) ([]notify.Notification, error)
}

// Lookuper serves the stateless weather endpoint. *weather.Service satisfies it.
type Lookuper interface {
	Lookup(ctx context.Context, q weather.Query) (weather.Snapshot, error)
}

// Deps are the collaborators behind the routes. Nil members disable their routes.
type Deps struct {
	Widget  Widget
	Feed    Feed
	Lookup  Lookuper
	Metrics http.Handler
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics))
	}

	v1 := app.Group("/api/v1")

	if d.Lookup != nil {
		v1.Get("/weather/current", currentWeather(d.Lookup))
	}

	if d.Widget == nil {
		return
	}
	h := &widgetHandlers{widget: d.Widget, feed: d.Feed}

	w := v1.Group("/widget")
	w.Get("/", h.get)
	w.Get("/view", h.view)
	w.Get("/notifications", h.notifications)
	w.Put("/city", h.setCity)
	w.Post("/search", h.search)
	w.Post("/locate", h.locate)
	w.Post("/refresh", h.refresh)
}

type widgetHandlers struct {
	widget Widget
	feed   Feed
}

func (h *widgetHandlers) get(c *fiber.Ctx) error {
	s := h.widget.State()
	resp := fiber.Map{
		"state": s,
		"view":  widget.Render(s),
	}
	if h.feed != nil {
		resp["notifications"] = h.feed.Recent(recentLimit)
		if latest, err := h.feed.Latest(); err == nil {
			resp["toast"] = latest
		}
	}
	return c.JSON(resp)
}

func (h *widgetHandlers) view(c *fiber.Ctx) error {
	return c.SendString(widget.Render(h.widget.State()).Text())
}

func (h *widgetHandlers) notifications(c *fiber.Ctx) error {
	if h.feed == nil {
		return fiber.NewError(fiber.StatusNotFound, "notifications are not recorded")
	}

	since := c.Query("since")
	if since == "" {
		return c.JSON(h.feed.Recent(0))
	}

	from, err := parseTime(since)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	items, err := h.feed.Since(from)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "no notifications for requested range")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to read notifications")
	}
	return c.JSON(items)
}

// cityRequest is the body of PUT /widget/city and POST /widget/search.
type cityRequest struct {
	City string `json:"city" validate:"max=200"`
}

func (h *widgetHandlers) setCity(c *fiber.Ctx) error {
	var req cityRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	return h.dispatch(c, widget.CityInputChanged{Text: req.City})
}

func (h *widgetHandlers) search(c *fiber.Ctx) error {
	var req cityRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	name := req.City
	if name == "" {
		name = h.widget.State().CityInput
	}
	return h.dispatch(c, widget.SearchCity{Name: name})
}

// locateRequest is the body of POST /widget/locate. Without coordinates the
// widget asks its locator for the current position.
type locateRequest struct {
	Lat *float64 `json:"lat" validate:"required_with=Lon"`
	Lon *float64 `json:"lon" validate:"required_with=Lat"`
}

func (h *widgetHandlers) locate(c *fiber.Ctx) error {
	var req locateRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if req.Lat == nil {
		return h.dispatch(c, widget.LocateRequested{})
	}
	return h.dispatch(c, widget.SearchCoords{Coords: weather.Coordinates{Lat: *req.Lat, Lon: *req.Lon}})
}

func (h *widgetHandlers) refresh(c *fiber.Ctx) error {
	return h.dispatch(c, widget.Refresh{})
}

func (h *widgetHandlers) dispatch(c *fiber.Ctx, ev widget.Event) error {
	s, err := h.widget.Dispatch(c.UserContext(), ev)
	if err != nil {
		if errors.Is(err, widget.ErrStopped) {
			return fiber.NewError(fiber.StatusServiceUnavailable, "widget is not running")
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"state": s,
		"view":  widget.Render(s),
	})
}

// bindBody parses an optional JSON body and validates it.
func bindBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(out); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	if err := validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func currentWeather(lookup Lookuper) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := parseWeatherQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snap, err := lookup.Lookup(c.UserContext(), q)
		if err != nil {
			return lookupError(err)
		}

		return c.JSON(fiber.Map{
			"query":    q,
			"snapshot": snap,
			"view":     widget.Render(widget.State{Snapshot: &snap}),
		})
	}
}

func lookupError(err error) error {
	if errors.Is(err, weather.ErrInvalidQuery) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if pe, ok := weather.AsProviderError(err); ok {
		return fiber.NewError(fiber.StatusBadGateway, pe.Message)
	}
	return fiber.NewError(fiber.StatusServiceUnavailable, widget.MsgFetchFailed)
}

// parseWeatherQuery reads either ?city= or ?lat=&lon=.
func parseWeatherQuery(c *fiber.Ctx) (weather.Query, error) {
	if city := strings.TrimSpace(c.Query("city")); city != "" {
		return weather.CityQuery(city), nil
	}

	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return weather.Query{}, errors.New("city or lat and lon query parameters are required")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return weather.Query{}, errors.New("lat must be a number")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return weather.Query{}, errors.New("lon must be a number")
	}

	coords := weather.Coordinates{Lat: lat, Lon: lon}
	if err := validate.Struct(coords); err != nil {
		return weather.Query{}, err
	}
	return weather.CoordsQuery(coords), nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
