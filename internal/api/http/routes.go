package httpapi

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/littleweather/internal/display"
	"github.com/i474232898/littleweather/internal/location"
	"github.com/i474232898/littleweather/internal/scheduler"
	"github.com/i474232898/littleweather/internal/weather"
)

var validate = validator.New()

// Deps are the services the bridge exposes to the rendering layer.
// Device is nil when the device position is configured statically; the
// device routes then answer 409.
type Deps struct {
	Locations  *location.Store
	Resolver   *location.Resolver
	Weather    *weather.Cache
	Device     *location.PushLocator
	Visibility *scheduler.PageVisibility
	Now        func() time.Time
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	if d.Now == nil {
		d.Now = time.Now
	}
	h := &handlers{Deps: d}

	v1 := app.Group("/api/v1")

	v1.Get("/location", h.getLocation)
	v1.Post("/location/resolve", h.resolveAutomatic)
	v1.Post("/location/search", h.resolveManual)

	v1.Post("/locations/saved", h.addSaved)
	v1.Delete("/locations/saved", h.removeSaved)

	v1.Put("/device/position", h.pushPosition)
	v1.Put("/device/error", h.pushDeviceError)
	v1.Put("/visibility", h.setVisibility)

	v1.Get("/weather", h.getWeather)
	v1.Post("/weather/refresh", h.refreshWeather)

	v1.Get("/countries", func(c *fiber.Ctx) error {
		return c.JSON(display.Countries())
	})
}

type handlers struct {
	Deps
}

// statusCode maps a service status onto an HTTP status.
func statusCode(s weather.Status) int {
	switch s {
	case weather.StatusSuccess:
		return fiber.StatusOK
	case weather.StatusNotFound:
		return fiber.StatusNotFound
	case weather.StatusSuperseded:
		return fiber.StatusConflict
	default:
		return fiber.StatusBadGateway
	}
}

// resolveResponse is the body of both resolve endpoints. WeatherStatus is
// set when a successful resolution triggered a weather refresh.
type resolveResponse struct {
	location.Result
	WeatherStatus weather.Status `json:"weatherStatus,omitempty"`
}

func (h *handlers) getLocation(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"currentLocation": h.Locations.Current(),
		"savedLocations":  h.Locations.Saved(),
	})
}

func (h *handlers) resolveAutomatic(c *fiber.Ctx) error {
	res := h.Resolver.ResolveAutomatic(c.UserContext())
	return h.respondResolved(c, res)
}

func (h *handlers) resolveManual(c *fiber.Ctx) error {
	var q weather.GeocodeQuery
	if err := c.BodyParser(&q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res := h.Resolver.ResolveManual(c.UserContext(), q.CountryCode, q.City, q.State, q.PostalCode)
	return h.respondResolved(c, res)
}

func (h *handlers) respondResolved(c *fiber.Ctx, res location.Result) error {
	resp := resolveResponse{Result: res}
	if res.Status == weather.StatusSuccess && res.Location != nil {
		resp.WeatherStatus = h.Weather.Refresh(c.UserContext(), res.Location.Lat, res.Location.Lon)
	}
	return c.Status(statusCode(res.Status)).JSON(resp)
}

type savedRequest struct {
	Lat        float64 `json:"lat" validate:"required,latitude"`
	Lon        float64 `json:"lon" validate:"required,longitude"`
	LatRaw     float64 `json:"latRaw"`
	LonRaw     float64 `json:"lonRaw"`
	Name       string  `json:"location" validate:"required"`
	State      string  `json:"state"`
	PostalCode string  `json:"postalCode"`
	Country    string  `json:"country"`
}

func (h *handlers) addSaved(c *fiber.Ctx) error {
	var req savedRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	loc := weather.Location{
		Lat:        weather.RoundCoord(req.Lat),
		Lon:        weather.RoundCoord(req.Lon),
		LatRaw:     req.LatRaw,
		LonRaw:     req.LonRaw,
		Name:       req.Name,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
	}
	if err := h.Locations.AddSaved(c.UserContext(), loc); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to save location")
	}
	return c.JSON(h.Locations.Saved())
}

func (h *handlers) removeSaved(c *fiber.Ctx) error {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "lat must be a number")
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "lon must be a number")
	}

	if err := h.Locations.RemoveSaved(c.UserContext(), weather.Location{Lat: lat, Lon: lon}); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to remove location")
	}
	return c.JSON(h.Locations.Saved())
}

func (h *handlers) requireDevice() error {
	if h.Device == nil {
		return fiber.NewError(fiber.StatusConflict, "device position is configured statically")
	}
	return nil
}

func (h *handlers) pushPosition(c *fiber.Ctx) error {
	if err := h.requireDevice(); err != nil {
		return err
	}
	var fix location.Fix
	if err := c.BodyParser(&fix); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(fix); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	h.Device.Update(fix)
	return c.SendStatus(fiber.StatusNoContent)
}

type deviceErrorRequest struct {
	Code string `json:"code" validate:"required,oneof=denied unavailable timeout"`
}

func (h *handlers) pushDeviceError(c *fiber.Ctx) error {
	if err := h.requireDevice(); err != nil {
		return err
	}
	var req deviceErrorRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var reason error
	switch req.Code {
	case "denied":
		reason = location.ErrPermissionDenied
	case "timeout":
		reason = location.ErrTimeout
	default:
		reason = location.ErrPositionUnavailable
	}
	h.Device.Fail(reason)
	return c.SendStatus(fiber.StatusNoContent)
}

type visibilityRequest struct {
	Visible *bool `json:"visible" validate:"required"`
}

func (h *handlers) setVisibility(c *fiber.Ctx) error {
	var req visibilityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	h.Visibility.Set(*req.Visible)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) getWeather(c *fiber.Ctx) error {
	snap, lastUpdated, ok := h.Weather.Current()
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no weather data yet")
	}

	now := h.Now()
	return c.JSON(fiber.Map{
		"weather":         snap,
		"description":     display.TitleCase(snap.CurrentCondition.Description),
		"lastUpdated":     lastUpdated,
		"lastUpdatedText": display.TimeAgo(now, lastUpdated),
		"background":      display.BackgroundFor(&snap, now),
	})
}

func (h *handlers) refreshWeather(c *fiber.Ctx) error {
	cur := h.Locations.Current()
	if cur == nil || !cur.HasCoordinates() {
		return fiber.NewError(fiber.StatusConflict, "no location resolved")
	}

	status := h.Weather.Refresh(c.UserContext(), cur.Lat, cur.Lon)
	return c.Status(statusCode(status)).JSON(fiber.Map{"status": status})
}
