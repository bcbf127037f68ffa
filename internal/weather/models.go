package weather

import (
	"fmt"
	"math"
	"time"
)

// Status is the outcome reported to callers of resolution and refresh
// operations. Failures never propagate as errors past the service layer.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusNotFound Status = "not_found"
	StatusError    Status = "error"
	// StatusSuperseded means the result arrived after a newer request was
	// issued and was discarded.
	StatusSuperseded Status = "superseded"
)

// MaxHourlyConditions caps the hourly sequence kept in a snapshot.
const MaxHourlyConditions = 48

// RoundCoord rounds a coordinate to two decimal places, the precision used
// for display and for location identity.
func RoundCoord(v float64) float64 {
	return math.Round(v*100) / 100
}

// Location represents a resolved place for which we show weather.
//
// Lat/Lon are rounded for display. LatRaw/LonRaw hold the rounded device
// coordinates that produced the location and are zero for locations found
// by manual search.
type Location struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	LatRaw     float64 `json:"latRaw"`
	LonRaw     float64 `json:"lonRaw"`
	Name       string  `json:"location"`
	State      string  `json:"state"`
	PostalCode string  `json:"postalCode,omitempty"`
	Country    string  `json:"country"`
}

// Key returns the rounded-coordinate identity of this location.
func (l Location) Key() string {
	return fmt.Sprintf("%.2f,%.2f", RoundCoord(l.Lat), RoundCoord(l.Lon))
}

// SamePlace reports whether both locations share the rounded-coordinate key.
func (l Location) SamePlace(other Location) bool {
	return RoundCoord(l.Lat) == RoundCoord(other.Lat) && RoundCoord(l.Lon) == RoundCoord(other.Lon)
}

// HasCoordinates reports whether the location carries a usable lat/lon pair.
func (l Location) HasCoordinates() bool {
	return l.Lat != 0 && l.Lon != 0
}

// GeocodeQuery describes a forward geocode search.
// Either City and State, or PostalCode, must be set. CountryCode is always required.
type GeocodeQuery struct {
	CountryCode string `json:"countryCode" validate:"required,len=2,alpha"`
	City        string `json:"city" validate:"required_without=PostalCode"`
	State       string `json:"state" validate:"required_without=PostalCode"`
	PostalCode  string `json:"postalCode" validate:"required_without_all=City State"`
}

// GeocodeResult is a geocoder answer at raw upstream precision.
type GeocodeResult struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Name    string  `json:"name"`
	State   string  `json:"state"`
	Country string  `json:"country"`
}

// CurrentCondition is the "now" block of a snapshot.
type CurrentCondition struct {
	Temperature     float64 `json:"temperature"`
	FeelsLike       float64 `json:"feelsLike"`
	Pressure        float64 `json:"pressure"`
	Humidity        float64 `json:"humidity"`
	WindSpeed       float64 `json:"windSpeed"`
	WindGusts       float64 `json:"windGusts"`
	Description     string  `json:"description"`
	DescriptionID   int     `json:"descriptionId"`
	CloudPercentage float64 `json:"cloudPercentage"`
	UVIndex         float64 `json:"uvIndex"`
}

// HourlyCondition is one entry of the hourly forecast.
type HourlyCondition struct {
	Time            time.Time `json:"time"`
	Temperature     float64   `json:"temperature"`
	FeelsLike       float64   `json:"feelsLike"`
	Pressure        float64   `json:"pressure"`
	Humidity        float64   `json:"humidity"`
	DewPoint        float64   `json:"dewPoint"`
	CloudPercentage float64   `json:"cloudPercentage"`
	WindSpeed       float64   `json:"windSpeed"`
	WindGusts       float64   `json:"windGusts"`
	Description     string    `json:"description"`
	DescriptionID   int       `json:"descriptionId"`
}

// DayTemperatures holds the temperature profile of a day.
type DayTemperatures struct {
	Day   float64 `json:"day"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Night float64 `json:"night"`
	Eve   float64 `json:"eve"`
	Morn  float64 `json:"morn"`
}

// DailyCondition is one entry of the daily forecast.
type DailyCondition struct {
	Time            time.Time       `json:"time"`
	Sunrise         time.Time       `json:"sunrise"`
	Sunset          time.Time       `json:"sunset"`
	Summary         string          `json:"summary,omitempty"`
	Temp            DayTemperatures `json:"temp"`
	FeelsLike       DayTemperatures `json:"feelsLike"`
	Pressure        float64         `json:"pressure"`
	Humidity        float64         `json:"humidity"`
	WindSpeed       float64         `json:"windSpeed"`
	WindGusts       float64         `json:"windGusts"`
	Description     string          `json:"description"`
	DescriptionID   int             `json:"descriptionId"`
	CloudPercentage float64         `json:"cloudPercentage"`
	UVIndex         float64         `json:"uvIndex"`
}

// WeatherSnapshot is the most recent weather payload for the current location.
// Hourly and Daily are ordered as received; Daily[0] is today.
type WeatherSnapshot struct {
	CurrentCondition CurrentCondition  `json:"currentCondition"`
	HourlyConditions []HourlyCondition `json:"hourlyConditions"`
	DailyConditions  []DailyCondition  `json:"dailyConditions"`
}

// Today returns the first daily entry, if any.
func (s WeatherSnapshot) Today() (DailyCondition, bool) {
	if len(s.DailyConditions) == 0 {
		return DailyCondition{}, false
	}
	return s.DailyConditions[0], true
}

// capHourly trims the hourly sequence to MaxHourlyConditions.
func (s *WeatherSnapshot) capHourly() {
	if len(s.HourlyConditions) > MaxHourlyConditions {
		s.HourlyConditions = s.HourlyConditions[:MaxHourlyConditions]
	}
}
