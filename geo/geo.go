// Package geo resolves addresses and coordinates through the Google
// Geocoding API and provides the distance helper used for service-area
// checks.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/goliatone/go-errors"
)

const geocodeEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

// Point is a geographic coordinate pair.
type Point struct {
	Longitude float64 `json:"lng"`
	Latitude  float64 `json:"lat"`
}

// Result is a resolved location.
type Result struct {
	Point            Point
	FormattedAddress string
	City             string
	State            string
	ZipCode          string
}

// Client calls the geocoding API. The key is explicit configuration; there
// is no package-level default.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewClient returns a geocoding client with a bounded request timeout.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    geocodeEndpoint,
	}
}

// WithBaseURL overrides the API endpoint, used by tests.
func (c *Client) WithBaseURL(base string) *Client {
	if base != "" {
		c.baseURL = base
	}
	return c
}

// WithHTTPClient overrides the transport.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// FromAddress geocodes a street address.
func (c *Client) FromAddress(ctx context.Context, address, city, state, zipCode string) (*Result, error) {
	query := fmt.Sprintf("%s, %s, %s %s", address, city, state, zipCode)

	result, err := c.geocode(ctx, url.Values{"address": []string{query}})
	if err != nil {
		return nil, err
	}

	// trust the caller's locality fields over the API's when provided
	if city != "" {
		result.City = city
	}
	if state != "" {
		result.State = state
	}
	if zipCode != "" {
		result.ZipCode = zipCode
	}

	return result, nil
}

// FromLatLng reverse-geocodes a coordinate pair.
func (c *Client) FromLatLng(ctx context.Context, lat, lng float64) (*Result, error) {
	return c.geocode(ctx, url.Values{
		"latlng": []string{fmt.Sprintf("%f,%f", lat, lng)},
	})
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress  string `json:"formatted_address"`
		AddressComponents []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (c *Client) geocode(ctx context.Context, params url.Values) (*Result, error) {
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to build geocode request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "geocode request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("geocode request rejected", errors.CategoryOperation).
			WithMetadata(map[string]any{"status": resp.StatusCode})
	}

	var payload geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to decode geocode response")
	}

	if payload.Status != "OK" || len(payload.Results) == 0 {
		return nil, errors.New("no geocode result for query", errors.CategoryNotFound).
			WithMetadata(map[string]any{"status": payload.Status})
	}

	top := payload.Results[0]
	result := &Result{
		Point: Point{
			Longitude: top.Geometry.Location.Lng,
			Latitude:  top.Geometry.Location.Lat,
		},
		FormattedAddress: top.FormattedAddress,
	}

	for _, comp := range top.AddressComponents {
		for _, t := range comp.Types {
			switch t {
			case "locality":
				result.City = comp.LongName
			case "administrative_area_level_1":
				result.State = comp.LongName
			case "postal_code":
				result.ZipCode = comp.LongName
			}
		}
	}

	return result, nil
}

// Bounds is the bounding box enclosing a circular service area.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Area is a resolved service area: a circle around a center, with the
// locality the center falls in and the box enclosing the circle.
type Area struct {
	Center Point   `json:"center"`
	Radius float64 `json:"radius"`
	City   string  `json:"city"`
	State  string  `json:"state"`
	Bounds Bounds  `json:"bounds"`
}

// ServiceArea reverse-geocodes the center and describes the circular area
// of the given radius (meters) around it.
func (c *Client) ServiceArea(ctx context.Context, center Point, radius float64) (*Area, error) {
	if radius <= 0 {
		return nil, errors.New("service area radius must be positive", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	result, err := c.FromLatLng(ctx, center.Latitude, center.Longitude)
	if err != nil {
		return nil, err
	}

	return &Area{
		Center: center,
		Radius: radius,
		City:   result.City,
		State:  result.State,
		Bounds: BoundsAround(center, radius),
	}, nil
}

// metersPerDegreeLat is the meridian arc length of one degree of latitude.
const metersPerDegreeLat = 111320

// BoundsAround returns the bounding box enclosing a circle of the given
// radius in meters around the center.
func BoundsAround(center Point, radius float64) Bounds {
	latDelta := radius / metersPerDegreeLat
	lngDelta := radius / (metersPerDegreeLat * math.Cos(center.Latitude*math.Pi/180))

	return Bounds{
		North: center.Latitude + latDelta,
		South: center.Latitude - latDelta,
		East:  center.Longitude + lngDelta,
		West:  center.Longitude - lngDelta,
	}
}

// WithinRadius reports whether p falls inside the circle of the given
// radius (meters) around center.
func WithinRadius(center Point, radius float64, p Point) bool {
	return Distance(center, p) <= radius
}

// ValidCoordinates reports whether the pair is a real-world coordinate.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

const earthRadiusMeters = 6371000

// Distance returns the haversine distance between two points in meters.
func Distance(a, b Point) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
