package routing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Coordinates is an immutable WGS84 position in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NewCoordinates validates and builds a Coordinates value.
func NewCoordinates(lat, lon float64) (Coordinates, error) {
	c := Coordinates{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		return Coordinates{}, err
	}
	return c, nil
}

// ParseCoordinates reads "lat,lon" text as typed by a user.
func ParseCoordinates(input string) (Coordinates, error) {
	parts := strings.Split(input, ",")
	if len(parts) != 2 {
		return Coordinates{}, &InputError{Input: input, Reason: `expected "lat,lon"`}
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinates{}, &InputError{Input: input, Reason: "latitude is not a number"}
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinates{}, &InputError{Input: input, Reason: "longitude is not a number"}
	}

	c := Coordinates{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		var inputErr *InputError
		if errors.As(err, &inputErr) {
			inputErr.Input = input
		}
		return Coordinates{}, err
	}
	return c, nil
}

// Validate checks the value is a finite position on the globe.
func (c Coordinates) Validate() error {
	switch {
	case math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0):
		return &InputError{Reason: "coordinates must be finite"}
	case c.Lat < -90 || c.Lat > 90:
		return &InputError{Reason: fmt.Sprintf("latitude %v out of range [-90, 90]", c.Lat)}
	case c.Lon < -180 || c.Lon > 180:
		return &InputError{Reason: fmt.Sprintf("longitude %v out of range [-180, 180]", c.Lon)}
	}
	return nil
}

// Point returns the orb point (lon, lat order).
func (c Coordinates) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

func (c Coordinates) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", c.Lat, c.Lon)
}

// MeanEarthRadiusM is the IUGG mean earth radius, the one road lengths in
// OSM-derived data are measured with.
const MeanEarthRadiusM = 6371008.8

// Distance returns the great-circle distance between a and b in meters,
// using the haversine formula on the mean earth radius. orb measures on the
// equatorial radius, so its result is rescaled.
func Distance(a, b Coordinates) float64 {
	return geo.DistanceHaversine(a.Point(), b.Point()) * (MeanEarthRadiusM / orb.EarthRadius)
}

// RegionAround returns the bounding box covering both points padded by
// marginDeg degrees on every side.
func RegionAround(a, b Coordinates, marginDeg float64) orb.Bound {
	bound := orb.MultiPoint{a.Point(), b.Point()}.Bound()
	return bound.Pad(marginDeg)
}
