package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/wroge/wgs84"

	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

// World positions are projected metres. When a theatre EPSG code is configured
// (a UTM zone or 3857), positions can be expressed as WGS84 lon/lat for journal records.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// EPSGWGS84 is the geographic lon/lat code.
const EPSGWGS84 = 4326

// Position3DFromString parses a "x,y" or "x,y,z" string into a core.Position3D.
func Position3DFromString(coords string) (core.Position3D, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 || len(coordsSplit) > 3 {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	var z float64
	if len(coordsSplit) > 2 {
		z, err = strconv.ParseFloat(strings.TrimSpace(coordsSplit[2]), 64)
		if err != nil {
			return core.Position3D{}, ErrInvalidCoordinates
		}
	}
	p := core.Position3D{X: x, Y: y, Z: z}
	if !p.IsFinite() {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	return p, nil
}

// LonLat is a geographic WGS84 coordinate.
type LonLat struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// ToWGS84 converts a projected world position (in the given EPSG system) to lon/lat.
// An epsg of 0 means the theatre is not geo-referenced. Unknown codes, positions
// outside the system's area and non-finite results report false.
func ToWGS84(p core.Position3D, epsg int) (LonLat, bool) {
	if epsg == 0 {
		return LonLat{}, false
	}
	if epsg == EPSGWGS84 {
		return LonLat{Lon: p.X, Lat: p.Y}, true
	}
	f := wgs84.EPSG().SafeTransform(epsg, EPSGWGS84)
	lon, lat, _, err := f(p.X, p.Y, p.Z)
	if err != nil || !finite(lon) || !finite(lat) {
		return LonLat{}, false
	}
	return LonLat{Lon: lon, Lat: lat}, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
