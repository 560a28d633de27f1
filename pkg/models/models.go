package models

import "github.com/kass/go-openroute/pkg/geo"

// Location represents a geographic location with latitude and longitude
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LocationOf converts a coordinate into a plain degree location
func LocationOf(c geo.Coordinate) Location {
	return Location{Lat: c.Latitude(), Lon: c.Longitude()}
}

// BoundingBox represents a rectangular area defined by two corners
type BoundingBox struct {
	BottomLeft Location `json:"bottomLeft"`
	TopRight   Location `json:"topRight"`
}

// BoundingBoxFromLonLat builds a box from the [minLon, minLat, maxLon, maxLat]
// order used by GeoJSON and the directions service
func BoundingBoxFromLonLat(bbox [4]float64) BoundingBox {
	return BoundingBox{
		BottomLeft: Location{Lat: bbox[1], Lon: bbox[0]},
		TopRight:   Location{Lat: bbox[3], Lon: bbox[2]},
	}
}

// CrossesAntimeridian reports whether the box wraps from +180° to -180°,
// which GeoJSON writes as a west edge east of the east edge
func (b BoundingBox) CrossesAntimeridian() bool {
	return b.BottomLeft.Lon > b.TopRight.Lon
}

// Contains reports whether loc lies inside the box, borders included
func (b BoundingBox) Contains(loc Location) bool {
	if loc.Lat < b.BottomLeft.Lat || loc.Lat > b.TopRight.Lat {
		return false
	}
	if b.CrossesAntimeridian() {
		return loc.Lon >= b.BottomLeft.Lon || loc.Lon <= b.TopRight.Lon
	}
	return loc.Lon >= b.BottomLeft.Lon && loc.Lon <= b.TopRight.Lon
}

// Center returns the midpoint of the box
func (b BoundingBox) Center() Location {
	east := b.TopRight.Lon
	if b.CrossesAntimeridian() {
		east += 360
	}
	lon := (b.BottomLeft.Lon + east) / 2
	if lon > 180 {
		lon -= 360
	}
	return Location{
		Lat: (b.BottomLeft.Lat + b.TopRight.Lat) / 2,
		Lon: lon,
	}
}
