// Package scanio defines the scan-frame data model and the wire protocol
// spoken between the scan-source parent and its isolated child worker.
package scanio

import (
	"github.com/chewxy/math32"

	"github.com/hyva-rover/roverbrain/internal/geom"
)

// Point is a single LiDAR range reading.
type Point struct {
	AngleDeg float32 `json:"angle_deg"`
	Distance float32 `json:"distance_m"`
	X        float32 `json:"x_m"`
	Y        float32 `json:"y_m"`
}

// Frame is a single revolution of range data.
type Frame struct {
	Timestamp float64 `json:"timestamp"`
	Points    []Point `json:"points"`
}

// MinPoints is the minimum point count below which a frame is dropped
// rather than published.
const MinPoints = 5

// NewPoint builds a Point from an angle in degrees and a distance in
// meters, deriving the cartesian offset under the angle=0 => +y convention.
func NewPoint(angleDeg, distance float32) Point {
	rad := angleDeg * math32.Pi / 180
	dx, dy := geom.Heading(rad)
	return Point{
		AngleDeg: angleDeg,
		Distance: distance,
		X:        distance * dx,
		Y:        distance * dy,
	}
}

// Filter drops points outside [minRange, maxRange] and returns (frame,
// accepted) where accepted is false if fewer than MinPoints points survive.
func Filter(timestamp float64, points []Point, minRange, maxRange float32) (Frame, bool) {
	kept := make([]Point, 0, len(points))
	for _, p := range points {
		if p.Distance < minRange || p.Distance > maxRange {
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) < MinPoints {
		return Frame{}, false
	}
	return Frame{Timestamp: timestamp, Points: kept}, true
}
