// Package geom holds the planar vector math shared by the swarm packages.
package geom

import (
	"fmt"
	"math"
)

// Point is a position (or displacement) on the simulation plane.
type Point struct {
	X float64
	Y float64
}

// Origin is the zero point.
var Origin = Point{}

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale multiplies both components by k.
func (p Point) Scale(k float64) Point { return Point{X: p.X * k, Y: p.Y * k} }

// DistanceTo returns the Euclidean distance between p and q.
func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// BearingTo returns the angle in radians of the vector from p to q.
func (p Point) BearingTo(q Point) float64 {
	return math.Atan2(q.Y-p.Y, q.X-p.X)
}

// Step advances p by length along heading.
func (p Point) Step(heading, length float64) Point {
	return Point{
		X: p.X + length*math.Cos(heading),
		Y: p.Y + length*math.Sin(heading),
	}
}

func (p Point) String() string {
	return fmt.Sprintf("(%.1f,%.1f)", p.X, p.Y)
}

// Centroid returns the arithmetic mean of points, or Origin when empty.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Origin
	}
	var sum Point
	for _, p := range points {
		sum = sum.Add(p)
	}
	n := float64(len(points))
	return Point{X: sum.X / n, Y: sum.Y / n}
}
