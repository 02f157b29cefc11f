package collision

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Uniform grid over the growth domain.
//
// The domain is the cube [0, Size]^3, split into Subdivisions^3 buckets. Each
// accepted sphere is stored in the bucket that holds its center, so a query
// only has to look at buckets that lie within the largest stored radius plus
// the candidate radius.
const (
	Size         = 3.0
	Subdivisions = 24
	RadiusMax    = .12
	Epsilon      = .001

	inverseCellSize = Subdivisions / Size
)

// Field answers whether a sphere fits among previously accepted spheres and
// the registered volumes. A Field is not safe for concurrent use.
type Field struct {
	buckets   [][]Sphere
	bounds    []Volume
	obstacles []Volume
	radiusMax float64
	count     int
}

func NewField() *Field {
	return &Field{
		buckets:   make([][]Sphere, Subdivisions*Subdivisions*Subdivisions),
		radiusMax: RadiusMax,
	}
}

// AddVolume registers a volume that candidates must lie in. When several
// bounds are registered, lying in one of them is enough.
func (f *Field) AddVolume(v Volume) {
	f.bounds = append(f.bounds, v)
}

// SubtractVolume registers a volume that candidates must not lie in.
func (f *Field) SubtractVolume(v Volume) {
	f.obstacles = append(f.obstacles, v)
}

// Fits reports whether a sphere can be placed at center without intersecting
// any accepted sphere.
func (f *Field) Fits(center r3.Vec, radius float64) bool {
	return f.fits(center, radius, nil)
}

// FitsExcluding is like Fits but ignores accepted spheres centered exactly at
// exclude. Nodes use it to test candidates touching their own sphere.
func (f *Field) FitsExcluding(center r3.Vec, radius float64, exclude r3.Vec) bool {
	return f.fits(center, radius, &exclude)
}

func (f *Field) fits(center r3.Vec, radius float64, exclude *r3.Vec) bool {
	if !inDomain(center) {
		return false
	}

	if len(f.bounds) != 0 {
		contained := false
		for _, v := range f.bounds {
			if v.Contains(center) {
				contained = true
				break
			}
		}
		if !contained {
			return false
		}
	}

	for _, v := range f.obstacles {
		if v.Contains(center) {
			return false
		}
	}

	reach := f.radiusMax + radius
	xStart, xEnd := cellRange(center.X, reach)
	yStart, yEnd := cellRange(center.Y, reach)
	zStart, zEnd := cellRange(center.Z, reach)

	for z := zStart; z <= zEnd; z++ {
		for y := yStart; y <= yEnd; y++ {
			for x := xStart; x <= xEnd; x++ {
				for _, s := range f.buckets[bucketIndex(x, y, z)] {
					if exclude != nil && s.Center == *exclude {
						continue
					}

					distance := math.Sqrt(r3.Norm2(r3.Sub(center, s.Center)))
					if distance < radius+s.Radius-Epsilon {
						return false
					}
				}
			}
		}
	}

	return true
}

// Add stores an accepted sphere. Centers outside the domain are clamped to
// the nearest bucket.
func (f *Field) Add(center r3.Vec, radius float64) {
	i := bucketIndex(cell(center.X), cell(center.Y), cell(center.Z))
	f.buckets[i] = append(f.buckets[i], Sphere{Center: center, Radius: radius})
	f.count++

	if radius > f.radiusMax {
		f.radiusMax = radius
	}
}

// Count returns the number of accepted spheres.
func (f *Field) Count() int {
	return f.count
}

// Spheres returns every accepted sphere in bucket order.
func (f *Field) Spheres() []Sphere {
	spheres := make([]Sphere, 0, f.count)
	for _, b := range f.buckets {
		spheres = append(spheres, b...)
	}
	return spheres
}

// Bounds returns the registered bounds volumes.
func (f *Field) Bounds() []Volume {
	return f.bounds
}

// Obstacles returns the registered obstacle volumes.
func (f *Field) Obstacles() []Volume {
	return f.obstacles
}

// RadiusMax returns the scan envelope used by queries.
func (f *Field) RadiusMax() float64 {
	return f.radiusMax
}

// Occupancy returns the number of spheres per bucket, indexed as
// x + (y + z*Subdivisions)*Subdivisions.
func (f *Field) Occupancy() []uint32 {
	occupancy := make([]uint32, len(f.buckets))
	for i, b := range f.buckets {
		occupancy[i] = uint32(len(b))
	}
	return occupancy
}

func inDomain(p r3.Vec) bool {
	return p.X >= 0 && p.Y >= 0 && p.Z >= 0 &&
		p.X <= Size && p.Y <= Size && p.Z <= Size
}

func cell(coordinate float64) int {
	return clamp(int(math.Floor(coordinate * inverseCellSize)))
}

func cellRange(coordinate, reach float64) (int, int) {
	return cell(coordinate - reach), cell(coordinate + reach)
}

func clamp(i int) int {
	return max(0, min(Subdivisions-1, i))
}

func bucketIndex(x, y, z int) int {
	return x + (y+z*Subdivisions)*Subdivisions
}
