package usecases

import (
	"iter"
	"slices"

	"github.com/dhconnelly/rtreego"

	"github.com/samirrijal/routeguide/internal/core/domain"
)

// R-tree node fan-out.
const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
)

// indexedFeature is a catalog entry as stored in the R-tree.
type indexedFeature struct {
	pos  int
	rect rtreego.Rect
}

func (f *indexedFeature) Bounds() rtreego.Rect { return f.rect }

// GeoIndex answers point and rectangle queries over a fixed feature catalog.
// It is immutable after construction and safe for concurrent use.
type GeoIndex struct {
	features []domain.Feature
	tree     *rtreego.Rtree
}

// NewGeoIndex builds an index over a copy of features. Catalog order is
// preserved and is the order Query yields results in.
func NewGeoIndex(features []domain.Feature) *GeoIndex {
	catalog := slices.Clone(features)

	objs := make([]rtreego.Spatial, 0, len(catalog))
	for i, f := range catalog {
		objs = append(objs, &indexedFeature{pos: i, rect: pointRect(f.Location)})
	}

	return &GeoIndex{
		features: catalog,
		tree:     rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren, objs...),
	}
}

// Len returns the number of cataloged features, named or not.
func (g *GeoIndex) Len() int {
	return len(g.features)
}

// All returns a copy of the catalog.
func (g *GeoIndex) All() []domain.Feature {
	return slices.Clone(g.features)
}

// Lookup returns the first cataloged feature located exactly at p. When
// there is none it returns an unnamed feature at p.
func (g *GeoIndex) Lookup(p domain.Point) domain.Feature {
	for _, f := range g.features {
		if f.Location == p {
			return f
		}
	}
	return domain.Feature{Location: p}
}

// Query yields every named feature inside r in catalog order. r may have
// its corners in any order. Each iteration re-runs the search.
func (g *GeoIndex) Query(r domain.Rectangle) iter.Seq[domain.Feature] {
	return func(yield func(domain.Feature) bool) {
		for _, pos := range g.candidates(r) {
			f := g.features[pos]
			if !f.Named() || !r.Contains(f.Location) {
				continue
			}
			if !yield(f) {
				return
			}
		}
	}
}

// candidates returns catalog positions whose R-tree box intersects r,
// sorted ascending.
func (g *GeoIndex) candidates(r domain.Rectangle) []int {
	if len(g.features) == 0 {
		return nil
	}
	lo, hi := r.Bounds()
	search, err := rtreego.NewRect(
		rtreego.Point{float64(lo.Latitude) - 1, float64(lo.Longitude) - 1},
		[]float64{float64(hi.Latitude) - float64(lo.Latitude) + 2, float64(hi.Longitude) - float64(lo.Longitude) + 2},
	)
	if err != nil {
		// Full scan.
		positions := make([]int, len(g.features))
		for i := range positions {
			positions[i] = i
		}
		return positions
	}

	hits := g.tree.SearchIntersect(search)
	positions := make([]int, 0, len(hits))
	for _, h := range hits {
		positions = append(positions, h.(*indexedFeature).pos)
	}
	slices.Sort(positions)
	return positions
}

func pointRect(p domain.Point) rtreego.Rect {
	return rtreego.Point{float64(p.Latitude), float64(p.Longitude)}.ToRect(0.5)
}
