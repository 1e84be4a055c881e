package dsstore

import (
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/headStarter-Travel-app/travelAppBackend/model"
)

const (
	dimensions  = 2
	minChildren = 25
	maxChildren = 50
	// tolerance is the half-width of the rectangle indexed for each point.
	// Search results are rechecked against the exact bounds.
	tolerance = 1e-7
)

type indexItem struct {
	id    string
	point model.Point
	rect  rtreego.Rect
}

func (it *indexItem) Bounds() rtreego.Rect {
	return it.rect
}

// spatialIndex is an R-tree of entry IDs keyed by coordinates.
type spatialIndex struct {
	mu    sync.RWMutex
	tree  *rtreego.Rtree
	items map[string]*indexItem
}

func newSpatialIndex() *spatialIndex {
	return &spatialIndex{
		tree:  rtreego.NewTree(dimensions, minChildren, maxChildren),
		items: make(map[string]*indexItem),
	}
}

// put indexes id at p, replacing any previous position.
func (x *spatialIndex) put(id string, p model.Point) {
	item := &indexItem{
		id:    id,
		point: p,
		rect:  rtreego.Point{p.Lat, p.Lon}.ToRect(tolerance),
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if old, ok := x.items[id]; ok {
		if old.point == p {
			return
		}
		x.tree.Delete(old)
	}
	x.tree.Insert(item)
	x.items[id] = item
}

// search returns the IDs of all points inside b, edges inclusive.
func (x *spatialIndex) search(b model.BoundingBox) ([]string, error) {
	rect, err := rtreego.NewRectFromPoints(
		rtreego.Point{b.LatMin - tolerance, b.LonMin - tolerance},
		rtreego.Point{b.LatMax + tolerance, b.LonMax + tolerance})
	if err != nil {
		return nil, err
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	var ids []string
	for _, s := range x.tree.SearchIntersect(rect) {
		item := s.(*indexItem)
		if b.Contains(item.point) {
			ids = append(ids, item.id)
		}
	}
	return ids, nil
}

func (x *spatialIndex) len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.items)
}
