// Package quadtree selects which patches in the LOD pyramid should be
// visible for a given focus point, lazily materialising only the nodes it
// touches.
//
// The quadtree's own nesting convention is the mirror of patchid.ID's
// level: nesting 0 is the root (coarsest, the whole pyramid), and nesting
// increases towards the leaves (finest). A patch at patchid level L has
// nesting = maxLevel - L, so the root patches (level == maxLevel) sit at
// nesting 0 regardless of how deep the pyramid goes.
package quadtree

import (
	"sync"

	"github.com/aresrpg/voxel-lod-mesher/pkg/patchid"
)

// Node is one address in the quadtree. It mirrors a patchid.ID but is
// addressed and linked using the tree's nesting convention.
type Node struct {
	id       patchid.ID
	nesting  int
	visible  bool
	children *[4]*Node // nil until split
}

// ID returns the patch identity this node addresses.
func (n *Node) ID() patchid.ID { return n.id }

// Nesting returns the node's depth below the root (0 = root).
func (n *Node) Nesting() int { return n.nesting }

// IsVisible reports whether the node is currently marked visible.
func (n *Node) IsVisible() bool { return n.visible }

// IsSplit reports whether the node has materialised children.
func (n *Node) IsSplit() bool { return n.children != nil }

// Selector owns the lazily-built node cache for one pyramid configuration
// and the distance thresholds that drive LOD selection.
type Selector struct {
	mu sync.Mutex

	basePatchSize int
	maxLevel      int

	// splitFactor scales a patch's own side length into the focus
	// distance within which it must be subdivided: a patch of side S
	// (above level 0) splits once the focus is closer than splitFactor*S
	// to its centre.
	splitFactor float64

	nodes map[string]*Node
}

// NewSelector builds a selector for a pyramid with the given base patch
// size (finest level side length) and number of levels above it.
func NewSelector(basePatchSize, maxLevel int, splitFactor float64) *Selector {
	return &Selector{
		basePatchSize: basePatchSize,
		maxLevel:      maxLevel,
		splitFactor:   splitFactor,
		nodes:         make(map[string]*Node),
	}
}

func (s *Selector) nesting(id patchid.ID) int {
	return s.maxLevel - id.Level
}

// TryGetNode returns the node for id if it has already been materialised,
// without creating it.
func (s *Selector) TryGetNode(id patchid.ID) (*Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id.Key()]
	return n, ok
}

// GetOrBuildNode returns the node for id, creating it (and nothing else:
// parents and children are built separately, by RootNodes and split) if it
// doesn't exist yet.
func (s *Selector) GetOrBuildNode(id patchid.ID) *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrBuildNodeLocked(id)
}

func (s *Selector) getOrBuildNodeLocked(id patchid.ID) *Node {
	if n, ok := s.nodes[id.Key()]; ok {
		return n
	}
	n := &Node{id: id, nesting: s.nesting(id)}
	s.nodes[id.Key()] = n
	return n
}

// RootNodes returns the coarsest (level == maxLevel) patches with ix in
// [minIX, minIX+countX) and iy in [minIY, minIY+countY), in row-major
// order, materialising them if needed.
func (s *Selector) RootNodes(minIX, minIY, countX, countY int) []*Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Node, 0, countX*countY)
	for iy := minIY; iy < minIY+countY; iy++ {
		for ix := minIX; ix < minIX+countX; ix++ {
			id := patchid.ID{Level: s.maxLevel, IX: ix, IY: iy}
			out = append(out, s.getOrBuildNodeLocked(id))
		}
	}
	return out
}

func (s *Selector) setVisible(n *Node, v bool) { n.visible = v }

// split materialises a node's four children (level-1) and clears the
// parent's own visibility: a node is either a visible leaf or a split
// interior node, never both.
func (s *Selector) split(n *Node) [4]*Node {
	if n.children != nil {
		return *n.children
	}
	kids := n.id.Children()
	var built [4]*Node
	for i, k := range kids {
		built[i] = s.getOrBuildNodeLocked(k)
	}
	n.children = &built
	n.visible = false
	return built
}

// Focus is the point and distances driving patch selection: patches with
// centres inside Distance are kept resident (and may be visible); those
// whose centres are also inside HideDistance are hidden instead.
type Focus struct {
	X, Z          float64
	Distance      float64
	HideDistance  float64
}

func dist2(x1, z1, x2, z2 float64) float64 {
	dx, dz := x1-x2, z1-z2
	return dx*dx + dz*dz
}

// SelectVisible runs the four-step visibility pass starting from the given
// root nodes: (1) recursively split any node whose own resolution is too
// coarse for the focus distance, (2) stop splitting once a node's side
// length satisfies the distance test or the pyramid bottoms out at level
// 0, (3) within the kept distance, patches also inside HideDistance are
// suppressed rather than shown, (4) prune split nodes down to exactly
// their visible descendants, leaving no dangling interior nodes marked
// visible. It returns the leaves the pass settles on, split into visible
// (shown) and hidden (resident but suppressed by HideDistance). Both are
// leaves of the selection, i.e. patches the mesher should have a resident
// node for at this tick.
func (s *Selector) SelectVisible(roots []*Node, focus Focus) (visible, hidden []*Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range roots {
		s.selectRec(r, focus, &visible, &hidden)
	}
	return visible, hidden
}

func (s *Selector) selectRec(n *Node, focus Focus, visible, hidden *[]*Node) {
	side := patchid.Side(s.basePatchSize, n.id.Level)
	cx, cz := n.id.Center(s.basePatchSize)[0], n.id.Center(s.basePatchSize)[1]
	d2 := dist2(focus.X, focus.Z, cx, cz)

	if d2 > focus.Distance*focus.Distance {
		s.setVisible(n, false)
		n.children = nil
		return
	}

	needsSplit := n.id.Level > 0 && d2 < (s.splitFactor*side)*(s.splitFactor*side)
	if !needsSplit {
		isHidden := focus.HideDistance > 0 && d2 < focus.HideDistance*focus.HideDistance
		s.setVisible(n, !isHidden)
		n.children = nil
		if isHidden {
			*hidden = append(*hidden, n)
		} else {
			*visible = append(*visible, n)
		}
		return
	}

	for _, child := range s.split(n) {
		s.selectRec(child, focus, visible, hidden)
	}
}

// GarbageCollect drops every cached node whose patch centre now lies
// farther than keepDistance from focus, so the selector's node map doesn't
// grow without bound as the focus moves across the pyramid.
func (s *Selector) GarbageCollect(focus Focus, keepDistance float64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, n := range s.nodes {
		cx, cz := n.id.Center(s.basePatchSize)[0], n.id.Center(s.basePatchSize)[1]
		if dist2(focus.X, focus.Z, cx, cz) > keepDistance*keepDistance {
			delete(s.nodes, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of materialised nodes, for diagnostics.
func (s *Selector) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}
