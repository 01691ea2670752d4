package render

import (
	"strings"
	"sync"
)

// Op is a DOM mutation understood by the browser shim.
type Op string

const (
	// OpHTML replaces the inner HTML of the element with id Target.
	OpHTML Op = "html"
	// OpAppend appends HTML (a single node with id ID) to Target.
	OpAppend Op = "append"
	// OpRemove removes the element with id Target.
	OpRemove Op = "remove"
	// OpFocus focuses the element with id Target.
	OpFocus Op = "focus"
	// OpShow and OpHide toggle the "hidden" class on Target.
	OpShow Op = "show"
	OpHide Op = "hide"
)

// Element ids of the host page regions the renderer writes into.
const (
	RegionTable      = "machine-tbody"
	RegionStats      = "stats-bar"
	RegionPagination = "pagination"
	RegionFilters    = "filter-bar"
	RegionModal      = "modal-root"
	RegionConfirm    = "confirm-root"
	RegionToasts     = "toast-container"

	ModalOverlay   = "modal-overlay"
	ConfirmOverlay = "confirm-overlay"
)

// Patch is one DOM mutation.
type Patch struct {
	Op     Op     `json:"op"`
	Target string `json:"target"`
	HTML   string `json:"html,omitempty"`
	ID     string `json:"id,omitempty"`
}

// Surface receives patches. Implementations must be safe for concurrent use.
type Surface interface {
	Apply(patches ...Patch)
}

// Tee fans patches out to several surfaces in order.
type Tee []Surface

func (t Tee) Apply(patches ...Patch) {
	for _, s := range t {
		s.Apply(patches...)
	}
}

type node struct {
	id   string
	html string
}

// Document is an in-memory Surface that keeps the latest content of every
// region. It mirrors what the browser shows.
type Document struct {
	mu       sync.Mutex
	regions  map[string]string
	appended map[string][]node
	visible  map[string]bool
	focused  string
	applied  int
}

// NewDocument returns an empty Document.
func NewDocument() *Document {
	return &Document{
		regions:  make(map[string]string),
		appended: make(map[string][]node),
		visible:  make(map[string]bool),
	}
}

func (d *Document) Apply(patches ...Patch) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range patches {
		d.applied++
		switch p.Op {
		case OpHTML:
			d.regions[p.Target] = p.HTML
			delete(d.appended, p.Target)
		case OpAppend:
			d.appended[p.Target] = append(d.appended[p.Target], node{id: p.ID, html: p.HTML})
		case OpRemove:
			for region, nodes := range d.appended {
				kept := nodes[:0:0]
				for _, n := range nodes {
					if n.id != p.Target {
						kept = append(kept, n)
					}
				}
				d.appended[region] = kept
			}
		case OpFocus:
			d.focused = p.Target
		case OpShow:
			d.visible[p.Target] = true
		case OpHide:
			d.visible[p.Target] = false
		}
	}
}

// HTML returns the current markup of a region, appended nodes included.
func (d *Document) HTML(region string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b strings.Builder
	b.WriteString(d.regions[region])
	for _, n := range d.appended[region] {
		b.WriteString(n.html)
	}
	return b.String()
}

// Children returns the ids of nodes appended to region, oldest first.
func (d *Document) Children(region string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.appended[region]))
	for _, n := range d.appended[region] {
		ids = append(ids, n.id)
	}
	return ids
}

// Visible reports whether target was last shown rather than hidden.
func (d *Document) Visible(target string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visible[target]
}

// Snapshot returns patches that rebuild the document from scratch.
func (d *Document) Snapshot() []Patch {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Patch
	// Regions first: an html patch drops the nodes appended to it.
	for region, html := range d.regions {
		out = append(out, Patch{Op: OpHTML, Target: region, HTML: html})
	}
	for region, nodes := range d.appended {
		if _, ok := d.regions[region]; !ok {
			// Clear nodes the browser may still show from lost remove patches.
			out = append(out, Patch{Op: OpHTML, Target: region})
		}
		for _, n := range nodes {
			out = append(out, Patch{Op: OpAppend, Target: region, HTML: n.html, ID: n.id})
		}
	}
	for target, on := range d.visible {
		op := OpHide
		if on {
			op = OpShow
		}
		out = append(out, Patch{Op: op, Target: target})
	}
	return out
}

// Focused returns the id of the last focused element.
func (d *Document) Focused() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.focused
}

// Applied returns how many patches have been applied.
func (d *Document) Applied() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.applied
}
