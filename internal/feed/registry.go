package feed

// Element is the laid-out position of one rendered item, in content
// coordinates (rows from the top of the scrollable content).
type Element struct {
	Path   string
	Page   int
	Top    int
	Height int
}

// Registry maps item paths to their rendered elements. The renderer attaches
// an element for every item it lays out and detaches items it drops.
type Registry struct {
	elements map[string]Element
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{elements: make(map[string]Element)}
}

// Attach registers or moves an element
func (r *Registry) Attach(el Element) {
	r.elements[el.Path] = el
}

// Detach forgets the element for path
func (r *Registry) Detach(path string) {
	delete(r.elements, path)
}

// Lookup returns the element registered for path
func (r *Registry) Lookup(path string) (Element, bool) {
	el, ok := r.elements[path]
	return el, ok
}

// Paths returns every registered path in no particular order
func (r *Registry) Paths() []string {
	out := make([]string, 0, len(r.elements))
	for p := range r.elements {
		out = append(out, p)
	}
	return out
}

// Len returns the number of registered elements
func (r *Registry) Len() int {
	return len(r.elements)
}

// Clear detaches every element
func (r *Registry) Clear() {
	r.elements = make(map[string]Element)
}
