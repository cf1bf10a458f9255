package feed

// DefaultItemHeight is the estimate used before any item has been measured
const DefaultItemHeight = 4

// HeightEstimator tracks measured item heights and estimates the height of
// items and pages that have not been laid out.
type HeightEstimator struct {
	heights  map[string]int
	sum      int
	fallback int
}

// NewHeightEstimator creates an estimator that answers fallback until the
// first measurement arrives
func NewHeightEstimator(fallback int) *HeightEstimator {
	if fallback <= 0 {
		fallback = DefaultItemHeight
	}
	return &HeightEstimator{
		heights:  make(map[string]int),
		fallback: fallback,
	}
}

// Record stores the measured height of an item, overwriting any earlier value
func (h *HeightEstimator) Record(path string, height int) {
	if old, ok := h.heights[path]; ok {
		h.sum -= old
	}
	h.heights[path] = height
	h.sum += height
}

// Height returns the last measured height of path
func (h *HeightEstimator) Height(path string) (int, bool) {
	v, ok := h.heights[path]
	return v, ok
}

// Estimate returns the mean of all recorded heights, weighted equally
func (h *HeightEstimator) Estimate() float64 {
	if len(h.heights) == 0 {
		return float64(h.fallback)
	}
	return float64(h.sum) / float64(len(h.heights))
}

// EstimatePageHeight sums the known heights of a page's items and uses
// Estimate for the rest
func (h *HeightEstimator) EstimatePageHeight(p *Page) float64 {
	var total float64
	est := h.Estimate()
	for _, it := range p.Items {
		if v, ok := h.heights[it.Path]; ok {
			total += float64(v)
		} else {
			total += est
		}
	}
	return total
}

// Len returns the number of measured items
func (h *HeightEstimator) Len() int {
	return len(h.heights)
}

// Reset forgets every measurement
func (h *HeightEstimator) Reset() {
	h.heights = make(map[string]int)
	h.sum = 0
}
