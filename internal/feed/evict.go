package feed

import "sort"

// Evict trims the store to at most maxResident pages by removing the pages
// farthest from center. Ties go to the larger (older) index first. It
// returns the evicted indices.
func Evict(s *PageStore, center, maxResident int) []int {
	if maxResident < 1 {
		maxResident = 1
	}
	surplus := s.Len() - maxResident
	if surplus <= 0 {
		return nil
	}

	idx := s.Indices()
	sort.SliceStable(idx, func(a, b int) bool {
		da, db := abs(idx[a]-center), abs(idx[b]-center)
		if da != db {
			return da > db
		}
		return idx[a] > idx[b]
	})

	evicted := idx[:surplus]
	for _, i := range evicted {
		s.Delete(i)
	}
	sort.Ints(evicted)
	return evicted
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
