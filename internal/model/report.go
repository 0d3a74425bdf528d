package model

import (
	"sort"
	"time"
)

// DepthCount is the number of pages found at one crawl depth.
type DepthCount struct {
	// Depth is the shortest-path distance from the root.
	Depth int `json:"depth"`

	// Count is the number of pages at this depth.
	Count int `json:"count"`
}

// DepthReport summarizes a finished crawl after shortest paths were computed.
// It is what the report writers render and what the database stores.
type DepthReport struct {
	// Root is the URL the crawl started from.
	Root string `json:"root"`

	// GeneratedAt is when the report was built.
	GeneratedAt time.Time `json:"generated_at"`

	// Duration is the wall-clock time of the crawl.
	Duration time.Duration `json:"duration"`

	// TotalPages is the number of pages in the store when the report was built.
	TotalPages int `json:"total_pages"`

	// ErrorPages counts pages whose fetch failed.
	ErrorPages int `json:"error_pages"`

	// ErrorStatuses counts pages answered with a 4xx or 5xx code.
	ErrorStatuses int `json:"error_statuses"`

	// Depths lists page counts per depth, ascending by depth.
	Depths []DepthCount `json:"depths"`

	// Unreached lists URLs with no defined depth, sorted.
	Unreached []string `json:"unreached,omitempty"`
}

// NewDepthReport builds a DepthReport from the pages of a crawl.
func NewDepthReport(root string, pages []*Page) *DepthReport {
	r := &DepthReport{
		Root:        root,
		GeneratedAt: time.Now(),
		TotalPages:  len(pages),
		Depths:      make([]DepthCount, 0),
	}

	counts := make(map[int]int)
	for _, p := range pages {
		if p.Failed() {
			r.ErrorPages++
		}
		if p.ErrorStatus() {
			r.ErrorStatuses++
		}
		depth, ok := p.Depth()
		if !ok {
			r.Unreached = append(r.Unreached, p.String())
			continue
		}
		counts[depth]++
	}

	for depth, count := range counts {
		r.Depths = append(r.Depths, DepthCount{Depth: depth, Count: count})
	}
	sort.Slice(r.Depths, func(i, j int) bool {
		return r.Depths[i].Depth < r.Depths[j].Depth
	})
	sort.Strings(r.Unreached)

	return r
}

// MaxDepth returns the deepest level reached, or -1 for an empty report.
func (r *DepthReport) MaxDepth() int {
	if len(r.Depths) == 0 {
		return -1
	}
	return r.Depths[len(r.Depths)-1].Depth
}

// ReachedPages returns the number of pages with a defined depth.
func (r *DepthReport) ReachedPages() int {
	total := 0
	for _, d := range r.Depths {
		total += d.Count
	}
	return total
}
