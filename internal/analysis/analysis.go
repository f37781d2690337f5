// Package analysis turns raw complaint counts into the oversight summary
// shown to super admins.
package analysis

import (
	"sort"

	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
)

// Summary aggregates complaint counts along each dimension.
type Summary struct {
	Total      int64                     `json:"total"`
	Active     int64                     `json:"active"`
	Escalated  int64                     `json:"escalated"`
	ByStatus   map[models.Status]int64   `json:"by_status"`
	ByCategory map[models.Category]int64 `json:"by_category"`
	ByPriority map[models.Priority]int64 `json:"by_priority"`
	// Hotspots lists categories by number of active complaints, busiest first.
	Hotspots []CategoryLoad `json:"hotspots"`
}

// CategoryLoad is the active workload of one category.
type CategoryLoad struct {
	Category  models.Category `json:"category"`
	Active    int64           `json:"active"`
	Escalated int64           `json:"escalated"`
}

// Summarize folds grouped counts into a Summary. Escalated only counts
// complaints that are still active.
func Summarize(counts []storage.ComplaintCount) Summary {
	s := Summary{
		ByStatus:   make(map[models.Status]int64),
		ByCategory: make(map[models.Category]int64),
		ByPriority: make(map[models.Priority]int64),
		Hotspots:   []CategoryLoad{},
	}
	load := make(map[models.Category]*CategoryLoad)

	for _, c := range counts {
		s.Total += c.Count
		s.ByStatus[c.Status] += c.Count
		s.ByCategory[c.Category] += c.Count
		s.ByPriority[c.Priority] += c.Count

		if c.Status.Terminal() {
			continue
		}
		s.Active += c.Count
		l, ok := load[c.Category]
		if !ok {
			l = &CategoryLoad{Category: c.Category}
			load[c.Category] = l
		}
		l.Active += c.Count
		if c.EscalationFlag {
			s.Escalated += c.Count
			l.Escalated += c.Count
		}
	}

	for _, l := range load {
		s.Hotspots = append(s.Hotspots, *l)
	}
	sort.Slice(s.Hotspots, func(i, j int) bool {
		a, b := s.Hotspots[i], s.Hotspots[j]
		if a.Active != b.Active {
			return a.Active > b.Active
		}
		return a.Category < b.Category
	})
	return s
}
