package pipeline

import (
	"github.com/couchcryptid/crime-map-etl/internal/domain"
)

// clusterJob is one labelled subset of the table to cluster.
type clusterJob struct {
	label string
	table *domain.Table
}

// clusterJobs returns the whole table under label, then one job per
// category under the category's derived label. Categories that derive the
// same label as an earlier job are skipped so two subsets never share a
// cache entry.
func clusterJobs(tbl *domain.Table, label string, categories []string) []clusterJob {
	jobs := []clusterJob{{label: label, table: tbl}}
	seen := map[string]bool{label: true}
	for _, category := range categories {
		l := domain.CategoryLabel(category)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		jobs = append(jobs, clusterJob{
			label: l,
			table: tbl.Filter(func(inc domain.Incident) bool { return inc.Category == category }),
		})
	}
	return jobs
}
