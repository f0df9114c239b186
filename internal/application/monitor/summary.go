package monitor

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// IssueCount is one entry in the summary's issue-type ranking.
type IssueCount struct {
	Type  AlertType
	Count int
}

// PerformanceSummary aggregates an organization's (optionally one store's)
// job metrics for dashboards.
type PerformanceSummary struct {
	TotalJobs           int
	ActiveJobs          int
	CompletedJobs       int
	TotalItemsProcessed int
	TotalItemsFailed    int
	AvgThroughput       float64
	AvgErrorRate        float64
	AvgDuration         time.Duration
	ActiveAlerts        int
	TopIssues           []IssueCount
}

// GetPerformanceSummary aggregates counts, averages, and a ranked list of
// alert types. Averages are over completed jobs only. A nil storeID
// aggregates across all of the organization's stores.
func (m *PerformanceMonitor) GetPerformanceSummary(organizationID uuid.UUID, storeID *uuid.UUID) PerformanceSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := func(orgID uuid.UUID, sID *uuid.UUID) bool {
		if orgID != organizationID {
			return false
		}
		if storeID == nil {
			return true
		}
		return sID != nil && *sID == *storeID
	}

	var summary PerformanceSummary
	var sumThroughput, sumErrorRate float64
	var sumDuration time.Duration

	for _, metric := range m.metrics {
		if !matches(metric.OrganizationID, metric.StoreID) {
			continue
		}
		summary.TotalJobs++
		summary.TotalItemsProcessed += metric.ItemsProcessed
		summary.TotalItemsFailed += metric.ItemsFailed
		if metric.CompletedAt == nil {
			summary.ActiveJobs++
			continue
		}
		summary.CompletedJobs++
		sumThroughput += metric.Throughput
		sumErrorRate += metric.ErrorRate
		sumDuration += metric.Duration
	}

	if summary.CompletedJobs > 0 {
		n := float64(summary.CompletedJobs)
		summary.AvgThroughput = sumThroughput / n
		summary.AvgErrorRate = sumErrorRate / n
		summary.AvgDuration = sumDuration / time.Duration(summary.CompletedJobs)
	}

	issueCounts := make(map[AlertType]int)
	for _, a := range m.alerts {
		if !matches(a.OrganizationID, a.StoreID) {
			continue
		}
		issueCounts[a.Type]++
		if !a.Resolved {
			summary.ActiveAlerts++
		}
	}

	summary.TopIssues = make([]IssueCount, 0, len(issueCounts))
	for t, c := range issueCounts {
		summary.TopIssues = append(summary.TopIssues, IssueCount{Type: t, Count: c})
	}
	sort.Slice(summary.TopIssues, func(i, j int) bool {
		if summary.TopIssues[i].Count != summary.TopIssues[j].Count {
			return summary.TopIssues[i].Count > summary.TopIssues[j].Count
		}
		return summary.TopIssues[i].Type < summary.TopIssues[j].Type
	})

	return summary
}
