package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/mumsspace/mumsspace-chat/types"
)

// CreateReport appends a moderation report. Reports are write-only for the
// chat surface; moderators read them out of band (admin CLI).
func (r *Registry) CreateReport(reporterId int64, reportedUsername, reason, description string) (*types.Report, error) {
	if !types.ValidReportReason(reason) {
		return nil, fmt.Errorf("%w: unknown report reason %q", types.ErrInvalidContent, reason)
	}
	if len(description) > types.MaxReportDescriptionSize {
		return nil, fmt.Errorf("%w: description exceeds %d characters", types.ErrInvalidContent, types.MaxReportDescriptionSize)
	}
	if strings.TrimSpace(reportedUsername) == "" {
		return nil, fmt.Errorf("%w: reported username must not be empty", types.ErrInvalidContent)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	report := &types.Report{
		Id:               r.nextReportId + 1,
		ReporterId:       reporterId,
		ReportedUsername: reportedUsername,
		Reason:           reason,
		Description:      description,
		CreatedAt:        time.Now(),
	}
	if r.persister != nil {
		if err := r.persister.StoreReport(*report); err != nil {
			return nil, fmt.Errorf("%w: could not store report: %s", types.ErrUpstream, err)
		}
	}
	r.nextReportId = report.Id
	r.reports = append(r.reports, report)
	out := *report
	return &out, nil
}

// ListReports returns all reports in creation order.
func (r *Registry) ListReports() []*types.Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reports := make([]*types.Report, 0, len(r.reports))
	for _, report := range r.reports {
		out := *report
		reports = append(reports, &out)
	}
	return reports
}
