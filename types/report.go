package types

import "time"

// MaxReportDescriptionSize bounds the free-text description of a report.
const MaxReportDescriptionSize = 500

const (
	ReportReasonHarassment    = "harassment"
	ReportReasonInappropriate = "inappropriate_content"
	ReportReasonSpam          = "spam"
	ReportReasonBullying      = "bullying"
	ReportReasonThreats       = "threats"
	ReportReasonFakeProfile   = "fake_profile"
	ReportReasonOther         = "other"
)

var reportReasons = map[string]struct{}{
	ReportReasonHarassment:    {},
	ReportReasonInappropriate: {},
	ReportReasonSpam:          {},
	ReportReasonBullying:      {},
	ReportReasonThreats:       {},
	ReportReasonFakeProfile:   {},
	ReportReasonOther:         {},
}

// ValidReportReason reports whether reason is one of the known enum values.
func ValidReportReason(reason string) bool {
	_, ok := reportReasons[reason]
	return ok
}

// Report is an append-only moderation report handed to moderators out of band.
type Report struct {
	Id               int64     `json:"id" gorm:"primaryKey"`
	ReporterId       int64     `json:"reporterId"`
	ReportedUsername string    `json:"reportedUsername"`
	Reason           string    `json:"reason"`
	Description      string    `json:"description"`
	CreatedAt        time.Time `json:"createdAt"`
}
