package enums

type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusReviewed  ReportStatus = "reviewed"
	ReportStatusResolved  ReportStatus = "resolved"
	ReportStatusDismissed ReportStatus = "dismissed"
	ReportStatusEscalated ReportStatus = "escalated"
)

// Terminal reports never transition again. Escalated reports stay open so an
// administrator can still pick them up through the normal handling path.
func (s ReportStatus) Terminal() bool {
	switch s {
	case ReportStatusResolved, ReportStatusDismissed:
		return true
	default:
		return false
	}
}

// Handleable statuses are the only ones a moderation action may be applied to.
func (s ReportStatus) Handleable() bool {
	return s == ReportStatusPending || s == ReportStatusEscalated
}
