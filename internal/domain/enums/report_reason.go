package enums

type ReportReason string

const (
	ReportReasonSpam           ReportReason = "spam"
	ReportReasonHarassment     ReportReason = "harassment"
	ReportReasonInappropriate  ReportReason = "inappropriate"
	ReportReasonMisinformation ReportReason = "misinformation"
	ReportReasonOther          ReportReason = "other"
)

func (r ReportReason) Valid() bool {
	switch r {
	case ReportReasonSpam, ReportReasonHarassment, ReportReasonInappropriate,
		ReportReasonMisinformation, ReportReasonOther:
		return true
	default:
		return false
	}
}
