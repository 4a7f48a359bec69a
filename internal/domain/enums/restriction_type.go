package enums

type RestrictionType string

const (
	RestrictionWarning      RestrictionType = "warning"
	RestrictionTemporaryBan RestrictionType = "temporary_ban"
	RestrictionPermanentBan RestrictionType = "permanent_ban"
)

// Severity orders restriction types for picking which one to surface when
// several are active at once: permanent > temporary > warning.
func (t RestrictionType) Severity() int {
	switch t {
	case RestrictionPermanentBan:
		return 3
	case RestrictionTemporaryBan:
		return 2
	case RestrictionWarning:
		return 1
	default:
		return 0
	}
}

func (t RestrictionType) Valid() bool {
	return t.Severity() > 0
}
