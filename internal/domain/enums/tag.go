package enums

type Tag string

const (
	TagFood          Tag = "Food"
	TagAcademics     Tag = "Academics"
	TagEntertainment Tag = "Entertainment"
	TagSports        Tag = "Sports"
	TagTechnology    Tag = "Technology"
	TagOther         Tag = "Other"
)

func Tags() []Tag {
	return []Tag{TagFood, TagAcademics, TagEntertainment, TagSports, TagTechnology, TagOther}
}

func (t Tag) Valid() bool {
	switch t {
	case TagFood, TagAcademics, TagEntertainment, TagSports, TagTechnology, TagOther:
		return true
	default:
		return false
	}
}
