package enums

type ModerationAction string

const (
	ActionHidePost     ModerationAction = "hide_post"
	ActionDeletePost   ModerationAction = "delete_post"
	ActionWarnUser     ModerationAction = "warn_user"
	ActionRestrictUser ModerationAction = "restrict_user"
	ActionDismiss      ModerationAction = "dismiss"
)

func (a ModerationAction) Valid() bool {
	switch a {
	case ActionHidePost, ActionDeletePost, ActionWarnUser, ActionRestrictUser, ActionDismiss:
		return true
	default:
		return false
	}
}
