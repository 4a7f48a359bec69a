package model

import (
	"time"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/enums"
)

type Account struct {
	ID                 int64       `json:"id"`
	Username           string      `json:"username"`
	PasswordHash       string      `json:"-"`
	Role               enums.Role  `json:"role"`
	ManagedTags        []enums.Tag `json:"managed_tags,omitempty"`
	FailedLogins       int         `json:"-"`
	LockoutUntil       *time.Time  `json:"-"`
	PasswordChangedAt  *time.Time  `json:"-"`
	PasswordHistory    []string    `json:"-"`
	SecurityQuestion   string      `json:"-"`
	SecurityAnswerHash string      `json:"-"`
	LastLogin          *time.Time  `json:"last_login,omitempty"`
	PreviousLogin      *time.Time  `json:"previous_login,omitempty"`
	IsDeleted          bool        `json:"is_deleted"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// ManagesTag reports whether the account has delegated authority over a tag.
// Only managers carry a meaningful tag set; administrators are handled by the
// authorization engine's role ceiling and never consult this.
func (a Account) ManagesTag(tag enums.Tag) bool {
	if a.Role != enums.RoleManager {
		return false
	}
	for _, t := range a.ManagedTags {
		if t == tag {
			return true
		}
	}
	return false
}
