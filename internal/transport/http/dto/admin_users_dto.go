package dto

type BanUserRequest struct {
	Reason string `json:"reason"`
}

type RestrictUserRequest struct {
	Type   string `json:"restriction_type"`
	Reason string `json:"reason"`
	Hours  *int   `json:"hours,omitempty"`
}

type ChangeRoleRequest struct {
	Role        string   `json:"role"`
	ManagedTags []string `json:"managed_tags,omitempty"`
}
