package dto

import "time"

type RegisterRequest struct {
	Username         string `json:"username"`
	Password         string `json:"password"`
	SecurityQuestion string `json:"security_question"`
	SecurityAnswer   string `json:"security_answer"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type AccountResponse struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Role        string     `json:"role"`
	ManagedTags []string   `json:"managed_tags,omitempty"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type LoginResponse struct {
	AccessToken   string          `json:"access_token"`
	ExpiresInSec  int64           `json:"expires_in_sec"`
	PreviousLogin *time.Time      `json:"previous_login,omitempty"`
	Me            AccountResponse `json:"me"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}
