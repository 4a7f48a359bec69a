package dto

import "time"

type RestrictionStatusResponse struct {
	Restricted  bool                   `json:"restricted"`
	Restriction *ActiveRestrictionInfo `json:"restriction,omitempty"`
}

type ActiveRestrictionInfo struct {
	Type    string     `json:"restriction_type"`
	Reason  string     `json:"reason"`
	EndDate *time.Time `json:"end_date,omitempty"`
}

type RestrictionResponse struct {
	ID        int64      `json:"id"`
	AccountID int64      `json:"account_id"`
	Type      string     `json:"restriction_type"`
	Reason    string     `json:"reason"`
	IssuedBy  int64      `json:"issued_by"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	IsActive  bool       `json:"is_active"`
}

type RestrictionHistoryResponse struct {
	Restrictions []RestrictionResponse `json:"restrictions"`
}
