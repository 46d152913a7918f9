package model

import "time"

// ErrorCode is one row of the heat-pump error-code catalog.
type ErrorCode struct {
	Code       string    `json:"code"`
	SystemName string    `json:"system_name,omitempty"`
	Brand      string    `json:"brand,omitempty"`
	Meaning    string    `json:"meaning"`
	Solution   string    `json:"solution"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}
