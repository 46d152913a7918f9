package model

// FixStepDraft is a repair-guide draft authored offline. Drafts are keyed by a
// client-generated id and upserted on flush, so re-delivery is harmless.
type FixStepDraft struct {
	ID        string   `json:"id"`
	Brand     string   `json:"brand,omitempty"`
	Model     string   `json:"model,omitempty"`
	ErrorCode string   `json:"error_code,omitempty"`
	Title     string   `json:"title,omitempty"`
	Content   string   `json:"content,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	MediaURLs []string `json:"media_urls,omitempty"`
}

// ErrorMetadataDraft is an error-code description draft authored offline,
// upserted on flush like FixStepDraft.
type ErrorMetadataDraft struct {
	ID        string `json:"id"`
	Brand     string `json:"brand,omitempty"`
	Model     string `json:"model,omitempty"`
	Category  string `json:"category,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Meaning   string `json:"meaning,omitempty"`
	Solution  string `json:"solution,omitempty"`
}
