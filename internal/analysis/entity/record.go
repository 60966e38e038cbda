package entity

import "time"

// Kind is the closed set of content types an analysis can cover.
type Kind string

const (
	KindURL   Kind = "url"
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

func (k Kind) Valid() bool {
	switch k {
	case KindURL, KindText, KindImage, KindVideo:
		return true
	}
	return false
}

// Status is the closed set of verdicts the analysis engine produces.
type Status string

const (
	StatusVerified     Status = "verified"
	StatusQuestionable Status = "questionable"
	StatusDebunked     Status = "debunked"
)

func (s Status) Valid() bool {
	switch s {
	case StatusVerified, StatusQuestionable, StatusDebunked:
		return true
	}
	return false
}

// AnalysisRecord is one saved analysis result, stored at key
// analysis_{userId}_{id}. UserID always comes from the verified principal and
// is never exposed for cross-user queries.
type AnalysisRecord struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	Type             Kind      `json:"type"`
	Title            string    `json:"title"`
	Content          string    `json:"content"`
	CredibilityScore float64   `json:"credibilityScore"`
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
}
