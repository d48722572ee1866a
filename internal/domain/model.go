package domain

import (
	"encoding/json"
	"time"
)

const (
	PaperStatusActive   = "active"
	PaperStatusArchived = "archived"
)

const (
	CommentTypeMajor = "major"
	CommentTypeMinor = "minor"
)

const (
	CommentStatusPending    = "pending"
	CommentStatusInProgress = "in_progress"
	CommentStatusCompleted  = "completed"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Paper struct {
	ID             string
	Title          string
	Authors        string
	Journal        string
	Field          string
	Description    string
	SubmissionDate string
	ReviewDate     string
	Status         string
	Config         json.RawMessage
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PaperSummary is a Paper augmented with comment progress counts.
type PaperSummary struct {
	Paper
	TotalComments     int64
	CompletedComments int64
}

type Reviewer struct {
	ID                string
	PaperID           string
	Name              string
	Expertise         string
	OverallAssessment string
}

type Comment struct {
	ID                  string
	PaperID             string
	ReviewerID          string
	Type                string
	Category            string
	Location            string
	OriginalText        string
	FullContext         string
	DraftResponse       string
	FinalResponse       string
	Status              string
	Priority            string
	RequiresNewAnalysis bool
	AnalysisType        []string
	Experts             []string
	RecommendedResponse string
	AdviceToAuthor      string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// CommentUpdate carries in-place edits to an existing comment. Nil fields
// are left untouched.
type CommentUpdate struct {
	DraftResponse *string
	FinalResponse *string
	Status        *string
}

type ExpertDiscussion struct {
	ID             uint
	PaperID        string
	CommentID      string
	ExpertName     string
	ExpertIcon     string
	ExpertColor    string
	Verdict        string
	Assessment     string
	DataAnalysis   json.RawMessage
	Recommendation string
	KeyDataPoints  []string
	CreatedAt      time.Time
}

type ChatEntry struct {
	ID        uint
	PaperID   string
	CommentID string
	Role      string
	Content   string
	Timestamp time.Time
}

type Setting struct {
	Key       string
	Value     json.RawMessage
	UpdatedAt time.Time
}

// PaperInfo is the caller-supplied input for creating a paper. ID is
// optional; when empty an id is derived from the title.
type PaperInfo struct {
	ID             string
	Title          string
	Authors        string
	Journal        string
	Field          string
	Description    string
	SubmissionDate string
	ReviewDate     string
	Config         json.RawMessage
}
