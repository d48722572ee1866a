package sqlite

import (
	"time"

	"gorm.io/datatypes"
)

type PaperModel struct {
	ID             string `gorm:"primaryKey"`
	Title          string `gorm:"not null"`
	Authors        string
	Journal        string
	Field          string
	Description    string
	SubmissionDate string
	ReviewDate     string
	Status         string `gorm:"not null;default:'active';index"`
	Config         datatypes.JSON
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (PaperModel) TableName() string { return "papers" }

type ReviewerModel struct {
	ID                string `gorm:"primaryKey"`
	PaperID           string `gorm:"primaryKey;index"`
	Name              string
	Expertise         string
	OverallAssessment string
}

func (ReviewerModel) TableName() string { return "reviewers" }

type CommentModel struct {
	ID                  string `gorm:"primaryKey"`
	PaperID             string `gorm:"primaryKey;index:idx_comments_paper_reviewer"`
	ReviewerID          string `gorm:"not null;index:idx_comments_paper_reviewer"`
	Type                string `gorm:"not null;default:'minor'"`
	Category            string
	Location            string
	OriginalText        string
	FullContext         string
	DraftResponse       string
	FinalResponse       string
	Status              string `gorm:"not null;default:'pending'"`
	Priority            string `gorm:"not null;default:'medium'"`
	RequiresNewAnalysis bool   `gorm:"not null;default:false"`
	AnalysisType        datatypes.JSON
	Experts             datatypes.JSON
	RecommendedResponse string
	AdviceToAuthor      string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (CommentModel) TableName() string { return "comments" }

type ExpertDiscussionModel struct {
	ID             uint   `gorm:"primaryKey"`
	PaperID        string `gorm:"not null;index:idx_discussions_paper_comment"`
	CommentID      string `gorm:"not null;index:idx_discussions_paper_comment"`
	ExpertName     string
	ExpertIcon     string
	ExpertColor    string
	Verdict        string
	Assessment     string
	DataAnalysis   datatypes.JSON
	Recommendation string
	KeyDataPoints  datatypes.JSON
	CreatedAt      time.Time
}

func (ExpertDiscussionModel) TableName() string { return "expert_discussions" }

type ChatEntryModel struct {
	ID        uint   `gorm:"primaryKey"`
	PaperID   string `gorm:"not null;index"`
	CommentID string
	Role      string `gorm:"not null"`
	Content   string
	Timestamp time.Time
}

func (ChatEntryModel) TableName() string { return "chat_history" }

type AppStateModel struct {
	PaperID   string `gorm:"primaryKey"`
	Key       string `gorm:"primaryKey"`
	Value     datatypes.JSON
	UpdatedAt time.Time
}

func (AppStateModel) TableName() string { return "app_state" }

type SettingModel struct {
	Key       string `gorm:"primaryKey"`
	Value     datatypes.JSON
	UpdatedAt time.Time
}

func (SettingModel) TableName() string { return "settings" }
