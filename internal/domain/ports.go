package domain

import (
	"context"
	"encoding/json"
)

type ReviewStore interface {
	ListActivePapers(ctx context.Context) ([]PaperSummary, error)
	GetPaper(ctx context.Context, id string) (Paper, error)
	AddPaper(ctx context.Context, value Paper) error
	ArchivePaper(ctx context.Context, id string) error
	DeletePaper(ctx context.Context, id string) error
	CountPapers(ctx context.Context) (int64, error)
	CountComments(ctx context.Context) (int64, error)

	ImportReviewData(ctx context.Context, paperID string, doc ReviewDocument) error
	ExportReviewData(ctx context.Context, paperID string) (ReviewDocument, error)
	UpdateComment(ctx context.Context, paperID, commentID string, update CommentUpdate) (Comment, error)

	SetAppState(ctx context.Context, paperID, key string, value json.RawMessage) error
	GetAppState(ctx context.Context, paperID, key string) (json.RawMessage, error)
	SetSetting(ctx context.Context, key string, value json.RawMessage) error
	GetSetting(ctx context.Context, key string) (json.RawMessage, error)
	ListSettings(ctx context.Context) ([]Setting, error)
	AppendChat(ctx context.Context, entry ChatEntry) (ChatEntry, error)
	ListChat(ctx context.Context, paperID string, limit int) ([]ChatEntry, error)
	AddDiscussion(ctx context.Context, value ExpertDiscussion) (ExpertDiscussion, error)
	ListDiscussions(ctx context.Context, paperID, commentID string) ([]ExpertDiscussion, error)
}
