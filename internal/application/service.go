package application

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/genomewalker/reviewflow-sub001/internal/domain"
	"github.com/genomewalker/reviewflow-sub001/internal/workspace"
	"go.uber.org/zap"
)

type ReviewService struct {
	store domain.ReviewStore
	paths workspace.Layout
	log   *zap.Logger
}

func NewReviewService(store domain.ReviewStore, paths workspace.Layout, log *zap.Logger) *ReviewService {
	return &ReviewService{store: store, paths: paths, log: log}
}

func (s *ReviewService) ListPapers(ctx context.Context) ([]domain.PaperSummary, error) {
	return s.store.ListActivePapers(ctx)
}

func (s *ReviewService) GetPaper(ctx context.Context, id string) (domain.Paper, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Paper{}, errors.New("paper id is required")
	}
	return s.store.GetPaper(ctx, id)
}

func (s *ReviewService) AddPaper(ctx context.Context, info domain.PaperInfo) (domain.Paper, error) {
	title := strings.TrimSpace(info.Title)
	if title == "" {
		return domain.Paper{}, errors.New("title is required")
	}

	id := strings.TrimSpace(info.ID)
	if id == "" {
		id = GenerateID(title, time.Now())
	}
	reviewDate := info.ReviewDate
	if reviewDate == "" {
		reviewDate = time.Now().Format("2006-01-02")
	}

	paper := domain.Paper{
		ID:             id,
		Title:          title,
		Authors:        info.Authors,
		Journal:        info.Journal,
		Field:          info.Field,
		Description:    info.Description,
		SubmissionDate: info.SubmissionDate,
		ReviewDate:     reviewDate,
		Status:         domain.PaperStatusActive,
		Config:         info.Config,
	}
	if err := s.store.AddPaper(ctx, paper); err != nil {
		return domain.Paper{}, err
	}
	if err := s.paths.EnsurePaperDirs(id); err != nil {
		return domain.Paper{}, err
	}
	s.log.Info("paper added", zap.String("paper_id", id), zap.String("title", title))

	return s.store.GetPaper(ctx, id)
}

func (s *ReviewService) ArchivePaper(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("paper id is required")
	}
	if err := s.store.ArchivePaper(ctx, id); err != nil {
		return err
	}
	s.log.Info("paper archived", zap.String("paper_id", id))
	return nil
}

func (s *ReviewService) DeletePaper(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("paper id is required")
	}
	if err := s.store.DeletePaper(ctx, id); err != nil {
		return err
	}
	s.log.Warn("paper deleted with all review data", zap.String("paper_id", id))
	return nil
}

func (s *ReviewService) ImportReviewData(ctx context.Context, paperID string, doc domain.ReviewDocument) error {
	if strings.TrimSpace(paperID) == "" {
		return errors.New("paper id is required")
	}
	if err := s.store.ImportReviewData(ctx, paperID, doc); err != nil {
		return err
	}

	comments := 0
	for _, r := range doc.Reviewers {
		comments += len(r.Comments)
	}
	s.log.Info("review data imported",
		zap.String("paper_id", paperID),
		zap.Int("reviewers", len(doc.Reviewers)),
		zap.Int("comments", comments))
	return nil
}

// CreatePaperFromDocument registers the manuscript described by a review
// document and loads its reviewers in one go. The paper row is created
// first so a failed import leaves an empty but addressable paper.
func (s *ReviewService) CreatePaperFromDocument(ctx context.Context, doc domain.ReviewDocument) (domain.Paper, error) {
	paper, err := s.AddPaper(ctx, domain.PaperInfo{
		Title:          doc.Manuscript.Title,
		Authors:        doc.Manuscript.Authors,
		Journal:        doc.Manuscript.Journal,
		Field:          doc.Manuscript.Field,
		SubmissionDate: doc.Manuscript.SubmissionDate,
		ReviewDate:     doc.Manuscript.ReviewDate,
		Config:         doc.ManuscriptData,
	})
	if err != nil {
		return domain.Paper{}, err
	}
	if err := s.ImportReviewData(ctx, paper.ID, doc); err != nil {
		return domain.Paper{}, err
	}
	return paper, nil
}

func (s *ReviewService) ExportReviewData(ctx context.Context, paperID string) (domain.ReviewDocument, error) {
	if strings.TrimSpace(paperID) == "" {
		return domain.ReviewDocument{}, errors.New("paper id is required")
	}
	return s.store.ExportReviewData(ctx, paperID)
}

func (s *ReviewService) UpdateComment(ctx context.Context, paperID, commentID string, update domain.CommentUpdate) (domain.Comment, error) {
	if strings.TrimSpace(paperID) == "" || strings.TrimSpace(commentID) == "" {
		return domain.Comment{}, errors.New("paper id and comment id are required")
	}
	return s.store.UpdateComment(ctx, paperID, commentID, update)
}

func (s *ReviewService) SetAppState(ctx context.Context, paperID, key string, value json.RawMessage) error {
	if strings.TrimSpace(paperID) == "" || strings.TrimSpace(key) == "" {
		return errors.New("paper id and key are required")
	}
	return s.store.SetAppState(ctx, paperID, key, value)
}

func (s *ReviewService) GetAppState(ctx context.Context, paperID, key string) (json.RawMessage, error) {
	return s.store.GetAppState(ctx, paperID, key)
}

func (s *ReviewService) SetSetting(ctx context.Context, key string, value json.RawMessage) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("key is required")
	}
	return s.store.SetSetting(ctx, key, value)
}

func (s *ReviewService) GetSetting(ctx context.Context, key string) (json.RawMessage, error) {
	return s.store.GetSetting(ctx, key)
}

func (s *ReviewService) ListSettings(ctx context.Context) ([]domain.Setting, error) {
	return s.store.ListSettings(ctx)
}

func (s *ReviewService) AppendChat(ctx context.Context, entry domain.ChatEntry) (domain.ChatEntry, error) {
	if strings.TrimSpace(entry.PaperID) == "" || strings.TrimSpace(entry.Role) == "" {
		return domain.ChatEntry{}, errors.New("paper id and role are required")
	}
	return s.store.AppendChat(ctx, entry)
}

func (s *ReviewService) ListChat(ctx context.Context, paperID string, limit int) ([]domain.ChatEntry, error) {
	if limit < 0 {
		limit = 0
	}
	if limit > 1000 {
		limit = 1000
	}
	return s.store.ListChat(ctx, paperID, limit)
}

func (s *ReviewService) AddDiscussion(ctx context.Context, value domain.ExpertDiscussion) (domain.ExpertDiscussion, error) {
	if strings.TrimSpace(value.PaperID) == "" || strings.TrimSpace(value.CommentID) == "" {
		return domain.ExpertDiscussion{}, errors.New("paper id and comment id are required")
	}
	return s.store.AddDiscussion(ctx, value)
}

func (s *ReviewService) ListDiscussions(ctx context.Context, paperID, commentID string) ([]domain.ExpertDiscussion, error) {
	return s.store.ListDiscussions(ctx, paperID, commentID)
}

// DatabasePath reports where the store file lives, for status output.
func (s *ReviewService) DatabasePath() string {
	return s.paths.DatabasePath()
}

// DatabaseStatus reports the record counts served on /db/status.
func (s *ReviewService) DatabaseStatus(ctx context.Context) (papers, comments int64, err error) {
	papers, err = s.store.CountPapers(ctx)
	if err != nil {
		return 0, 0, err
	}
	comments, err = s.store.CountComments(ctx)
	if err != nil {
		return 0, 0, err
	}
	return papers, comments, nil
}

const maxSlugLength = 40

var slugSeparators = regexp.MustCompile("[^a-z0-9]+")

// GenerateID derives a paper id from the title: a lowercase hyphenated slug
// capped at maxSlugLength plus a base-36 millisecond timestamp. Distinct
// millisecond ticks give distinct ids; callers creating papers faster than
// that see a duplicate-id error from the store.
func GenerateID(title string, now time.Time) string {
	slug := slugSeparators.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = strings.Trim(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		slug = "paper"
	}
	return slug + "-" + strconv.FormatInt(now.UnixMilli(), 36)
}
