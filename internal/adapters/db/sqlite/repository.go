package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/genomewalker/reviewflow-sub001/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *gorm.DB
}

// Open opens the database file with referential integrity enforced and WAL
// journaling. Cross-process writers are serialized by the busy timeout.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
	}, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return db, nil
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ListActivePapers(ctx context.Context) ([]domain.PaperSummary, error) {
	type row struct {
		ID                string
		Title             string
		Authors           string
		Journal           string
		Field             string
		Description       string
		SubmissionDate    string
		ReviewDate        string
		Status            string
		Config            datatypes.JSON
		CreatedAt         time.Time
		UpdatedAt         time.Time
		TotalComments     int64
		CompletedComments int64
	}

	rows := make([]row, 0)
	if err := s.db.WithContext(ctx).Raw(`
SELECT p.id,
       p.title,
       p.authors,
       p.journal,
       p.field,
       p.description,
       p.submission_date,
       p.review_date,
       p.status,
       p.config,
       p.created_at,
       p.updated_at,
       COALESCE(c.total, 0) AS total_comments,
       COALESCE(c.completed, 0) AS completed_comments
FROM papers p
LEFT JOIN (
    SELECT paper_id,
           COUNT(*) AS total,
           SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END) AS completed
    FROM comments
    GROUP BY paper_id
) c ON c.paper_id = p.id
WHERE p.status = 'active'
ORDER BY p.updated_at DESC
`).Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]domain.PaperSummary, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.PaperSummary{
			Paper: domain.Paper{
				ID:             m.ID,
				Title:          m.Title,
				Authors:        m.Authors,
				Journal:        m.Journal,
				Field:          m.Field,
				Description:    m.Description,
				SubmissionDate: m.SubmissionDate,
				ReviewDate:     m.ReviewDate,
				Status:         m.Status,
				Config:         json.RawMessage(m.Config),
				CreatedAt:      m.CreatedAt,
				UpdatedAt:      m.UpdatedAt,
			},
			TotalComments:     m.TotalComments,
			CompletedComments: m.CompletedComments,
		})
	}
	return result, nil
}

func (s *Store) GetPaper(ctx context.Context, id string) (domain.Paper, error) {
	var m PaperModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Paper{}, fmt.Errorf("paper %q: %w", id, domain.ErrNotFound)
		}
		return domain.Paper{}, err
	}
	return paperFromModel(m), nil
}

func (s *Store) AddPaper(ctx context.Context, value domain.Paper) error {
	exists, err := s.paperExists(ctx, value.ID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("paper %q: %w", value.ID, domain.ErrDuplicateID)
	}

	m := PaperModel{
		ID:             value.ID,
		Title:          value.Title,
		Authors:        value.Authors,
		Journal:        value.Journal,
		Field:          value.Field,
		Description:    value.Description,
		SubmissionDate: value.SubmissionDate,
		ReviewDate:     value.ReviewDate,
		Status:         defaultString(value.Status, domain.PaperStatusActive),
		Config:         datatypes.JSON(value.Config),
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("paper %q: %w", value.ID, domain.ErrDuplicateID)
		}
		return err
	}
	return nil
}

func (s *Store) ArchivePaper(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&PaperModel{}).
		Where("id = ? AND status <> ?", id, domain.PaperStatusArchived).
		Updates(map[string]any{"status": domain.PaperStatusArchived, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Either the paper is already archived or it does not exist.
		exists, err := s.paperExists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("paper %q: %w", id, domain.ErrNotFound)
		}
	}
	return nil
}

func (s *Store) DeletePaper(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&PaperModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("paper %q: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) CountPapers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&PaperModel{}).Count(&count).Error
	return count, err
}

func (s *Store) CountComments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&CommentModel{}).Count(&count).Error
	return count, err
}

func (s *Store) SetAppState(ctx context.Context, paperID, key string, value json.RawMessage) error {
	exists, err := s.paperExists(ctx, paperID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("paper %q: %w", paperID, domain.ErrNotFound)
	}

	m := AppStateModel{PaperID: paperID, Key: key, Value: datatypes.JSON(value), UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "paper_id"}, {Name: "key"}},
		UpdateAll: true,
	}).Create(&m).Error
}

func (s *Store) GetAppState(ctx context.Context, paperID, key string) (json.RawMessage, error) {
	var m AppStateModel
	if err := s.db.WithContext(ctx).Where("paper_id = ? AND key = ?", paperID, key).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("state %q for paper %q: %w", key, paperID, domain.ErrNotFound)
		}
		return nil, err
	}
	return json.RawMessage(m.Value), nil
}

func (s *Store) SetSetting(ctx context.Context, key string, value json.RawMessage) error {
	m := SettingModel{Key: key, Value: datatypes.JSON(value), UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&m).Error
}

func (s *Store) GetSetting(ctx context.Context, key string) (json.RawMessage, error) {
	var m SettingModel
	if err := s.db.WithContext(ctx).Where("key = ?", key).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("setting %q: %w", key, domain.ErrNotFound)
		}
		return nil, err
	}
	return json.RawMessage(m.Value), nil
}

func (s *Store) ListSettings(ctx context.Context) ([]domain.Setting, error) {
	rows := make([]SettingModel, 0)
	if err := s.db.WithContext(ctx).Order("key ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Setting, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.Setting{Key: m.Key, Value: json.RawMessage(m.Value), UpdatedAt: m.UpdatedAt})
	}
	return result, nil
}

func (s *Store) AppendChat(ctx context.Context, entry domain.ChatEntry) (domain.ChatEntry, error) {
	exists, err := s.paperExists(ctx, entry.PaperID)
	if err != nil {
		return domain.ChatEntry{}, err
	}
	if !exists {
		return domain.ChatEntry{}, fmt.Errorf("paper %q: %w", entry.PaperID, domain.ErrNotFound)
	}

	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	m := ChatEntryModel{
		PaperID:   entry.PaperID,
		CommentID: entry.CommentID,
		Role:      entry.Role,
		Content:   entry.Content,
		Timestamp: ts,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.ChatEntry{}, err
	}
	return domain.ChatEntry{
		ID:        m.ID,
		PaperID:   m.PaperID,
		CommentID: m.CommentID,
		Role:      m.Role,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}, nil
}

func (s *Store) ListChat(ctx context.Context, paperID string, limit int) ([]domain.ChatEntry, error) {
	q := s.db.WithContext(ctx).Where("paper_id = ?", paperID).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	rows := make([]ChatEntryModel, 0)
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.ChatEntry, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.ChatEntry{
			ID:        m.ID,
			PaperID:   m.PaperID,
			CommentID: m.CommentID,
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return result, nil
}

func (s *Store) AddDiscussion(ctx context.Context, value domain.ExpertDiscussion) (domain.ExpertDiscussion, error) {
	exists, err := s.paperExists(ctx, value.PaperID)
	if err != nil {
		return domain.ExpertDiscussion{}, err
	}
	if !exists {
		return domain.ExpertDiscussion{}, fmt.Errorf("paper %q: %w", value.PaperID, domain.ErrNotFound)
	}

	points, err := encodeStrings(value.KeyDataPoints)
	if err != nil {
		return domain.ExpertDiscussion{}, err
	}
	m := ExpertDiscussionModel{
		PaperID:        value.PaperID,
		CommentID:      value.CommentID,
		ExpertName:     value.ExpertName,
		ExpertIcon:     value.ExpertIcon,
		ExpertColor:    value.ExpertColor,
		Verdict:        value.Verdict,
		Assessment:     value.Assessment,
		DataAnalysis:   datatypes.JSON(value.DataAnalysis),
		Recommendation: value.Recommendation,
		KeyDataPoints:  points,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.ExpertDiscussion{}, err
	}
	return discussionFromModel(m)
}

func (s *Store) ListDiscussions(ctx context.Context, paperID, commentID string) ([]domain.ExpertDiscussion, error) {
	q := s.db.WithContext(ctx).Where("paper_id = ?", paperID)
	if commentID != "" {
		q = q.Where("comment_id = ?", commentID)
	}
	rows := make([]ExpertDiscussionModel, 0)
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.ExpertDiscussion, 0, len(rows))
	for _, m := range rows {
		d, err := discussionFromModel(m)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

func (s *Store) paperExists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&PaperModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func paperFromModel(m PaperModel) domain.Paper {
	return domain.Paper{
		ID:             m.ID,
		Title:          m.Title,
		Authors:        m.Authors,
		Journal:        m.Journal,
		Field:          m.Field,
		Description:    m.Description,
		SubmissionDate: m.SubmissionDate,
		ReviewDate:     m.ReviewDate,
		Status:         m.Status,
		Config:         json.RawMessage(m.Config),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func discussionFromModel(m ExpertDiscussionModel) (domain.ExpertDiscussion, error) {
	points, err := decodeStrings(m.KeyDataPoints)
	if err != nil {
		return domain.ExpertDiscussion{}, err
	}
	return domain.ExpertDiscussion{
		ID:             m.ID,
		PaperID:        m.PaperID,
		CommentID:      m.CommentID,
		ExpertName:     m.ExpertName,
		ExpertIcon:     m.ExpertIcon,
		ExpertColor:    m.ExpertColor,
		Verdict:        m.Verdict,
		Assessment:     m.Assessment,
		DataAnalysis:   json.RawMessage(m.DataAnalysis),
		Recommendation: m.Recommendation,
		KeyDataPoints:  points,
		CreatedAt:      m.CreatedAt,
	}, nil
}

func defaultString(input, fallback string) string {
	if strings.TrimSpace(input) == "" {
		return fallback
	}

	return input
}
