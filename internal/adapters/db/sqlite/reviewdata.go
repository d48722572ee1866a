package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/genomewalker/reviewflow-sub001/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ImportReviewData loads a nested review document into relational rows.
// Reviewers and comments are upserted keyed by their paper-scoped composite
// ids, inside one transaction: a failing row rolls back the whole call.
func (s *Store) ImportReviewData(ctx context.Context, paperID string, doc domain.ReviewDocument) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	exists, err := s.paperExists(ctx, paperID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("paper %q: %w", paperID, domain.ErrNotFound)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		compositeKey := []clause.Column{{Name: "id"}, {Name: "paper_id"}}
		for _, reviewer := range doc.Reviewers {
			rm := ReviewerModel{
				ID:                reviewer.ID,
				PaperID:           paperID,
				Name:              reviewer.Name,
				Expertise:         reviewer.Expertise,
				OverallAssessment: reviewer.OverallAssessment,
			}
			if err := tx.Clauses(clause.OnConflict{Columns: compositeKey, UpdateAll: true}).Create(&rm).Error; err != nil {
				return err
			}

			for _, comment := range reviewer.Comments {
				cm, err := commentToModel(paperID, reviewer.ID, comment)
				if err != nil {
					return err
				}
				if err := tx.Clauses(clause.OnConflict{Columns: compositeKey, UpdateAll: true}).Create(&cm).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// ExportReviewData reconstructs the nested document from the flat rows.
// Reviewers and comments come back in insertion order; ordering is not part
// of the contract.
func (s *Store) ExportReviewData(ctx context.Context, paperID string) (domain.ReviewDocument, error) {
	paper, err := s.GetPaper(ctx, paperID)
	if err != nil {
		return domain.ReviewDocument{}, err
	}

	reviewers := make([]ReviewerModel, 0)
	if err := s.db.WithContext(ctx).Where("paper_id = ?", paperID).Order("rowid ASC").Find(&reviewers).Error; err != nil {
		return domain.ReviewDocument{}, err
	}

	comments := make([]CommentModel, 0)
	if err := s.db.WithContext(ctx).Where("paper_id = ?", paperID).Order("rowid ASC").Find(&comments).Error; err != nil {
		return domain.ReviewDocument{}, err
	}

	byReviewer := make(map[string][]domain.CommentDoc, len(reviewers))
	for _, m := range comments {
		cd, err := commentDocFromModel(m)
		if err != nil {
			return domain.ReviewDocument{}, err
		}
		byReviewer[m.ReviewerID] = append(byReviewer[m.ReviewerID], cd)
	}

	docReviewers := make([]domain.ReviewerDoc, 0, len(reviewers))
	for _, m := range reviewers {
		docReviewers = append(docReviewers, domain.ReviewerDoc{
			ID:                m.ID,
			Name:              m.Name,
			Expertise:         m.Expertise,
			OverallAssessment: m.OverallAssessment,
			Comments:          byReviewer[m.ID],
		})
	}

	return domain.ReviewDocument{
		Manuscript: domain.Manuscript{
			Title:          paper.Title,
			Authors:        paper.Authors,
			Journal:        paper.Journal,
			Field:          paper.Field,
			SubmissionDate: paper.SubmissionDate,
			ReviewDate:     paper.ReviewDate,
		},
		ManuscriptData: paper.Config,
		Reviewers:      docReviewers,
	}, nil
}

func (s *Store) UpdateComment(ctx context.Context, paperID, commentID string, update domain.CommentUpdate) (domain.Comment, error) {
	fields := map[string]any{}
	if update.DraftResponse != nil {
		fields["draft_response"] = *update.DraftResponse
	}
	if update.FinalResponse != nil {
		fields["final_response"] = *update.FinalResponse
	}
	if update.Status != nil {
		fields["status"] = *update.Status
	}

	if len(fields) > 0 {
		res := s.db.WithContext(ctx).Model(&CommentModel{}).
			Where("id = ? AND paper_id = ?", commentID, paperID).
			Updates(fields)
		if res.Error != nil {
			return domain.Comment{}, res.Error
		}
		if res.RowsAffected == 0 {
			return domain.Comment{}, fmt.Errorf("comment %q in paper %q: %w", commentID, paperID, domain.ErrNotFound)
		}
	}

	var m CommentModel
	if err := s.db.WithContext(ctx).Where("id = ? AND paper_id = ?", commentID, paperID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Comment{}, fmt.Errorf("comment %q in paper %q: %w", commentID, paperID, domain.ErrNotFound)
		}
		return domain.Comment{}, err
	}
	return commentFromModel(m)
}

func commentToModel(paperID, reviewerID string, c domain.CommentDoc) (CommentModel, error) {
	analysisType, err := encodeStrings(c.AnalysisType)
	if err != nil {
		return CommentModel{}, err
	}
	experts, err := encodeStrings(c.Experts)
	if err != nil {
		return CommentModel{}, err
	}

	return CommentModel{
		ID:                  c.ID,
		PaperID:             paperID,
		ReviewerID:          reviewerID,
		Type:                defaultString(c.Type, domain.CommentTypeMinor),
		Category:            c.Category,
		Location:            c.Location,
		OriginalText:        c.OriginalText,
		FullContext:         c.FullContext,
		DraftResponse:       c.DraftResponse,
		FinalResponse:       c.FinalResponse,
		Status:              defaultString(c.Status, domain.CommentStatusPending),
		Priority:            defaultString(c.Priority, domain.PriorityMedium),
		RequiresNewAnalysis: c.RequiresNewAnalysis,
		AnalysisType:        analysisType,
		Experts:             experts,
		RecommendedResponse: c.RecommendedResponse,
		AdviceToAuthor:      c.AdviceToAuthor,
	}, nil
}

func commentDocFromModel(m CommentModel) (domain.CommentDoc, error) {
	analysisType, err := decodeStrings(m.AnalysisType)
	if err != nil {
		return domain.CommentDoc{}, err
	}
	experts, err := decodeStrings(m.Experts)
	if err != nil {
		return domain.CommentDoc{}, err
	}

	return domain.CommentDoc{
		ID:                  m.ID,
		Type:                m.Type,
		Category:            m.Category,
		Location:            m.Location,
		OriginalText:        m.OriginalText,
		FullContext:         m.FullContext,
		DraftResponse:       m.DraftResponse,
		FinalResponse:       m.FinalResponse,
		Status:              m.Status,
		Priority:            m.Priority,
		RequiresNewAnalysis: m.RequiresNewAnalysis,
		AnalysisType:        analysisType,
		Experts:             experts,
		RecommendedResponse: m.RecommendedResponse,
		AdviceToAuthor:      m.AdviceToAuthor,
	}, nil
}

func commentFromModel(m CommentModel) (domain.Comment, error) {
	analysisType, err := decodeStrings(m.AnalysisType)
	if err != nil {
		return domain.Comment{}, err
	}
	experts, err := decodeStrings(m.Experts)
	if err != nil {
		return domain.Comment{}, err
	}

	return domain.Comment{
		ID:                  m.ID,
		PaperID:             m.PaperID,
		ReviewerID:          m.ReviewerID,
		Type:                m.Type,
		Category:            m.Category,
		Location:            m.Location,
		OriginalText:        m.OriginalText,
		FullContext:         m.FullContext,
		DraftResponse:       m.DraftResponse,
		FinalResponse:       m.FinalResponse,
		Status:              m.Status,
		Priority:            m.Priority,
		RequiresNewAnalysis: m.RequiresNewAnalysis,
		AnalysisType:        analysisType,
		Experts:             experts,
		RecommendedResponse: m.RecommendedResponse,
		AdviceToAuthor:      m.AdviceToAuthor,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}, nil
}

// encodeStrings and decodeStrings are the storage boundary for ordered
// string lists: JSON arrays in a text column, nil and empty both stored
// as the empty array.
func encodeStrings(values []string) (datatypes.JSON, error) {
	if len(values) == 0 {
		return datatypes.JSON("[]"), nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func decodeStrings(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	values := make([]string, 0)
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("decode string list: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values, nil
}
