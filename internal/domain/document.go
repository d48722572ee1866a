package domain

import (
	"encoding/json"
	"fmt"
)

// ReviewDocument is the nested interchange format for a paper's full
// review data: manuscript metadata, an opaque manuscript blob, and the
// reviewers with their comments. It is what import consumes and export
// reproduces.
type ReviewDocument struct {
	Manuscript     Manuscript      `json:"manuscript"`
	ManuscriptData json.RawMessage `json:"manuscript_data,omitempty"`
	Reviewers      []ReviewerDoc   `json:"reviewers"`
}

type Manuscript struct {
	Title          string `json:"title"`
	Authors        string `json:"authors"`
	Journal        string `json:"journal"`
	Field          string `json:"field"`
	SubmissionDate string `json:"submission_date"`
	ReviewDate     string `json:"review_date"`
}

type ReviewerDoc struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Expertise         string       `json:"expertise"`
	OverallAssessment string       `json:"overall_assessment"`
	Comments          []CommentDoc `json:"comments"`
}

type CommentDoc struct {
	ID                  string   `json:"id"`
	Type                string   `json:"type,omitempty"`
	Category            string   `json:"category,omitempty"`
	Location            string   `json:"location,omitempty"`
	OriginalText        string   `json:"original_text,omitempty"`
	FullContext         string   `json:"full_context,omitempty"`
	DraftResponse       string   `json:"draft_response,omitempty"`
	FinalResponse       string   `json:"final_response,omitempty"`
	Status              string   `json:"status,omitempty"`
	Priority            string   `json:"priority,omitempty"`
	RequiresNewAnalysis bool     `json:"requires_new_analysis,omitempty"`
	AnalysisType        []string `json:"analysis_type,omitempty"`
	Experts             []string `json:"experts,omitempty"`
	RecommendedResponse string   `json:"recommended_response,omitempty"`
	AdviceToAuthor      string   `json:"advice_to_author,omitempty"`
}

// ParseReviewDocument decodes and validates an interchange document.
// Structural problems surface as ErrMalformedDocument.
func ParseReviewDocument(raw []byte) (ReviewDocument, error) {
	var doc ReviewDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ReviewDocument{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if err := doc.Validate(); err != nil {
		return ReviewDocument{}, err
	}
	return doc, nil
}

// Validate checks the ids the storage layer keys on: every reviewer id
// present and unique within the document, every comment id present. A
// comment's reviewer is its enclosing document node, so that reference
// cannot dangle.
func (d ReviewDocument) Validate() error {
	seen := make(map[string]struct{}, len(d.Reviewers))
	for _, r := range d.Reviewers {
		if r.ID == "" {
			return fmt.Errorf("%w: reviewer with empty id", ErrMalformedDocument)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%w: duplicate reviewer id %q", ErrMalformedDocument, r.ID)
		}
		seen[r.ID] = struct{}{}
		for _, c := range r.Comments {
			if c.ID == "" {
				return fmt.Errorf("%w: reviewer %q has a comment with empty id", ErrMalformedDocument, r.ID)
			}
		}
	}
	return nil
}
