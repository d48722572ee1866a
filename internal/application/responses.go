package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/genomewalker/reviewflow-sub001/internal/domain"
)

// ResponseSheet is the rendered response-to-reviewers document plus the
// progress counters shown alongside it.
type ResponseSheet struct {
	Markdown  string
	Total     int
	Completed int
}

// BuildResponseSheet renders the completed comments of a review document as
// a markdown response letter: manuscript header, one section per reviewer,
// each completed comment with the reviewer's text and the final (or draft)
// response.
func BuildResponseSheet(doc domain.ReviewDocument, now time.Time) ResponseSheet {
	var b strings.Builder
	b.WriteString("# Response to Reviewers\n\n")
	fmt.Fprintf(&b, "**Manuscript:** %s\n\n", doc.Manuscript.Title)
	fmt.Fprintf(&b, "**Authors:** %s\n\n", doc.Manuscript.Authors)
	fmt.Fprintf(&b, "**Date:** %s\n\n", now.Format("2006-01-02"))
	b.WriteString("---\n")

	sheet := ResponseSheet{}
	for _, reviewer := range doc.Reviewers {
		fmt.Fprintf(&b, "\n## %s\n\n", reviewer.Name)
		fmt.Fprintf(&b, "*Expertise: %s*\n\n", reviewer.Expertise)
		fmt.Fprintf(&b, "*Assessment: %s*\n\n", reviewer.OverallAssessment)

		for _, comment := range reviewer.Comments {
			sheet.Total++
			if comment.Status != domain.CommentStatusCompleted {
				continue
			}
			sheet.Completed++

			fmt.Fprintf(&b, "### Comment %s (%s, %s priority)\n\n", comment.ID, strings.ToUpper(comment.Type), comment.Priority)
			fmt.Fprintf(&b, "**Location:** %s\n\n", comment.Location)
			fmt.Fprintf(&b, "**Category:** %s\n\n", comment.Category)
			if comment.OriginalText != "" {
				b.WriteString("**Reviewer Comment:**\n\n")
				fmt.Fprintf(&b, "> %s\n\n", comment.OriginalText)
			}
			if response := firstNonEmpty(comment.FinalResponse, comment.DraftResponse); response != "" {
				b.WriteString("**Our Response:**\n\n")
				fmt.Fprintf(&b, "%s\n\n", response)
			}
			if comment.RequiresNewAnalysis && len(comment.AnalysisType) > 0 {
				fmt.Fprintf(&b, "*Required analyses: %s*\n\n", strings.Join(comment.AnalysisType, ", "))
			}
			b.WriteString("---\n")
		}
	}

	sheet.Markdown = b.String()
	return sheet
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
