package application

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/genomewalker/reviewflow-sub001/internal/adapters/db/sqlite"
	"github.com/genomewalker/reviewflow-sub001/internal/domain"
	"github.com/genomewalker/reviewflow-sub001/internal/workspace"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*ReviewService, workspace.Layout) {
	t.Helper()
	ctx := context.Background()
	layout := workspace.NewLayout(t.TempDir())
	if err := layout.Ensure(); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}

	db, err := sqlite.Open(layout.DatabasePath())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := sqlite.RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return NewReviewService(sqlite.NewStore(db), layout, zap.NewNop()), layout
}

func TestGenerateID(t *testing.T) {
	now := time.UnixMilli(1770000000000)
	suffix := strconv.FormatInt(now.UnixMilli(), 36)

	if got, want := GenerateID("My Great Paper!!", now), "my-great-paper-"+suffix; got != want {
		t.Fatalf("GenerateID = %q, want %q", got, want)
	}
	if got, want := GenerateID("  Spaces   and—Dashes  ", now), "spaces-and-dashes-"+suffix; got != want {
		t.Fatalf("GenerateID = %q, want %q", got, want)
	}
	if got, want := GenerateID("!!!", now), "paper-"+suffix; got != want {
		t.Fatalf("GenerateID = %q, want %q", got, want)
	}

	long := GenerateID(strings.Repeat("verylongword ", 20), now)
	slug := strings.TrimSuffix(long, "-"+suffix)
	if len(slug) > 40 {
		t.Fatalf("slug %q exceeds max length", slug)
	}

	later := GenerateID("My Great Paper!!", now.Add(time.Millisecond))
	if later == GenerateID("My Great Paper!!", now) {
		t.Fatalf("ids from distinct ticks should differ")
	}
}

func TestAddPaperDefaultsAndDirectories(t *testing.T) {
	ctx := context.Background()
	svc, layout := newTestService(t)

	paper, err := svc.AddPaper(ctx, domain.PaperInfo{Title: "Soil Carbon Benchmarks"})
	if err != nil {
		t.Fatalf("add paper: %v", err)
	}
	if !strings.HasPrefix(paper.ID, "soil-carbon-benchmarks-") {
		t.Fatalf("unexpected generated id %q", paper.ID)
	}
	if paper.Status != domain.PaperStatusActive {
		t.Fatalf("expected active status, got %q", paper.Status)
	}
	if paper.ReviewDate != time.Now().Format("2006-01-02") {
		t.Fatalf("expected review date to default to today, got %q", paper.ReviewDate)
	}

	info, err := os.Stat(layout.PaperInputDir(paper.ID))
	if err != nil {
		t.Fatalf("stat paper input dir: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("paper input dir missing")
	}

	if _, err := svc.AddPaper(ctx, domain.PaperInfo{ID: paper.ID, Title: "Clone"}); !errors.Is(err, domain.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	if _, err := svc.AddPaper(ctx, domain.PaperInfo{}); err == nil {
		t.Fatalf("expected validation error for empty title")
	}
}

func TestCreatePaperFromDocument(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	doc := domain.ReviewDocument{
		Manuscript: domain.Manuscript{
			Title:   "Reef Recovery Rates",
			Authors: "Tanaka",
			Journal: "Coral Reefs",
		},
		Reviewers: []domain.ReviewerDoc{{
			ID:       "R1",
			Name:     "Reviewer 1",
			Comments: []domain.CommentDoc{{ID: "R1-1", OriginalText: "Define recovery."}},
		}},
	}

	paper, err := svc.CreatePaperFromDocument(ctx, doc)
	if err != nil {
		t.Fatalf("create from document: %v", err)
	}
	if !strings.HasPrefix(paper.ID, "reef-recovery-rates-") {
		t.Fatalf("unexpected id %q", paper.ID)
	}

	exported, err := svc.ExportReviewData(ctx, paper.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exported.Manuscript.Title != "Reef Recovery Rates" {
		t.Fatalf("manuscript not persisted: %+v", exported.Manuscript)
	}
	if len(exported.Reviewers) != 1 || len(exported.Reviewers[0].Comments) != 1 {
		t.Fatalf("review data not imported: %+v", exported.Reviewers)
	}
}

func TestBuildResponseSheet(t *testing.T) {
	doc := domain.ReviewDocument{
		Manuscript: domain.Manuscript{Title: "Reef Recovery Rates", Authors: "Tanaka"},
		Reviewers: []domain.ReviewerDoc{{
			ID:        "R1",
			Name:      "Reviewer 1",
			Expertise: "ecology",
			Comments: []domain.CommentDoc{
				{
					ID:            "R1-1",
					Type:          "major",
					Priority:      "high",
					Status:        domain.CommentStatusCompleted,
					Location:      "p. 2",
					Category:      "methods",
					OriginalText:  "Define recovery.",
					DraftResponse: "Draft wording.",
					FinalResponse: "We now define recovery in section 2.1.",
				},
				{ID: "R1-2", Status: domain.CommentStatusPending, OriginalText: "Pending item."},
			},
		}},
	}

	sheet := BuildResponseSheet(doc, time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC))
	if sheet.Total != 2 || sheet.Completed != 1 {
		t.Fatalf("expected 1/2 progress, got %d/%d", sheet.Completed, sheet.Total)
	}
	if !strings.Contains(sheet.Markdown, "# Response to Reviewers") {
		t.Fatalf("missing header:\n%s", sheet.Markdown)
	}
	if !strings.Contains(sheet.Markdown, "### Comment R1-1 (MAJOR, high priority)") {
		t.Fatalf("missing completed comment section:\n%s", sheet.Markdown)
	}
	if !strings.Contains(sheet.Markdown, "We now define recovery in section 2.1.") {
		t.Fatalf("final response should win over draft:\n%s", sheet.Markdown)
	}
	if strings.Contains(sheet.Markdown, "Pending item.") {
		t.Fatalf("pending comments should be excluded:\n%s", sheet.Markdown)
	}
	if !strings.Contains(sheet.Markdown, "**Date:** 2026-08-21") {
		t.Fatalf("missing date line:\n%s", sheet.Markdown)
	}
}
