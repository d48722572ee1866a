package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/genomewalker/reviewflow-sub001/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "reviewflow_test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return NewStore(db)
}

func TestAddAndGetPaper(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	paper := domain.Paper{
		ID:             "gut-microbiome-kx92a1",
		Title:          "Gut Microbiome Dynamics",
		Authors:        "Alvarez, Chen",
		Journal:        "Microbiome",
		Field:          "microbiology",
		SubmissionDate: "2026-03-01",
		ReviewDate:     "2026-05-14",
		Config:         json.RawMessage(`{"rounds":2}`),
	}
	if err := store.AddPaper(ctx, paper); err != nil {
		t.Fatalf("add paper: %v", err)
	}

	got, err := store.GetPaper(ctx, paper.ID)
	if err != nil {
		t.Fatalf("get paper: %v", err)
	}
	if got.Title != paper.Title || got.Journal != paper.Journal {
		t.Fatalf("unexpected paper fields: %+v", got)
	}
	if got.Status != domain.PaperStatusActive {
		t.Fatalf("expected default status active, got %q", got.Status)
	}
	if string(got.Config) != `{"rounds":2}` {
		t.Fatalf("unexpected config: %s", got.Config)
	}

	_, err = store.GetPaper(ctx, "missing-id")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddPaperDuplicateID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.AddPaper(ctx, domain.Paper{ID: "dup-1", Title: "First"}); err != nil {
		t.Fatalf("add paper: %v", err)
	}
	err := store.AddPaper(ctx, domain.Paper{ID: "dup-1", Title: "Second"})
	if !errors.Is(err, domain.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestArchivePaperIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.AddPaper(ctx, domain.Paper{ID: "arch-1", Title: "To Archive"}); err != nil {
		t.Fatalf("add paper: %v", err)
	}
	if err := store.ArchivePaper(ctx, "arch-1"); err != nil {
		t.Fatalf("archive: %v", err)
	}
	got, err := store.GetPaper(ctx, "arch-1")
	if err != nil {
		t.Fatalf("get paper: %v", err)
	}
	if got.Status != domain.PaperStatusArchived {
		t.Fatalf("expected archived, got %q", got.Status)
	}

	if err := store.ArchivePaper(ctx, "arch-1"); err != nil {
		t.Fatalf("second archive should be a no-op, got %v", err)
	}
	if err := store.ArchivePaper(ctx, "never-existed"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListActivePapersAggregatesCounts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.AddPaper(ctx, domain.Paper{ID: "empty-paper", Title: "No Comments Yet"}); err != nil {
		t.Fatalf("add paper: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := store.AddPaper(ctx, domain.Paper{ID: "busy-paper", Title: "Has Comments"}); err != nil {
		t.Fatalf("add paper: %v", err)
	}
	if err := store.AddPaper(ctx, domain.Paper{ID: "old-paper", Title: "Archived Away"}); err != nil {
		t.Fatalf("add paper: %v", err)
	}
	if err := store.ArchivePaper(ctx, "old-paper"); err != nil {
		t.Fatalf("archive: %v", err)
	}

	doc := domain.ReviewDocument{Reviewers: []domain.ReviewerDoc{{
		ID:   "R1",
		Name: "Reviewer One",
		Comments: []domain.CommentDoc{
			{ID: "R1-1", Status: "completed"},
			{ID: "R1-2", Status: "pending"},
			{ID: "R1-3"},
		},
	}}}
	if err := store.ImportReviewData(ctx, "busy-paper", doc); err != nil {
		t.Fatalf("import: %v", err)
	}

	papers, err := store.ListActivePapers(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(papers) != 2 {
		t.Fatalf("expected 2 active papers, got %d", len(papers))
	}

	byID := make(map[string]domain.PaperSummary, len(papers))
	for _, p := range papers {
		byID[p.ID] = p
	}
	if p := byID["empty-paper"]; p.TotalComments != 0 || p.CompletedComments != 0 {
		t.Fatalf("expected 0/0 for comment-less paper, got %d/%d", p.TotalComments, p.CompletedComments)
	}
	if p := byID["busy-paper"]; p.TotalComments != 3 || p.CompletedComments != 1 {
		t.Fatalf("expected 3/1 for busy paper, got %d/%d", p.TotalComments, p.CompletedComments)
	}
	if papers[0].ID != "busy-paper" {
		t.Fatalf("expected most recently updated paper first, got %q", papers[0].ID)
	}
}

func TestDeletePaperCascades(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.AddPaper(ctx, domain.Paper{ID: "gone-soon", Title: "Cascade Target"}); err != nil {
		t.Fatalf("add paper: %v", err)
	}
	doc := domain.ReviewDocument{Reviewers: []domain.ReviewerDoc{{
		ID:       "R1",
		Comments: []domain.CommentDoc{{ID: "R1-1"}, {ID: "R1-2"}},
	}}}
	if err := store.ImportReviewData(ctx, "gone-soon", doc); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := store.AppendChat(ctx, domain.ChatEntry{PaperID: "gone-soon", Role: "user", Content: "hello"}); err != nil {
		t.Fatalf("append chat: %v", err)
	}
	if err := store.SetAppState(ctx, "gone-soon", "ui", json.RawMessage(`{"tab":1}`)); err != nil {
		t.Fatalf("set state: %v", err)
	}
	if _, err := store.AddDiscussion(ctx, domain.ExpertDiscussion{PaperID: "gone-soon", CommentID: "R1-1", ExpertName: "Stats"}); err != nil {
		t.Fatalf("add discussion: %v", err)
	}

	if err := store.DeletePaper(ctx, "gone-soon"); err != nil {
		t.Fatalf("delete paper: %v", err)
	}

	for _, target := range []any{&ReviewerModel{}, &CommentModel{}, &ChatEntryModel{}, &AppStateModel{}, &ExpertDiscussionModel{}} {
		var count int64
		if err := store.db.WithContext(ctx).Model(target).Count(&count).Error; err != nil {
			t.Fatalf("count %T: %v", target, err)
		}
		if count != 0 {
			t.Fatalf("expected cascade to clear %T, found %d rows", target, count)
		}
	}

	if err := store.DeletePaper(ctx, "gone-soon"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppStateUpsertAndLookup(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.AddPaper(ctx, domain.Paper{ID: "p1", Title: "Stateful"}); err != nil {
		t.Fatalf("add paper: %v", err)
	}
	if err := store.SetAppState(ctx, "p1", "panel", json.RawMessage(`{"open":true}`)); err != nil {
		t.Fatalf("set state: %v", err)
	}
	if err := store.SetAppState(ctx, "p1", "panel", json.RawMessage(`{"open":false}`)); err != nil {
		t.Fatalf("overwrite state: %v", err)
	}

	value, err := store.GetAppState(ctx, "p1", "panel")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if string(value) != `{"open":false}` {
		t.Fatalf("unexpected state value: %s", value)
	}

	if _, err := store.GetAppState(ctx, "p1", "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.SetAppState(ctx, "ghost", "panel", json.RawMessage(`{}`)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown paper, got %v", err)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.SetSetting(ctx, "theme", json.RawMessage(`"dark"`)); err != nil {
		t.Fatalf("set setting: %v", err)
	}
	if err := store.SetSetting(ctx, "theme", json.RawMessage(`"light"`)); err != nil {
		t.Fatalf("overwrite setting: %v", err)
	}
	if err := store.SetSetting(ctx, "editor", json.RawMessage(`{"font":12}`)); err != nil {
		t.Fatalf("set setting: %v", err)
	}

	value, err := store.GetSetting(ctx, "theme")
	if err != nil {
		t.Fatalf("get setting: %v", err)
	}
	if string(value) != `"light"` {
		t.Fatalf("unexpected setting value: %s", value)
	}

	settings, err := store.ListSettings(ctx)
	if err != nil {
		t.Fatalf("list settings: %v", err)
	}
	if len(settings) != 2 || settings[0].Key != "editor" || settings[1].Key != "theme" {
		t.Fatalf("unexpected settings listing: %+v", settings)
	}

	if _, err := store.GetSetting(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChatAppendAndList(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.AddPaper(ctx, domain.Paper{ID: "p1", Title: "Chatty"}); err != nil {
		t.Fatalf("add paper: %v", err)
	}

	first, err := store.AppendChat(ctx, domain.ChatEntry{PaperID: "p1", Role: "user", Content: "first"})
	if err != nil {
		t.Fatalf("append chat: %v", err)
	}
	if first.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if first.Timestamp.IsZero() {
		t.Fatalf("expected timestamp to default")
	}
	if _, err := store.AppendChat(ctx, domain.ChatEntry{PaperID: "p1", CommentID: "R1-1", Role: "assistant", Content: "second"}); err != nil {
		t.Fatalf("append chat: %v", err)
	}

	entries, err := store.ListChat(ctx, "p1", 0)
	if err != nil {
		t.Fatalf("list chat: %v", err)
	}
	if len(entries) != 2 || entries[0].Content != "first" || entries[1].Content != "second" {
		t.Fatalf("unexpected chat entries: %+v", entries)
	}

	limited, err := store.ListChat(ctx, "p1", 1)
	if err != nil {
		t.Fatalf("list chat limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(limited))
	}

	if _, err := store.AppendChat(ctx, domain.ChatEntry{PaperID: "ghost", Role: "user"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown paper, got %v", err)
	}
}

func TestDiscussionsFilterByComment(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.AddPaper(ctx, domain.Paper{ID: "p1", Title: "Discussed"}); err != nil {
		t.Fatalf("add paper: %v", err)
	}

	_, err := store.AddDiscussion(ctx, domain.ExpertDiscussion{
		PaperID:       "p1",
		CommentID:     "R1-1",
		ExpertName:    "Statistician",
		Verdict:       "agree",
		DataAnalysis:  json.RawMessage(`{"p":0.03}`),
		KeyDataPoints: []string{"fig 2", "table 1"},
	})
	if err != nil {
		t.Fatalf("add discussion: %v", err)
	}
	if _, err := store.AddDiscussion(ctx, domain.ExpertDiscussion{PaperID: "p1", CommentID: "R1-2", ExpertName: "Methodologist"}); err != nil {
		t.Fatalf("add discussion: %v", err)
	}

	all, err := store.ListDiscussions(ctx, "p1", "")
	if err != nil {
		t.Fatalf("list discussions: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 discussions, got %d", len(all))
	}

	scoped, err := store.ListDiscussions(ctx, "p1", "R1-1")
	if err != nil {
		t.Fatalf("list discussions scoped: %v", err)
	}
	if len(scoped) != 1 || scoped[0].ExpertName != "Statistician" {
		t.Fatalf("unexpected scoped discussions: %+v", scoped)
	}
	if len(scoped[0].KeyDataPoints) != 2 || scoped[0].KeyDataPoints[0] != "fig 2" {
		t.Fatalf("unexpected key data points: %+v", scoped[0].KeyDataPoints)
	}
}
