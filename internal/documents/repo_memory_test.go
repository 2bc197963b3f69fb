package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"legaldoc-backend/internal/extract"
)

func seedDoc(id string, uploaded time.Time) Document {
	return Document{
		ID:           id,
		OriginalName: id + ".txt",
		FileType:     extract.FileTypeTXT,
		Content:      "content of " + id,
		UploadedAt:   uploaded,
	}
}

func TestMemoryRepoListNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if err := repo.Create(ctx, seedDoc(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("unexpected order: %v", ids(all))
	}

	page, err := repo.List(ctx, 1, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 1 || page[0].ID != "b" {
		t.Fatalf("unexpected page: %v", ids(page))
	}

	past, err := repo.List(ctx, 10, 5)
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if len(past) != 0 {
		t.Fatalf("expected empty page, got %v", ids(past))
	}
}

func TestMemoryRepoSaveReplacesAnalysisOnly(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	doc := seedDoc("a", time.Now().UTC())
	if err := repo.Create(ctx, doc); err != nil {
		t.Fatalf("create: %v", err)
	}

	update := doc
	update.Content = "tampered"
	update.Analysis = &AnalysisResult{RiskScore: 10, KeyTerms: []string{"rent"}}
	if err := repo.Save(ctx, update); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.FindByID(ctx, "a")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Content != doc.Content {
		t.Fatalf("content must be immutable, got %q", got.Content)
	}
	if got.State() != StateAnalyzed || got.Analysis.RiskScore != 10 {
		t.Fatalf("unexpected analysis: %+v", got.Analysis)
	}

	// Stored copies are isolated from callers.
	got.Analysis.KeyTerms[0] = "changed"
	again, _ := repo.FindByID(ctx, "a")
	if again.Analysis.KeyTerms[0] != "rent" {
		t.Fatalf("stored analysis was mutated through a returned copy")
	}
}

func TestMemoryRepoMissingDocument(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	if _, err := repo.FindByID(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("find: expected ErrNotFound, got %v", err)
	}
	if err := repo.Save(ctx, Document{ID: "nope"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("save: expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete: expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepoCount(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	_ = repo.Create(ctx, seedDoc("a", now))
	_ = repo.Create(ctx, seedDoc("b", now))
	analyzed := seedDoc("c", now)
	analyzed.Analysis = &AnalysisResult{RiskScore: 50}
	_ = repo.Create(ctx, analyzed)

	cases := map[Predicate]int{
		PredicateAll:        3,
		PredicateAnalyzed:   1,
		PredicateUnanalyzed: 2,
	}
	for pred, want := range cases {
		got, err := repo.Count(ctx, pred)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if got != want {
			t.Fatalf("predicate %d: expected %d, got %d", pred, want, got)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	cases := []struct {
		raw  string
		want Severity
		ok   bool
	}{
		{"low", SeverityLow, true},
		{" HIGH ", SeverityHigh, true},
		{"Medium", SeverityMedium, true},
		{"extreme", SeverityMedium, false},
		{"", SeverityMedium, false},
	}
	for _, tc := range cases {
		got, ok := ParseSeverity(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseSeverity(%q) = %q, %v; want %q, %v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func ids(docs []Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}
