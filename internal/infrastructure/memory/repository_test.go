package memory

import (
	"context"
	"testing"
	"time"

	"github.com/sp3dr4/tern/internal/domain"
)

func newMapping(t *testing.T, code, url string) *domain.Mapping {
	t.Helper()
	m, err := domain.NewMapping(code, url)
	if err != nil {
		t.Fatalf("NewMapping: %v", err)
	}
	return m
}

func TestMemoryRepository_Insert(t *testing.T) {
	repo := NewMappingRepository()
	ctx := context.Background()

	m := newMapping(t, "abcd1234", "https://example.com")

	created, err := repo.Insert(ctx, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected a generated ID")
	}
	if m.ID != "" {
		t.Fatal("Insert must not mutate its argument")
	}

	// Same short code, different URL
	_, err = repo.Insert(ctx, newMapping(t, "abcd1234", "https://other.example.com"))
	if err != domain.ErrDuplicateKey {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestMemoryRepository_Find(t *testing.T) {
	repo := NewMappingRepository()
	ctx := context.Background()

	created, err := repo.Insert(ctx, newMapping(t, "abcd1234", "https://example.com"))
	if err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	found, err := repo.FindByShortCode(ctx, "abcd1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.LongURL != "https://example.com" || found.ID != created.ID {
		t.Fatalf("unexpected mapping: %+v", found)
	}

	byID, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if byID.ShortCode != "abcd1234" {
		t.Fatalf("expected abcd1234, got %s", byID.ShortCode)
	}

	if _, err := repo.FindByShortCode(ctx, "notfound"); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.FindByID(ctx, "notfound"); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepository_Delete(t *testing.T) {
	repo := NewMappingRepository()
	ctx := context.Background()

	created, err := repo.Insert(ctx, newMapping(t, "abcd1234", "https://example.com"))
	if err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.FindByShortCode(ctx, "abcd1234"); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, created.ID); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	// The short code is free again
	if _, err := repo.Insert(ctx, newMapping(t, "abcd1234", "https://example.com/again")); err != nil {
		t.Fatalf("re-insert after delete: %v", err)
	}
}

func TestMemoryRepository_List(t *testing.T) {
	repo := NewMappingRepository()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, code := range []string{"code0001", "code0002", "code0003"} {
		m := newMapping(t, code, "https://example.com/"+code)
		m.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if _, err := repo.Insert(ctx, m); err != nil {
			t.Fatalf("insert %s: %v", code, err)
		}
	}

	tests := []struct {
		name          string
		limit, offset int
		want          []string
	}{
		{"all", 0, 0, []string{"code0001", "code0002", "code0003"}},
		{"limited", 2, 0, []string{"code0001", "code0002"}},
		{"offset", 10, 1, []string{"code0002", "code0003"}},
		{"past end", 10, 5, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d mappings, got %d", len(tt.want), len(got))
			}
			for i, m := range got {
				if m.ShortCode != tt.want[i] {
					t.Errorf("position %d: expected %s, got %s", i, tt.want[i], m.ShortCode)
				}
			}
		})
	}
}
