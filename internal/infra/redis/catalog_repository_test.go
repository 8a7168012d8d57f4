package redis

import (
	"context"
	"testing"
	"time"

	"trivia-match-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestCatalogRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{catalog: sampleCatalog()}
	repo := NewCatalogRepository(client, loader, time.Minute)

	catalog, err := repo.GetCatalog(context.Background(), domain.LangEN)
	if err != nil {
		t.Fatalf("get catalog: %v", err)
	}
	if len(catalog.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(catalog.Questions))
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("catalog:en") {
		t.Fatalf("expected catalog cached in redis")
	}

	// Second call should hit the redis cache, loader not incremented.
	if _, err := repo.GetCatalog(context.Background(), domain.LangEN); err != nil {
		t.Fatalf("get catalog 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	catalog domain.Catalog
	calls   int
}

func (l *countingLoader) LoadCatalog(_ context.Context, lang domain.Language) (domain.Catalog, error) {
	l.calls++
	if lang != l.catalog.Lang {
		return domain.Catalog{}, domain.ErrCatalogNotFound
	}
	return l.catalog, nil
}

func sampleCatalog() domain.Catalog {
	return domain.Catalog{
		Lang: domain.LangEN,
		Questions: []domain.Question{
			{ID: 1, Category: "Tutorial", Question: "Pick green", CorrectAnswer: "Green", IncorrectAnswers: []string{"Red", "Blue", "Yellow"}},
			{ID: 2, Category: "Science", Question: "Red planet?", CorrectAnswer: "Mars", IncorrectAnswers: []string{"Venus", "Jupiter", "Mercury"}},
		},
	}
}
