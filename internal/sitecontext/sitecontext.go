// Package sitecontext computes the sidebar aggregates that every public
// page template receives: active categories, popular tags and blog stats.
//
// Each Processor fails independently. A failing processor logs the error,
// increments the uch_context_processor_failures_total counter and
// contributes its empty defaults, so a broken query never fails the page.
package sitecontext

import (
	"log/slog"
	"net/http"

	"uch/internal/metrics"
	"uch/internal/models"
	"uch/internal/store"
)

const (
	categoryLimit = 10
	tagLimit      = 10
	latestLimit   = 5
)

// CategorySource is the subset of store.CategoryStore used here.
type CategorySource interface {
	WithPublishedArticles(limit int) ([]models.Category, error)
	CountActive() (int, error)
}

// ArticleSource is the subset of store.ArticleStore used here.
type ArticleSource interface {
	List(q store.ArticleQuery) ([]models.Article, error)
	Count(q store.ArticleQuery) (int, error)
}

// TagSource is the subset of store.TagStore used here.
type TagSource interface {
	Popular(limit int) ([]models.Tag, error)
}

// Sources bundles the stores the processors read from.
type Sources struct {
	Categories CategorySource
	Articles   ArticleSource
	Tags       TagSource
}

// Processor produces a set of template keys for a request.
type Processor struct {
	Name     string
	compute  func(r *http.Request) (map[string]any, error)
	fallback func() map[string]any
}

// Run executes the processor, substituting its defaults on failure.
func (p Processor) Run(r *http.Request) map[string]any {
	data, err := p.compute(r)
	if err != nil {
		slog.Error("context processor failed", "processor", p.Name, "path", r.URL.Path, "error", err)
		metrics.ContextProcessorFailures.WithLabelValues(p.Name).Inc()
		return p.fallback()
	}
	return data
}

// Chain runs processors in order. Later processors overwrite keys set by
// earlier ones.
type Chain []Processor

// Default returns the processors installed on every public page.
func Default(src Sources) Chain {
	return Chain{
		BlogCategories(src),
		PopularTags(src),
		BlogStats(src),
		SidebarData(src),
	}
}

// Build merges the output of every processor into one map.
func (c Chain) Build(r *http.Request) map[string]any {
	out := make(map[string]any)
	for _, p := range c {
		for k, v := range p.Run(r) {
			out[k] = v
		}
	}
	return out
}

// BlogCategories exposes up to ten active categories that have at least one
// published article, under both "blog_categories" and "categories".
func BlogCategories(src Sources) Processor {
	return Processor{
		Name: "blog_categories",
		compute: func(*http.Request) (map[string]any, error) {
			cats, err := src.Categories.WithPublishedArticles(categoryLimit)
			if err != nil {
				return nil, err
			}
			return map[string]any{"blog_categories": cats, "categories": cats}, nil
		},
		fallback: func() map[string]any {
			return map[string]any{
				"blog_categories": []models.Category{},
				"categories":      []models.Category{},
			}
		},
	}
}

// PopularTags exposes the ten most used tags as "popular_tags".
func PopularTags(src Sources) Processor {
	return Processor{
		Name: "popular_tags",
		compute: func(*http.Request) (map[string]any, error) {
			tags, err := src.Tags.Popular(tagLimit)
			if err != nil {
				return nil, err
			}
			return map[string]any{"popular_tags": tags}, nil
		},
		fallback: func() map[string]any {
			return map[string]any{"popular_tags": []models.Tag{}}
		},
	}
}

// latestArticles returns the newest published articles by creation time.
func latestArticles(src Sources) ([]models.Article, error) {
	q := store.PublishedArticles()
	q.NewestCreated = true
	q.Limit = latestLimit
	return src.Articles.List(q)
}

// BlogStats exposes "total_articles", "total_categories" and
// "latest_articles".
func BlogStats(src Sources) Processor {
	return Processor{
		Name: "blog_stats",
		compute: func(*http.Request) (map[string]any, error) {
			latest, err := latestArticles(src)
			if err != nil {
				return nil, err
			}
			total, err := src.Articles.Count(store.PublishedArticles())
			if err != nil {
				return nil, err
			}
			cats, err := src.Categories.CountActive()
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"total_articles":   total,
				"total_categories": cats,
				"latest_articles":  latest,
			}, nil
		},
		fallback: func() map[string]any {
			return map[string]any{
				"total_articles":   0,
				"total_categories": 0,
				"latest_articles":  []models.Article{},
			}
		},
	}
}

// SidebarData combines categories, popular tags and latest articles. Any
// failure empties all three.
func SidebarData(src Sources) Processor {
	return Processor{
		Name: "sidebar_data",
		compute: func(*http.Request) (map[string]any, error) {
			cats, err := src.Categories.WithPublishedArticles(categoryLimit)
			if err != nil {
				return nil, err
			}
			tags, err := src.Tags.Popular(tagLimit)
			if err != nil {
				return nil, err
			}
			latest, err := latestArticles(src)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"categories":      cats,
				"popular_tags":    tags,
				"latest_articles": latest,
			}, nil
		},
		fallback: func() map[string]any {
			return map[string]any{
				"categories":      []models.Category{},
				"popular_tags":    []models.Tag{},
				"latest_articles": []models.Article{},
			}
		},
	}
}
