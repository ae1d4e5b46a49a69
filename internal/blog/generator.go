package blog

import (
	"context"
	"log/slog"
	"time"

	"autodialer/internal/textgen"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"
)

var ErrNoTitles = errors.New("no titles provided")

const (
	writerPrompt = "You are a professional technical writer. Write comprehensive, well-structured blog articles about programming topics. " +
		"Include an introduction, multiple sections with headings, code examples where relevant, and a conclusion. " +
		"Format the article in HTML with proper tags like <h2>, <h3>, <p>, <pre><code>, <ul>, <ol>, etc. Make it engaging and informative."

	articleTemperature = 0.7
	articleMaxTokens   = 2000
)

type TextGenerator interface {
	Chat(ctx context.Context, req textgen.ChatRequest) (string, error)
}

// Generator writes one article per title, at most one request per interval.
type Generator struct {
	llm     TextGenerator
	store   *Store
	limiter *rate.Limiter
	now     func() time.Time
	log     *slog.Logger
}

func NewGenerator(llm TextGenerator, store *Store, interval time.Duration, log *slog.Logger) *Generator {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Generator{
		llm:     llm,
		store:   store,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
		log:     log,
	}
}

// Generate writes an article for every title and stores them together.
// Nothing is stored if any request fails.
func (g *Generator) Generate(ctx context.Context, titles []string) ([]Article, error) {
	if len(titles) == 0 {
		return nil, ErrNoTitles
	}

	out := make([]Article, 0, len(titles))
	for _, detail := range titles {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "wait for generation slot")
		}
		g.log.Info("generating article", "title", detail)

		content, err := g.llm.Chat(ctx, textgen.ChatRequest{
			SystemPrompt: writerPrompt,
			UserPrompt:   "Write a detailed blog article about: " + detail + "\n\nProvide the full article content in HTML format.",
			Temperature:  articleTemperature,
			MaxTokens:    articleMaxTokens,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "generate article %q", detail)
		}

		title := CleanTitle(detail)
		now := g.now().UTC()
		out = append(out, Article{
			Title:     title,
			Slug:      Slugify(title),
			Content:   content,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	stored, err := g.store.Append(ctx, out)
	if err != nil {
		return nil, errors.Wrap(err, "save articles")
	}
	g.log.Info("articles generated", "count", len(stored))
	return stored, nil
}
