package blog

import (
	"context"
	"strconv"
	"sync"

	"autodialer/internal/storage"

	"github.com/cockroachdb/errors"
)

const articlesKey = "blog_articles.json"

var ErrArticleNotFound = errors.New("article not found")

// Store keeps generated articles as one JSON array.
type Store struct {
	mu  sync.Mutex
	doc storage.Document[[]Article]
}

func NewStore(blobs storage.BlobStore) *Store {
	return &Store{doc: storage.Document[[]Article]{
		Blobs:   blobs,
		Key:     articlesKey,
		Default: func() []Article { return []Article{} },
		Validate: func(articles []Article) error {
			for i, a := range articles {
				if a.Slug == "" {
					return errors.Newf("article %d has no slug", i)
				}
			}
			return nil
		},
	}}
}

func (s *Store) List(ctx context.Context) ([]Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Load(ctx)
}

func (s *Store) Find(ctx context.Context, slug string) (Article, error) {
	articles, err := s.List(ctx)
	if err != nil {
		return Article{}, err
	}
	for _, a := range articles {
		if a.Slug == slug {
			return a, nil
		}
	}
	return Article{}, errors.Wrapf(ErrArticleNotFound, "slug %q", slug)
}

// Append stores articles after the existing ones. A slug that is already
// taken gets a numeric suffix; the stored versions are returned.
func (s *Store) Append(ctx context.Context, articles []Article) ([]Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.doc.Load(ctx)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(cur)+len(articles))
	for _, a := range cur {
		taken[a.Slug] = true
	}
	added := make([]Article, 0, len(articles))
	for _, a := range articles {
		a.Slug = uniqueSlug(a.Slug, taken)
		taken[a.Slug] = true
		added = append(added, a)
	}
	if err := s.doc.Save(ctx, append(cur, added...)); err != nil {
		return nil, err
	}
	return added, nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Save(ctx, []Article{})
}

func uniqueSlug(slug string, taken map[string]bool) string {
	if !taken[slug] {
		return slug
	}
	for n := 2; ; n++ {
		if c := slug + "-" + strconv.Itoa(n); !taken[c] {
			return c
		}
	}
}
