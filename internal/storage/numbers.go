package storage

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

const numbersKey = "phone_numbers.json"

// NumberStore persists the dial list as a JSON array of strings.
type NumberStore struct {
	mu  sync.Mutex
	doc Document[[]string]
}

func NewNumberStore(blobs BlobStore) *NumberStore {
	return &NumberStore{doc: Document[[]string]{
		Blobs:   blobs,
		Key:     numbersKey,
		Default: func() []string { return []string{} },
		Validate: func(numbers []string) error {
			for i, n := range numbers {
				if n == "" {
					return errors.Newf("number %d is empty", i)
				}
			}
			return nil
		},
	}}
}

func (s *NumberStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Load(ctx)
}

func (s *NumberStore) Replace(ctx context.Context, numbers []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if numbers == nil {
		numbers = []string{}
	}
	return s.doc.Save(ctx, numbers)
}
