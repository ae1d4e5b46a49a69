package voice

import (
	"context"
	"sync"
	"time"

	"autodialer/internal/storage"
	"autodialer/internal/telephony"
)

const settingsKey = "voice_settings.json"

// ScriptPause separates the message from the closing line.
const ScriptPause = time.Second

// Store persists Settings and renders them into call scripts.
type Store struct {
	mu      sync.Mutex
	doc     storage.Document[Settings]
	catalog Catalog
}

func NewStore(blobs storage.BlobStore, catalog Catalog) *Store {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Store{
		catalog: catalog,
		doc: storage.Document[Settings]{
			Blobs:   blobs,
			Key:     settingsKey,
			Default: DefaultSettings,
			Validate: func(s Settings) error {
				return s.Validate(catalog)
			},
		},
	}
}

func (s *Store) Catalog() Catalog { return s.catalog }

func (s *Store) Get(ctx context.Context) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Load(ctx)
}

// Update merges p into the stored settings and saves the result if it is valid.
func (s *Store) Update(ctx context.Context, p Patch) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.doc.Load(ctx)
	if err != nil {
		return Settings{}, err
	}
	next := p.Apply(cur)
	if err := next.Validate(s.catalog); err != nil {
		return Settings{}, err
	}
	if err := s.doc.Save(ctx, next); err != nil {
		return Settings{}, err
	}
	return next, nil
}

// Script implements telephony.ScriptSource. The Say language follows the
// catalog entry of the selected voice.
func (s *Store) Script(ctx context.Context) (telephony.VoiceScript, error) {
	cur, err := s.Get(ctx)
	if err != nil {
		return telephony.VoiceScript{}, err
	}
	lang := cur.Language
	if v, ok := s.catalog.Lookup(cur.Voice); ok {
		lang = v.Language
	}
	return telephony.VoiceScript{
		Message:  cur.Message,
		Closing:  cur.Closing,
		Voice:    cur.Voice,
		Language: lang,
		Pause:    ScriptPause,
	}, nil
}
