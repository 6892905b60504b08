package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pedidohub/backoffice/internal/domain"
)

type translationRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Translation
	// byKey maps "key\x00language" to the record ID for lookups.
	byKey map[string]string
}

// NewTranslationRepository returns an in-memory TranslationRepository.
func NewTranslationRepository() domain.TranslationRepository {
	return &translationRepositoryInMemory{
		items: make(map[string]domain.Translation),
		byKey: make(map[string]string),
	}
}

func (r *translationRepositoryInMemory) Create(translation domain.Translation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if translation.ID == "" {
		translation.ID = uuid.NewString()
	}
	key := lookupKey(translation.Key, translation.LanguageCode)
	if _, exists := r.byKey[key]; exists {
		return domain.ErrDuplicateTranslation
	}

	now := time.Now().UTC()
	if translation.CreatedAt.IsZero() {
		translation.CreatedAt = now
	}
	translation.UpdatedAt = now
	r.items[translation.ID] = translation
	r.byKey[key] = translation.ID
	return nil
}

func (r *translationRepositoryInMemory) Get(id string) (domain.Translation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	translation, ok := r.items[id]
	if !ok {
		return domain.Translation{}, domain.ErrTranslationNotFound
	}
	return translation, nil
}

func (r *translationRepositoryInMemory) Lookup(key, languageCode string) (domain.Translation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byKey[lookupKey(key, languageCode)]
	if !ok {
		return domain.Translation{}, domain.ErrTranslationNotFound
	}
	return r.items[id], nil
}

func (r *translationRepositoryInMemory) List(page domain.PageRequest) ([]domain.Translation, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.Translation, 0, len(r.items))
	for _, translation := range r.items {
		all = append(all, translation)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Key != all[j].Key {
			return all[i].Key < all[j].Key
		}
		return all[i].LanguageCode < all[j].LanguageCode
	})

	total := int64(len(all))
	start := page.Offset()
	if start >= len(all) {
		return []domain.Translation{}, total, nil
	}
	end := start + page.Normalize().PerPage
	if end > len(all) {
		end = len(all)
	}
	out := make([]domain.Translation, end-start)
	copy(out, all[start:end])
	return out, total, nil
}

func (r *translationRepositoryInMemory) Update(translation domain.Translation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[translation.ID]
	if !ok {
		return domain.ErrTranslationNotFound
	}

	oldKey := lookupKey(current.Key, current.LanguageCode)
	newKey := lookupKey(translation.Key, translation.LanguageCode)
	if oldKey != newKey {
		if owner, exists := r.byKey[newKey]; exists && owner != translation.ID {
			return domain.ErrDuplicateTranslation
		}
		delete(r.byKey, oldKey)
		r.byKey[newKey] = translation.ID
	}

	translation.CreatedAt = current.CreatedAt
	translation.UpdatedAt = time.Now().UTC()
	r.items[translation.ID] = translation
	return nil
}

func lookupKey(key, languageCode string) string {
	return key + "\x00" + languageCode
}

var _ domain.TranslationRepository = (*translationRepositoryInMemory)(nil)
