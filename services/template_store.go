package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"form-workflow-api/models"
)

// TemplateStore gives the engine read-only access to form templates.
type TemplateStore interface {
	Get(ctx context.Context, templateID uint) (*models.FormTemplate, error)
	ListActive(ctx context.Context) ([]models.FormTemplate, error)
	ListAvailableFor(ctx context.Context, department string) ([]models.FormTemplate, error)
}

type templateCacheEntry struct {
	templates []models.FormTemplate
	byID      map[uint]models.FormTemplate
	fetchedAt time.Time
}

// GormTemplateStore reads form_templates. Listings come from a short-lived cache of the
// whole table; single-template reads always hit the database.
type GormTemplateStore struct {
	db  *gorm.DB
	ttl time.Duration

	mu    sync.RWMutex
	cache *templateCacheEntry
}

func NewGormTemplateStore(db *gorm.DB, ttl time.Duration) *GormTemplateStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &GormTemplateStore{db: db, ttl: ttl}
}

func (s *GormTemplateStore) load(ctx context.Context) (*templateCacheEntry, error) {
	s.mu.RLock()
	cached := s.cache
	s.mu.RUnlock()

	if cached != nil && time.Since(cached.fetchedAt) < s.ttl {
		return cached, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache != nil && time.Since(s.cache.fetchedAt) < s.ttl {
		return s.cache, nil
	}

	var rows []models.FormTemplate
	if err := s.db.WithContext(ctx).Order("template_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load form templates: %w", err)
	}

	byID := make(map[uint]models.FormTemplate, len(rows))
	for _, t := range rows {
		byID[t.TemplateID] = t
	}

	s.cache = &templateCacheEntry{templates: rows, byID: byID, fetchedAt: time.Now()}
	return s.cache, nil
}

// Invalidate drops the cache so the next read hits the database.
func (s *GormTemplateStore) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = nil
}

// Get reads the template row on every call so a deactivated template is refused at once.
// A row that no longer matches the cached listing drops the cache.
func (s *GormTemplateStore) Get(ctx context.Context, templateID uint) (*models.FormTemplate, error) {
	var t models.FormTemplate
	if err := s.db.WithContext(ctx).First(&t, "template_id = ?", templateID).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to load form template: %w", err)
	}

	s.mu.RLock()
	cached := s.cache
	s.mu.RUnlock()
	if cached != nil && cacheIsStale(cached, t) {
		s.Invalidate()
	}
	return &t, nil
}

func cacheIsStale(entry *templateCacheEntry, fresh models.FormTemplate) bool {
	old, ok := entry.byID[fresh.TemplateID]
	if !ok {
		return true
	}
	if old.IsActive != fresh.IsActive || old.RequiresApproval != fresh.RequiresApproval {
		return true
	}
	switch {
	case old.UpdateAt == nil && fresh.UpdateAt == nil:
		return false
	case old.UpdateAt == nil || fresh.UpdateAt == nil:
		return true
	}
	return !old.UpdateAt.Equal(*fresh.UpdateAt)
}

func (s *GormTemplateStore) ListActive(ctx context.Context) ([]models.FormTemplate, error) {
	entry, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]models.FormTemplate, 0, len(entry.templates))
	for _, t := range entry.templates {
		if t.IsActive {
			active = append(active, t)
		}
	}
	return active, nil
}

func (s *GormTemplateStore) ListAvailableFor(ctx context.Context, department string) ([]models.FormTemplate, error) {
	active, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := active[:0]
	for _, t := range active {
		if t.AvailableTo(department) {
			out = append(out, t)
		}
	}
	return out, nil
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
