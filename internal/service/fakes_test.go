package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/formaplan/trainer-booking/internal/models"
	appErrors "github.com/formaplan/trainer-booking/pkg/errors"
)

// memoryCalendar is an in-memory calendarEventRepository.
type memoryCalendar struct {
	mu     sync.Mutex
	events map[string]models.CalendarEvent

	listErr   error
	createErr error
	deleteErr error
	listCalls int
	// beforeCreate runs inside CreateIfFree before the overlap check, to simulate a racing writer.
	beforeCreate func(m *memoryCalendar)
}

func newMemoryCalendar(events ...models.CalendarEvent) *memoryCalendar {
	m := &memoryCalendar{events: make(map[string]models.CalendarEvent)}
	for _, e := range events {
		m.events[e.ID] = e
	}
	return m
}

func (m *memoryCalendar) ListInRange(ctx context.Context, filter models.CalendarFilter) ([]models.CalendarEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	trainers := map[string]bool{}
	for _, id := range filter.TrainerIDs {
		trainers[id] = true
	}
	excluded := map[string]bool{}
	for _, id := range filter.ExcludeIDs {
		excluded[id] = true
	}
	var out []models.CalendarEvent
	for _, e := range m.events {
		if trainers[e.TrainerID] && !excluded[e.ID] && e.Overlaps(filter.Start, filter.End) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *memoryCalendar) GetByID(ctx context.Context, id string) (*models.CalendarEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (m *memoryCalendar) FindActiveByTask(ctx context.Context, taskID string) (*models.CalendarEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *models.CalendarEvent
	for _, e := range m.events {
		e := e
		if e.Kind == models.EventKindQualificationAppointment && e.TaskID != nil && *e.TaskID == taskID {
			if found == nil || e.Start.After(found.Start) {
				found = &e
			}
		}
	}
	if found == nil {
		return nil, sql.ErrNoRows
	}
	return found, nil
}

func (m *memoryCalendar) Create(ctx context.Context, exec sqlx.ExtContext, event *models.CalendarEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	m.events[event.ID] = *event
	return nil
}

func (m *memoryCalendar) CreateIfFree(ctx context.Context, exec sqlx.ExtContext, event *models.CalendarEvent, excludeID string) (bool, error) {
	if m.beforeCreate != nil {
		m.beforeCreate(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return false, m.createErr
	}
	for _, e := range m.events {
		if e.TrainerID == event.TrainerID && e.ID != excludeID && e.Overlaps(event.Start, event.End) {
			return false, nil
		}
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	m.events[event.ID] = *event
	return true, nil
}

func (m *memoryCalendar) LockTrainer(ctx context.Context, exec sqlx.ExtContext, trainerID string) error {
	return nil
}

func (m *memoryCalendar) Update(ctx context.Context, event *models.CalendarEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[event.ID]; !ok {
		return sql.ErrNoRows
	}
	m.events[event.ID] = *event
	return nil
}

func (m *memoryCalendar) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.events, id)
	return nil
}

func (m *memoryCalendar) insert(e models.CalendarEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.ID] = e
}

func (m *memoryCalendar) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// staticTrainers is a trainerResolver returning a fixed list.
type staticTrainers struct {
	trainers []models.Trainer
	err      error
	calls    int
}

func (s *staticTrainers) TrainersFor(ctx context.Context, softwareID string) ([]models.Trainer, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.trainers, nil
}

// trainerRepoStub is a trainerRepository.
type trainerRepoStub struct {
	bySoftware map[string][]models.Trainer
	err        error
	calls      int
}

func (s *trainerRepoStub) ListBySoftware(ctx context.Context, softwareID string) ([]models.Trainer, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.bySoftware[softwareID], nil
}

// memoryCache is a CacheRepository backed by a map of already-encoded values.
type memoryCache struct {
	mu      sync.Mutex
	values  map[string]interface{}
	deleted []string
	getErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string]interface{})}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return c.getErr
	}
	v, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if out, ok := dest.(*[]models.Trainer); ok {
		*out = append([]models.Trainer(nil), v.([]models.Trainer)...)
	}
	return nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, pattern)
	for key := range c.values {
		if matchesPattern(pattern, key) {
			delete(c.values, key)
		}
	}
	return nil
}

func matchesPattern(pattern, key string) bool {
	if n := len(pattern); n > 0 && pattern[n-1] == '*' {
		return len(key) >= n-1 && key[:n-1] == pattern[:n-1]
	}
	return pattern == key
}

// recordingNotifier captures appointment changes.
type recordingNotifier struct {
	mu      sync.Mutex
	changes []AppointmentChange
}

func (r *recordingNotifier) AppointmentChanged(ctx context.Context, change AppointmentChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

func (r *recordingNotifier) all() []AppointmentChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AppointmentChange(nil), r.changes...)
}
