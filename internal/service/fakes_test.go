package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/ebd-attendance-api/internal/models"
	"github.com/noah-isme/ebd-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/ebd-attendance-api/pkg/errors"
)

// memStore is an in-memory stand-in for the three tables.
type memStore struct {
	mu         sync.Mutex
	classes    []models.Class
	students   []models.Student
	attendance map[int64]map[string]struct{}
	nextID     int64
	err        error
}

func newMemStore() *memStore {
	return &memStore{attendance: make(map[int64]map[string]struct{})}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

type memClassRepo struct{ *memStore }

func (r memClassRepo) List(ctx context.Context) ([]models.Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := append([]models.Class(nil), r.classes...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memClassRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	_, err := r.FindByName(ctx, name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (r memClassRepo) FindByName(ctx context.Context, name string) (*models.Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, c := range r.classes {
		if c.Name == name {
			c := c
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memClassRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.classes), r.err
}

func (r memClassRepo) Create(ctx context.Context, class *models.Class) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.classes {
		if c.Name == class.Name {
			return repository.ErrDuplicate
		}
	}
	class.ID = r.id()
	class.CreatedAt = time.Now()
	r.classes = append(r.classes, *class)
	return nil
}

type memStudentRepo struct{ *memStore }

func (r memStudentRepo) insert(s *models.Student) error {
	found := false
	for _, c := range r.classes {
		if c.ID == s.ClassID {
			found = true
		}
	}
	if !found {
		return repository.ErrMissingReference
	}
	s.ID = r.id()
	s.CreatedAt = time.Now()
	r.students = append(r.students, *s)
	return nil
}

func (r memStudentRepo) Create(ctx context.Context, s *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	return r.insert(s)
}

func (r memStudentRepo) CreateBatch(ctx context.Context, batch []*models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	snapshot, next := len(r.students), r.nextID
	for _, s := range batch {
		if err := r.insert(s); err != nil {
			r.students, r.nextID = r.students[:snapshot], next
			return err
		}
	}
	return nil
}

func (r memStudentRepo) ListByClassName(ctx context.Context, className string) ([]models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Student, 0)
	for _, s := range r.students {
		if s.ClassName == className {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memStudentRepo) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.students {
		if s.ID == id {
			s := s
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memStudentRepo) FilterIDsInClass(ctx context.Context, className string, ids []int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []int64
	for _, s := range r.students {
		if s.ClassName == className && want[s.ID] {
			out = append(out, s.ID)
		}
	}
	return out, nil
}

type memAttendanceRepo struct{ *memStore }

func (r memAttendanceRepo) record(studentID int64, date string) bool {
	dates, ok := r.attendance[studentID]
	if !ok {
		dates = make(map[string]struct{})
		r.attendance[studentID] = dates
	}
	if _, exists := dates[date]; exists {
		return false
	}
	dates[date] = struct{}{}
	return true
}

func (r memAttendanceRepo) Record(ctx context.Context, studentID int64, date string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	return r.record(studentID, date), nil
}

func (r memAttendanceRepo) RecordMany(ctx context.Context, ids []int64, date string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	created := 0
	for _, id := range ids {
		if r.record(id, date) {
			created++
		}
	}
	return created, nil
}

func (r memAttendanceRepo) CountPresent(ctx context.Context, className, date string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, s := range r.students {
		if s.ClassName != className {
			continue
		}
		if _, ok := r.attendance[s.ID][date]; ok {
			count++
		}
	}
	return count, nil
}

func (r memAttendanceRepo) Roster(ctx context.Context, className, date string) ([]models.RosterEntry, error) {
	students, _ := memStudentRepo(r).ListByClassName(ctx, className)
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.RosterEntry, 0, len(students))
	for _, s := range students {
		_, present := r.attendance[s.ID][date]
		out = append(out, models.RosterEntry{StudentID: s.ID, Name: s.Name, Present: present})
	}
	return out, nil
}

type memRankingRepo struct {
	*memStore
	calls int
}

func (r *memRankingRepo) ClassTotals(ctx context.Context, date string) ([]models.ClassAttendanceTotal, error) {
	r.calls++
	classes, _ := memClassRepo{r.memStore}.List(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	totals := make([]models.ClassAttendanceTotal, 0)
	for _, c := range classes {
		total := models.ClassAttendanceTotal{ClassID: c.ID, ClassName: c.Name}
		for _, s := range r.students {
			if s.ClassID != c.ID {
				continue
			}
			total.Enrolled++
			if _, ok := r.attendance[s.ID][date]; ok {
				total.Present++
			}
		}
		if total.Enrolled > 0 {
			totals = append(totals, total)
		}
	}
	return totals, nil
}

// memCache mimics the Redis cache repository.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *memCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, pattern)
	for key := range c.entries {
		if matchGlob(pattern, key) {
			delete(c.entries, key)
		}
	}
	return nil
}

// matchGlob supports the trailing-star patterns the services use.
func matchGlob(pattern, key string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(key, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == key
}
