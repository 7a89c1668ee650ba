package roster

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps the roster in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	courses map[string]map[string]Student // course -> email -> student
	now     func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		courses: make(map[string]map[string]Student),
		now:     time.Now,
	}
}

func (m *MemoryStore) ExistingEmails(_ context.Context, courseID string, emails []string) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	found := make(map[string]bool)
	course := m.courses[courseID]
	for _, e := range normalizeEmails(emails) {
		if _, ok := course[e]; ok {
			found[e] = true
		}
	}
	return found, nil
}

func (m *MemoryStore) BulkUpsert(ctx context.Context, courseID string, students []Student) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	course, ok := m.courses[courseID]
	if !ok {
		course = make(map[string]Student)
		m.courses[courseID] = course
	}

	now := m.now().UTC()
	for _, st := range students {
		st.CourseID = courseID
		st.Email = normalizeEmail(st.Email)
		if prev, ok := course[st.Email]; ok {
			st.EnrolledAt = prev.EnrolledAt
		} else if st.EnrolledAt.IsZero() {
			st.EnrolledAt = now
		}
		course[st.Email] = st
	}
	return len(students), nil
}

func (m *MemoryStore) List(_ context.Context, courseID string) ([]Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Student, 0, len(m.courses[courseID]))
	for _, st := range m.courses[courseID] {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
