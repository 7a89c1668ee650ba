package core

// staging.go holds validated records between import and commit.
//
// Staged lists are keyed by (user, course) so two instructors importing into
// the same course do not see each other's pending records. Emails compare
// case-insensitively and a list never holds the same email twice.

import (
	"strings"
	"sync"
)

type stagingKey struct {
	userID   string
	courseID string
}

// Staging is an in-memory, per-user, per-course holding area.
type Staging struct {
	clock Clock

	mu    sync.Mutex
	lists map[stagingKey][]StagedRecord
}

// NewStaging creates an empty staging area.
func NewStaging(opts ...Option) *Staging {
	o := buildOptions(opts)
	return &Staging{
		clock: o.clock,
		lists: make(map[stagingKey][]StagedRecord),
	}
}

// Add stages records under importID. Emails that are already staged (or
// repeat within records) are skipped. It returns the records it staged and
// the ones it skipped, each in input order.
func (s *Staging) Add(userID, courseID, importID string, records []StudentRecord) (added, skipped []StudentRecord) {
	now := s.clock.Now()
	key := stagingKey{userID, courseID}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[key]
	for _, rec := range records {
		if indexOfEmail(list, rec.Email) >= 0 {
			skipped = append(skipped, rec)
			continue
		}
		list = append(list, StagedRecord{StudentRecord: rec, ImportID: importID, StagedAt: now})
		added = append(added, rec)
	}
	if len(list) > 0 {
		s.lists[key] = list
	}
	return added, skipped
}

// List returns a copy of the staged records in staging order.
func (s *Staging) List(userID, courseID string) []StagedRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[stagingKey{userID, courseID}]
	out := make([]StagedRecord, len(list))
	copy(out, list)
	return out
}

// Contains reports whether email is staged.
func (s *Staging) Contains(userID, courseID, email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexOfEmail(s.lists[stagingKey{userID, courseID}], email) >= 0
}

// Remove unstages a single email. It reports whether anything was removed.
func (s *Staging) Remove(userID, courseID, email string) bool {
	key := stagingKey{userID, courseID}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[key]
	i := indexOfEmail(list, email)
	if i < 0 {
		return false
	}
	list = append(list[:i], list[i+1:]...)
	if len(list) == 0 {
		delete(s.lists, key)
	} else {
		s.lists[key] = list
	}
	return true
}

// Clear drops every staged record and returns how many there were.
func (s *Staging) Clear(userID, courseID string) int {
	return len(s.Take(userID, courseID))
}

// Take removes and returns the staged records.
func (s *Staging) Take(userID, courseID string) []StagedRecord {
	key := stagingKey{userID, courseID}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[key]
	delete(s.lists, key)
	return list
}

// Restore puts records back after a failed commit. They go ahead of anything
// staged since the Take, and emails staged in the meantime are kept once.
func (s *Staging) Restore(userID, courseID string, records []StagedRecord) {
	if len(records) == 0 {
		return
	}
	key := stagingKey{userID, courseID}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]StagedRecord, 0, len(records)+len(s.lists[key]))
	merged = append(merged, records...)
	for _, rec := range s.lists[key] {
		if indexOfEmail(merged, rec.Email) < 0 {
			merged = append(merged, rec)
		}
	}
	s.lists[key] = merged
}

func indexOfEmail(list []StagedRecord, email string) int {
	for i, rec := range list {
		if strings.EqualFold(rec.Email, email) {
			return i
		}
	}
	return -1
}
