package api

import (
	"context"
	"sort"
	"sync"
	"time"

	"recruitai/internal/storage"
)

// memStore is an in-memory Store with the same conflict and not-found
// behaviour as the Postgres implementation.
type memStore struct {
	mu         sync.Mutex
	nextID     int64
	candidates map[string]*storage.Candidate
	roles      []*storage.Role
	users      []*storage.User
	sessions   map[string]*storage.Session
	slots      map[int64]*storage.Slot

	getCandidateCalls int
	roleLookups       int
}

func newMemStore() *memStore {
	return &memStore{
		candidates: map[string]*storage.Candidate{},
		sessions:   map[string]*storage.Session{},
		slots:      map[int64]*storage.Slot{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func copyCandidate(c *storage.Candidate) *storage.Candidate {
	cp := *c
	cp.Tags = append([]string(nil), c.Tags...)
	cp.Strengths = append([]string(nil), c.Strengths...)
	cp.Gaps = append([]string(nil), c.Gaps...)
	if c.ShortlistRank != nil {
		rank := *c.ShortlistRank
		cp.ShortlistRank = &rank
	}
	return &cp
}

// seed stores c as if the scoring workflow had written it.
func (s *memStore) seed(c *storage.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := copyCandidate(c)
	cp.ID = s.id()
	if cp.Status == "" {
		cp.Status = storage.DeriveStatus(cp.Score)
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.candidates[cp.CandidateID] = cp
}

func (s *memStore) Ping(context.Context) error { return nil }

func (s *memStore) InsertCandidates(_ context.Context, cands []*storage.Candidate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range cands {
		if _, ok := s.candidates[c.CandidateID]; ok {
			continue
		}
		cp := copyCandidate(c)
		cp.ID = s.id()
		cp.CreatedAt = time.Now()
		s.candidates[cp.CandidateID] = cp
		n++
	}
	return n, nil
}

func (s *memStore) IncrementApplicants(_ context.Context, jobID string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roles {
		if r.JobID == jobID {
			r.Applicants += n
		}
	}
	return nil
}

func (s *memStore) CountCandidates(_ context.Context, jobID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.candidates {
		if jobID == "" || c.JobID == jobID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) ListCandidates(_ context.Context, jobID string) ([]*storage.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*storage.Candidate
	for _, c := range s.candidates {
		if jobID == "" || c.JobID == jobID {
			out = append(out, copyCandidate(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func (s *memStore) GetCandidate(_ context.Context, id string) (*storage.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCandidateCalls++
	c, ok := s.candidates[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyCandidate(c), nil
}

func (s *memStore) SetCandidateStatus(_ context.Context, id string, status storage.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[id]
	if !ok {
		return storage.ErrNotFound
	}
	if status == "" {
		c.Status = storage.DeriveStatus(c.Score)
		c.StatusOverride = false
		return nil
	}
	c.Status = status
	c.StatusOverride = true
	return nil
}

func (s *memStore) SetCandidateTags(_ context.Context, id string, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[id]
	if !ok {
		return storage.ErrNotFound
	}
	c.Tags = append([]string(nil), tags...)
	return nil
}

func (s *memStore) SetShortlistOrder(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.candidates {
		c.ShortlistRank = nil
	}
	for i, id := range ids {
		if c, ok := s.candidates[id]; ok {
			rank := i + 1
			c.ShortlistRank = &rank
		}
	}
	return nil
}

func (s *memStore) CreateRole(_ context.Context, r *storage.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.roles {
		if existing.JobID == r.JobID {
			return storage.ErrDuplicate
		}
	}
	r.ID = s.id()
	r.CreatedAt = time.Now().Add(time.Duration(r.ID) * time.Millisecond)
	cp := *r
	s.roles = append(s.roles, &cp)
	return nil
}

func (s *memStore) ListRoles(context.Context) ([]*storage.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*storage.Role, 0, len(s.roles))
	for _, r := range s.roles {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) GetRole(_ context.Context, id int64) (*storage.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roles {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *memStore) RoleIDByJobID(_ context.Context, jobID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roleLookups++
	for _, r := range s.roles {
		if r.JobID == jobID {
			return r.ID, nil
		}
	}
	return 0, storage.ErrNotFound
}

func (s *memStore) CreateUser(_ context.Context, u *storage.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = storage.NormalizeEmail(u.Email)
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return storage.ErrDuplicate
		}
	}
	u.ID = s.id()
	u.CreatedAt = time.Now()
	cp := *u
	s.users = append(s.users, &cp)
	return nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = storage.NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *memStore) UpdateUser(_ context.Context, u *storage.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = storage.NormalizeEmail(u.Email)
	var target *storage.User
	for _, existing := range s.users {
		if existing.ID == u.ID {
			target = existing
		} else if existing.Email == u.Email {
			return storage.ErrDuplicate
		}
	}
	if target == nil {
		return storage.ErrNotFound
	}
	target.Name, target.Email, target.Company = u.Name, u.Email, u.Company
	return nil
}

func (s *memStore) CreateSession(_ context.Context, sess *storage.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.Token] = &cp
	return nil
}

func (s *memStore) GetSessionUser(_ context.Context, token string, now time.Time) (*storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok || !sess.ExpiresAt.After(now) {
		return nil, storage.ErrNotFound
	}
	for _, u := range s.users {
		if u.ID == sess.UserID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *memStore) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *memStore) ListSlots(_ context.Context, from, to string) ([]*storage.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*storage.Slot
	for _, sl := range s.slots {
		if (from == "" || sl.Date >= from) && (to == "" || sl.Date <= to) {
			cp := *sl
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) CreateSlot(_ context.Context, sl *storage.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.slots {
		if existing.Date == sl.Date && existing.Day == sl.Day && existing.Time == sl.Time {
			return storage.ErrSlotTaken
		}
	}
	if sl.Status == "" {
		sl.Status = storage.SlotPending
	}
	sl.ID = s.id()
	sl.CreatedAt = time.Now()
	cp := *sl
	s.slots[sl.ID] = &cp
	return nil
}

func (s *memStore) GetSlot(_ context.Context, id int64) (*storage.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *sl
	return &cp, nil
}

func (s *memStore) ConfirmSlot(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[id]
	if !ok {
		return storage.ErrNotFound
	}
	sl.Status = storage.SlotConfirmed
	return nil
}

func (s *memStore) ConfirmSlotAt(_ context.Context, date, day, slotTime string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sl := range s.slots {
		if sl.Date == date && sl.Day == day && sl.Time == slotTime {
			sl.Status = storage.SlotConfirmed
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *memStore) DeleteSlot(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slots[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.slots, id)
	return nil
}
