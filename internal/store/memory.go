package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process memory. Used by tests and
// ephemeral deployments.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[string]*User
	emails       map[string]string // lower email -> user id
	threads      map[string]*Thread
	settings     map[string]*Settings
	interactions []Interaction
	closed       bool
	now          func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*User),
		emails:   make(map[string]string),
		threads:  make(map[string]*Thread),
		settings: make(map[string]*Settings),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, email, passwordHash string) (*User, error) {
	key := strings.ToLower(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[key]; ok {
		return nil, ErrConflict
	}
	u := &User{ID: uuid.NewString(), Email: key, PasswordHash: passwordHash, CreatedAt: s.now()}
	s.users[u.ID] = u
	s.emails[key] = u.ID
	c := *u
	return &c, nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	id, ok := s.emails[strings.ToLower(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetUser(ctx, id)
}

func (s *MemoryStore) ListThreads(_ context.Context, userID string) ([]Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Thread, 0)
	for _, t := range s.threads {
		if t.UserID == userID {
			out = append(out, *cloneThread(t))
		}
	}
	sortThreads(out)
	return out, nil
}

func (s *MemoryStore) CreateThread(_ context.Context, userID string) (*Thread, error) {
	now := s.now()
	t := &Thread{ID: uuid.NewString(), UserID: userID, History: []HistoryItem{}, CreatedAt: now, UpdatedAt: now}
	s.mu.Lock()
	s.threads[t.ID] = t
	s.mu.Unlock()
	return cloneThread(t), nil
}

func (s *MemoryStore) GetThread(_ context.Context, userID, id string) (*Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[id]
	if !ok || t.UserID != userID {
		return nil, ErrNotFound
	}
	return cloneThread(t), nil
}

func (s *MemoryStore) UpdateThread(_ context.Context, userID, id string, history []HistoryItem) (*Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[id]
	if !ok || t.UserID != userID {
		return nil, ErrNotFound
	}
	t.History = normalizeHistory(history)
	t.UpdatedAt = s.now()
	return cloneThread(t), nil
}

func (s *MemoryStore) AppendHistory(_ context.Context, userID, id string, item HistoryItem) (*Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[id]
	if !ok || t.UserID != userID {
		return nil, ErrNotFound
	}
	t.History = append(t.History, normalizeHistory([]HistoryItem{item})[0])
	t.UpdatedAt = s.now()
	return cloneThread(t), nil
}

func (s *MemoryStore) DeleteThread(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[id]
	if !ok || t.UserID != userID {
		return ErrNotFound
	}
	delete(s.threads, id)
	return nil
}

func (s *MemoryStore) GetSettings(_ context.Context, userID string) (*Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.settings[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSettings(st), nil
}

func (s *MemoryStore) PutSettings(_ context.Context, st *Settings) error {
	c := cloneSettings(st)
	s.mu.Lock()
	s.settings[st.UserID] = c
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) LogInteraction(_ context.Context, in Interaction) error {
	in = prepareInteraction(in, s.now)
	s.mu.Lock()
	s.interactions = append(s.interactions, in)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) ListInteractions(_ context.Context, limit int) ([]Interaction, error) {
	return s.listInteractions(func(Interaction) bool { return true }, limit), nil
}

func (s *MemoryStore) ListUserInteractions(_ context.Context, userID string, limit int) ([]Interaction, error) {
	return s.listInteractions(func(in Interaction) bool { return in.UserID == userID }, limit), nil
}

func (s *MemoryStore) listInteractions(match func(Interaction) bool, limit int) []Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Interaction{}
	for i := len(s.interactions) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if match(s.interactions[i]) {
			out = append(out, s.interactions[i])
		}
	}
	return out
}

func (s *MemoryStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// sortThreads orders by UpdatedAt descending, ties broken by id for stable output.
func sortThreads(ts []Thread) {
	slices.SortFunc(ts, func(a, b Thread) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func prepareInteraction(in Interaction, now func() time.Time) Interaction {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = now()
	}
	return in
}
