// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// BadgerStore keeps JSON values under prefixed keys:
//   - user:<id>                    User
//   - email:<lower email>          user id
//   - thread:<user id>:<thread id> Thread
//   - settings:<user id>           Settings
//   - interaction:<ts ms>:<id>     Interaction (ts zero padded so keys sort by time)
//   - uinteraction:<user id>:<ts ms>:<id> copy of the above for signed-in users
type BadgerStore struct {
	db  *badger.DB
	now func() time.Time

	// appendMu serializes AppendHistory so in-process appends never hit ErrConflict.
	appendMu sync.Mutex
}

// OpenBadgerStore opens (creating if needed) a badger directory.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

func userKey(id string) []byte           { return []byte("user:" + id) }
func emailKey(email string) []byte       { return []byte("email:" + strings.ToLower(email)) }
func threadPrefix(userID string) []byte  { return []byte("thread:" + userID + ":") }
func threadKey(userID, id string) []byte { return []byte("thread:" + userID + ":" + id) }
func settingsKey(userID string) []byte   { return []byte("settings:" + userID) }
func interactionKey(in Interaction) []byte {
	return []byte(fmt.Sprintf("interaction:%020d:%s", in.Timestamp.UnixMilli(), in.ID))
}
func userInteractionKey(in Interaction) []byte {
	return []byte(fmt.Sprintf("uinteraction:%s:%020d:%s", in.UserID, in.Timestamp.UnixMilli(), in.ID))
}
func userInteractionPrefix(userID string) []byte { return []byte("uinteraction:" + userID + ":") }

var interactionPrefix = []byte("interaction:")

// appendRetries bounds retries when another writer commits the same thread first.
const appendRetries = 5

func getJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, buf)
}

// --- Users ---

func (s *BadgerStore) CreateUser(_ context.Context, email, passwordHash string) (*User, error) {
	u := &User{ID: uuid.NewString(), Email: strings.ToLower(email), PasswordHash: passwordHash, CreatedAt: s.now()}
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey(u.Email)); err == nil {
			return ErrConflict
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(emailKey(u.Email), []byte(u.ID)); err != nil {
			return err
		}
		return setJSON(txn, userKey(u.ID), u)
	})
	if errors.Is(err, badger.ErrConflict) {
		// A concurrent signup for the same email won the race.
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *BadgerStore) GetUser(_ context.Context, id string) (*User, error) {
	var u User
	if err := s.db.View(func(txn *badger.Txn) error { return getJSON(txn, userKey(id), &u) }); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *BadgerStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	var u User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getJSON(txn, userKey(string(id)), &u)
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// --- Threads ---

func (s *BadgerStore) ListThreads(_ context.Context, userID string) ([]Thread, error) {
	out := make([]Thread, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := threadPrefix(userID)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 50})
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var t Thread
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &t) }); err != nil {
				return err
			}
			t.History = normalizeHistory(t.History)
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortThreads(out)
	return out, nil
}

func (s *BadgerStore) CreateThread(_ context.Context, userID string) (*Thread, error) {
	now := s.now()
	t := &Thread{ID: uuid.NewString(), UserID: userID, History: []HistoryItem{}, CreatedAt: now, UpdatedAt: now}
	if err := s.db.Update(func(txn *badger.Txn) error { return setJSON(txn, threadKey(userID, t.ID), t) }); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *BadgerStore) GetThread(_ context.Context, userID, id string) (*Thread, error) {
	var t Thread
	if err := s.db.View(func(txn *badger.Txn) error { return getJSON(txn, threadKey(userID, id), &t) }); err != nil {
		return nil, err
	}
	t.History = normalizeHistory(t.History)
	return &t, nil
}

func (s *BadgerStore) UpdateThread(_ context.Context, userID, id string, history []HistoryItem) (*Thread, error) {
	var t Thread
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, threadKey(userID, id), &t); err != nil {
			return err
		}
		t.History = normalizeHistory(history)
		t.UpdatedAt = s.now()
		return setJSON(txn, threadKey(userID, id), &t)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *BadgerStore) AppendHistory(_ context.Context, userID, id string, item HistoryItem) (*Thread, error) {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()
	item = normalizeHistory([]HistoryItem{item})[0]
	var t Thread
	var err error
	for range appendRetries {
		err = s.db.Update(func(txn *badger.Txn) error {
			t = Thread{}
			if err := getJSON(txn, threadKey(userID, id), &t); err != nil {
				return err
			}
			t.History = append(normalizeHistory(t.History), item)
			t.UpdatedAt = s.now()
			return setJSON(txn, threadKey(userID, id), &t)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *BadgerStore) DeleteThread(_ context.Context, userID, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := threadKey(userID, id)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// --- Settings ---

func (s *BadgerStore) GetSettings(_ context.Context, userID string) (*Settings, error) {
	var st Settings
	if err := s.db.View(func(txn *badger.Txn) error { return getJSON(txn, settingsKey(userID), &st) }); err != nil {
		return nil, err
	}
	st.UserID = userID
	st.Normalize()
	return &st, nil
}

func (s *BadgerStore) PutSettings(_ context.Context, st *Settings) error {
	return s.db.Update(func(txn *badger.Txn) error { return setJSON(txn, settingsKey(st.UserID), st) })
}

// --- Interactions ---

func (s *BadgerStore) LogInteraction(_ context.Context, in Interaction) error {
	in = prepareInteraction(in, s.now)
	return s.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, interactionKey(in), in); err != nil {
			return err
		}
		if in.UserID == "" {
			return nil
		}
		return setJSON(txn, userInteractionKey(in), in)
	})
}

func (s *BadgerStore) ListInteractions(_ context.Context, limit int) ([]Interaction, error) {
	return s.scanInteractions(interactionPrefix, limit)
}

func (s *BadgerStore) ListUserInteractions(_ context.Context, userID string, limit int) ([]Interaction, error) {
	return s.scanInteractions(userInteractionPrefix(userID), limit)
}

// scanInteractions walks prefix newest first.
func (s *BadgerStore) scanInteractions(prefix []byte, limit int) ([]Interaction, error) {
	out := make([]Interaction, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, Reverse: true, PrefetchValues: true, PrefetchSize: 50})
		defer it.Close()
		// Reverse iteration must start past the last key of the prefix.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var in Interaction
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &in) }); err != nil {
				return err
			}
			out = append(out, in)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
