package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/noah-isme/aulao-api/internal/repository/memory"
	appErrors "github.com/noah-isme/aulao-api/pkg/errors"
)

var seedNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	memory.Seed(store, seedNow)
	return store
}

type emitted struct {
	Type string
	Data interface{}
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (f *fakeEmitter) Emit(eventType string, data interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{Type: eventType, Data: data})
}

func (f *fakeEmitter) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeCacheRepo struct {
	mu      sync.Mutex
	store   map[string][]byte
	deleted []string
	getErr  error
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{store: make(map[string][]byte)}
}

func (f *fakeCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return f.getErr
	}
	raw, ok := f.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[key] = raw
	return nil
}

func (f *fakeCacheRepo) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.store, key)
		f.deleted = append(f.deleted, key)
	}
	return nil
}

func (f *fakeCacheRepo) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.store[key]
	return ok
}
