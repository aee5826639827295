// Package prefs holds per-user session preferences that travel with every
// turn: timezone, location, voice, and which tool groups are enabled.
package prefs

import (
	"strconv"
	"strings"
	"sync"
)

// Well-known preference keys.
const (
	KeyTimezone        = "timezone_name"
	KeyVoice           = "voice"
	KeyEnabledToolTags = "enabled_tool_tags"
	KeyLatitude        = "latitude"
	KeyLongitude       = "longitude"
)

// Store is a small key/value preference store. Implementations must be safe
// for concurrent use.
type Store interface {
	Get(key string) (value string, ok bool)
	Set(key, value string) error
	Delete(key string) error
}

// MemoryStore keeps preferences in process memory. It is the default store
// for sessions that do not persist settings.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	return value, ok
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// List reads a comma-separated preference as a slice, dropping empty items.
func List(store Store, key string) []string {
	raw, ok := store.Get(key)
	if !ok {
		return nil
	}

	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// SetList stores a slice as a comma-separated preference.
func SetList(store Store, key string, values []string) error {
	return store.Set(key, strings.Join(values, ","))
}

// Float reads a preference as a float64; ok is false when the preference is
// absent or not numeric.
func Float(store Store, key string) (float64, bool) {
	raw, ok := store.Get(key)
	if !ok {
		return 0, false
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
