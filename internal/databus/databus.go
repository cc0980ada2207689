package databus

import (
	"sort"
	"sync"
)

/**
 * Shared dynamic state store, seeded from the root template's databus
 * section and handed to every decoy service
 * @description Process-wide value store; all access is internally
 * synchronized so services never coordinate around it themselves.
 */
type Databus struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewDatabus() *Databus {
	return &Databus{values: make(map[string]string)}
}

// Seed loads the template's initial key set. Existing keys are replaced.
func (d *Databus) Seed(values map[string]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, v := range values {
		d.values[k] = v
	}
}

func (d *Databus) Get(key string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.values[key]
	return v, ok
}

// GetOr returns the stored value, or fallback when the key is unset.
func (d *Databus) GetOr(key, fallback string) string {
	if v, ok := d.Get(key); ok {
		return v
	}
	return fallback
}

func (d *Databus) Set(key, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[key] = value
}

func (d *Databus) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	keys := make([]string, 0, len(d.values))
	for k := range d.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
