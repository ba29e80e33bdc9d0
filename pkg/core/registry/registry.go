// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"errors"
	"fmt"
	"sync"
)

// ErrKeyAlreadyRegistered is returned when registering a key which is already
// present in the registry.
var ErrKeyAlreadyRegistered = errors.New("key is already registered")

// ErrStopIteration signals [Registry.Range] to stop iterating.
var ErrStopIteration = errors.New("stop iteration")

// Registry is a concurrent-safe collection of key/value pairs.
type Registry[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// New creates a new empty registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		items: make(map[K]V),
	}
}

// Register adds the key and value to the registry. It returns
// [ErrKeyAlreadyRegistered] when the key is already present.
func (r *Registry[K, V]) Register(key K, val V) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[key]; exists {
		return fmt.Errorf("%w: %v", ErrKeyAlreadyRegistered, key)
	}

	r.items[key] = val

	return nil
}

// MustRegister adds the key and value to the registry, or panics in case of
// errors.
func (r *Registry[K, V]) MustRegister(key K, val V) {
	if err := r.Register(key, val); err != nil {
		panic(err)
	}
}

// Overwrite sets the value for the given key, replacing any existing value.
func (r *Registry[K, V]) Overwrite(key K, val V) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[key] = val
}

// Unregister removes the key from the registry, if present.
func (r *Registry[K, V]) Unregister(key K) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, key)
}

// Get returns the value associated with the given key and a boolean indicating
// whether the key is present in the registry.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	val, ok := r.items[key]

	return val, ok
}

// Length returns the number of items in the registry.
func (r *Registry[K, V]) Length() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.items)
}

// RangeFunc is the function called by [Registry.Range] for each item. Return
// [ErrStopIteration] to stop the iteration early.
type RangeFunc[K comparable, V any] func(key K, val V) error

// Range calls f for each item in the registry. Iteration stops at the first
// error, which is returned to the caller, except for [ErrStopIteration].
func (r *Registry[K, V]) Range(f RangeFunc[K, V]) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for k, v := range r.items {
		err := f(k, v)
		switch {
		case err == nil:
			continue
		case errors.Is(err, ErrStopIteration):
			return nil
		default:
			return err
		}
	}

	return nil
}
