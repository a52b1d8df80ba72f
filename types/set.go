package types

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mitchellh/hashstructure"
)

// Set keeps insertion order; elements are identified by their structure hash
type Set[T any] struct {
	hash    map[uint64]int
	storage []T
}

func NewSet[T any](values ...T) *Set[T] {
	set := &Set[T]{
		hash:    make(map[uint64]int),
		storage: []T{},
	}
	set.Insert(values...)

	return set
}

func (st *Set[T]) hashOf(value T) uint64 {
	hash, err := hashstructure.Hash(value, nil)
	if err != nil {
		panic(fmt.Sprintf("failed to hash set element %v: %s", value, err))
	}
	return hash
}

func (st *Set[T]) Insert(values ...T) {
	for _, value := range values {
		hash := st.hashOf(value)
		if _, found := st.hash[hash]; found {
			continue
		}
		st.hash[hash] = len(st.storage)
		st.storage = append(st.storage, value)
	}
}

func (st *Set[T]) Exists(value T) bool {
	_, found := st.hash[st.hashOf(value)]
	return found
}

func (st *Set[T]) Remove(value T) {
	hash := st.hashOf(value)
	idx, found := st.hash[hash]
	if !found {
		return
	}

	delete(st.hash, hash)
	st.storage = append(st.storage[:idx], st.storage[idx+1:]...)
	for h, i := range st.hash {
		if i > idx {
			st.hash[h] = i - 1
		}
	}
}

func (st *Set[T]) Len() int {
	return len(st.storage)
}

func (st *Set[T]) Array() []T {
	return append([]T(nil), st.storage...)
}

func (st *Set[T]) String() string {
	parts := make([]string, 0, len(st.storage))
	for _, v := range st.storage {
		parts = append(parts, fmt.Sprintf("%v", v))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (st *Set[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(st.storage)
}

func (st *Set[T]) UnmarshalJSON(data []byte) error {
	var values []T
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}

	*st = *NewSet(values...)
	return nil
}
