// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"sync"

	"github.com/Javier-Pedernera/asociados-go/internal/model"
)

// Selector memoizes a value derived from a store and its catalog. The
// value is recomputed only when either version changes.
type Selector[T any] struct {
	fn func(st State, cat CatalogData) T

	mu         sync.Mutex
	store      *Store
	version    uint64
	catVersion uint64
	valid      bool
	value      T
}

// NewSelector creates a selector. fn must be pure.
func NewSelector[T any](fn func(st State, cat CatalogData) T) *Selector[T] {
	return &Selector[T]{fn: fn}
}

// Select returns the memoized value for s. Callers must not modify it.
func (sel *Selector[T]) Select(s *Store) T {
	st := s.State()
	catVersion := s.Catalog().Version()

	sel.mu.Lock()
	defer sel.mu.Unlock()

	if sel.valid && sel.store == s && sel.version == st.Version && sel.catVersion == catVersion {
		return sel.value
	}

	sel.value = sel.fn(st, s.Catalog().Data())
	sel.store = s
	sel.version = st.Version
	sel.catVersion = catVersion
	sel.valid = true
	return sel.value
}

// ActiveBranch selects the branch promotions are published under: the
// first branch whose status is active or inactive.
func ActiveBranch() *Selector[*model.Branch] {
	return NewSelector(func(st State, _ CatalogData) *model.Branch {
		b, ok := model.FirstUsableBranch(st.Branches)
		if !ok {
			return nil
		}
		return &b
	})
}

// UserCategoryIDs selects the ids of the categories linked to the
// associate.
func UserCategoryIDs() *Selector[[]int64] {
	return NewSelector(func(st State, _ CatalogData) []int64 {
		ids := make([]int64, len(st.UserCategories))
		for i, c := range st.UserCategories {
			ids[i] = c.CategoryID
		}
		return ids
	})
}
