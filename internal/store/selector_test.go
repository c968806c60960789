// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Javier-Pedernera/asociados-go/internal/model"
	"github.com/Javier-Pedernera/asociados-go/internal/testutil"
)

func TestSelectorMemoizes(t *testing.T) {
	api := &testutil.FakeAPI{}
	s := loggedIn(t, api, Options{})

	calls := 0
	sel := NewSelector(func(st State, _ CatalogData) string {
		calls++
		return st.User.FirstName
	})

	assert.Equal(t, "Ana", sel.Select(s))
	assert.Equal(t, "Ana", sel.Select(s))
	assert.Equal(t, 1, calls)

	api.UpdateUserFunc = func(_ context.Context, _ string, u model.UserUpdate) (*model.User, error) {
		return &model.User{UserID: u.UserID, FirstName: u.FirstName}, nil
	}
	_, err := Dispatch(context.Background(), s, UpdateUser(model.UserUpdate{FirstName: "Anita"}))
	require.NoError(t, err)

	assert.Equal(t, "Anita", sel.Select(s))
	assert.Equal(t, 2, calls)
}

func TestSelectorTracksCatalog(t *testing.T) {
	catalog := NewCatalog(catalogAPI(), nil, testutil.TestLoggerSilent())
	s := loggedIn(t, &testutil.FakeAPI{}, Options{Catalog: catalog})

	sel := NewSelector(func(_ State, cat CatalogData) int { return len(cat.Countries) })
	assert.Equal(t, 0, sel.Select(s))

	require.NoError(t, catalog.Refresh(context.Background()))
	assert.Equal(t, 3, sel.Select(s))
}

func TestSelectorPerStore(t *testing.T) {
	a := loggedIn(t, &testutil.FakeAPI{}, Options{})

	other := &testutil.FakeAPI{}
	user := testutil.ActiveAssociate()
	user.FirstName = "Beto"
	other.LoginAs(user, "tok-b")
	b := newTestStore(t, other, Options{})
	_, err := Dispatch(context.Background(), b, LogIn("beto@example.com", "Secret1!"))
	require.NoError(t, err)

	sel := NewSelector(func(st State, _ CatalogData) string { return st.User.FirstName })
	assert.Equal(t, "Ana", sel.Select(a))
	assert.Equal(t, "Beto", sel.Select(b), "same version on another store must not hit the memo")
}

func TestActiveBranch(t *testing.T) {
	tests := []struct {
		name     string
		branches []model.Branch
		want     int64
	}{
		{"none", nil, 0},
		{"skips deleted", []model.Branch{
			{BranchID: 1, Status: model.Status{Name: "deleted"}},
			{BranchID: 2, Status: model.Status{Name: model.StatusInactive}},
		}, 2},
		{"first active", []model.Branch{
			{BranchID: 3, Status: model.Status{Name: model.StatusActive}},
			{BranchID: 4, Status: model.Status{Name: model.StatusActive}},
		}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &testutil.FakeAPI{
				FetchBranchesFunc: func(context.Context, string, int64) ([]model.Branch, error) {
					return tt.branches, nil
				},
			}
			s := loggedIn(t, api, Options{})
			_, err := Dispatch(context.Background(), s, FetchBranches())
			require.NoError(t, err)

			got := ActiveBranch().Select(s)
			if tt.want == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.BranchID)
		})
	}
}

func TestUserCategoryIDs(t *testing.T) {
	api := &testutil.FakeAPI{
		FetchUserCategoriesFunc: func(context.Context, string, int64) ([]model.Category, error) {
			return []model.Category{{CategoryID: 5}, {CategoryID: 9}}, nil
		},
	}
	s := loggedIn(t, api, Options{})
	_, err := Dispatch(context.Background(), s, FetchUserCategories())
	require.NoError(t, err)

	assert.Equal(t, []int64{5, 9}, UserCategoryIDs().Select(s))
}
