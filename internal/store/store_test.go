// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Javier-Pedernera/asociados-go/internal/apiclient"
	"github.com/Javier-Pedernera/asociados-go/internal/cache"
	"github.com/Javier-Pedernera/asociados-go/internal/model"
	"github.com/Javier-Pedernera/asociados-go/internal/testutil"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func newTestStore(t *testing.T, api *testutil.FakeAPI, opts Options) *Store {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = testutil.TestLoggerSilent()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	return New(api, opts)
}

func loggedIn(t *testing.T, api *testutil.FakeAPI, opts Options) *Store {
	t.Helper()
	api.LoginAs(testutil.ActiveAssociate(), "opaque-token")
	s := newTestStore(t, api, opts)
	_, err := Dispatch(context.Background(), s, LogIn("ana@example.com", "Secret1!"))
	require.NoError(t, err)
	return s
}

func TestLogIn(t *testing.T) {
	api := &testutil.FakeAPI{}
	exp := testNow.Add(time.Hour)
	api.LoginAs(testutil.ActiveAssociate(), signedToken(t, exp))
	s := newTestStore(t, api, Options{})

	user, err := Dispatch(context.Background(), s, LogIn("ana@example.com", "Secret1!"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.UserID)

	st := s.State()
	assert.True(t, s.Authenticated())
	assert.True(t, st.TokenExpiresAt.Equal(exp.Truncate(time.Second)), "TokenExpiresAt = %v", st.TokenExpiresAt)
	assert.Equal(t, uint64(1), st.Version)
}

func TestExpiredTokenIsNotAuthenticated(t *testing.T) {
	api := &testutil.FakeAPI{}
	api.LoginAs(testutil.ActiveAssociate(), signedToken(t, testNow.Add(-time.Minute)))
	s := newTestStore(t, api, Options{})

	_, err := Dispatch(context.Background(), s, LogIn("ana@example.com", "Secret1!"))
	require.NoError(t, err)
	assert.False(t, s.Authenticated())

	_, err = Dispatch(context.Background(), s, FetchPromotions())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, 0, api.CallCount("FetchPromotions"))
}

func TestOpaqueTokenHasNoExpiry(t *testing.T) {
	if got := tokenExpiry("opaque-token"); !got.IsZero() {
		t.Errorf("tokenExpiry(opaque) = %v, want zero", got)
	}
}

func TestDispatchDiscardsDraftOnError(t *testing.T) {
	api := &testutil.FakeAPI{}
	s := loggedIn(t, api, Options{})
	before := s.State()

	boom := errors.New("boom")
	api.FetchPartnerFunc = func(context.Context, string, int64) (*model.Partner, error) {
		return &model.Partner{PartnerID: 7, Address: "Calle 1"}, nil
	}
	api.FetchBranchesFunc = func(context.Context, string, int64) ([]model.Branch, error) {
		return nil, boom
	}

	_, err := Dispatch(context.Background(), s, LoadData())
	require.ErrorIs(t, err, boom)

	after := s.State()
	assert.Equal(t, before.Version, after.Version)
	assert.Nil(t, after.Partner, "partner fetched before the failure must not be committed")
}

func TestLoadData(t *testing.T) {
	api := &testutil.FakeAPI{
		FetchBranchesFunc: func(_ context.Context, token string, partnerID int64) ([]model.Branch, error) {
			assert.Equal(t, "opaque-token", token)
			assert.Equal(t, int64(7), partnerID)
			return []model.Branch{{BranchID: 11, Status: model.Status{Name: model.StatusActive}}}, nil
		},
		FetchPromotionsFunc: func(context.Context, string, int64) ([]model.Promotion, error) {
			return []model.Promotion{{PromotionID: 1}}, nil
		},
	}
	s := loggedIn(t, api, Options{})

	_, err := Dispatch(context.Background(), s, LoadData())
	require.NoError(t, err)

	st := s.State()
	require.NotNil(t, st.Partner)
	assert.Equal(t, int64(7), st.Partner.PartnerID)
	assert.Len(t, st.Branches, 1)
	assert.Len(t, st.Promotions, 1)
	assert.Equal(t, uint64(2), st.Version)
}

func TestStateIsACopy(t *testing.T) {
	api := &testutil.FakeAPI{}
	s := loggedIn(t, api, Options{})

	st := s.State()
	st.User.FirstName = "Mutated"
	st.User.Roles[0].RoleName = "admin"

	again := s.State()
	assert.Equal(t, "Ana", again.User.FirstName)
	assert.Equal(t, model.RoleAssociated, again.User.Roles[0].RoleName)
}

func TestUpdateUserKeepsStatusAndRoles(t *testing.T) {
	api := &testutil.FakeAPI{
		UpdateUserFunc: func(_ context.Context, _ string, u model.UserUpdate) (*model.User, error) {
			return &model.User{UserID: u.UserID, FirstName: u.FirstName}, nil
		},
	}
	s := loggedIn(t, api, Options{})

	_, err := Dispatch(context.Background(), s, UpdateUser(model.UserUpdate{FirstName: "Anita"}))
	require.NoError(t, err)

	st := s.State()
	assert.Equal(t, "Anita", st.User.FirstName)
	assert.True(t, st.User.IsActive())
	assert.True(t, st.User.HasRole(model.RoleAssociated))
}

func TestUpdatesWithStatusOnlyReplies(t *testing.T) {
	var partnerPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/users/login":
			_ = json.NewEncoder(w).Encode(model.LoginResponse{User: testutil.ActiveAssociate(), Token: "opaque-token"})
		case r.Method == http.MethodPut && r.URL.Path == "/users/7":
			_, _ = w.Write([]byte(`{"message":"Usuario actualizado"}`))
		case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/partners/"):
			partnerPath = r.URL.Path
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	api, err := apiclient.New(apiclient.Config{BaseURL: srv.URL}, testutil.TestLoggerSilent())
	require.NoError(t, err)
	s := New(api, Options{Logger: testutil.TestLoggerSilent(), Now: func() time.Time { return testNow }})
	ctx := context.Background()

	_, err = Dispatch(ctx, s, LogIn("ana@example.com", "Secret1!"))
	require.NoError(t, err)

	user, err := Dispatch(ctx, s, UpdateUser(model.UserUpdate{
		FirstName: "Anita",
		LastName:  "Pérez",
		Email:     "ana@example.com",
		Country:   "Chile",
		City:      "Concepción",
	}))
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.UserID)

	_, err = Dispatch(ctx, s, UpdatePartner(model.PartnerUpdate{Address: "Calle 2", ContactInfo: "info", BusinessType: "Hotel"}))
	require.NoError(t, err)
	assert.Equal(t, "/partners/7", partnerPath)

	st := s.State()
	require.NotNil(t, st.User)
	assert.Equal(t, int64(7), st.User.UserID)
	assert.Equal(t, "Anita", st.User.FirstName)
	assert.Equal(t, "Concepción", st.User.City)
	assert.True(t, st.User.IsActive())
	assert.True(t, st.User.HasRole(model.RoleAssociated))
	assert.Equal(t, &model.Partner{PartnerID: 7, Address: "Calle 2", ContactInfo: "info", BusinessType: "Hotel"}, st.Partner)
}

func TestCreatePromotionStatusOnlyReply(t *testing.T) {
	api := &testutil.FakeAPI{
		CreatePromotionFunc: func(context.Context, string, model.NewPromotion) (*model.Promotion, error) {
			return &model.Promotion{}, nil
		},
	}
	s := loggedIn(t, api, Options{})

	_, err := Dispatch(context.Background(), s, CreatePromotion(model.NewPromotion{Title: "Sale"}))
	require.NoError(t, err)
	assert.Empty(t, s.State().Promotions)
}

func TestCreatePromotionAppends(t *testing.T) {
	api := &testutil.FakeAPI{
		CreatePromotionFunc: func(_ context.Context, _ string, p model.NewPromotion) (*model.Promotion, error) {
			return &model.Promotion{PromotionID: 99, Title: p.Title}, nil
		},
	}
	s := loggedIn(t, api, Options{})

	created, err := Dispatch(context.Background(), s, CreatePromotion(model.NewPromotion{Title: "Sale"}))
	require.NoError(t, err)
	assert.Equal(t, int64(99), created.PromotionID)
	assert.Equal(t, []model.Promotion{{PromotionID: 99, Title: "Sale"}}, s.State().Promotions)
}

func TestLogOutClearsEvenWhenRemoteFails(t *testing.T) {
	api := &testutil.FakeAPI{
		LogoutFunc: func(context.Context, string) error { return errors.New("offline") },
	}
	s := loggedIn(t, api, Options{})

	_, err := Dispatch(context.Background(), s, LogOut())
	require.NoError(t, err)
	assert.False(t, s.Authenticated())
	assert.Nil(t, s.State().User)
	assert.Equal(t, 1, api.CallCount("Logout"))
}

func TestReset(t *testing.T) {
	api := &testutil.FakeAPI{}
	s := loggedIn(t, api, Options{})
	v := s.Version()

	s.Reset(context.Background())
	assert.False(t, s.Authenticated())
	assert.Greater(t, s.Version(), v)
	assert.Equal(t, 0, api.CallCount("Logout"), "Reset must not call the platform")
}

func TestSnapshotPersistence(t *testing.T) {
	mem := cache.NewMemoryCache(cache.MemoryCacheOptions{})
	t.Cleanup(func() { _ = mem.Close() })
	snapshots := cache.NewTypedCache[State](mem, "store:", time.Hour)
	ctx := context.Background()

	api := &testutil.FakeAPI{}
	s := loggedIn(t, api, Options{ID: "sess-1", Snapshots: snapshots})
	require.True(t, s.Authenticated())

	restored, err := Open(ctx, api, Options{
		ID:        "sess-1",
		Snapshots: snapshots,
		Logger:    testutil.TestLoggerSilent(),
		Now:       func() time.Time { return testNow },
	})
	require.NoError(t, err)
	assert.True(t, restored.Authenticated())
	assert.Equal(t, s.State(), restored.State())

	_, err = Dispatch(ctx, restored, LogOut())
	require.NoError(t, err)
	_, err = snapshots.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, cache.ErrCacheMiss, "logging out must delete the snapshot")
}

func TestOpenDropsExpiredSnapshot(t *testing.T) {
	mem := cache.NewMemoryCache(cache.MemoryCacheOptions{})
	t.Cleanup(func() { _ = mem.Close() })
	snapshots := cache.NewTypedCache[State](mem, "store:", time.Hour)
	ctx := context.Background()

	user := testutil.ActiveAssociate()
	require.NoError(t, snapshots.Set(ctx, "old", State{
		User:           &user,
		Token:          "tok",
		TokenExpiresAt: testNow.Add(-time.Hour),
		Version:        4,
	}))

	s, err := Open(ctx, &testutil.FakeAPI{}, Options{
		ID:        "old",
		Snapshots: snapshots,
		Logger:    testutil.TestLoggerSilent(),
		Now:       func() time.Time { return testNow },
	})
	require.NoError(t, err)
	assert.False(t, s.Authenticated())

	ok, err := mem.Has(ctx, "store:old")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenWithoutSnapshot(t *testing.T) {
	mem := cache.NewMemoryCache(cache.MemoryCacheOptions{})
	t.Cleanup(func() { _ = mem.Close() })

	s, err := Open(context.Background(), &testutil.FakeAPI{}, Options{
		ID:        "new",
		Snapshots: cache.NewTypedCache[State](mem, "store:", time.Hour),
		Logger:    testutil.TestLoggerSilent(),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), s.Version())
}
