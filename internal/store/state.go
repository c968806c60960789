// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Javier-Pedernera/asociados-go/internal/model"
)

// State is the committed record set of one session.
type State struct {
	User           *model.User       `json:"user,omitempty"`
	Token          string            `json:"token,omitempty"`
	TokenExpiresAt time.Time         `json:"token_expires_at,omitzero"`
	Partner        *model.Partner    `json:"partner,omitempty"`
	UserCategories []model.Category  `json:"user_categories,omitempty"`
	Branches       []model.Branch    `json:"branches,omitempty"`
	Promotions     []model.Promotion `json:"promotions,omitempty"`

	// Version increments on every commit.
	Version uint64 `json:"version"`
}

// UserID returns the signed-in user's id, or 0.
func (st *State) UserID() int64 {
	if st.User == nil {
		return 0
	}
	return st.User.UserID
}

// PartnerID returns the id partner records are keyed by. Associates are
// their own partner, so it is the user id.
func (st *State) PartnerID() int64 {
	return st.UserID()
}

func (st *State) authenticatedAt(now time.Time) bool {
	if st.Token == "" || st.User == nil {
		return false
	}
	return st.TokenExpiresAt.IsZero() || now.Before(st.TokenExpiresAt)
}

func (st *State) clone() State {
	c := *st
	if st.User != nil {
		u := *st.User
		u.Roles = slices.Clone(st.User.Roles)
		c.User = &u
	}
	if st.Partner != nil {
		p := *st.Partner
		c.Partner = &p
	}
	c.UserCategories = slices.Clone(st.UserCategories)
	c.Branches = slices.Clone(st.Branches)
	if st.Promotions != nil {
		c.Promotions = make([]model.Promotion, len(st.Promotions))
		for i, p := range st.Promotions {
			c.Promotions[i] = clonePromotion(p)
		}
	}
	return c
}

func clonePromotion(p model.Promotion) model.Promotion {
	if p.AvailableQuantity != nil {
		q := *p.AvailableQuantity
		p.AvailableQuantity = &q
	}
	p.Categories = slices.Clone(p.Categories)
	p.Images = slices.Clone(p.Images)
	return p
}

// tokenExpiry reads the exp claim of a JWT session token. The signature is
// not checked: the platform verifies its own tokens, the client only needs
// to know when to stop sending one. Opaque tokens have no expiry.
func tokenExpiry(token string) time.Time {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
