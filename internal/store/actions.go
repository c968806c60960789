// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/Javier-Pedernera/asociados-go/internal/model"
)

// LogIn exchanges credentials for a session. Any previous session in the
// draft is replaced.
func LogIn(email, password string) Thunk[*model.User] {
	return func(ctx context.Context, env Env, st *State) (*model.User, error) {
		resp, err := env.API.Login(ctx, email, password)
		if err != nil {
			return nil, fmt.Errorf("logging in: %w", err)
		}

		user := resp.User
		*st = State{
			User:           &user,
			Token:          resp.Token,
			TokenExpiresAt: tokenExpiry(resp.Token),
		}
		env.Logger.Info("user logged in", "user_id", user.UserID)
		return &user, nil
	}
}

// LogOut ends the session. The platform call is best effort; the local
// session is always cleared.
func LogOut() Thunk[struct{}] {
	return func(ctx context.Context, env Env, st *State) (struct{}, error) {
		if st.Token != "" {
			if err := env.API.Logout(ctx, st.Token); err != nil {
				env.Logger.Warn("remote logout failed", "user_id", st.UserID(), "error", err)
			}
		}
		*st = State{}
		return struct{}{}, nil
	}
}

// LoadData fetches the partner record, branches and promotions of the
// signed-in associate.
func LoadData() Thunk[struct{}] {
	return func(ctx context.Context, env Env, st *State) (struct{}, error) {
		if err := requireSession(env, st); err != nil {
			return struct{}{}, err
		}

		partner, err := env.API.FetchPartner(ctx, st.Token, st.PartnerID())
		if err != nil {
			return struct{}{}, fmt.Errorf("fetching partner: %w", err)
		}
		branches, err := env.API.FetchBranches(ctx, st.Token, st.PartnerID())
		if err != nil {
			return struct{}{}, fmt.Errorf("fetching branches: %w", err)
		}
		promotions, err := env.API.FetchPromotions(ctx, st.Token, st.PartnerID())
		if err != nil {
			return struct{}{}, fmt.Errorf("fetching promotions: %w", err)
		}

		st.Partner = partner
		st.Branches = branches
		st.Promotions = promotions
		return struct{}{}, nil
	}
}

// FetchUserCategories re-reads the categories linked to the associate.
func FetchUserCategories() Thunk[[]model.Category] {
	return func(ctx context.Context, env Env, st *State) ([]model.Category, error) {
		if err := requireSession(env, st); err != nil {
			return nil, err
		}
		categories, err := env.API.FetchUserCategories(ctx, st.Token, st.UserID())
		if err != nil {
			return nil, fmt.Errorf("fetching user categories: %w", err)
		}
		st.UserCategories = categories
		return categories, nil
	}
}

// FetchBranches re-reads the associate's branches.
func FetchBranches() Thunk[[]model.Branch] {
	return func(ctx context.Context, env Env, st *State) ([]model.Branch, error) {
		if err := requireSession(env, st); err != nil {
			return nil, err
		}
		branches, err := env.API.FetchBranches(ctx, st.Token, st.PartnerID())
		if err != nil {
			return nil, fmt.Errorf("fetching branches: %w", err)
		}
		st.Branches = branches
		return branches, nil
	}
}

// FetchPromotions re-reads the associate's promotions.
func FetchPromotions() Thunk[[]model.Promotion] {
	return func(ctx context.Context, env Env, st *State) ([]model.Promotion, error) {
		if err := requireSession(env, st); err != nil {
			return nil, err
		}
		promotions, err := env.API.FetchPromotions(ctx, st.Token, st.PartnerID())
		if err != nil {
			return nil, fmt.Errorf("fetching promotions: %w", err)
		}
		st.Promotions = promotions
		return promotions, nil
	}
}

// UpdateUser saves the personal data. Status and roles are kept from the
// session when the platform omits them from the response. A reply without
// the user record (status only) commits the sent fields instead.
func UpdateUser(u model.UserUpdate) Thunk[*model.User] {
	return func(ctx context.Context, env Env, st *State) (*model.User, error) {
		if err := requireSession(env, st); err != nil {
			return nil, err
		}
		u.UserID = st.UserID()

		updated, err := env.API.UpdateUser(ctx, st.Token, u)
		if err != nil {
			return nil, fmt.Errorf("updating user: %w", err)
		}
		if updated == nil || updated.UserID == 0 {
			updated = mergeUser(*st.User, u)
		}
		if updated.Status.Name == "" {
			updated.Status = st.User.Status
		}
		if len(updated.Roles) == 0 {
			updated.Roles = slices.Clone(st.User.Roles)
		}
		st.User = updated
		return updated, nil
	}
}

// mergeUser applies the sent fields to the current record. The image URL
// is kept; a replaced image shows up on the next login.
func mergeUser(current model.User, u model.UserUpdate) *model.User {
	current.FirstName = u.FirstName
	current.LastName = u.LastName
	current.Email = u.Email
	current.Country = u.Country
	current.City = u.City
	current.PhoneNumber = u.PhoneNumber
	current.Gender = u.Gender
	current.BirthDate = u.BirthDate
	current.SubscribedToNewsletter = u.SubscribedToNewsletter
	current.Roles = slices.Clone(current.Roles)
	return &current
}

// UpdatePartner saves the business data and category links. A reply
// without the partner record commits the sent fields instead.
func UpdatePartner(p model.PartnerUpdate) Thunk[*model.Partner] {
	return func(ctx context.Context, env Env, st *State) (*model.Partner, error) {
		if err := requireSession(env, st); err != nil {
			return nil, err
		}

		partnerID := st.PartnerID()
		updated, err := env.API.UpdatePartner(ctx, st.Token, partnerID, p)
		if err != nil {
			return nil, fmt.Errorf("updating partner: %w", err)
		}
		if updated == nil || updated.PartnerID == 0 {
			updated = &model.Partner{
				PartnerID:    partnerID,
				Address:      p.Address,
				ContactInfo:  p.ContactInfo,
				BusinessType: p.BusinessType,
			}
		}
		st.Partner = updated
		return updated, nil
	}
}

// CreatePromotion publishes a promotion and appends it to the list until
// the next re-fetch replaces it.
func CreatePromotion(p model.NewPromotion) Thunk[*model.Promotion] {
	return func(ctx context.Context, env Env, st *State) (*model.Promotion, error) {
		if err := requireSession(env, st); err != nil {
			return nil, err
		}

		created, err := env.API.CreatePromotion(ctx, st.Token, p)
		if err != nil {
			return nil, fmt.Errorf("creating promotion: %w", err)
		}
		// A status-only reply leaves the list to the next re-fetch.
		if created.PromotionID != 0 {
			st.Promotions = append(st.Promotions, *created)
		}
		env.Logger.Info("promotion created", "promotion_id", created.PromotionID, "branch_id", p.BranchID)
		return created, nil
	}
}

// ChangePassword replaces the account password. It does not touch the
// state.
func ChangePassword(newPassword, currentPassword string) Thunk[struct{}] {
	return func(ctx context.Context, env Env, st *State) (struct{}, error) {
		if err := requireSession(env, st); err != nil {
			return struct{}{}, err
		}
		if err := env.API.ChangePassword(ctx, st.Token, st.UserID(), newPassword, currentPassword); err != nil {
			return struct{}{}, fmt.Errorf("changing password: %w", err)
		}
		return struct{}{}, nil
	}
}

func requireSession(env Env, st *State) error {
	if !st.authenticatedAt(env.Now()) {
		return ErrNotAuthenticated
	}
	return nil
}
