// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Partner holds the business data of an associate. PartnerID equals the
// owning user's ID.
type Partner struct {
	PartnerID    int64  `json:"partner_id"`
	Address      string `json:"address"`
	ContactInfo  string `json:"contact_info"`
	BusinessType string `json:"business_type"`
}

// PartnerUpdate is the payload of an update-partner call.
type PartnerUpdate struct {
	Address      string  `json:"address"`
	ContactInfo  string  `json:"contact_info"`
	BusinessType string  `json:"business_type"`
	CategoryIDs  []int64 `json:"category_ids"`
}

// Category is a promotion/partner category.
type Category struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
}

// Country is one entry of the country catalog.
type Country struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Branch is a physical location of a partner.
type Branch struct {
	BranchID  int64  `json:"branch_id"`
	PartnerID int64  `json:"partner_id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Status    Status `json:"status"`
}

// Usable reports whether promotions may be attached to the branch.
// Both active and inactive branches qualify; anything else (pending,
// deleted) does not.
func (b *Branch) Usable() bool {
	return b.Status.Name == StatusActive || b.Status.Name == StatusInactive
}

// FirstUsableBranch returns the first branch promotions can be attached to.
func FirstUsableBranch(branches []Branch) (Branch, bool) {
	for _, b := range branches {
		if b.Usable() {
			return b, true
		}
	}
	return Branch{}, false
}
