// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Promotion is a promotion as listed by the platform.
type Promotion struct {
	PromotionID        int64      `json:"promotion_id"`
	BranchID           int64      `json:"branch_id"`
	PartnerID          int64      `json:"partner_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	StartDate          string     `json:"start_date"`
	ExpirationDate     string     `json:"expiration_date"`
	DiscountPercentage int        `json:"discount_percentage"`
	AvailableQuantity  *int       `json:"available_quantity"`
	Status             Status     `json:"status"`
	Categories         []Category `json:"categories"`
	Images             []Image    `json:"images"`
}

// Image is a stored promotion image.
type Image struct {
	ImageID   int64  `json:"image_id"`
	ImagePath string `json:"image_path"`
}

// NewPromotion is the payload of a create-promotion call.
type NewPromotion struct {
	BranchID           int64          `json:"branch_id"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	StartDate          string         `json:"start_date"`
	ExpirationDate     string         `json:"expiration_date"`
	DiscountPercentage int            `json:"discount_percentage"`
	AvailableQuantity  *int           `json:"available_quantity"`
	PartnerID          int64          `json:"partner_id"`
	StatusID           int64          `json:"status_id"`
	CategoryIDs        []int64        `json:"category_ids"`
	Images             []ImagePayload `json:"images"`
}
