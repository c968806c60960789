// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the records exchanged with the platform API:
// users, partners, categories, branches and promotions.
package model

// Account status and role names as returned by the platform.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"

	RoleAssociated = "associated"
)

// Status is a named lifecycle status attached to users and branches.
type Status struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Role is one entry of a user's role set.
type Role struct {
	RoleID   int64  `json:"role_id"`
	RoleName string `json:"role_name"`
}

// User is the authoritative user record.
type User struct {
	UserID                 int64  `json:"user_id"`
	FirstName              string `json:"first_name"`
	LastName               string `json:"last_name"`
	Email                  string `json:"email"`
	Country                string `json:"country"`
	City                   string `json:"city"`
	PhoneNumber            string `json:"phone_number"`
	Gender                 string `json:"gender"`
	BirthDate              string `json:"birth_date"` // YYYY-MM-DD
	ImageURL               string `json:"image_url"`
	SubscribedToNewsletter bool   `json:"subscribed_to_newsletter"`
	Status                 Status `json:"status"`
	Roles                  []Role `json:"roles"`
}

// IsActive reports whether the account status is active.
func (u *User) IsActive() bool {
	return u.Status.Name == StatusActive
}

// HasRole reports whether the user's role set contains the named role.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.RoleName == name {
			return true
		}
	}
	return false
}

// UserUpdate is the payload of an update-user call. ImageData is nil when
// the profile image was not replaced.
type UserUpdate struct {
	UserID                 int64   `json:"user_id"`
	FirstName              string  `json:"first_name"`
	LastName               string  `json:"last_name"`
	Email                  string  `json:"email"`
	Country                string  `json:"country"`
	City                   string  `json:"city"`
	PhoneNumber            string  `json:"phone_number"`
	Gender                 string  `json:"gender"`
	BirthDate              string  `json:"birth_date"`
	ImageData              *string `json:"image_data"`
	SubscribedToNewsletter bool    `json:"subscribed_to_newsletter"`
}

// LoginResponse is returned by a successful credential check.
type LoginResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
