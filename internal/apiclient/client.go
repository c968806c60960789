// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package apiclient is the JSON-over-HTTP client of the platform API.
// Calls that act on behalf of a user take the session's bearer token.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Javier-Pedernera/asociados-go/internal/model"
)

// Client defaults.
const (
	DefaultTimeout = 30 * time.Second
	MaxResponseLen = 10 * 1024 * 1024
	UserAgent      = "asociados-go/1.0"
)

// invalidPasswordMessage is the server's message for a wrong password.
const invalidPasswordMessage = "Password inválido"

// ErrInvalidPassword is matched by errors.Is when the server rejected the
// supplied password.
var ErrInvalidPassword = errors.New("invalid password")

// Error is a non-2xx response.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Unwrap exposes the sentinel of recognized rejections.
func (e *Error) Unwrap() error {
	if e.Message == invalidPasswordMessage {
		return ErrInvalidPassword
	}
	return nil
}

// Config configures a Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client calls the platform API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	logger    *slog.Logger
}

// New creates a Client for cfg.BaseURL.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL must use http or https scheme")
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = UserAgent
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:   base,
		http:      hc,
		userAgent: ua,
		logger:    logger,
	}, nil
}

// errorBody is the error envelope returned by the platform.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// do sends a JSON request and decodes a JSON response into out. body and
// out may be nil.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLen))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug("api call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil {
			apiErr.Message = eb.Message
			if apiErr.Message == "" {
				apiErr.Message = eb.Error
			}
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// Login checks credentials and returns the user record and token.
func (c *Client) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	var resp model.LoginResponse
	err := c.do(ctx, http.MethodPost, "/users/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout invalidates token.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/users/logout", token, nil, nil)
}

// UpdateUser updates the user record and returns the stored version.
func (c *Client) UpdateUser(ctx context.Context, token string, u model.UserUpdate) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d", u.UserID), token, u, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdatePartner updates the partner's business data and categories.
func (c *Client) UpdatePartner(ctx context.Context, token string, partnerID int64, p model.PartnerUpdate) (*model.Partner, error) {
	var partner model.Partner
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/partners/%d", partnerID), token, p, &partner); err != nil {
		return nil, err
	}
	return &partner, nil
}

// CreatePromotion creates a promotion with its images.
func (c *Client) CreatePromotion(ctx context.Context, token string, p model.NewPromotion) (*model.Promotion, error) {
	var promo model.Promotion
	if err := c.do(ctx, http.MethodPost, "/promotions", token, p, &promo); err != nil {
		return nil, err
	}
	return &promo, nil
}

// ChangePassword replaces the user's password.
func (c *Client) ChangePassword(ctx context.Context, token string, userID int64, newPassword, currentPassword string) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d/password", userID), token, map[string]string{
		"new_password":     newPassword,
		"current_password": currentPassword,
	}, nil)
}

// FetchAllCategories lists the category catalog.
func (c *Client) FetchAllCategories(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	if err := c.do(ctx, http.MethodGet, "/categories", "", nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// FetchUserCategories lists the categories selected by a user.
func (c *Client) FetchUserCategories(ctx context.Context, token string, userID int64) ([]model.Category, error) {
	var cats []model.Category
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/categories", userID), token, nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// FetchPromotions lists the promotions of a partner.
func (c *Client) FetchPromotions(ctx context.Context, token string, partnerID int64) ([]model.Promotion, error) {
	var promos []model.Promotion
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/partners/%d/promotions", partnerID), token, nil, &promos); err != nil {
		return nil, err
	}
	return promos, nil
}

// FetchBranches lists the branches of a partner.
func (c *Client) FetchBranches(ctx context.Context, token string, partnerID int64) ([]model.Branch, error) {
	var branches []model.Branch
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/partners/%d/branches", partnerID), token, nil, &branches); err != nil {
		return nil, err
	}
	return branches, nil
}

// FetchPartner returns a partner's business data.
func (c *Client) FetchPartner(ctx context.Context, token string, partnerID int64) (*model.Partner, error) {
	var partner model.Partner
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/partners/%d", partnerID), token, nil, &partner); err != nil {
		return nil, err
	}
	return &partner, nil
}

// FetchCountries lists the country catalog.
func (c *Client) FetchCountries(ctx context.Context) ([]model.Country, error) {
	var countries []model.Country
	if err := c.do(ctx, http.MethodGet, "/countries", "", nil, &countries); err != nil {
		return nil, err
	}
	return countries, nil
}
