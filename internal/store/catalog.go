// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Javier-Pedernera/asociados-go/internal/cache"
	"github.com/Javier-Pedernera/asociados-go/internal/model"
	"github.com/Javier-Pedernera/asociados-go/internal/util"
)

// CatalogAPI fetches the public reference data.
type CatalogAPI interface {
	FetchAllCategories(ctx context.Context) ([]model.Category, error)
	FetchCountries(ctx context.Context) ([]model.Country, error)
}

// CatalogData is a copy of the catalog contents.
type CatalogData struct {
	Categories  []model.Category `json:"categories"`
	Countries   []model.Country  `json:"countries"`
	RefreshedAt time.Time        `json:"refreshed_at"`
	Version     uint64           `json:"-"`
}

const catalogCacheKey = "catalog"

// Catalog holds the categories and countries shared by every session.
type Catalog struct {
	api    CatalogAPI
	cache  *cache.TypedCache[CatalogData]
	logger *slog.Logger
	now    func() time.Time

	mu   sync.RWMutex
	data CatalogData
}

// NewCatalog creates an empty catalog. c may be nil, in which case nothing
// is shared between gateway replicas.
func NewCatalog(api CatalogAPI, c *cache.TypedCache[CatalogData], logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		api:    api,
		cache:  c,
		logger: logger,
		now:    time.Now,
	}
}

// Warm loads the catalog from the shared cache, fetching it on a miss.
func (c *Catalog) Warm(ctx context.Context) error {
	if c.cache == nil {
		return c.Refresh(ctx)
	}

	data, err := c.cache.GetOrSet(ctx, catalogCacheKey, c.fetch)
	if err != nil {
		return fmt.Errorf("warming catalog: %w", err)
	}
	c.replace(data)
	return nil
}

// Refresh fetches both lists. On failure the previous contents are kept.
func (c *Catalog) Refresh(ctx context.Context) error {
	data, err := c.fetch(ctx)
	if err != nil {
		return fmt.Errorf("refreshing catalog: %w", err)
	}
	c.replace(data)

	if c.cache != nil {
		if err := c.cache.Set(ctx, catalogCacheKey, data); err != nil {
			c.logger.Warn("failed to share catalog", "error", err)
		}
	}
	c.logger.Debug("catalog refreshed", "categories", len(data.Categories), "countries", len(data.Countries))
	return nil
}

// RefreshCategories re-fetches only the categories, as the profile screen
// does when it mounts.
func (c *Catalog) RefreshCategories(ctx context.Context) error {
	categories, err := c.api.FetchAllCategories(ctx)
	if err != nil {
		return fmt.Errorf("fetching categories: %w", err)
	}

	c.mu.Lock()
	c.data.Categories = categories
	c.data.RefreshedAt = c.now()
	c.data.Version++
	c.mu.Unlock()
	return nil
}

func (c *Catalog) fetch(ctx context.Context) (CatalogData, error) {
	categories, err := c.api.FetchAllCategories(ctx)
	if err != nil {
		return CatalogData{}, fmt.Errorf("fetching categories: %w", err)
	}
	countries, err := c.api.FetchCountries(ctx)
	if err != nil {
		return CatalogData{}, fmt.Errorf("fetching countries: %w", err)
	}
	slices.SortFunc(countries, func(a, b model.Country) int {
		return compareFolded(a.Name, b.Name)
	})
	return CatalogData{Categories: categories, Countries: countries, RefreshedAt: c.now()}, nil
}

func (c *Catalog) replace(data CatalogData) {
	c.mu.Lock()
	data.Version = c.data.Version + 1
	c.data = data
	c.mu.Unlock()
}

// Data returns a copy of the catalog contents.
func (c *Catalog) Data() CatalogData {
	if c == nil {
		return CatalogData{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	d := c.data
	d.Categories = slices.Clone(c.data.Categories)
	d.Countries = slices.Clone(c.data.Countries)
	return d
}

// Version returns the catalog's commit counter.
func (c *Catalog) Version() uint64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.Version
}

// CountryNames returns the country names in display order. The profile
// stores a country by name.
func (c *Catalog) CountryNames() []string {
	d := c.Data()
	names := make([]string, len(d.Countries))
	for i, country := range d.Countries {
		names[i] = country.Name
	}
	return names
}

// SearchCountries returns the countries whose name contains q, ignoring
// case and accents.
func (c *Catalog) SearchCountries(q string) []model.Country {
	d := c.Data()
	matches := make([]model.Country, 0, len(d.Countries))
	for _, country := range d.Countries {
		if util.ContainsFold(country.Name, q) {
			matches = append(matches, country)
		}
	}
	return matches
}

// CanonicalCountry returns the catalog spelling of name, so "peru" is
// stored as "Perú".
func (c *Catalog) CanonicalCountry(name string) (string, bool) {
	for _, country := range c.Data().Countries {
		if util.EqualFold(country.Name, name) {
			return country.Name, true
		}
	}
	return "", false
}

// Category looks up a category by id.
func (c *Catalog) Category(id int64) (model.Category, bool) {
	for _, cat := range c.Data().Categories {
		if cat.CategoryID == id {
			return cat, true
		}
	}
	return model.Category{}, false
}

func compareFolded(a, b string) int {
	return strings.Compare(util.Fold(a), util.Fold(b))
}
