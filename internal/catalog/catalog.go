// Package catalog serves the embedded reference data: the currencies the
// ledger offers and the expense categories.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"

	"github.com/fkhayef/splitledger/internal/money"
)

// Currency describes one offered currency.
type Currency struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// Category is an expense category.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Catalog is read-only after Load.
type Catalog struct {
	currencies []Currency
	categories []Category
	categoryBy map[int64]Category
}

//go:embed data/*.json
var embeddedFS embed.FS

// LoadEmbedded loads the catalog compiled into the binary.
func LoadEmbedded() (*Catalog, error) {
	return LoadFromFS(embeddedFS)
}

// LoadFromFS loads data/currencies.json and data/categories.json from fsys.
// Every currency must be a recognised ISO 4217 code whose decimals match
// its minor-unit scale.
func LoadFromFS(fsys fs.FS) (*Catalog, error) {
	var c Catalog
	if err := readJSON(fsys, "data/currencies.json", &c.currencies); err != nil {
		return nil, err
	}
	if err := readJSON(fsys, "data/categories.json", &c.categories); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(c.currencies))
	for _, cur := range c.currencies {
		iso, err := money.LookupCurrency(cur.Code)
		if err != nil {
			return nil, fmt.Errorf("catalog currency %q: %w", cur.Code, err)
		}
		if iso.Scale != cur.Decimals {
			return nil, fmt.Errorf("catalog currency %s: decimals %d, ISO scale %d", cur.Code, cur.Decimals, iso.Scale)
		}
		if seen[cur.Code] {
			return nil, fmt.Errorf("catalog currency %s listed twice", cur.Code)
		}
		seen[cur.Code] = true
	}
	sort.Slice(c.currencies, func(i, j int) bool { return c.currencies[i].Code < c.currencies[j].Code })

	c.categoryBy = make(map[int64]Category, len(c.categories))
	for _, cat := range c.categories {
		if cat.ID <= 0 || cat.Name == "" {
			return nil, fmt.Errorf("catalog category %d: id and name are required", cat.ID)
		}
		if _, dup := c.categoryBy[cat.ID]; dup {
			return nil, fmt.Errorf("catalog category %d listed twice", cat.ID)
		}
		c.categoryBy[cat.ID] = cat
	}
	sort.Slice(c.categories, func(i, j int) bool { return c.categories[i].ID < c.categories[j].ID })

	return &c, nil
}

// Currencies returns the offered currencies sorted by code.
func (c *Catalog) Currencies() []Currency {
	return append([]Currency(nil), c.currencies...)
}

// Categories returns the categories sorted by id.
func (c *Catalog) Categories() []Category {
	return append([]Category(nil), c.categories...)
}

// HasCategory reports whether id names a category.
func (c *Catalog) HasCategory(id int64) bool {
	_, ok := c.categoryBy[id]
	return ok
}

func readJSON(fsys fs.FS, name string, v any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}
