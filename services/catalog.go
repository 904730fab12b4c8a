package services

import (
	"context"

	"food-order-bot/models"

	"golang.org/x/sync/singleflight"
)

// MenuLoader is shared by every chat. Concurrent loads collapse into one request.
type MenuLoader struct {
	backend MenuBackend
	group   singleflight.Group
}

func NewMenuLoader(backend MenuBackend) *MenuLoader {
	return &MenuLoader{backend: backend}
}

func (l *MenuLoader) Load(ctx context.Context) ([]models.MenuItem, error) {
	v, err, _ := l.group.Do("menu", func() (any, error) {
		return l.backend.Menu(ctx)
	})
	if err != nil {
		return nil, err
	}
	items := v.([]models.MenuItem)
	// callers sharing a flight must not share the backing array
	return append([]models.MenuItem(nil), items...), nil
}

func (l *MenuLoader) Item(ctx context.Context, id int64) (*models.MenuItem, error) {
	return l.backend.MenuItem(ctx, id)
}

// Catalog is the last fetched menu of one chat plus its category filter.
type Catalog struct {
	loader *MenuLoader
	items  []models.MenuItem
	loaded bool
	filter string
}

func NewCatalog(loader *MenuLoader) *Catalog {
	return &Catalog{loader: loader, filter: models.CategoryAll}
}

// Reload replaces the cached list wholesale. On error the old list is kept.
func (c *Catalog) Reload(ctx context.Context) error {
	items, err := c.loader.Load(ctx)
	if err != nil {
		return err
	}
	c.items = items
	c.loaded = true
	return nil
}

func (c *Catalog) Loaded() bool {
	return c.loaded
}

func (c *Catalog) Items() []models.MenuItem {
	return append([]models.MenuItem(nil), c.items...)
}

// SetFilter selects a category, or all when category is empty or "all".
// Filtering is local; nothing is refetched.
func (c *Catalog) SetFilter(category string) {
	if category == "" {
		category = models.CategoryAll
	}
	c.filter = category
}

func (c *Catalog) Filter() string {
	return c.filter
}

// Visible returns the cached items matching the filter.
func (c *Catalog) Visible() []models.MenuItem {
	if c.filter == models.CategoryAll {
		return c.Items()
	}
	var out []models.MenuItem
	for _, it := range c.items {
		if it.Category == c.filter {
			out = append(out, it)
		}
	}
	return out
}

// Categories lists distinct categories in the order they first appear.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range c.items {
		if !seen[it.Category] {
			seen[it.Category] = true
			out = append(out, it.Category)
		}
	}
	return out
}

func (c *Catalog) Find(id int64) (models.MenuItem, bool) {
	for _, it := range c.items {
		if it.ID == id {
			return it, true
		}
	}
	return models.MenuItem{}, false
}

// Resolve returns the item from the cache, asking the backend when the cache
// does not have it (e.g. a button from an older menu message).
func (c *Catalog) Resolve(ctx context.Context, id int64) (models.MenuItem, error) {
	if it, ok := c.Find(id); ok {
		return it, nil
	}
	it, err := c.loader.Item(ctx, id)
	if err != nil {
		return models.MenuItem{}, err
	}
	return *it, nil
}

var categoryEmoji = map[string]string{
	"Пиццы":   "🍕",
	"Бургеры": "🍔",
	"Салаты":  "🥗",
	"Суши":    "🍣",
	"Пасты":   "🍝",
	"Напитки": "🥤",
}

func CategoryEmoji(category string) string {
	if e, ok := categoryEmoji[category]; ok {
		return e
	}
	return "🍽️"
}
