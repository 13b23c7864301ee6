package article

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Category partitions articles and defines deduplication priority.
type Category string

const (
	World    Category = "world"
	National Category = "national"
	Local    Category = "local"
)

// Priority lists categories from highest to lowest priority.
// Code that depends on ordering must range over Priority, never over a Collection.
var Priority = []Category{World, National, Local}

// ParseCategory maps a config or CLI value to a Category.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case World, National, Local:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown category %q (valid: world, national, local)", s)
}

// Title returns the heading used when rendering the category.
func (c Category) Title() string {
	switch c {
	case World:
		return "World News"
	case National:
		return "National News"
	case Local:
		return "Local News"
	}
	return string(c)
}

type Article struct {
	Title     string
	URL       string
	Source    string
	Category  Category
	Published *time.Time
	Content   string
	Summary   string
}

// ID derives a stable identifier from the article URL.
func (a Article) ID() string {
	h := sha256.Sum256([]byte(a.URL))
	return fmt.Sprintf("%x", h[:16])
}

// Collection maps each category to its articles in fetch order.
type Collection map[Category][]Article

// NewCollection returns a Collection with every category present and empty.
func NewCollection() Collection {
	c := make(Collection, len(Priority))
	for _, cat := range Priority {
		c[cat] = []Article{}
	}
	return c
}

// Total counts articles across all categories.
func (c Collection) Total() int {
	n := 0
	for _, arts := range c {
		n += len(arts)
	}
	return n
}

// Limit returns a copy of c with at most n articles per category.
// n <= 0 means no limit.
func (c Collection) Limit(n int) Collection {
	out := NewCollection()
	for _, cat := range Priority {
		arts := c[cat]
		if n > 0 && len(arts) > n {
			arts = arts[:n]
		}
		out[cat] = append(out[cat], arts...)
	}
	return out
}

// Digest is the final categorized article collection ready for rendering.
type Digest struct {
	GeneratedAt time.Time
	Intro       string
	Articles    Collection
}

// TotalArticles counts the articles in the digest.
func (d *Digest) TotalArticles() int {
	return d.Articles.Total()
}
