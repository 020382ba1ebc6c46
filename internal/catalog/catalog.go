// Package catalog serves the product listing loaded from the bundled JSON fixtures.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/microip/storefront-backend/internal/cart"
	"github.com/microip/storefront-backend/internal/pricing"
	pkgerrors "github.com/microip/storefront-backend/pkg/errors"
)

//go:embed fixtures/products.json
var fixtures embed.FS

const DefaultFixture = "fixtures/products.json"

type Category string

const (
	CategoryBuy         Category = "buy"
	CategoryRent        Category = "rent"
	CategoryAccessories Category = "accessories"
	CategoryRepairs     Category = "repairs"
)

var categories = []Category{CategoryBuy, CategoryRent, CategoryAccessories, CategoryRepairs}

func (c Category) IsValid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

var (
	repairKeywords    = []string{"repair", "maintenance", "calibration", "diagnostic", "service visit"}
	accessoryKeywords = []string{"accessor", "gripper", "battery", "charger", "camera", "sensor", "cable", "bracket", "kit"}
)

type Product struct {
	ID           cart.ItemID   `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	Image        string        `json:"image"`
	Price        string        `json:"price"`
	MonthlyPrice string        `json:"monthlyPrice,omitempty"`
	Category     Category      `json:"category"`
	Tags         []string      `json:"tags,omitempty"`
	AddOns       []cart.AddOn  `json:"addOns,omitempty"`
	Pricing      pricing.Price `json:"pricing"`
}

// Catalog is immutable after Load and safe for concurrent reads.
type Catalog struct {
	products []Product
	byID     map[cart.ItemID]int
}

// Default loads the fixtures compiled into the binary.
func Default() (*Catalog, error) {
	return Load(fixtures, DefaultFixture)
}

// Load reads a JSON array of products from fsys. Products without a valid category are
// categorized heuristically.
func Load(fsys fs.FS, path string) (*Catalog, error) {
	raw, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	var products []Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("decoding catalog %s: %w", path, err)
	}

	c := &Catalog{byID: make(map[cart.ItemID]int, len(products))}
	for _, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog %s: product %q has no id", path, p.Name)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("catalog %s: duplicate product id %s", path, p.ID)
		}
		if !p.Category.IsValid() {
			p.Category = Categorize(p)
		}
		p.Pricing = pricing.FromDisplay(p.Price)
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// Categorize applies the listing heuristic: a monthly price means rent, then repair
// keywords, then accessory keywords, otherwise buy.
func Categorize(p Product) Category {
	if strings.TrimSpace(p.MonthlyPrice) != "" {
		return CategoryRent
	}
	text := strings.ToLower(p.Name + " " + p.Description + " " + strings.Join(p.Tags, " "))
	if containsAny(text, repairKeywords) {
		return CategoryRepairs
	}
	if containsAny(strings.ToLower(p.Name+" "+strings.Join(p.Tags, " ")), accessoryKeywords) {
		return CategoryAccessories
	}
	return CategoryBuy
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// List returns the products in category, or every product when category is empty.
func (c *Catalog) List(category string) ([]Product, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return append([]Product{}, c.products...), nil
	}
	cat := Category(category)
	if !cat.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown category").
			WithDetails(map[string]any{"category": category, "allowed": categories})
	}
	out := []Product{}
	for _, p := range c.products {
		if p.Category == cat {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *Catalog) Get(id cart.ItemID) (Product, error) {
	idx, ok := c.byID[id]
	if !ok {
		return Product{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "product %q not found", id)
	}
	return c.products[idx], nil
}

// Categories returns the known categories with their product counts.
func (c *Catalog) Categories() map[Category]int {
	counts := make(map[Category]int, len(categories))
	for _, cat := range categories {
		counts[cat] = 0
	}
	for _, p := range c.products {
		counts[p.Category]++
	}
	return counts
}

// CartItem builds the cart line for product. Rentals carry the monthly price and the
// rent flag; only add-ons the product offers are attached.
func (p Product) CartItem(addOnIDs []cart.ItemID) (cart.Item, error) {
	item := cart.Item{
		ID:     p.ID,
		Name:   p.Name,
		Image:  p.Image,
		Price:  p.Price,
		IsRent: p.Category == CategoryRent,
	}
	if item.IsRent && p.MonthlyPrice != "" {
		item.Price = p.MonthlyPrice
	}
	if len(addOnIDs) == 0 {
		return item, nil
	}

	offered := make(map[cart.ItemID]cart.AddOn, len(p.AddOns))
	for _, a := range p.AddOns {
		offered[a.ID] = a
	}
	var unknown []string
	for _, id := range addOnIDs {
		addOn, ok := offered[id]
		if !ok {
			unknown = append(unknown, id.String())
			continue
		}
		item.AddOns = append(item.AddOns, addOn)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return cart.Item{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown add-on").
			WithDetails(map[string]any{"addOns": unknown})
	}
	return item, nil
}
