package profile

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// SeedProduct is a starter inventory item.
type SeedProduct struct {
	Name          string `yaml:"name" json:"name"`
	SKU           string `yaml:"sku" json:"sku"`
	Stock         int    `yaml:"stock" json:"stock"`
	MinStockLevel int    `yaml:"min_stock_level" json:"min_stock_level"`
}

// ShopType is an onboarding choice.
type ShopType struct {
	ID       string        `yaml:"id" json:"id"`
	Label    string        `yaml:"label" json:"label"`
	Theme    string        `yaml:"theme" json:"theme"`
	Products []SeedProduct `yaml:"products" json:"products"`
}

var loadCatalog = sync.OnceValues(func() ([]ShopType, error) {
	return parseCatalog(catalogYAML)
})

// Catalog returns the shop types offered during onboarding.
func Catalog() ([]ShopType, error) {
	return loadCatalog()
}

func parseCatalog(raw []byte) ([]ShopType, error) {
	var doc struct {
		ShopTypes []ShopType `yaml:"shop_types"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse shop catalog: %w", err)
	}
	seen := make(map[string]bool, len(doc.ShopTypes))
	for _, st := range doc.ShopTypes {
		if st.ID == "" || seen[st.ID] {
			return nil, fmt.Errorf("parse shop catalog: missing or duplicate id %q", st.ID)
		}
		seen[st.ID] = true
	}
	return doc.ShopTypes, nil
}

func findShopType(id string) (ShopType, bool, error) {
	types, err := Catalog()
	if err != nil {
		return ShopType{}, false, err
	}
	for _, st := range types {
		if st.ID == id {
			return st, true, nil
		}
	}
	return ShopType{}, false, nil
}
