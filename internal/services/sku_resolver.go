package services

import "strings"

// SKUResolver maps external product identifiers to credit quantities. The
// catalog is copied at construction and never changes afterwards.
type SKUResolver struct {
	catalog map[string]int64
}

func NewSKUResolver(catalog map[string]int64) *SKUResolver {
	c := make(map[string]int64, len(catalog))
	for sku, credits := range catalog {
		c[normalizeSKU(sku)] = credits
	}
	return &SKUResolver{catalog: c}
}

// Resolve returns the credits granted for sku. ok is false for products the
// catalog does not know; that is not an error.
func (r *SKUResolver) Resolve(sku string) (credits int64, ok bool) {
	credits, ok = r.catalog[normalizeSKU(sku)]
	return credits, ok
}

func normalizeSKU(sku string) string {
	return strings.ToLower(strings.TrimSpace(sku))
}
