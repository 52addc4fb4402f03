package report

import (
	"fmt"

	"fleet-report-builder/internal/errs"
)

// Catalog is the closed set of report variants.
type Catalog struct {
	variants []Variant
	byKind   map[Kind]Variant
}

// NewCatalog returns the catalog of every supported variant, in the order
// they are offered to the user.
func NewCatalog() *Catalog {
	return newCatalog(checkins{}, engineHours{}, staleGPS{})
}

func newCatalog(variants ...Variant) *Catalog {
	c := &Catalog{byKind: make(map[Kind]Variant, len(variants))}
	for _, v := range variants {
		c.variants = append(c.variants, v)
		c.byKind[v.Kind()] = v
	}
	return c
}

// Lookup returns the variant for kind or ErrUnsupportedVariant.
func (c *Catalog) Lookup(kind Kind) (Variant, error) {
	v, ok := c.byKind[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrUnsupportedVariant, kind)
	}
	return v, nil
}

// Variants returns the variants in presentation order.
func (c *Catalog) Variants() []Variant {
	return append([]Variant(nil), c.variants...)
}

// TypeInfo is the type-selection entry for one variant.
type TypeInfo struct {
	Kind        Kind   `json:"kind"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Types lists the variants for the type-selection step.
func (c *Catalog) Types() []TypeInfo {
	infos := make([]TypeInfo, 0, len(c.variants))
	for _, v := range c.variants {
		infos = append(infos, TypeInfo{Kind: v.Kind(), Label: v.Label(), Description: v.Description()})
	}
	return infos
}
