package core

import "fmt"

// Category is one of the categories of the active taxonomy
type Category string

// TaxonomyVariant selects which fixed category set is active
type TaxonomyVariant string

const (
	TaxonomyConsolidated TaxonomyVariant = "consolidated"
	TaxonomyExtended     TaxonomyVariant = "extended"
)

// Consolidated taxonomy
const (
	CategoryFinanceBills        Category = "Finance & Bills"
	CategoryPurchasesReceipts   Category = "Purchases & Receipts"
	CategoryServicesSubs        Category = "Services & Subscriptions"
	CategorySecurityAlerts      Category = "Security & Alerts"
	CategoryPromotionsMarketing Category = "Promotions & Marketing"
	CategoryPersonalSocial      Category = "Personal & Social"
)

// Extended taxonomy
const (
	CategoryBankingFinance    Category = "Banking & Finance"
	CategoryInvestments       Category = "Investments & Trading"
	CategoryAlertsSecurity    Category = "Alerts & Security"
	CategoryShoppingOrders    Category = "Shopping & Orders"
	CategoryPersonalWork      Category = "Personal & Work"
	CategoryMarketingNews     Category = "Marketing & News"
	CategoryActionRequired    Category = "Action Required"
	CategoryReceiptsArchive   Category = "Receipts & Archive"
	CategoryInsuranceServices Category = "Insurance & Services"
	CategoryTravelTransport   Category = "Travel & Transport"
)

type categoryInfo struct {
	name  Category
	emoji string
}

var taxonomies = map[TaxonomyVariant][]categoryInfo{
	TaxonomyConsolidated: {
		{CategoryFinanceBills, "🏦"},
		{CategoryPurchasesReceipts, "🛒"},
		{CategoryServicesSubs, "✈️"},
		{CategorySecurityAlerts, "🔔"},
		{CategoryPromotionsMarketing, "📰"},
		{CategoryPersonalSocial, "👤"},
	},
	TaxonomyExtended: {
		{CategoryBankingFinance, "🏦"},
		{CategoryInvestments, "📈"},
		{CategoryAlertsSecurity, "🔔"},
		{CategoryShoppingOrders, "🛒"},
		{CategoryPersonalWork, "👤"},
		{CategoryMarketingNews, "📰"},
		{CategoryActionRequired, "🎯"},
		{CategoryReceiptsArchive, "📦"},
		{CategoryInsuranceServices, "🏥"},
		{CategoryTravelTransport, "✈️"},
	},
}

var fallbacks = map[TaxonomyVariant]Category{
	TaxonomyConsolidated: CategoryPersonalSocial,
	TaxonomyExtended:     CategoryPersonalWork,
}

// Taxonomy is the fixed, ordered category set selected at startup
type Taxonomy struct {
	variant    TaxonomyVariant
	categories []categoryInfo
	index      map[Category]int
	fallback   Category
}

// NewTaxonomy returns the taxonomy for a variant
func NewTaxonomy(variant TaxonomyVariant) (*Taxonomy, error) {
	infos, ok := taxonomies[variant]
	if !ok {
		return nil, fmt.Errorf("unknown taxonomy variant: %q", variant)
	}
	return newTaxonomy(variant, infos, fallbacks[variant]), nil
}

// CustomTaxonomy builds a taxonomy from an explicit category list.
// The first category is the fallback.
func CustomTaxonomy(variant TaxonomyVariant, categories ...Category) *Taxonomy {
	infos := make([]categoryInfo, len(categories))
	for i, c := range categories {
		infos[i] = categoryInfo{name: c}
	}
	var fallback Category
	if len(categories) > 0 {
		fallback = categories[0]
	}
	return newTaxonomy(variant, infos, fallback)
}

func newTaxonomy(variant TaxonomyVariant, infos []categoryInfo, fallback Category) *Taxonomy {
	index := make(map[Category]int, len(infos))
	for i, info := range infos {
		index[info.name] = i
	}
	return &Taxonomy{
		variant:    variant,
		categories: infos,
		index:      index,
		fallback:   fallback,
	}
}

// Variant returns the taxonomy variant
func (t *Taxonomy) Variant() TaxonomyVariant {
	return t.variant
}

// Categories returns the categories in taxonomy order
func (t *Taxonomy) Categories() []Category {
	out := make([]Category, len(t.categories))
	for i, info := range t.categories {
		out[i] = info.name
	}
	return out
}

// Contains reports whether c belongs to the taxonomy
func (t *Taxonomy) Contains(c Category) bool {
	_, ok := t.index[c]
	return ok
}

// Fallback is the category assigned when nothing produced a vote
func (t *Taxonomy) Fallback() Category {
	return t.fallback
}

// LabelName returns the mail label used for a category
func (t *Taxonomy) LabelName(c Category) string {
	i, ok := t.index[c]
	if !ok || t.categories[i].emoji == "" {
		return string(c)
	}
	return t.categories[i].emoji + " " + string(c)
}

// CategoryForLabel maps a label name back to its category
func (t *Taxonomy) CategoryForLabel(label string) (Category, bool) {
	for _, info := range t.categories {
		if t.LabelName(info.name) == label || string(info.name) == label {
			return info.name, true
		}
	}
	return "", false
}

// ParseCategory validates a category name against the taxonomy
func (t *Taxonomy) ParseCategory(name string) (Category, error) {
	c := Category(name)
	if !t.Contains(c) {
		return "", fmt.Errorf("category %q is not part of the %s taxonomy", name, t.variant)
	}
	return c, nil
}
