package model

import "strings"

// Category selects the provider chain for an index. It is resolved once when
// the configuration is loaded, not re-derived per fetch.
type Category string

const (
	CategoryDomestic    Category = "domestic"
	CategoryHongKong    Category = "hongkong"
	CategoryUS          Category = "us"
	CategoryCrossBorder Category = "crossborder"
)

// CrossBorderIndexName is the one index served by a two-provider fallback
// chain (official data API first, tracking-fund proxy second).
const CrossBorderIndexName = "中概互联"

// IndexDescriptor identifies one tracked index. Name is the unique display
// key; Code is the provider-routing symbol.
type IndexDescriptor struct {
	Name     string
	Code     string
	Group    string
	Category Category
}

// Classify maps an index to its provider category. The cross-border index is
// matched by name; everything else routes on the code prefix.
func Classify(name, code string) Category {
	if name == CrossBorderIndexName {
		return CategoryCrossBorder
	}
	if strings.HasPrefix(code, "hk") {
		return CategoryHongKong
	}
	if strings.HasPrefix(code, "gb.") {
		return CategoryUS
	}
	return CategoryDomestic
}
