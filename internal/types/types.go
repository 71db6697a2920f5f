// Package types provides the domain model shared across the rule engine.
//
// Condition trees, actions and rules are plain values. Nothing in this
// package mutates a tree in place; the copy-on-write operations live in
// internal/rules and rebuild only the spine above a changed node.
//
// Serialization: every type carries json and yaml tags so the same value
// round-trips through the SQL store (JSON columns) and rule documents
// (YAML or JSON files) without separate DTOs.
package types

// Expense is the candidate record a rule is evaluated against.
// Keys are field names (amount, date, category, country, merchant,
// description, alcoholMention, ...); values are primitives or nested maps
// for custom fields. Supplied by the expense-data layer.
type Expense map[string]any

// Well-known expense fields.
const (
	FieldAmount         = "amount"
	FieldDate           = "date"
	FieldCategory       = "category"
	FieldCountry        = "country"
	FieldMerchant       = "merchant"
	FieldDescription    = "description"
	FieldAlcoholMention = "alcoholMention"
)

// AllCountries is the sentinel country meaning a rule is unrestricted.
const AllCountries = "All"

// Resource limits enforced by validation and field resolution.
const (
	// MaxTreeDepth bounds group nesting so recursive walks stay shallow.
	// 32 levels is far beyond anything an editing surface produces.
	MaxTreeDepth = 32

	// MaxInValues limits in/notIn lists to keep membership tests linear and small.
	MaxInValues = 64

	// MaxPathDepth bounds dotted custom-field paths.
	MaxPathDepth = 16
)
