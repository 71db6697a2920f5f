package types

// ConditionType selects the comparison family a leaf uses.
type ConditionType string

const (
	ConditionAmount         ConditionType = "amount"
	ConditionDate           ConditionType = "date"
	ConditionKeyword        ConditionType = "keyword"
	ConditionCountry        ConditionType = "country"
	ConditionCategory       ConditionType = "category"
	ConditionMerchant       ConditionType = "merchant"
	ConditionAlcoholMention ConditionType = "alcoholMention"
	ConditionCustom         ConditionType = "custom"
)

// Operator is a leaf comparison operator. Legal values depend on the
// condition type; see OperatorsFor.
type Operator string

const (
	OpEq             Operator = "="
	OpNeq            Operator = "!="
	OpGt             Operator = ">"
	OpLt             Operator = "<"
	OpGte            Operator = ">="
	OpLte            Operator = "<="
	OpContains       Operator = "contains"
	OpDoesNotContain Operator = "doesNotContain"
	OpStartsWith     Operator = "startsWith"
	OpEndsWith       Operator = "endsWith"
	OpBetween        Operator = "between"
	OpIn             Operator = "in"
	OpNotIn          Operator = "notIn"
)

// LogicalOperator combines the children of a group.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "AND"
	LogicalOr  LogicalOperator = "OR"
)

// Valid reports whether op is AND or OR.
func (op LogicalOperator) Valid() bool {
	return op == LogicalAnd || op == LogicalOr
}

// ActionType is the behavior a rule triggers when it matches.
type ActionType string

const (
	ActionRequireApproval       ActionType = "requireApproval"
	ActionRequireDocument       ActionType = "requireDocument"
	ActionFlagForReview         ActionType = "flagForReview"
	ActionShowMessage           ActionType = "showMessage"
	ActionRequireAdditionalInfo ActionType = "requireAdditionalInfo"
	ActionPreventSubmission     ActionType = "preventSubmission"
	ActionAutoApprove           ActionType = "autoApprove"
)

// FieldType is the input type of an additional-info field.
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeNumber      FieldType = "number"
	FieldTypeDate        FieldType = "date"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiselect FieldType = "multiselect"
	FieldTypeCheckbox    FieldType = "checkbox"
	FieldTypeAttachment  FieldType = "attachment"
)

// Option is a registered value with its display label.
type Option[T ~string] struct {
	Value T
	Label string
}

var conditionTypes = []Option[ConditionType]{
	{ConditionAmount, "Amount"},
	{ConditionDate, "Date"},
	{ConditionKeyword, "Keyword"},
	{ConditionCountry, "Country"},
	{ConditionCategory, "Category"},
	{ConditionMerchant, "Merchant"},
	{ConditionAlcoholMention, "Alcohol Mention"},
	{ConditionCustom, "Custom Field"},
}

// Operator labels differ per condition type ("=" is "Equals" for amounts
// but "Is" for countries), so the registry is keyed by type.
var operatorsByType = map[ConditionType][]Option[Operator]{
	ConditionAmount: {
		{OpEq, "Equals"},
		{OpNeq, "Not Equals"},
		{OpGt, "Greater Than"},
		{OpLt, "Less Than"},
		{OpGte, "Greater Than or Equal"},
		{OpLte, "Less Than or Equal"},
		{OpBetween, "Between"},
	},
	ConditionDate: {
		{OpEq, "On Date"},
		{OpNeq, "Not On Date"},
		{OpGt, "After"},
		{OpLt, "Before"},
		{OpBetween, "Between"},
	},
	ConditionKeyword: {
		{OpContains, "Contains"},
		{OpDoesNotContain, "Does Not Contain"},
		{OpStartsWith, "Starts With"},
		{OpEndsWith, "Ends With"},
	},
	ConditionCountry: {
		{OpEq, "Is"},
		{OpNeq, "Is Not"},
		{OpIn, "In List"},
		{OpNotIn, "Not In List"},
	},
	ConditionCategory: {
		{OpEq, "Is"},
		{OpNeq, "Is Not"},
		{OpIn, "In List"},
		{OpNotIn, "Not In List"},
	},
	ConditionMerchant: {
		{OpEq, "Is"},
		{OpNeq, "Is Not"},
		{OpContains, "Contains"},
		{OpDoesNotContain, "Does Not Contain"},
	},
	ConditionAlcoholMention: {
		{OpEq, "Is Detected"},
	},
	ConditionCustom: {
		{OpEq, "Equals"},
		{OpNeq, "Not Equals"},
		{OpContains, "Contains"},
		{OpDoesNotContain, "Does Not Contain"},
	},
}

var actionTypes = []Option[ActionType]{
	{ActionRequireApproval, "Require Approval"},
	{ActionRequireDocument, "Require Document"},
	{ActionFlagForReview, "Flag for Review"},
	{ActionShowMessage, "Show Message"},
	{ActionRequireAdditionalInfo, "Require Additional Info"},
	{ActionPreventSubmission, "Prevent Submission"},
	{ActionAutoApprove, "Auto Approve"},
}

var fieldTypes = []Option[FieldType]{
	{FieldTypeText, "Text Field"},
	{FieldTypeNumber, "Number Field"},
	{FieldTypeDate, "Date Field"},
	{FieldTypeSelect, "Dropdown Select"},
	{FieldTypeMultiselect, "Multi-Select"},
	{FieldTypeCheckbox, "Checkbox"},
	{FieldTypeAttachment, "File Attachment"},
}

// ConditionTypes returns the registered condition types in display order.
func ConditionTypes() []Option[ConditionType] {
	return append([]Option[ConditionType](nil), conditionTypes...)
}

// OperatorsFor returns the operators registered for ct in display order.
// Returns nil for unknown condition types.
func OperatorsFor(ct ConditionType) []Option[Operator] {
	ops, ok := operatorsByType[ct]
	if !ok {
		return nil
	}
	return append([]Option[Operator](nil), ops...)
}

// ActionTypes returns the registered action types in display order.
func ActionTypes() []Option[ActionType] {
	return append([]Option[ActionType](nil), actionTypes...)
}

// FieldTypes returns the registered additional-info field types.
func FieldTypes() []Option[FieldType] {
	return append([]Option[FieldType](nil), fieldTypes...)
}

// Valid reports whether ct is a registered condition type.
func (ct ConditionType) Valid() bool {
	_, ok := operatorsByType[ct]
	return ok
}

// Label returns the display label, or the raw value if unregistered.
func (ct ConditionType) Label() string {
	return labelOf(conditionTypes, ct)
}

// Allows reports whether op is registered for ct.
func (ct ConditionType) Allows(op Operator) bool {
	for _, o := range operatorsByType[ct] {
		if o.Value == op {
			return true
		}
	}
	return false
}

// OperatorLabel returns the label of op under ct, or the raw operator
// when the pair is not registered.
func (ct ConditionType) OperatorLabel(op Operator) string {
	return labelOf(operatorsByType[ct], op)
}

// Valid reports whether at is a registered action type.
func (at ActionType) Valid() bool {
	return containsOption(actionTypes, at)
}

// Label returns the display label, or the raw value if unregistered.
func (at ActionType) Label() string {
	return labelOf(actionTypes, at)
}

// Valid reports whether ft is a registered field type.
func (ft FieldType) Valid() bool {
	return containsOption(fieldTypes, ft)
}

// NeedsOptions reports whether the field type requires a choice list.
func (ft FieldType) NeedsOptions() bool {
	return ft == FieldTypeSelect || ft == FieldTypeMultiselect
}

func labelOf[T ~string](opts []Option[T], v T) string {
	for _, o := range opts {
		if o.Value == v {
			return o.Label
		}
	}
	return string(v)
}

func containsOption[T ~string](opts []Option[T], v T) bool {
	for _, o := range opts {
		if o.Value == v {
			return true
		}
	}
	return false
}
