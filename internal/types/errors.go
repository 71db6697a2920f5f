package types

import "errors"

// Sentinel errors for rule validation and storage.
var (
	// ErrMissingRoot indicates a rule has no root condition group.
	ErrMissingRoot = errors.New("rule has no root condition")

	// ErrMalformedNode indicates a node whose kind does not match its payload.
	ErrMalformedNode = errors.New("node kind does not match its payload")

	// ErrEmptyID indicates a node, action or field without an identifier.
	ErrEmptyID = errors.New("identifier is empty")

	// ErrDuplicateID indicates the same identifier appears twice in one rule.
	ErrDuplicateID = errors.New("identifier appears more than once")

	// ErrTreeTooDeep indicates group nesting beyond MaxTreeDepth.
	ErrTreeTooDeep = errors.New("condition tree exceeds maximum depth")

	// ErrInvalidLogicalOperator indicates a group operator other than AND/OR.
	ErrInvalidLogicalOperator = errors.New("invalid logical operator")

	// ErrUnknownConditionType indicates an unregistered condition type.
	ErrUnknownConditionType = errors.New("unknown condition type")

	// ErrInvalidOperator indicates an operator not registered for the condition type.
	ErrInvalidOperator = errors.New("invalid operator for condition type")

	// ErrEmptyField indicates a leaf that names no expense field.
	ErrEmptyField = errors.New("condition field is empty")

	// ErrMissingSecondary indicates a between condition without an upper bound.
	ErrMissingSecondary = errors.New("between condition requires a secondary value")

	// ErrListNotAllowed indicates a list value where a scalar is required.
	ErrListNotAllowed = errors.New("list value not allowed for operator")

	// ErrTooManyInValues indicates an in/notIn list exceeds MaxInValues.
	ErrTooManyInValues = errors.New("in operator has too many values")

	// ErrInvalidNumber indicates an amount value that is not a number.
	ErrInvalidNumber = errors.New("value is not a number")

	// ErrInvalidDate indicates a date value that cannot be parsed.
	ErrInvalidDate = errors.New("value is not a date")

	// ErrInvalidBoolean indicates an alcoholMention value that is not a boolean.
	ErrInvalidBoolean = errors.New("value is not a boolean")

	// ErrUnknownActionType indicates an unregistered action type.
	ErrUnknownActionType = errors.New("unknown action type")

	// ErrMissingFields indicates requireAdditionalInfo without any fields.
	ErrMissingFields = errors.New("additional info action requires fields")

	// ErrUnknownFieldType indicates an unregistered action field type.
	ErrUnknownFieldType = errors.New("unknown field type")

	// ErrEmptyFieldName indicates an action field without a machine name.
	ErrEmptyFieldName = errors.New("action field name is empty")

	// ErrDuplicateFieldName indicates two fields of one action share a name.
	ErrDuplicateFieldName = errors.New("action field name appears more than once")

	// ErrMissingOptions indicates a select/multiselect field without choices.
	ErrMissingOptions = errors.New("select field requires options")

	// ErrNoCountries indicates a rule with an empty country list.
	ErrNoCountries = errors.New("rule has no countries")

	// ErrMixedCountries indicates the All sentinel alongside explicit countries.
	ErrMixedCountries = errors.New("All cannot be combined with explicit countries")

	// ErrEmptyName indicates a rule without a name.
	ErrEmptyName = errors.New("rule name is empty")

	// ErrInvalidRule indicates an active rule failed validation.
	ErrInvalidRule = errors.New("rule failed validation")

	// ErrRuleNotFound indicates no rule exists with the requested ID.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrFieldNotFound indicates an expense field path could not be resolved.
	ErrFieldNotFound = errors.New("field not found")

	// ErrPathTooDeep indicates a field path exceeds MaxPathDepth.
	ErrPathTooDeep = errors.New("field path exceeds maximum depth")

	// ErrCoercionFailed indicates an expense value could not be coerced.
	ErrCoercionFailed = errors.New("type coercion failed")
)
