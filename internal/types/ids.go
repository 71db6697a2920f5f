package types

import (
	"time"

	"github.com/google/uuid"
)

// RuleID identifies a rule.
type RuleID string

// NewRuleID generates a UUIDv7 rule identifier. Ids sort in creation order.
func NewRuleID() RuleID {
	return RuleID(uuid.Must(uuid.NewV7()).String())
}

// NewNodeID generates an identifier for a condition, group, action or
// action field.
func NewNodeID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ParseRuleID validates and converts a string to RuleID.
func ParseRuleID(s string) (RuleID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return RuleID(s), nil
}

// RuleIDTime extracts the creation time embedded in a UUIDv7 rule ID.
// Returns zero time for ids that are not UUIDs.
func RuleIDTime(id RuleID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
