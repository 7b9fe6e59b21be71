package shared

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidStatus indicates an entry action outside its status machine.
	ErrInvalidStatus = errors.New("accounting: invalid entry status transition")
	// ErrMappingNotFound indicates account mapping missing for a document type role.
	ErrMappingNotFound = errors.New("accounting: account mapping not found")
	// ErrInvalidPeriod indicates no open period covers the entry date.
	ErrInvalidPeriod = errors.New("accounting: period is not open")
	// ErrFieldsUnverified indicates required fields lack verification or override.
	ErrFieldsUnverified = errors.New("accounting: required fields not verified")
	// ErrEntryNotFound indicates a missing proposed entry.
	ErrEntryNotFound = errors.New("accounting: proposed entry not found")
)

// Rule names reported by entry validation.
const (
	RuleUnbalanced      = "unbalanced"
	RuleUnknownAccount  = "unknown-account"
	RuleInactiveAccount = "inactive-account"
	RuleClosedPeriod    = "closed-period"
	RuleNoPeriod        = "no-period"
	RuleMalformedLine   = "malformed-line"
	RuleTooFewLines     = "too-few-lines"
)

// ValidationError aggregates every violated rule so a reviewer can fix the
// whole entry in one pass instead of replaying validation rule by rule.
type ValidationError struct {
	Rules []string
}

func (e *ValidationError) Error() string {
	return "accounting: entry validation failed: " + strings.Join(e.Rules, "; ")
}

// AsValidation extracts a ValidationError if err carries one.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
