package waiver

import "errors"

// Sentinel error kinds. Services wrap these with fmt.Errorf("%w") and
// handlers map them to HTTP status codes via errors.Is.
var (
	// ErrNotFound signals an unknown card or fee record.
	ErrNotFound = errors.New("not found")

	// ErrValidation signals invalid top-level input (e.g. negative base fee).
	// Fatal for the whole decision.
	ErrValidation = errors.New("validation failed")

	// ErrConflict signals a concurrent write to the same (card, fee year)
	// record. The caller may retry with a fresh read-decide-write cycle.
	ErrConflict = errors.New("concurrent fee record write conflict")

	// ErrRuleConfig signals a rule missing a required field for its
	// condition type. Isolated to that rule: it evaluates as not satisfied
	// and the remaining rules continue.
	ErrRuleConfig = errors.New("rule configuration invalid")
)
