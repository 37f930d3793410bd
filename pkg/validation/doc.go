// Package validation implements the transition validation gate.
//
// Every transition in a lifecycle may carry a validation mode describing the
// approval required before it fires:
//
//	NONE                 the transition fires freely
//	KEYWORD["APPROVED"]  a human must type the keyword
//	PULL_REQUEST         a pull request must be merged
//
// Parse and Format convert between the textual encoding and domain.ValidationMode.
// Config persists one mode per transition. A missing or malformed entry never
// blocks harder than NONE; only an explicit KEYWORD or PULL_REQUEST adds friction.
package validation
