package store

import (
	"fmt"
	"regexp"

	"entgo.io/ent/dialect"
	"github.com/google/uuid"
)

// Scope is the tenant scope of one adapter call. OrganizationIDs carries the
// acting organization first, followed by its hierarchy expansion. Bypass
// disables tenant filtering entirely and is only reachable through a system
// principal.
type Scope struct {
	OrganizationIDs []string
	ActorID         string
	ActorRole       string
	Bypass          bool
}

// Primary returns the acting organization ID.
func (s Scope) Primary() string {
	if len(s.OrganizationIDs) == 0 {
		return ""
	}

	return s.OrganizationIDs[0]
}

// IsolationError marks a malformed identifier headed for the
// context-setting statement. It is a programmer error, rejected before any
// backend call.
type IsolationError struct {
	Value string
}

func (e *IsolationError) Error() string {
	return fmt.Sprintf("store: malformed isolation identifier %q", e.Value)
}

// identPattern admits UUIDs and short slug-style identifiers. The SET
// statement cannot be parameterized, so anything outside this set is
// rejected up front.
var identPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateIdentifier guards values interpolated into isolation-setting
// statements.
func ValidateIdentifier(v string) error {
	if uuid.Validate(v) == nil {
		return nil
	}

	if identPattern.MatchString(v) {
		return nil
	}

	return &IsolationError{Value: v}
}

// isolationStatements builds the transaction-local statements establishing
// the isolation context. SET LOCAL is reverted automatically at transaction
// end, so pooled connections never carry stale context. Only Postgres has
// session state; other dialects rely solely on the compiled scope
// predicates.
func isolationStatements(dialectName string, scope Scope) ([]string, error) {
	if dialectName != dialect.Postgres {
		return nil, nil
	}

	if scope.Bypass {
		return []string{`SET LOCAL inkhub.bypass = 'on'`}, nil
	}

	org := scope.Primary()
	if org == "" {
		return nil, &IsolationError{Value: ""}
	}

	if err := ValidateIdentifier(org); err != nil {
		return nil, err
	}

	stmts := []string{fmt.Sprintf(`SET LOCAL inkhub.organization_id = '%s'`, org)}

	if scope.ActorID != "" {
		if err := ValidateIdentifier(scope.ActorID); err != nil {
			return nil, err
		}

		stmts = append(stmts, fmt.Sprintf(`SET LOCAL inkhub.user_id = '%s'`, scope.ActorID))
	}

	if scope.ActorRole != "" {
		if err := ValidateIdentifier(scope.ActorRole); err != nil {
			return nil, err
		}

		stmts = append(stmts, fmt.Sprintf(`SET LOCAL inkhub.user_role = '%s'`, scope.ActorRole))
	}

	return stmts, nil
}

// validateScope rejects malformed scopes on every dialect, not just the one
// with session variables.
func validateScope(scope Scope) error {
	if scope.Bypass {
		return nil
	}

	if len(scope.OrganizationIDs) == 0 {
		return &IsolationError{Value: ""}
	}

	for _, id := range scope.OrganizationIDs {
		if err := ValidateIdentifier(id); err != nil {
			return err
		}
	}

	return nil
}
