// Package validate implements the chainable field rule builder and the
// document-level validator that gates publishing.
package validate

import (
	"fmt"
	"math"
	"net/url"
	"regexp"

	"github.com/spf13/cast"

	"github.com/inkhub/inkhub/internal/pkg/xjson"
	"github.com/inkhub/inkhub/internal/pkg/xtime"
)

// Severity classifies a rule violation. Only SeverityError blocks publish.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Marker is one rule violation.
type Marker struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// FieldRef makes a relational constraint compare against a sibling field
// instead of a literal.
type FieldRef string

// checkFunc evaluates a constraint against a field value. data is the whole
// document, used to resolve sibling-field references.
type checkFunc func(value any, data map[string]any) (string, bool)

type constraint struct {
	name     string
	severity Severity
	check    checkFunc
	// customs may emit several markers at once.
	multi func(value any, data map[string]any) []Marker
}

// Rule is an immutable chain of constraints. Every builder method returns a
// new Rule; the receiver is never mutated, so rules can be shared freely.
type Rule struct {
	severity    Severity
	constraints []constraint
}

// NewRule starts an empty rule chain at error severity.
func NewRule() Rule {
	return Rule{severity: SeverityError}
}

func (r Rule) with(c constraint) Rule {
	next := r
	next.constraints = make([]constraint, len(r.constraints), len(r.constraints)+1)
	copy(next.constraints, r.constraints)
	next.constraints = append(next.constraints, c)

	return next
}

func (r Rule) add(name string, check checkFunc) Rule {
	return r.with(constraint{name: name, severity: r.severity, check: check})
}

// AsWarning makes subsequently added constraints warning severity.
func (r Rule) AsWarning() Rule {
	next := r
	next.severity = SeverityWarning

	return next
}

// AsInfo makes subsequently added constraints info severity.
func (r Rule) AsInfo() Rule {
	next := r
	next.severity = SeverityInfo

	return next
}

// AsError makes subsequently added constraints error severity (the default).
func (r Rule) AsError() Rule {
	next := r
	next.severity = SeverityError

	return next
}

// Empty reports whether the chain has no constraints.
func (r Rule) Empty() bool {
	return len(r.constraints) == 0
}

// Required fails on nil, empty string, and empty arrays.
func (r Rule) Required() Rule {
	return r.add("required", func(value any, _ map[string]any) (string, bool) {
		if isEmpty(value) {
			return "value is required", false
		}

		return "", true
	})
}

// Min constrains the minimum: string length, numeric magnitude, or array
// cardinality, depending on the value's runtime type.
func (r Rule) Min(min float64) Rule {
	return r.add("min", func(value any, _ map[string]any) (string, bool) {
		size, kind, ok := magnitude(value)
		if !ok {
			return "", true
		}

		if size < min {
			return fmt.Sprintf("%s %v is less than minimum %v", kind, trimFloat(size), trimFloat(min)), false
		}

		return "", true
	})
}

// Max constrains the maximum, symmetric to Min.
func (r Rule) Max(max float64) Rule {
	return r.add("max", func(value any, _ map[string]any) (string, bool) {
		size, kind, ok := magnitude(value)
		if !ok {
			return "", true
		}

		if size > max {
			return fmt.Sprintf("%s %v exceeds maximum %v", kind, trimFloat(size), trimFloat(max)), false
		}

		return "", true
	})
}

// Length requires an exact string length or array cardinality.
func (r Rule) Length(n int) Rule {
	return r.add("length", func(value any, _ map[string]any) (string, bool) {
		switch v := value.(type) {
		case string:
			if len([]rune(v)) != n {
				return fmt.Sprintf("length %d is not exactly %d", len([]rune(v)), n), false
			}
		case []any:
			if len(v) != n {
				return fmt.Sprintf("length %d is not exactly %d", len(v), n), false
			}
		}

		return "", true
	})
}

// Unique requires array items to be structurally unique, ignoring the
// synthetic per-item "id" key.
func (r Rule) Unique() Rule {
	return r.add("unique", func(value any, _ map[string]any) (string, bool) {
		items, ok := value.([]any)
		if !ok {
			return "", true
		}

		seen := make(map[string]bool, len(items))

		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				stripped := make(map[string]any, len(m))
				for k, v := range m {
					if k != "id" {
						stripped[k] = v
					}
				}

				item = stripped
			}

			b, err := xjson.Canonical(item)
			if err != nil {
				continue
			}

			if seen[string(b)] {
				return "array items are not unique", false
			}

			seen[string(b)] = true
		}

		return "", true
	})
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Email requires a well-formed email address.
func (r Rule) Email() Rule {
	return r.add("email", func(value any, _ map[string]any) (string, bool) {
		s, ok := value.(string)
		if !ok {
			return "", true
		}

		if !emailPattern.MatchString(s) {
			return fmt.Sprintf("%q is not a valid email address", s), false
		}

		return "", true
	})
}

// URI requires an absolute URI with a scheme.
func (r Rule) URI() Rule {
	return r.add("uri", func(value any, _ map[string]any) (string, bool) {
		s, ok := value.(string)
		if !ok {
			return "", true
		}

		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" {
			return fmt.Sprintf("%q is not a valid URI", s), false
		}

		return "", true
	})
}

// Regex requires the string value to match pattern.
func (r Rule) Regex(pattern string) Rule {
	re, compileErr := regexp.Compile(pattern)

	return r.add("regex", func(value any, _ map[string]any) (string, bool) {
		s, ok := value.(string)
		if !ok {
			return "", true
		}

		if compileErr != nil {
			return fmt.Sprintf("invalid pattern %q", pattern), false
		}

		if !re.MatchString(s) {
			return fmt.Sprintf("%q does not match pattern %q", s, pattern), false
		}

		return "", true
	})
}

// Positive requires a numeric value greater than zero.
func (r Rule) Positive() Rule {
	return r.add("positive", func(value any, _ map[string]any) (string, bool) {
		n, err := cast.ToFloat64E(value)
		if err != nil {
			return "", true
		}

		if n <= 0 {
			return fmt.Sprintf("%v is not positive", trimFloat(n)), false
		}

		return "", true
	})
}

// Negative requires a numeric value less than zero.
func (r Rule) Negative() Rule {
	return r.add("negative", func(value any, _ map[string]any) (string, bool) {
		n, err := cast.ToFloat64E(value)
		if err != nil {
			return "", true
		}

		if n >= 0 {
			return fmt.Sprintf("%v is not negative", trimFloat(n)), false
		}

		return "", true
	})
}

// Integer requires a whole numeric value.
func (r Rule) Integer() Rule {
	return r.add("integer", func(value any, _ map[string]any) (string, bool) {
		n, err := cast.ToFloat64E(value)
		if err != nil {
			return "", true
		}

		if n != math.Trunc(n) {
			return fmt.Sprintf("%v is not an integer", n), false
		}

		return "", true
	})
}

// Equals compares for equality against a literal or a sibling field (FieldRef).
func (r Rule) Equals(operand any) Rule {
	return r.compare("equals", operand, func(c int) bool { return c == 0 })
}

// NotEquals compares for inequality against a literal or a sibling field (FieldRef).
func (r Rule) NotEquals(operand any) Rule {
	return r.compare("not_equals", operand, func(c int) bool { return c != 0 })
}

// GreaterThan compares against a literal or a sibling field (FieldRef).
func (r Rule) GreaterThan(operand any) Rule {
	return r.compare("greater_than", operand, func(c int) bool { return c > 0 })
}

// GreaterThanEqual compares against a literal or a sibling field (FieldRef).
func (r Rule) GreaterThanEqual(operand any) Rule {
	return r.compare("greater_than_equal", operand, func(c int) bool { return c >= 0 })
}

// LessThan compares against a literal or a sibling field (FieldRef).
func (r Rule) LessThan(operand any) Rule {
	return r.compare("less_than", operand, func(c int) bool { return c < 0 })
}

// LessThanEqual compares against a literal or a sibling field (FieldRef).
func (r Rule) LessThanEqual(operand any) Rule {
	return r.compare("less_than_equal", operand, func(c int) bool { return c <= 0 })
}

func (r Rule) compare(name string, operand any, accept func(int) bool) Rule {
	return r.add(name, func(value any, data map[string]any) (string, bool) {
		target := operand
		if ref, ok := operand.(FieldRef); ok {
			target = data[string(ref)]
			if target == nil {
				return "", true
			}
		}

		c, ok := compareValues(value, target)
		if !ok {
			return "", true
		}

		if !accept(c) {
			return fmt.Sprintf("%v does not satisfy %s %v", value, name, target), false
		}

		return "", true
	})
}

// DateFormat requires the string value to parse under layout with a strict
// round trip; calendar-invalid values such as day 31 of a 30-day month fail.
func (r Rule) DateFormat(layout string) Rule {
	return r.add("date_format", func(value any, _ map[string]any) (string, bool) {
		s, ok := value.(string)
		if !ok {
			return "", true
		}

		if _, ok := xtime.ParseStrict(layout, s); !ok {
			return fmt.Sprintf("%q is not a valid date in format %q", s, layout), false
		}

		return "", true
	})
}

// Custom adds an arbitrary predicate. The function may return a bool, an
// error-message string, or a []Marker. A panicking predicate converts into a
// generic field error instead of aborting validation of remaining fields.
func (r Rule) Custom(fn func(value any, data map[string]any) any) Rule {
	severity := r.severity

	return r.with(constraint{
		name:     "custom",
		severity: severity,
		multi: func(value any, data map[string]any) (markers []Marker) {
			defer func() {
				if rec := recover(); rec != nil {
					markers = []Marker{{Message: "validation rule failed", Severity: severity}}
				}
			}()

			switch out := fn(value, data).(type) {
			case nil:
				return nil
			case bool:
				if !out {
					return []Marker{{Message: "value is invalid", Severity: severity}}
				}
			case string:
				if out != "" {
					return []Marker{{Message: out, Severity: severity}}
				}
			case []Marker:
				return out
			default:
				return []Marker{{Message: "validation rule failed", Severity: severity}}
			}

			return nil
		},
	})
}

// Evaluate runs the chain against a value. Constraints other than required
// pass on absent values.
func (r Rule) Evaluate(value any, data map[string]any) []Marker {
	var markers []Marker

	for _, c := range r.constraints {
		if c.name != "required" && isEmpty(value) {
			continue
		}

		if c.multi != nil {
			markers = append(markers, c.multi(value, data)...)
			continue
		}

		if msg, ok := c.check(value, data); !ok {
			markers = append(markers, Marker{Message: msg, Severity: c.severity})
		}
	}

	return markers
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

// magnitude returns the comparable size of a value: rune length for strings,
// the value itself for numbers, cardinality for arrays.
func magnitude(value any) (float64, string, bool) {
	switch v := value.(type) {
	case string:
		return float64(len([]rune(v))), "length", true
	case []any:
		return float64(len(v)), "count", true
	default:
		n, err := cast.ToFloat64E(value)
		if err != nil {
			return 0, "", false
		}

		return n, "value", true
	}
}

// compareValues orders two values numerically when both coerce to numbers,
// falling back to string ordering.
func compareValues(a, b any) (int, bool) {
	an, aerr := cast.ToFloat64E(a)
	bn, berr := cast.ToFloat64E(b)

	if aerr == nil && berr == nil {
		switch {
		case an < bn:
			return -1, true
		case an > bn:
			return 1, true
		default:
			return 0, true
		}
	}

	as, aerr := cast.ToStringE(a)
	bs, berr := cast.ToStringE(b)

	if aerr != nil || berr != nil {
		return 0, false
	}

	switch {
	case as < bs:
		return -1, true
	case as > bs:
		return 1, true
	default:
		return 0, true
	}
}

func trimFloat(f float64) any {
	if f == math.Trunc(f) {
		return int64(f)
	}

	return f
}
