// Package query defines the database-agnostic filter/sort/pagination
// contract and its compiler into SQL predicates over the document table's
// fixed columns and semi-structured payload columns.
package query

import (
	"encoding/json"
)

// Perspective selects which payload column a read or filter targets.
type Perspective string

const (
	PerspectiveDraft     Perspective = "draft"
	PerspectivePublished Perspective = "published"
)

// PayloadColumn returns the semi-structured column backing the perspective.
func (p Perspective) PayloadColumn() string {
	if p == PerspectivePublished {
		return "published_data"
	}

	return "draft_data"
}

// Valid reports whether the perspective is one of the known values.
func (p Perspective) Valid() bool {
	return p == PerspectiveDraft || p == PerspectivePublished
}

// Where is a recursive, field-keyed predicate tree. Each key maps to a flat
// equality value, an array (shorthand for "in"), or a FieldFilter. The keys
// "and" and "or" branch the tree with a slice of sub-trees. Multiple fields
// combine with AND unless wrapped in an explicit "or".
type Where map[string]any

// FieldFilter carries the typed operators applicable to one field. Multiple
// operators on one field combine with AND.
type FieldFilter struct {
	Equals           any     `json:"equals,omitempty"`
	NotEquals        any     `json:"not_equals,omitempty"`
	In               []any   `json:"in,omitempty"`
	NotIn            []any   `json:"not_in,omitempty"`
	Exists           *bool   `json:"exists,omitempty"`
	GreaterThan      any     `json:"greater_than,omitempty"`
	GreaterThanEqual any     `json:"greater_than_equal,omitempty"`
	LessThan         any     `json:"less_than,omitempty"`
	LessThanEqual    any     `json:"less_than_equal,omitempty"`
	Contains         *string `json:"contains,omitempty"`
	StartsWith       *string `json:"starts_with,omitempty"`
	EndsWith         *string `json:"ends_with,omitempty"`
	Like             *string `json:"like,omitempty"`
}

const (
	// DefaultLimit applies when FindOptions.Limit is zero.
	DefaultLimit = 50
	// MaxDepth caps reference-resolution fan-out.
	MaxDepth = 5
)

// FindOptions carries the query options for find/count operations.
type FindOptions struct {
	Where  Where       `json:"where,omitempty"`
	Limit  int         `json:"limit,omitempty"`
	Offset int         `json:"offset,omitempty"`
	Sort   []string    `json:"sort,omitempty"`
	Depth  int         `json:"depth,omitempty"`
	Persp  Perspective `json:"perspective,omitempty"`

	// OrganizationIDs overrides the organization scope. When empty, the
	// acting organization plus its direct children are queried.
	OrganizationIDs []string `json:"organization_ids,omitempty"`
}

// EffectiveLimit returns the page size, applying the default.
func (o FindOptions) EffectiveLimit() int {
	if o.Limit <= 0 {
		return DefaultLimit
	}

	return o.Limit
}

// Perspective returns the targeted perspective, defaulting to draft.
func (o FindOptions) Perspective() Perspective {
	if o.Persp.Valid() {
		return o.Persp
	}

	return PerspectiveDraft
}

// ClampedDepth returns the reference-resolution depth clamped to [0, MaxDepth].
func (o FindOptions) ClampedDepth() int {
	if o.Depth < 0 {
		return 0
	}

	if o.Depth > MaxDepth {
		return MaxDepth
	}

	return o.Depth
}

// FindResult is the paginated result of a find operation.
type FindResult struct {
	Docs        []map[string]any `json:"docs"`
	TotalDocs   int              `json:"totalDocs"`
	Page        int              `json:"page"`
	TotalPages  int              `json:"totalPages"`
	HasNextPage bool             `json:"hasNextPage"`
	HasPrevPage bool             `json:"hasPrevPage"`
}

// NewFindResult derives the pagination fields from offset, limit and total.
func NewFindResult(docs []map[string]any, totalDocs, limit, offset int) FindResult {
	if limit <= 0 {
		limit = DefaultLimit
	}

	totalPages := (totalDocs + limit - 1) / limit
	if totalPages == 0 {
		totalPages = 1
	}

	page := offset/limit + 1

	return FindResult{
		Docs:        docs,
		TotalDocs:   totalDocs,
		Page:        page,
		TotalPages:  totalPages,
		HasNextPage: offset+limit < totalDocs,
		HasPrevPage: offset > 0,
	}
}

// knownOperators is the set of operator keys a map-form filter may carry.
var knownOperators = map[string]bool{
	"equals": true, "not_equals": true, "in": true, "not_in": true,
	"exists": true, "greater_than": true, "greater_than_equal": true,
	"less_than": true, "less_than_equal": true, "contains": true,
	"starts_with": true, "ends_with": true, "like": true,
}

// asFieldFilter converts a decoded filter value into a FieldFilter, also
// reporting any unknown operator keys a map-form filter carried. JSON
// callers hand the tree over as map[string]any; typed callers pass
// FieldFilter directly.
func asFieldFilter(v any) (ff FieldFilter, unknown []string, ok bool) {
	switch t := v.(type) {
	case FieldFilter:
		return t, nil, true
	case *FieldFilter:
		if t == nil {
			return FieldFilter{}, nil, false
		}

		return *t, nil, true
	case map[string]any:
		for k := range t {
			if !knownOperators[k] {
				unknown = append(unknown, k)
			}
		}

		// A map without a single known operator is not a filter.
		if len(unknown) == len(t) {
			return FieldFilter{}, unknown, false
		}

		b, err := json.Marshal(t)
		if err != nil {
			return FieldFilter{}, unknown, false
		}

		if err := json.Unmarshal(b, &ff); err != nil {
			return FieldFilter{}, unknown, false
		}

		return ff, unknown, true
	default:
		return FieldFilter{}, nil, false
	}
}

func (f FieldFilter) hasOperator() bool {
	return f.Equals != nil || f.NotEquals != nil || len(f.In) > 0 || len(f.NotIn) > 0 ||
		f.Exists != nil || f.GreaterThan != nil || f.GreaterThanEqual != nil ||
		f.LessThan != nil || f.LessThanEqual != nil || f.Contains != nil ||
		f.StartsWith != nil || f.EndsWith != nil || f.Like != nil
}
