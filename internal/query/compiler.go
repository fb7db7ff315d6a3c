package query

import (
	"context"
	"regexp"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/sqljson"

	"github.com/inkhub/inkhub/internal/log"
	"github.com/inkhub/inkhub/internal/pkg/xjson"
)

// Columns describes how filter keys resolve onto the document table. Keys
// present in Fixed compile to direct column predicates; every other key is
// treated as a dot-path into the perspective-selected payload column.
type Columns struct {
	Fixed map[string]string
}

// DocumentColumns returns the fixed-column mapping of the documents table.
func DocumentColumns() Columns {
	return Columns{Fixed: map[string]string{
		"id":              "id",
		"organization_id": "organization_id",
		"type":            "type",
		"status":          "status",
		"created_by":      "created_by",
		"updated_by":      "updated_by",
		"created_at":      "created_at",
		"updated_at":      "updated_at",
		"published_at":    "published_at",
		"published_hash":  "published_hash",
	}}
}

// pathSegment restricts payload path segments; anything else is dropped as
// unresolvable rather than interpolated.
var pathSegment = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Compile translates a Where tree into one SQL predicate. Unknown operators
// and unresolvable fields compile to an always-true predicate and are logged,
// never surfaced as query errors.
func Compile(ctx context.Context, where Where, cols Columns, persp Perspective) *entsql.Predicate {
	preds := compileTree(ctx, where, cols, persp)
	if len(preds) == 0 {
		return matchAll()
	}

	if len(preds) == 1 {
		return preds[0]
	}

	return entsql.And(preds...)
}

func compileTree(ctx context.Context, where Where, cols Columns, persp Perspective) []*entsql.Predicate {
	var preds []*entsql.Predicate

	// Deterministic compilation order keeps generated SQL stable.
	for _, key := range xjson.SortedKeys(where) {
		value := where[key]

		switch strings.ToLower(key) {
		case "and":
			children := compileBranch(ctx, value, cols, persp)
			if len(children) > 0 {
				preds = append(preds, entsql.And(children...))
			}
		case "or":
			children := compileBranch(ctx, value, cols, persp)
			if len(children) > 0 {
				preds = append(preds, entsql.Or(children...))
			}
		default:
			preds = append(preds, compileField(ctx, key, value, cols, persp)...)
		}
	}

	return preds
}

// compileBranch compiles the sub-trees of an and/or branch.
func compileBranch(ctx context.Context, value any, cols Columns, persp Perspective) []*entsql.Predicate {
	var children []*entsql.Predicate

	appendTree := func(w Where) {
		sub := compileTree(ctx, w, cols, persp)
		if len(sub) == 1 {
			children = append(children, sub[0])
		} else if len(sub) > 1 {
			children = append(children, entsql.And(sub...))
		}
	}

	switch branches := value.(type) {
	case []Where:
		for _, w := range branches {
			appendTree(w)
		}
	case []map[string]any:
		for _, w := range branches {
			appendTree(Where(w))
		}
	case []any:
		for _, raw := range branches {
			if w, ok := raw.(map[string]any); ok {
				appendTree(Where(w))
			} else if w, ok := raw.(Where); ok {
				appendTree(w)
			} else {
				log.Warn(ctx, "query: ignoring non-object branch in and/or", log.Any("value", raw))
			}
		}
	default:
		log.Warn(ctx, "query: ignoring malformed and/or branch", log.Any("value", value))
	}

	return children
}

// compileField compiles the predicates for one field key. A scalar value is
// shorthand for equals; a bare array is shorthand for in.
func compileField(ctx context.Context, key string, value any, cols Columns, persp Perspective) []*entsql.Predicate {
	ff, unknown, ok := asFieldFilter(value)
	for _, op := range unknown {
		log.Warn(ctx, "query: ignoring unknown operator",
			log.String("field", key), log.String("operator", op))
	}

	if !ok {
		switch v := value.(type) {
		case []any:
			ff = FieldFilter{In: v}
		case nil:
			exists := false
			ff = FieldFilter{Exists: &exists}
		case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			ff = FieldFilter{Equals: v}
		default:
			log.Warn(ctx, "query: ignoring filter with unsupported value",
				log.String("field", key), log.Any("value", value))

			return []*entsql.Predicate{matchAll()}
		}
	}

	if col, fixed := cols.Fixed[key]; fixed {
		return fixedPredicates(col, ff)
	}

	path, valid := splitPath(key)
	if !valid {
		log.Warn(ctx, "query: ignoring unresolvable filter field", log.String("field", key))
		return []*entsql.Predicate{matchAll()}
	}

	return pathPredicates(persp.PayloadColumn(), path, ff)
}

func splitPath(key string) ([]string, bool) {
	parts := strings.Split(key, ".")
	for _, p := range parts {
		if !pathSegment.MatchString(p) {
			return nil, false
		}
	}

	return parts, true
}

func fixedPredicates(col string, ff FieldFilter) []*entsql.Predicate {
	var preds []*entsql.Predicate

	if ff.Equals != nil {
		preds = append(preds, entsql.EQ(col, ff.Equals))
	}

	if ff.NotEquals != nil {
		preds = append(preds, entsql.NEQ(col, ff.NotEquals))
	}

	if len(ff.In) > 0 {
		preds = append(preds, entsql.In(col, ff.In...))
	}

	if len(ff.NotIn) > 0 {
		preds = append(preds, entsql.NotIn(col, ff.NotIn...))
	}

	if ff.Exists != nil {
		if *ff.Exists {
			preds = append(preds, entsql.NotNull(col))
		} else {
			preds = append(preds, entsql.IsNull(col))
		}
	}

	if ff.GreaterThan != nil {
		preds = append(preds, entsql.GT(col, ff.GreaterThan))
	}

	if ff.GreaterThanEqual != nil {
		preds = append(preds, entsql.GTE(col, ff.GreaterThanEqual))
	}

	if ff.LessThan != nil {
		preds = append(preds, entsql.LT(col, ff.LessThan))
	}

	if ff.LessThanEqual != nil {
		preds = append(preds, entsql.LTE(col, ff.LessThanEqual))
	}

	if ff.Contains != nil {
		preds = append(preds, entsql.ContainsFold(col, *ff.Contains))
	}

	if ff.StartsWith != nil {
		preds = append(preds, foldAffix(columnExpr(col), *ff.StartsWith, false))
	}

	if ff.EndsWith != nil {
		preds = append(preds, foldAffix(columnExpr(col), *ff.EndsWith, true))
	}

	if ff.Like != nil {
		preds = append(preds, entsql.Like(col, *ff.Like))
	}

	if len(preds) == 0 {
		preds = append(preds, matchAll())
	}

	return preds
}

func pathPredicates(col string, path []string, ff FieldFilter) []*entsql.Predicate {
	var preds []*entsql.Predicate

	opt := sqljson.Path(path...)

	if ff.Equals != nil {
		preds = append(preds, sqljson.ValueEQ(col, ff.Equals, opt))
	}

	if ff.NotEquals != nil {
		preds = append(preds, sqljson.ValueNEQ(col, ff.NotEquals, opt))
	}

	if len(ff.In) > 0 {
		preds = append(preds, sqljson.ValueIn(col, ff.In, opt))
	}

	if len(ff.NotIn) > 0 {
		preds = append(preds, sqljson.ValueNotIn(col, ff.NotIn, opt))
	}

	if ff.Exists != nil {
		if *ff.Exists {
			preds = append(preds, sqljson.HasKey(col, opt))
		} else {
			preds = append(preds, entsql.Not(sqljson.HasKey(col, opt)))
		}
	}

	if ff.GreaterThan != nil {
		preds = append(preds, sqljson.ValueGT(col, ff.GreaterThan, opt))
	}

	if ff.GreaterThanEqual != nil {
		preds = append(preds, sqljson.ValueGTE(col, ff.GreaterThanEqual, opt))
	}

	if ff.LessThan != nil {
		preds = append(preds, sqljson.ValueLT(col, ff.LessThan, opt))
	}

	if ff.LessThanEqual != nil {
		preds = append(preds, sqljson.ValueLTE(col, ff.LessThanEqual, opt))
	}

	if ff.Contains != nil {
		preds = append(preds, foldContains(pathExpr(col, path), *ff.Contains))
	}

	if ff.StartsWith != nil {
		preds = append(preds, foldAffix(pathExpr(col, path), *ff.StartsWith, false))
	}

	if ff.EndsWith != nil {
		preds = append(preds, foldAffix(pathExpr(col, path), *ff.EndsWith, true))
	}

	if ff.Like != nil {
		like := *ff.Like
		preds = append(preds, entsql.P(func(b *entsql.Builder) {
			writeExpr(b, pathExpr(col, path))
			b.WriteString(" LIKE ")
			b.Arg(like)
		}))
	}

	if len(preds) == 0 {
		preds = append(preds, matchAll())
	}

	return preds
}

// matchAll is the always-true predicate emitted for ignored filters.
func matchAll() *entsql.Predicate {
	return entsql.P(func(b *entsql.Builder) {
		b.WriteString("1 = 1")
	})
}

// textExpr is a deferred, dialect-aware text expression: either a fixed
// column reference or a payload path extraction.
type textExpr struct {
	column string
	path   []string
}

func columnExpr(col string) textExpr {
	return textExpr{column: col}
}

func pathExpr(col string, path []string) textExpr {
	return textExpr{column: col, path: path}
}

// writeExpr writes the expression extracting the value as text.
func writeExpr(b *entsql.Builder, e textExpr) {
	if len(e.path) == 0 {
		b.Ident(e.column)
		return
	}

	switch b.Dialect() {
	case dialect.Postgres:
		b.Ident(e.column).WriteString(" #>> ")
		b.Arg("{" + strings.Join(e.path, ",") + "}")
		b.WriteString("::text[]")
	case dialect.MySQL:
		b.WriteString("JSON_UNQUOTE(JSON_EXTRACT(").Ident(e.column).WriteString(", ")
		b.Arg("$." + strings.Join(e.path, "."))
		b.WriteString("))")
	default:
		b.WriteString("json_extract(").Ident(e.column).WriteString(", ")
		b.Arg("$." + strings.Join(e.path, "."))
		b.WriteString(")")
	}
}

// foldContains builds a case-insensitive substring match on the expression.
func foldContains(e textExpr, sub string) *entsql.Predicate {
	return foldLike(e, "%"+escapeLike(strings.ToLower(sub))+"%")
}

// foldAffix builds a case-insensitive prefix (suffix=false) or suffix match.
func foldAffix(e textExpr, affix string, suffix bool) *entsql.Predicate {
	pattern := escapeLike(strings.ToLower(affix)) + "%"
	if suffix {
		pattern = "%" + escapeLike(strings.ToLower(affix))
	}

	return foldLike(e, pattern)
}

func foldLike(e textExpr, pattern string) *entsql.Predicate {
	return entsql.P(func(b *entsql.Builder) {
		b.WriteString("LOWER(")
		writeExpr(b, e)
		b.WriteString(") LIKE ")
		b.Arg(pattern)
		// SQLite has no default escape character for LIKE.
		if b.Dialect() == dialect.SQLite {
			b.WriteString(" ESCAPE ")
			b.Arg(`\`)
		}
	})
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
