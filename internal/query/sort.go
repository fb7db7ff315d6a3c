package query

import (
	"context"
	"strings"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/sqljson"

	"github.com/inkhub/inkhub/internal/log"
)

// OrderFunc applies one ordering term to a selector.
type OrderFunc func(*entsql.Selector)

// CompileSort resolves sort strings into ordering terms. A leading "-" means
// descending. Fixed columns order directly; any other field orders by the
// payload path extraction. Unresolvable fields are dropped; when none
// resolve, the default most-recently-updated ordering applies.
func CompileSort(ctx context.Context, sorts []string, cols Columns, persp Perspective) []OrderFunc {
	var funcs []OrderFunc

	for _, raw := range sorts {
		field := strings.TrimSpace(raw)
		if field == "" {
			continue
		}

		desc := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")

		if col, fixed := cols.Fixed[field]; fixed {
			funcs = append(funcs, orderColumn(col, desc))
			continue
		}

		path, valid := splitPath(field)
		if !valid {
			log.Warn(ctx, "query: dropping unresolvable sort field", log.String("field", raw))
			continue
		}

		funcs = append(funcs, orderPath(persp.PayloadColumn(), path, desc))
	}

	if len(funcs) == 0 {
		funcs = append(funcs, orderColumn("updated_at", true))
	}

	return funcs
}

func orderColumn(col string, desc bool) OrderFunc {
	return func(s *entsql.Selector) {
		if desc {
			s.OrderBy(entsql.Desc(col))
		} else {
			s.OrderBy(entsql.Asc(col))
		}
	}
}

func orderPath(col string, path []string, desc bool) OrderFunc {
	if desc {
		return sqljson.OrderValueDesc(col, sqljson.Path(path...))
	}
	return sqljson.OrderValue(col, sqljson.Path(path...))
}
