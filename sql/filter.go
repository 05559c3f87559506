package sql

import (
	"fmt"
	"strings"

	"github.com/nickyhof/flintdb/core"
)

// Program is a Filter bound to a descriptor: column names are resolved to
// positions and literals are converted to the column types once.
type Program struct {
	conditions []boundCondition
	logicalOps []LogicalOperator
	orderBy    []boundOrder
	limit      int
	offset     int
}

type boundCondition struct {
	column   int
	operator WhereOperator
	value    core.Value
	values   []core.Value
	pattern  string
	negated  bool
}

type boundOrder struct {
	column     int
	descending bool
}

// Compile parses text and binds it to meta.
func Compile(text string, meta *core.Meta) (*Program, error) {
	filter, err := ParseFilter(text)
	if err != nil {
		return nil, err
	}
	return Bind(filter, meta)
}

func Bind(filter Filter, meta *core.Meta) (*Program, error) {
	program := &Program{
		logicalOps: filter.Where.LogicalOps,
		limit:      filter.Limit,
		offset:     filter.Offset,
	}

	for _, cond := range filter.Where.Conditions {
		column := meta.ColumnIndex(cond.Left)
		if column < 0 {
			return nil, fmt.Errorf("unknown column %s", cond.Left)
		}
		col := meta.Columns[column]
		bound := boundCondition{column: column, operator: cond.Operator, negated: cond.Negated}

		switch cond.Operator {
		case IsNullOperator, IsNotNullOperator:
		case LikeOperator:
			bound.pattern = cond.Right
		case InOperator:
			for _, raw := range cond.InValues {
				v, err := core.ParseValue(raw, col)
				if err != nil {
					return nil, fmt.Errorf("invalid value %q for column %s: %w", raw, col.Name, err)
				}
				bound.values = append(bound.values, v)
			}
		default:
			v, err := core.ParseValue(cond.Right, col)
			if err != nil {
				return nil, fmt.Errorf("invalid value %q for column %s: %w", cond.Right, col.Name, err)
			}
			bound.value = v
		}
		program.conditions = append(program.conditions, bound)
	}

	for _, order := range filter.OrderBy {
		column := meta.ColumnIndex(order.Column)
		if column < 0 {
			return nil, fmt.Errorf("unknown column %s in ORDER BY", order.Column)
		}
		program.orderBy = append(program.orderBy, boundOrder{column: column, descending: order.Descending})
	}

	return program, nil
}

// Match evaluates the WHERE part against one row. Conditions are combined
// left to right.
func (program *Program) Match(values []core.Value) bool {
	if len(program.conditions) == 0 {
		return true
	}

	result := program.conditions[0].evaluate(values)
	for i := 1; i < len(program.conditions); i++ {
		condResult := program.conditions[i].evaluate(values)

		if i-1 < len(program.logicalOps) && program.logicalOps[i-1] == LogicalOr {
			result = result || condResult
		} else {
			result = result && condResult
		}
	}
	return result
}

func (cond boundCondition) evaluate(values []core.Value) bool {
	value := values[cond.column]

	var result bool
	switch cond.operator {
	case IsNullOperator:
		result = value.IsNil()
	case IsNotNullOperator:
		result = !value.IsNil()
	case InOperator:
		if !value.IsNil() {
			for _, v := range cond.values {
				if core.Equal(value, v) {
					result = true
					break
				}
			}
		}
	case LikeOperator:
		result = !value.IsNil() && matchLike(value.Format(), cond.pattern)
	default:
		if value.IsNil() || cond.value.IsNil() {
			result = false
			break
		}
		cmp := core.Compare(value, cond.value)
		switch cond.operator {
		case EqualsOperator:
			result = cmp == 0
		case NotEqualsOperator:
			result = cmp != 0
		case LessThanOperator:
			result = cmp < 0
		case GreaterThanOperator:
			result = cmp > 0
		case LessThanOrEqualOperator:
			result = cmp <= 0
		case GreaterThanOrEqualOperator:
			result = cmp >= 0
		}
	}

	if cond.negated {
		return !result
	}
	return result
}

// Ordered reports whether results must be sorted before they are returned.
func (program *Program) Ordered() bool {
	return len(program.orderBy) > 0
}

// Less orders two rows by the ORDER BY columns.
func (program *Program) Less(a, b []core.Value) bool {
	for _, order := range program.orderBy {
		cmp := core.Compare(a[order.column], b[order.column])
		if cmp == 0 {
			continue
		}
		if order.descending {
			return cmp > 0
		}
		return cmp < 0
	}
	return false
}

// Limit returns the row limit, or -1 when unbounded.
func (program *Program) Limit() int {
	return program.limit
}

func (program *Program) Offset() int {
	return program.offset
}

// Equalities returns column = literal conditions when every condition is
// joined by AND, so that an index can narrow the scan. It returns nil
// otherwise.
func (program *Program) Equalities() map[int]core.Value {
	for _, op := range program.logicalOps {
		if op == LogicalOr {
			return nil
		}
	}
	equalities := make(map[int]core.Value)
	for _, cond := range program.conditions {
		if cond.operator == EqualsOperator && !cond.negated && !cond.value.IsNil() {
			equalities[cond.column] = cond.value
		}
	}
	return equalities
}

// matchLike matches SQL LIKE patterns case-insensitively: % matches any run
// of characters and _ matches exactly one.
func matchLike(value, pattern string) bool {
	if pattern == "%" {
		return true
	}

	v := []rune(strings.ToLower(value))
	p := []rune(strings.ToLower(pattern))

	vi, pi := 0, 0
	starP, starV := -1, 0
	for vi < len(v) {
		switch {
		case pi < len(p) && (p[pi] == '_' || p[pi] == v[vi]):
			vi++
			pi++
		case pi < len(p) && p[pi] == '%':
			starP, starV = pi, vi
			pi++
		case starP >= 0:
			starV++
			vi = starV
			pi = starP + 1
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '%' {
		pi++
	}
	return pi == len(p)
}
