package sql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nickyhof/flintdb/core"
)

type WhereClause struct {
	Conditions []WhereCondition
	LogicalOps []LogicalOperator // AND/OR between conditions
}

type LogicalOperator int

const (
	LogicalAnd LogicalOperator = iota
	LogicalOr
)

type WhereCondition struct {
	Left     string
	Operator WhereOperator
	Right    string
	InValues []string // for IN operator
	Negated  bool     // for NOT
}

type WhereOperator int

const (
	EqualsOperator WhereOperator = iota
	NotEqualsOperator
	LessThanOperator
	GreaterThanOperator
	LessThanOrEqualOperator
	GreaterThanOrEqualOperator
	LikeOperator
	IsNullOperator
	IsNotNullOperator
	InOperator
)

type OrderByClause struct {
	Column     string
	Descending bool
}

// Filter is a parsed predicate: an optional WHERE clause followed by
// optional ORDER BY and LIMIT/OFFSET. Limit is -1 when absent.
type Filter struct {
	Where   WhereClause
	OrderBy []OrderByClause
	Limit   int
	Offset  int
}

type Parser struct {
	lexer *Lexer
}

func NewParser(sql string) *Parser {
	lexer := NewLexer(sql)
	return &Parser{lexer: lexer}
}

// ParseFilter parses predicate text as accepted by Find. The empty string
// matches every row. A leading WHERE keyword is optional.
func ParseFilter(text string) (Filter, error) {
	filter := Filter{Limit: -1}
	parser := NewParser(text)

	token := parser.lexer.PeekToken()
	explicit := token.Type == Where
	if explicit {
		parser.lexer.NextToken()
		token = parser.lexer.PeekToken()
	}

	if explicit || token.Type == Identifier || token.Type == Not {
		where, err := ParseWhere(parser)
		if err != nil {
			return filter, err
		}
		filter.Where = where
	}

	for {
		token = parser.lexer.NextToken()
		switch token.Type {
		case EOF:
			return filter, nil
		case Order:
			if parser.lexer.NextToken().Type != By {
				return filter, errors.New("expected BY after ORDER")
			}
			orderBy, err := parseOrderBy(parser)
			if err != nil {
				return filter, err
			}
			filter.OrderBy = orderBy
		case Limit:
			if err := parseLimit(parser, &filter); err != nil {
				return filter, err
			}
		case Offset:
			n, err := parseCount(parser, "OFFSET")
			if err != nil {
				return filter, err
			}
			filter.Offset = n
		default:
			return filter, fmt.Errorf("unexpected token %s", token)
		}
	}
}

func ParseWhere(parser *Parser) (WhereClause, error) {
	var whereClause WhereClause

	for {
		token := parser.lexer.NextToken()

		negated := false
		if token.Type == Not {
			negated = true
			token = parser.lexer.NextToken()
		}

		if token.Type != Identifier {
			return whereClause, errors.New("expected identifier in WHERE clause")
		}
		left := token.Value

		token = parser.lexer.NextToken()

		condition := WhereCondition{Left: left, Negated: negated}

		switch token.Type {
		case Is:
			token = parser.lexer.NextToken()
			if token.Type == Not {
				if parser.lexer.NextToken().Type != Null {
					return whereClause, errors.New("expected NULL after IS NOT")
				}
				condition.Operator = IsNotNullOperator
			} else if token.Type == Null {
				condition.Operator = IsNullOperator
			} else {
				return whereClause, errors.New("expected NULL or NOT after IS")
			}
		case In:
			condition.Operator = InOperator
			if parser.lexer.NextToken().Type != ParenOpen {
				return whereClause, errors.New("expected '(' after IN")
			}
			for {
				token = parser.lexer.NextToken()
				if !isLiteral(token) {
					return whereClause, errors.New("expected value in IN list")
				}
				condition.InValues = append(condition.InValues, token.Value)

				token = parser.lexer.NextToken()
				if token.Type == ParenClose {
					break
				}
				if token.Type != Comma {
					return whereClause, errors.New("expected ',' or ')' in IN list")
				}
			}
		default:
			switch token.Type {
			case Equals:
				condition.Operator = EqualsOperator
			case NotEquals:
				condition.Operator = NotEqualsOperator
			case LessThan:
				condition.Operator = LessThanOperator
			case GreaterThan:
				condition.Operator = GreaterThanOperator
			case LessThanOrEqual:
				condition.Operator = LessThanOrEqualOperator
			case GreaterThanOrEqual:
				condition.Operator = GreaterThanOrEqualOperator
			case Like:
				condition.Operator = LikeOperator
			default:
				return whereClause, errors.New("expected operator in WHERE clause")
			}

			token = parser.lexer.NextToken()
			if !isLiteral(token) {
				return whereClause, errors.New("expected value in WHERE clause")
			}
			condition.Right = token.Value
		}

		whereClause.Conditions = append(whereClause.Conditions, condition)

		token = parser.lexer.PeekToken()
		if token.Type == And {
			parser.lexer.NextToken()
			whereClause.LogicalOps = append(whereClause.LogicalOps, LogicalAnd)
			continue
		} else if token.Type == Or {
			parser.lexer.NextToken()
			whereClause.LogicalOps = append(whereClause.LogicalOps, LogicalOr)
			continue
		}
		return whereClause, nil
	}
}

func isLiteral(token Token) bool {
	return token.Type == String || token.Type == Int || token.Type == Float
}

func parseOrderBy(parser *Parser) ([]OrderByClause, error) {
	var orderBy []OrderByClause
	for {
		token := parser.lexer.NextToken()
		if token.Type != Identifier {
			return nil, errors.New("expected column in ORDER BY")
		}
		clause := OrderByClause{Column: token.Value}

		switch parser.lexer.PeekToken().Type {
		case Asc:
			parser.lexer.NextToken()
		case Desc:
			parser.lexer.NextToken()
			clause.Descending = true
		}
		orderBy = append(orderBy, clause)

		if parser.lexer.PeekToken().Type != Comma {
			return orderBy, nil
		}
		parser.lexer.NextToken()
	}
}

// parseLimit accepts LIMIT n and the LIMIT offset, n form.
func parseLimit(parser *Parser, filter *Filter) error {
	n, err := parseCount(parser, "LIMIT")
	if err != nil {
		return err
	}
	if parser.lexer.PeekToken().Type == Comma {
		parser.lexer.NextToken()
		count, err := parseCount(parser, "LIMIT")
		if err != nil {
			return err
		}
		filter.Offset = n
		filter.Limit = count
		return nil
	}
	filter.Limit = n
	return nil
}

func parseCount(parser *Parser, clause string) (int, error) {
	token := parser.lexer.NextToken()
	if token.Type != Int {
		return 0, fmt.Errorf("expected number after %s", clause)
	}
	n, err := strconv.Atoi(token.Value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s value: %s", clause, token.Value)
	}
	return n, nil
}

// ParseCreateTable reads a descriptor written by FormatCreateTable.
func ParseCreateTable(text string) (core.Meta, error) {
	var meta core.Meta
	parser := NewParser(text)

	if parser.lexer.NextToken().Type != Create {
		return meta, errors.New("expected CREATE")
	}
	if parser.lexer.NextToken().Type != TableIdentifier {
		return meta, errors.New("expected TABLE after CREATE")
	}

	parser.lexer.skipWhitespace()
	rest := parser.lexer.Rest()
	open := strings.IndexByte(rest, '(')
	if open < 0 {
		return meta, errors.New("expected '(' after table name")
	}
	meta.Name = strings.TrimSpace(rest[:open])
	for i := 0; i < open; i++ {
		parser.lexer.readChar()
	}
	if parser.lexer.NextToken().Type != ParenOpen {
		return meta, errors.New("expected '(' after table name")
	}

	for {
		token := parser.lexer.NextToken()
		switch token.Type {
		case PrimaryKey:
			keys, err := parseKeyList(parser)
			if err != nil {
				return meta, err
			}
			meta.Indexes = append(meta.Indexes, core.Index{Name: core.PrimaryIndex, Type: core.PrimaryIndex, Keys: keys})
		case Key:
			name := parser.lexer.NextToken()
			if name.Type != Identifier {
				return meta, errors.New("expected index name after KEY")
			}
			keys, err := parseKeyList(parser)
			if err != nil {
				return meta, err
			}
			meta.Indexes = append(meta.Indexes, core.Index{Name: name.Value, Type: core.SortIndex, Keys: keys})
		case Identifier:
			col, err := parseColumnDefinition(parser, token.Value)
			if err != nil {
				return meta, err
			}
			meta.Columns = append(meta.Columns, col)
		default:
			return meta, fmt.Errorf("unexpected token %s in column list", token)
		}

		token = parser.lexer.NextToken()
		if token.Type == ParenClose {
			break
		}
		if token.Type != Comma {
			return meta, errors.New("expected ',' or ')' in column list")
		}
	}

	if err := parseOptions(parser, &meta); err != nil {
		return meta, err
	}
	return meta, nil
}

func parseColumnDefinition(parser *Parser, name string) (core.Column, error) {
	col := core.Column{Name: name}

	token := parser.lexer.NextToken()
	if token.Type != Identifier {
		return col, fmt.Errorf("expected type for column %s", name)
	}
	columnType, ok := core.ParseVariantType(token.Value)
	if !ok {
		return col, fmt.Errorf("unknown type %s for column %s", token.Value, name)
	}
	col.Type = columnType

	if parser.lexer.PeekToken().Type == ParenOpen {
		parser.lexer.NextToken()
		size, err := parseCount(parser, "type")
		if err != nil {
			return col, err
		}
		col.Bytes = size
		if parser.lexer.PeekToken().Type == Comma {
			parser.lexer.NextToken()
			precision, err := parseCount(parser, "type")
			if err != nil {
				return col, err
			}
			col.Precision = precision
		}
		if parser.lexer.NextToken().Type != ParenClose {
			return col, fmt.Errorf("expected ')' after size of column %s", name)
		}
	}

	for {
		switch parser.lexer.PeekToken().Type {
		case Not:
			parser.lexer.NextToken()
			if parser.lexer.NextToken().Type != Null {
				return col, fmt.Errorf("expected NULL after NOT for column %s", name)
			}
			col.NullSpec = core.NotNull
		case Null:
			parser.lexer.NextToken()
			col.NullSpec = core.Nullable
		case Default:
			parser.lexer.NextToken()
			token := parser.lexer.NextToken()
			if !isLiteral(token) {
				return col, fmt.Errorf("expected value after DEFAULT for column %s", name)
			}
			col.Default = token.Value
		case Comment:
			parser.lexer.NextToken()
			token := parser.lexer.NextToken()
			if token.Type != String {
				return col, fmt.Errorf("expected string after COMMENT for column %s", name)
			}
			col.Comment = token.Value
		default:
			return col, nil
		}
	}
}

func parseKeyList(parser *Parser) ([]string, error) {
	if parser.lexer.NextToken().Type != ParenOpen {
		return nil, errors.New("expected '(' before key list")
	}
	var keys []string
	for {
		token := parser.lexer.NextToken()
		if token.Type != Identifier {
			return nil, errors.New("expected column in key list")
		}
		keys = append(keys, token.Value)

		token = parser.lexer.NextToken()
		if token.Type == ParenClose {
			return keys, nil
		}
		if token.Type != Comma {
			return nil, errors.New("expected ',' or ')' in key list")
		}
	}
}

// parseOptions reads KEY=value pairs separated by commas.
func parseOptions(parser *Parser, meta *core.Meta) error {
	for {
		token := parser.lexer.NextToken()
		switch token.Type {
		case EOF:
			return nil
		case Comma:
			continue
		}

		key := token.Value
		if parser.lexer.NextToken().Type != Equals {
			return fmt.Errorf("expected '=' after option %s", key)
		}
		parser.lexer.skipWhitespace()
		var value string
		if parser.lexer.ch == '\'' {
			value = parser.lexer.NextToken().Value
		} else {
			value = parser.lexer.readBare()
			if value == "" {
				return fmt.Errorf("expected value for option %s", key)
			}
		}
		if err := meta.SetOption(key, value); err != nil {
			return err
		}
	}
}
