package sql

import (
	"strconv"
	"strings"
)

type Token struct {
	Type  TokenType
	Value string
}

type TokenType int

const (
	Identifier TokenType = iota
	String
	Int
	Float
	Comma
	ParenOpen
	ParenClose
	Equals
	NotEquals
	LessThan
	GreaterThan
	LessThanOrEqual
	GreaterThanOrEqual
	And
	Or
	Not
	Is
	Null
	Like
	In
	Where
	Limit
	Offset
	Order
	By
	Asc
	Desc
	Create
	TableIdentifier
	PrimaryKey
	Key
	Default
	Comment
	EOF
	Unknown
)

// keywords maps the upper-cased spelling of each reserved word to its
// token type.
var keywords = map[string]TokenType{
	"AND":     And,
	"OR":      Or,
	"NOT":     Not,
	"IS":      Is,
	"NULL":    Null,
	"LIKE":    Like,
	"IN":      In,
	"WHERE":   Where,
	"LIMIT":   Limit,
	"OFFSET":  Offset,
	"ORDER":   Order,
	"BY":      By,
	"ASC":     Asc,
	"DESC":    Desc,
	"CREATE":  Create,
	"TABLE":   TableIdentifier,
	"KEY":     Key,
	"DEFAULT": Default,
	"COMMENT": Comment,
}

var operators = map[string]TokenType{
	"=":  Equals,
	"==": Equals,
	"!=": NotEquals,
	"<>": NotEquals,
	"<":  LessThan,
	">":  GreaterThan,
	"<=": LessThanOrEqual,
	">=": GreaterThanOrEqual,
}

var symbols = map[TokenType]string{
	Comma:              "Comma",
	ParenOpen:          "ParenOpen",
	ParenClose:         "ParenClose",
	Equals:             "Equals",
	NotEquals:          "NotEquals",
	LessThan:           "LessThan",
	GreaterThan:        "GreaterThan",
	LessThanOrEqual:    "LessThanOrEqual",
	GreaterThanOrEqual: "GreaterThanOrEqual",
	TableIdentifier:    "TableIdentifier",
	PrimaryKey:         "PrimaryKey",
	EOF:                "EOF",
}

func (token Token) String() string {
	switch token.Type {
	case Identifier:
		return "Identifier(" + token.Value + ")"
	case String:
		return "String(" + token.Value + ")"
	case Int:
		return "Int(" + token.Value + ")"
	case Float:
		return "Float(" + token.Value + ")"
	case Unknown:
		return "Unknown(" + token.Value + ")"
	}
	if name, ok := symbols[token.Type]; ok {
		return name
	}
	for word, typ := range keywords {
		if typ == token.Type {
			return word[:1] + strings.ToLower(word[1:])
		}
	}
	return "Token(" + strconv.Itoa(int(token.Type)) + ")"
}

type Lexer struct {
	sql          string
	position     int
	readPosition int
	ch           byte
}

func NewLexer(sql string) *Lexer {
	lexer := &Lexer{sql: sql}
	lexer.readChar()
	return lexer
}

func (lexer *Lexer) readChar() {
	if lexer.readPosition >= len(lexer.sql) {
		lexer.ch = 0
	} else {
		lexer.ch = lexer.sql[lexer.readPosition]
	}
	lexer.position = lexer.readPosition
	lexer.readPosition++
}

func (lexer *Lexer) peekChar() byte {
	if lexer.readPosition >= len(lexer.sql) {
		return 0
	}
	return lexer.sql[lexer.readPosition]
}

func (lexer *Lexer) NextToken() Token {
	var token Token

	lexer.skipWhitespace()

	switch lexer.ch {
	case ',':
		token = Token{Type: Comma, Value: string(lexer.ch)}
	case '(':
		token = Token{Type: ParenOpen, Value: string(lexer.ch)}
	case ')':
		token = Token{Type: ParenClose, Value: string(lexer.ch)}
	case 0:
		token = Token{Type: EOF, Value: ""}
	case '\'':
		token = Token{Type: String, Value: lexer.readString()}
	case '"', '`':
		token = Token{Type: Identifier, Value: lexer.readQuoted(lexer.ch)}
	default:
		if isOperator(lexer.ch) {
			operator := lexer.readOperator()
			if typ, ok := operators[operator]; ok {
				return Token{Type: typ, Value: operator}
			}
			return Token{Type: Unknown, Value: operator}
		} else if isDigit(lexer.ch) || (lexer.ch == '-' && isDigit(lexer.peekChar())) {
			return lexer.readNumber()
		} else if isAlphaNumeric(lexer.ch) {
			literal := lexer.readIdentifier()
			if strings.EqualFold(literal, "PRIMARY") {
				saved := *lexer
				lexer.skipWhitespace()
				if strings.EqualFold(lexer.readIdentifier(), "KEY") {
					return Token{Type: PrimaryKey, Value: "PRIMARY KEY"}
				}
				*lexer = saved
			}
			return Token{Type: lookupIdentifier(literal), Value: literal}
		} else {
			token = Token{Type: Unknown, Value: string(lexer.ch)}
		}
	}

	lexer.readChar()
	return token
}

func (lexer *Lexer) PeekToken() Token {
	saved := *lexer
	token := lexer.NextToken()
	*lexer = saved
	return token
}

// Rest returns the unread input, starting at the current character.
func (lexer *Lexer) Rest() string {
	if lexer.position >= len(lexer.sql) {
		return ""
	}
	return lexer.sql[lexer.position:]
}

func (lexer *Lexer) skipWhitespace() {
	for lexer.ch == ' ' || lexer.ch == '\t' || lexer.ch == '\n' || lexer.ch == '\r' {
		lexer.readChar()
	}
}

func (lexer *Lexer) readIdentifier() string {
	position := lexer.position
	for isAlphaNumeric(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

// readString reads a single-quoted literal. A backslash escapes the next
// character and a doubled quote stands for one quote.
func (lexer *Lexer) readString() string {
	var out []byte
	for {
		lexer.readChar()
		switch lexer.ch {
		case 0:
			return string(out)
		case '\\':
			lexer.readChar()
			if lexer.ch == 0 {
				return string(out)
			}
			out = append(out, lexer.ch)
		case '\'':
			if lexer.peekChar() == '\'' {
				lexer.readChar()
				out = append(out, '\'')
				continue
			}
			return string(out)
		default:
			out = append(out, lexer.ch)
		}
	}
}

// readBare reads an unquoted option value up to the next separator.
func (lexer *Lexer) readBare() string {
	position := lexer.position
	for lexer.ch != ',' && lexer.ch != ' ' && lexer.ch != '\t' && lexer.ch != '\n' && lexer.ch != '\r' && lexer.ch != 0 {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

func (lexer *Lexer) readQuoted(quote byte) string {
	lexer.readChar()
	position := lexer.position
	for lexer.ch != quote && lexer.ch != 0 {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

func (lexer *Lexer) readNumber() Token {
	position := lexer.position
	if lexer.ch == '-' {
		lexer.readChar()
	}
	for isDigit(lexer.ch) {
		lexer.readChar()
	}
	if lexer.ch == '.' && isDigit(lexer.peekChar()) {
		lexer.readChar()
		for isDigit(lexer.ch) {
			lexer.readChar()
		}
		return Token{Type: Float, Value: lexer.sql[position:lexer.position]}
	}
	return Token{Type: Int, Value: lexer.sql[position:lexer.position]}
}

func (lexer *Lexer) readOperator() string {
	position := lexer.position
	for isOperator(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

func isAlphaNumeric(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_' || ch == '.' || isDigit(ch)
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isOperator(ch byte) bool {
	return ch == '=' || ch == '!' || ch == '<' || ch == '>'
}

func lookupIdentifier(id string) TokenType {
	if typ, ok := keywords[strings.ToUpper(id)]; ok {
		return typ
	}
	return Identifier
}

func tokenize(sql string) []Token {
	lexer := NewLexer(sql)

	var tokens []Token

	for {
		token := lexer.NextToken()
		if token.Type == EOF {
			return append(tokens, token)
		}
		tokens = append(tokens, token)
	}
}
