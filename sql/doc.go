// Package sql provides lexing and parsing for the predicate text accepted by
// Find and for CREATE TABLE descriptors.
//
// # Predicates
//
// A predicate is an optional WHERE clause followed by optional ORDER BY and
// LIMIT/OFFSET clauses. The WHERE keyword itself may be omitted:
//
//	program, err := sql.Compile("age >= 31 AND name LIKE 'A%' LIMIT 10", &meta)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if program.Match(values) {
//	    ...
//	}
//
// # Descriptors
//
// FormatCreateTable and ParseCreateTable convert a core.Meta to and from
// its CREATE TABLE text:
//
//	CREATE TABLE customers.flintdb (
//	  id INT64 NOT NULL,
//	  name STRING(32) DEFAULT 'anonymous',
//	  PRIMARY KEY (id)
//	) STORAGE=memory, CACHE=1K
package sql
