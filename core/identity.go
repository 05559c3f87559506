package core

import "fmt"

// Identity is the author recorded on every commit made to a table.
type Identity struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

// DefaultIdentity is used when no identity is configured.
var DefaultIdentity = Identity{Name: "flintdb", Email: "flintdb@localhost"}

func (identity Identity) String() string {
	return fmt.Sprintf("%s <%s>", identity.Name, identity.Email)
}
