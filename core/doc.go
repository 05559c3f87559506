// Package core provides the value and descriptor types shared by the engine
// and the bindings.
//
// # Variant Types
//
// Every column carries one VariantType. The numbering is stable and is
// persisted in descriptors:
//
//	INT32=2  UINT32=3  INT8=4   UINT8=5  INT16=6  UINT16=7  INT64=8
//	DOUBLE=9 FLOAT=10  STRING=11 DECIMAL=12 BYTES=13 DATE=14 TIME=15
//	UUID=16  IPV6=17
//
// # Values
//
// A Value is a tagged union. Values are converted to a column's type with
// Cast, which reports an error instead of silently narrowing:
//
//	v, err := core.Cast(core.Int64Value(300), core.Column{Type: core.Int8})
//	// err: value 300 out of range for INT8
//
// # Descriptors
//
// Meta is the plain descriptor: ordered columns, indexes and storage options.
//
//	meta := core.Meta{
//	    Name: "customers.flintdb",
//	    Columns: []core.Column{
//	        {Name: "id", Type: core.Int64},
//	        {Name: "name", Type: core.String, Bytes: 32},
//	    },
//	    Indexes: []core.Index{{Name: "primary", Type: "primary", Keys: []string{"id"}}},
//	}
package core
