// Package config loads FlintDB settings from a YAML file.
//
// Values are layered: built-in defaults, then the file, then FLINTDB_*
// environment variables.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stderr"   # stdout, stderr
//	identity:
//	  name: "flintdb"
//	  email: "flintdb@localhost"
//	storage:
//	  cache: 1024        # rows cached per table
//	  compressor: ""     # none, zstd, lz4
//	s3:
//	  region: "us-east-1"
//	  endpoint: ""       # set for S3-compatible stores
//
// Secrets (s3.secret_key) should come from FLINTDB_S3_SECRET_KEY rather
// than the file.
package config
