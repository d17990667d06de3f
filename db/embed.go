// Package db carries the embedded schema applied at startup.
package db

import _ "embed"

// Schema holds the DDL for the promotion engine tables.
//
//go:embed migrations/001_schema.sql
var Schema string
