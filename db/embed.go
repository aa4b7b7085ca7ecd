// Package db embeds the schema migrations and the sample catalogue used by
// the seed tool.
package db

import (
	"embed"
	"io/fs"
	"slices"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SampleProducts is the JSON product list seeded when no file is given.
//
//go:embed seed/products.json
var SampleProducts []byte

// Migration is one schema file. Every statement in it is idempotent.
type Migration struct {
	Name string
	SQL  string
}

// Migrations returns the schema files in name order.
func Migrations() ([]Migration, error) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	slices.Sort(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		data, err := migrations.ReadFile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Name: name, SQL: string(data)})
	}
	return out, nil
}
