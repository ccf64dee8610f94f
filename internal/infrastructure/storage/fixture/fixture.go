// Package fixture reads and writes JSON snapshots of a ledger store, used to
// seed the memory and postgres stores.
package fixture

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"stockledger/internal/core/entity"
)

// Fixture is a full snapshot of products, movements and sales.
type Fixture struct {
	Products  []entity.Product  `json:"products"`
	Movements []entity.Movement `json:"movements"`
	Sales     []entity.Sale     `json:"sales"`
}

// Decode reads a fixture from r. Unknown fields are rejected.
func Decode(r io.Reader) (Fixture, error) {
	var f Fixture
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}
	return f, nil
}

// Load reads the fixture file at path.
func Load(path string) (Fixture, error) {
	fh, err := os.Open(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("open fixture: %w", err)
	}
	defer fh.Close()
	return Decode(fh)
}

// Encode writes f as indented JSON.
func Encode(w io.Writer, f Fixture) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}
