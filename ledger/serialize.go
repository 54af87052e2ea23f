package ledger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Write serializes the ledger as indented JSON. Field names are stable
// so independent tooling can consume the artifact; the round trip
// Read(Write(l)) reproduces every field, including CTM floats, exactly.
func (l *AssetLedger) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	return nil
}

// Read deserializes a ledger and validates its invariants
func Read(r io.Reader) (*AssetLedger, error) {
	var l AssetLedger
	if err := json.NewDecoder(r).Decode(&l); err != nil {
		return nil, fmt.Errorf("decoding ledger: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Save writes the ledger to a file
func (l *AssetLedger) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating ledger file: %w", err)
	}
	defer f.Close()

	if err := l.Write(f); err != nil {
		return err
	}
	return f.Close()
}

// Load reads and validates a ledger from a file
func Load(path string) (*AssetLedger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger file: %w", err)
	}
	defer f.Close()

	return Read(f)
}
