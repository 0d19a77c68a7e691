package snapshot

import (
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ValentinKolb/versedb/lib/store"
	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// Format encodes and decodes the full content of a snapshot file.
// Pairs are always encoded in ascending key order.
type Format interface {
	// Name returns the name of the format (used in logs and errors).
	Name() string
	// Encode writes all pairs to w.
	Encode(w io.Writer, pairs []store.Pair) error
	// Decode reads all pairs from r.
	Decode(r io.Reader) ([]store.Pair, error)
}

var (
	// FormatJSON stores a JSON array of {"key", "value"} objects, both base64 encoded.
	FormatJSON Format = jsonFormat{}
	// FormatYAML stores a YAML sequence of {key, value} mappings, both base64 encoded.
	FormatYAML Format = yamlFormat{}
	// FormatCSV stores one record per entry with a base64 key and a base64 value column.
	FormatCSV Format = csvFormat{}
	// FormatCBOR stores a CBOR array of {key, value} maps with native byte strings.
	FormatCBOR Format = cborFormat{}
)

// --------------------------------------------------------------------------
// JSON
// --------------------------------------------------------------------------

type jsonFormat struct{}

func (jsonFormat) Name() string { return "json" }

// Encode relies on encoding/json writing []byte as base64 strings
func (jsonFormat) Encode(w io.Writer, pairs []store.Pair) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(pairs)
}

func (jsonFormat) Decode(r io.Reader) ([]store.Pair, error) {
	var pairs []store.Pair
	if err := json.NewDecoder(r).Decode(&pairs); err != nil {
		return nil, err
	}
	return pairs, nil
}

// --------------------------------------------------------------------------
// YAML
// --------------------------------------------------------------------------

type yamlFormat struct{}

type yamlPair struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

func (yamlFormat) Name() string { return "yaml" }

func (yamlFormat) Encode(w io.Writer, pairs []store.Pair) error {
	entries := make([]yamlPair, len(pairs))
	for i, p := range pairs {
		entries[i] = yamlPair{
			Key:   base64.StdEncoding.EncodeToString(p.Key),
			Value: base64.StdEncoding.EncodeToString(p.Value),
		}
	}

	enc := yaml.NewEncoder(w)
	if err := enc.Encode(entries); err != nil {
		return err
	}
	return enc.Close()
}

func (yamlFormat) Decode(r io.Reader) ([]store.Pair, error) {
	var entries []yamlPair
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		return nil, err
	}

	pairs := make([]store.Pair, len(entries))
	for i, e := range entries {
		var err error
		if pairs[i], err = decodeBase64Pair(e.Key, e.Value); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return pairs, nil
}

// --------------------------------------------------------------------------
// CSV
// --------------------------------------------------------------------------

type csvFormat struct{}

func (csvFormat) Name() string { return "csv" }

func (csvFormat) Encode(w io.Writer, pairs []store.Pair) error {
	cw := csv.NewWriter(w)
	for _, p := range pairs {
		record := []string{
			base64.StdEncoding.EncodeToString(p.Key),
			base64.StdEncoding.EncodeToString(p.Value),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (csvFormat) Decode(r io.Reader) ([]store.Pair, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}

	pairs := make([]store.Pair, len(records))
	for i, record := range records {
		if pairs[i], err = decodeBase64Pair(record[0], record[1]); err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	return pairs, nil
}

// --------------------------------------------------------------------------
// CBOR
// --------------------------------------------------------------------------

type cborFormat struct{}

func (cborFormat) Name() string { return "cbor" }

func (cborFormat) Encode(w io.Writer, pairs []store.Pair) error {
	return cbor.NewEncoder(w).Encode(pairs)
}

func (cborFormat) Decode(r io.Reader) ([]store.Pair, error) {
	var pairs []store.Pair
	if err := cbor.NewDecoder(r).Decode(&pairs); err != nil {
		return nil, err
	}
	return pairs, nil
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

func decodeBase64Pair(key, value string) (store.Pair, error) {
	k, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return store.Pair{}, fmt.Errorf("invalid key: %w", err)
	}
	v, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return store.Pair{}, fmt.Errorf("invalid value: %w", err)
	}
	return store.Pair{Key: k, Value: v}, nil
}
