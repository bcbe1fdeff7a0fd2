// Package cache implements the content-addressed compile cache described
// in SPEC_FULL.md's domain stack: cmd/reparsegen hashes each
// (pattern, input expression, capture-decl shape) triple and looks up a
// previously-compiled scan-block source in a cache directory, so a cache
// hit skips the parse/NFA/DFA/codegen pipeline.
//
// The on-disk format mirrors core/planfmt's two-hash scheme: a sha256 key
// over the canonical (CBOR-encoded) compile input selects the entry, and
// each entry records a blake2b hash of its generated source bytes, which
// UpToDate compares against a candidate source. cmd/reparsegen does not
// call UpToDate; it skips the file write by comparing the rewritten file's
// bytes with the original.
package cache

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/mod/semver"
)

// FormatVersion is this build's cache-format version. It is compared
// against an index file's recorded version with semver.Compare, not `==`,
// so a future format bump can still recognise an older-but-compatible
// index instead of failing closed on every point release.
const FormatVersion = "v1.0.0"

//go:embed schema/index.schema.json
var indexSchemaJSON []byte

// CanonicalInput is the CBOR-encoded, hashed form of one compile request.
// Field order is fixed by struct layout (cbor.CanonicalEncOptions further
// canonicalizes map key order), so the same pattern and declaration shape
// always hashes to the same key regardless of how the caller built the
// slice of declarations — grounded on core/planfmt/canonical.go's
// identical two-step "canonicalize, then hash" pipeline.
type CanonicalInput struct {
	Pattern   string
	InputExpr string
	Decls     []CanonicalDecl
}

type CanonicalDecl struct {
	Name   string
	GoType string
	Slice  bool
}

// Key returns the cache key for in: a hex sha256 digest of in's canonical
// CBOR encoding, after sorting Decls by name so declaration order at the
// call site never changes the key.
func Key(in CanonicalInput) (string, error) {
	sorted := append([]CanonicalDecl(nil), in.Decls...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	in.Decls = sorted

	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return "", fmt.Errorf("cache: building canonical CBOR encoder: %w", err)
	}
	data, err := encMode.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("cache: encoding cache key input: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// sourceHash returns the blake2b-256 digest of generated Go source, used
// for the idempotency check: if it matches the hash already recorded for
// this key, the on-disk rewrite is skipped entirely.
func sourceHash(source string) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := h.Write([]byte(source)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Entry is one cached compile result, serialized to <dir>/<key>.cbor.
type Entry struct {
	Pattern    string
	InputExpr  string
	Source     string
	SourceHash string
}

type indexFile struct {
	FormatVersion string       `json:"format_version"`
	Entries       []indexEntry `json:"entries"`
}

type indexEntry struct {
	Key        string `json:"key"`
	SourceHash string `json:"source_hash"`
}

// Cache is a directory-backed store of Entry values keyed by Key.
type Cache struct {
	dir    string
	index  indexFile
	schema *jsonschema.Schema
}

// Open loads (or initializes) the cache rooted at dir. A malformed or
// schema-incompatible index forces a fresh, empty cache rather than
// returning an error: a corrupt cache should degrade to "recompile
// everything", never to a build failure.
func Open(dir string) (*Cache, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema://reparse-cache-index.json", strings.NewReader(string(indexSchemaJSON))); err != nil {
		return nil, fmt.Errorf("cache: loading embedded index schema: %w", err)
	}
	schema, err := compiler.Compile("schema://reparse-cache-index.json")
	if err != nil {
		return nil, fmt.Errorf("cache: compiling embedded index schema: %w", err)
	}

	c := &Cache{dir: dir, schema: schema, index: indexFile{FormatVersion: FormatVersion}}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: creating cache dir: %w", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "index.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("cache: reading index: %w", err)
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return c, nil // corrupt index: start fresh
	}
	if err := schema.Validate(decoded); err != nil {
		return c, nil // schema mismatch: start fresh
	}

	var idx indexFile
	if err := json.Unmarshal(raw, &idx); err != nil {
		return c, nil
	}
	if semver.Compare(idx.FormatVersion, FormatVersion) > 0 {
		// The index was written by a newer cache format than this
		// build understands; refuse to trust it rather than
		// potentially misreading entries.
		return c, nil
	}
	c.index = idx
	return c, nil
}

// Lookup returns the cached entry for key, if present and still on disk.
func (c *Cache) Lookup(key string) (*Entry, bool) {
	for _, e := range c.index.Entries {
		if e.Key != key {
			continue
		}
		raw, err := os.ReadFile(c.entryPath(key))
		if err != nil {
			return nil, false
		}
		var entry Entry
		if err := cbor.Unmarshal(raw, &entry); err != nil {
			return nil, false
		}
		return &entry, true
	}
	return nil, false
}

// UpToDate reports whether source's blake2b hash matches the one recorded
// in the cached entry for key; it reports false when key has no entry.
func (c *Cache) UpToDate(key, source string) (bool, error) {
	hash, err := sourceHash(source)
	if err != nil {
		return false, err
	}
	entry, ok := c.Lookup(key)
	if !ok {
		return false, nil
	}
	return entry.SourceHash == hash, nil
}

// Store writes source under key, updating both the entry file and the
// index.
func (c *Cache) Store(key, pattern, inputExpr, source string) error {
	hash, err := sourceHash(source)
	if err != nil {
		return err
	}
	entry := Entry{Pattern: pattern, InputExpr: inputExpr, Source: source, SourceHash: hash}

	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return fmt.Errorf("cache: building canonical CBOR encoder: %w", err)
	}
	data, err := encMode.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache: encoding entry: %w", err)
	}
	if err := os.WriteFile(c.entryPath(key), data, 0o644); err != nil {
		return fmt.Errorf("cache: writing entry: %w", err)
	}

	c.upsertIndexEntry(indexEntry{Key: key, SourceHash: hash})
	return c.writeIndex()
}

func (c *Cache) upsertIndexEntry(e indexEntry) {
	for i, existing := range c.index.Entries {
		if existing.Key == e.Key {
			c.index.Entries[i] = e
			return
		}
	}
	c.index.Entries = append(c.index.Entries, e)
}

func (c *Cache) writeIndex() error {
	c.index.FormatVersion = FormatVersion
	raw, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: encoding index: %w", err)
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("cache: re-decoding index for validation: %w", err)
	}
	if err := c.schema.Validate(decoded); err != nil {
		return fmt.Errorf("cache: index failed its own schema after encoding (internal bug): %w", err)
	}
	return os.WriteFile(filepath.Join(c.dir, "index.json"), raw, 0o644)
}

func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.dir, key+".cbor")
}

// Clean removes every entry file and the index, used by the
// `reparsegen clean-cache` subcommand.
func (c *Cache) Clean() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return err
		}
	}
	c.index = indexFile{FormatVersion: FormatVersion}
	return nil
}
