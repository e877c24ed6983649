// Package id provides identifier generation for downloaded bundles.
//
// Bundle ids double as directory names in both storage trees, so they are
// lowercase ULIDs: filesystem-safe on case-insensitive volumes and sortable
// by download time.
//
// Design Principles:
//   - ULIDs only: one format for bundle ids and scratch names
//   - K-sortable: listing a tree returns bundles in download order
//   - Debuggable: scratch names carry a prefix so they stand out in temp roots
package id

import (
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// BundleID identifies an installed bundle
type BundleID string

// Prefixes for generated scratch names
const (
	DownloadPrefix = "dl"
	ExtractPrefix  = "unzip"
)

// Generator generates ULIDs from an entropy source
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Tests use it for deterministic ids.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new lowercase ULID string
func (g *Generator) GenerateString() string {
	return strings.ToLower(g.Generate().String())
}

// Scratch creates a prefixed name for temporary files and directories
func (g *Generator) Scratch(prefix string) string {
	return prefix + "_" + g.GenerateString()
}

// NewBundleID generates a fresh bundle id
func NewBundleID() BundleID {
	return BundleID(Default().GenerateString())
}

// NewScratchName generates a prefixed scratch name
func NewScratchName(prefix string) string {
	return Default().Scratch(prefix)
}

func (id BundleID) String() string { return string(id) }

// IsValid checks if an id string is a valid ULID, in either case
func IsValid(id string) bool {
	_, err := ulid.ParseStrict(strings.ToUpper(id))
	return err == nil
}

// Timestamp extracts the generation time from a bundle id
func Timestamp(id string) (time.Time, error) {
	parsed, err := ulid.ParseStrict(strings.ToUpper(id))
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
