// Package id provides centralized ID generation for the backend.
//
// All identifiers are prefixed ULIDs (tab_*, sess_*, fetch_*). ULIDs carry
// 80 bits of entropy per millisecond, so collisions are negligible for any
// realistic workspace size (a few thousand tabs). Extension-native tab ids
// are never reused as persistence identity; they are not stable across
// browser restarts.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TabID identifies a tab within a session.
type TabID string

// SessionID identifies a session within the workspace.
type SessionID string

// FetchID identifies one bridge fetch cycle.
type FetchID string

const (
	TabPrefix     = "tab"
	SessionPrefix = "sess"
	FetchPrefix   = "fetch"
)

// Generator generates ULIDs with optional prefixes.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for tests that need deterministic output.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string.
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewTabID generates a new tab ID.
func NewTabID() TabID {
	return TabID(Default().GenerateWithPrefix(TabPrefix))
}

// NewSessionID generates a new session ID.
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

// NewFetchID generates a new fetch ID.
func NewFetchID() FetchID {
	return FetchID(Default().GenerateWithPrefix(FetchPrefix))
}

func (id TabID) String() string     { return string(id) }
func (id SessionID) String() string { return string(id) }
func (id FetchID) String() string   { return string(id) }

// IsValid checks if an ID string is a valid ULID.
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}
