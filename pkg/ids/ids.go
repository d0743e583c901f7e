// Package ids implements the Salesforce-style 18-character record ID scheme:
// a 3-character object key prefix, a 12-character random body, and a
// 3-character checksum suffix. Consumers treat IDs as opaque strings whose
// object type is globally discoverable from the prefix.
package ids

import (
	"crypto/rand"
	"math/big"
	"sync"
)

const (
	alphabet   = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	bodyLength = 12
	idLength   = 18
)

// Generator issues and validates record IDs for registered object types
type Generator struct {
	mu       sync.RWMutex
	prefixes map[string]string // objectType -> 3-char prefix
	types    map[string]string // prefix -> objectType
}

// NewGenerator creates an empty Generator
func NewGenerator() *Generator {
	return &Generator{
		prefixes: make(map[string]string),
		types:    make(map[string]string),
	}
}

// Register binds an object type to its 3-character key prefix
func (g *Generator) Register(objectType, prefix string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prefixes[objectType] = prefix
	g.types[prefix] = objectType
}

// Generate returns a new ID for the object type. Unregistered types get the
// neutral "000" prefix so generation never fails mid-request.
func (g *Generator) Generate(objectType string) string {
	g.mu.RLock()
	prefix, ok := g.prefixes[objectType]
	g.mu.RUnlock()
	if !ok {
		prefix = "000"
	}

	body := make([]byte, bodyLength)
	for i := range body {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			body[i] = alphabet[0]
			continue
		}
		body[i] = alphabet[n.Int64()]
	}

	base := prefix + string(body)
	return base + checksum(base)
}

// Validate reports whether the ID is well formed and its checksum matches
func (g *Generator) Validate(id string) bool {
	if len(id) != idLength {
		return false
	}
	for _, c := range id {
		if !isAlphanumeric(byte(c)) {
			return false
		}
	}
	return checksum(id[:15]) == id[15:]
}

// ObjectTypeOf returns the object type encoded in the ID's prefix, or ""
// when the prefix is unknown or the ID is invalid.
func (g *Generator) ObjectTypeOf(id string) string {
	if !g.Validate(id) {
		return ""
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.types[id[:3]]
}

// checksum derives a 3-character suffix from the case signature of the first
// 15 characters, grouped 5 at a time.
func checksum(base string) string {
	const suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ012345"
	out := make([]byte, 3)
	for group := 0; group < 3; group++ {
		bits := 0
		for i := 0; i < 5; i++ {
			c := base[group*5+i]
			if c >= 'A' && c <= 'Z' {
				bits |= 1 << i
			}
		}
		out[group] = suffixAlphabet[bits]
	}
	return string(out)
}

func isAlphanumeric(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
