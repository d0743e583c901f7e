package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateAndValidate(t *testing.T) {
	g := NewGenerator()
	g.Register("Account", "001")
	g.Register("Contact", "003")

	id := g.Generate("Account")
	assert.Len(t, id, 18)
	assert.Equal(t, "001", id[:3])
	assert.True(t, g.Validate(id))
	assert.Equal(t, "Account", g.ObjectTypeOf(id))
}

func TestGenerateUnregisteredType(t *testing.T) {
	g := NewGenerator()

	id := g.Generate("Widget")
	assert.Len(t, id, 18)
	assert.Equal(t, "000", id[:3])
	assert.True(t, g.Validate(id))
	assert.Equal(t, "", g.ObjectTypeOf(id), "unknown prefix resolves to no type")
}

func TestValidateRejectsMalformedIDs(t *testing.T) {
	g := NewGenerator()
	g.Register("Account", "001")

	tests := []struct {
		name string
		id   string
	}{
		{"empty", ""},
		{"too short", "001abc"},
		{"too long", g.Generate("Account") + "X"},
		{"bad characters", "001!!!!!!!!!!!!AAA"},
		{"bad checksum", "001AAAAAAAAAAAAZZZ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, g.Validate(tt.id))
		})
	}
}

func TestChecksumIsCaseSensitive(t *testing.T) {
	g := NewGenerator()
	g.Register("Account", "001")

	id := g.Generate("Account")
	// Flipping the case of a body character must break the checksum
	b := []byte(id)
	for i := 3; i < 15; i++ {
		c := b[i]
		switch {
		case c >= 'a' && c <= 'z':
			b[i] = c - 32
		case c >= 'A' && c <= 'Z':
			b[i] = c + 32
		default:
			continue
		}
		assert.False(t, g.Validate(string(b)), "case flip at %d should invalidate", i)
		b[i] = c
		break
	}
}

func TestGeneratedIDsAreUnique(t *testing.T) {
	g := NewGenerator()
	g.Register("Account", "001")

	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		id := g.Generate("Account")
		assert.False(t, seen[id], "duplicate ID generated")
		seen[id] = true
	}
}
