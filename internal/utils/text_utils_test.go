package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestExcerpt(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	t.Run("short text untouched", func(t *testing.T) {
		assert.Equal(t, "hello", tp.Excerpt("hello", 1000))
	})

	t.Run("exact size untouched", func(t *testing.T) {
		assert.Equal(t, "hello", tp.Excerpt("hello", 5))
	})

	t.Run("long text cut to byte limit", func(t *testing.T) {
		long := strings.Repeat("a", 2000)
		assert.Len(t, tp.Excerpt(long, 1000), 1000)
	})

	t.Run("zero max disables truncation", func(t *testing.T) {
		long := strings.Repeat("a", 2000)
		assert.Equal(t, long, tp.Excerpt(long, 0))
	})

	t.Run("never splits a rune", func(t *testing.T) {
		// Each é is two bytes, so a 5-byte cut would land mid-rune
		text := strings.Repeat("é", 10)
		excerpt := tp.Excerpt(text, 5)
		assert.True(t, utf8.ValidString(excerpt))
		assert.Equal(t, 4, len(excerpt))
	})
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	t.Run("valid text untouched", func(t *testing.T) {
		assert.Equal(t, "héllo wörld", tp.SanitizeUTF8("héllo wörld"))
	})

	t.Run("invalid bytes dropped", func(t *testing.T) {
		sanitized := tp.SanitizeUTF8("ok\xff\xfealso ok")
		assert.True(t, utf8.ValidString(sanitized))
		assert.Equal(t, "okalso ok", sanitized)
	})
}
