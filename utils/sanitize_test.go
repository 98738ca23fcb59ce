package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize_KeepsSafeMarkupDropsScripts(t *testing.T) {
	in := `<p>hello <strong>world</strong></p><script>alert(1)</script>`
	out := Sanitize(in)
	assert.Contains(t, out, "<strong>world</strong>")
	assert.NotContains(t, out, "script")
	assert.NotContains(t, out, "alert")
}

func TestSanitizeStrict_StripsAllTags(t *testing.T) {
	in := `My <em>fancy</em> <a href="https://x">title</a>`
	assert.Equal(t, "My fancy title", SanitizeStrict(in))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	assert.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPassword(hash, "correct horse battery staple"))
	assert.False(t, CheckPassword(hash, "wrong password"))
}
