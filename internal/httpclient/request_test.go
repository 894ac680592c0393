package httpclient

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestPreview(t *testing.T) {
	r := &Response{Body: []byte("  short body \n")}
	assert.Equal(t, "short body", r.Preview(100))

	r = &Response{Body: []byte(strings.Repeat("a", 10))}
	assert.Equal(t, "aaaa…(truncated)", r.Preview(4))
	assert.Equal(t, strings.Repeat("a", 10), r.Preview(0))
}

func TestPreviewKeepsRunesWhole(t *testing.T) {
	// "é" is two bytes; a limit of 2 lands inside the second one.
	r := &Response{Body: []byte("aéé€€")}
	for limit := 1; limit < len(r.Body); limit++ {
		got := r.Preview(limit)
		assert.True(t, utf8.ValidString(got), "limit=%d got=%q", limit, got)
		assert.True(t, strings.HasSuffix(got, "…(truncated)"), "limit=%d", limit)
	}
	assert.Equal(t, "a…(truncated)", r.Preview(2))
	assert.Equal(t, "aé…(truncated)", r.Preview(3))
}
