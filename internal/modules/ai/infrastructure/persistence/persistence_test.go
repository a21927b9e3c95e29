package persistence

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateError(t *testing.T) {
	assert.Equal(t, "boom", TruncateError("  boom \n"))
	assert.Len(t, TruncateError(strings.Repeat("x", 400)), maxLastErrorLen)

	// 三字节汉字不能被截成半个
	got := TruncateError(strings.Repeat("错", 100))
	assert.True(t, utf8.ValidString(got))
	assert.Len(t, got, 255)
}
