package fallback

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"image-123", "image-123"},
		{"video-abc.mp4", "video-abc.mp4"},
		{"../../etc/passwd", "_.._etc_passwd"},
		{"a/b\\c:d", "a_b_c_d"},
		{".hidden", "hidden"},
		{"tab\there", "tab_here"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := SanitizeName(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "/")
		})
	}
}

func TestSanitizeName_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "...", "."} {
		_, err := SanitizeName(in)
		assert.ErrorIs(t, err, ErrInvalidName, "input %q", in)
	}
}

func TestSanitizeName_Truncates(t *testing.T) {
	got, err := SanitizeName(strings.Repeat("x", 500))
	require.NoError(t, err)
	assert.Len(t, got, maxNameLength)
}

func TestSanitizeName_TruncatesOnRuneBoundary(t *testing.T) {
	// 'x' then 3-byte runes, so byte 200 lands mid-rune.
	got, err := SanitizeName("x" + strings.Repeat("日", 100))
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), maxNameLength)
	assert.Equal(t, "x"+strings.Repeat("日", 66), got)
}
