package pipeline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPayload(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want payloadClass
	}{
		{"LargeBinary", media(300), payloadContent},
		{"ExactlyThreshold", media(256), payloadContent},
		{"LargeJSONIsStillContent", append([]byte(`{"message":"x"`), append(bytes.Repeat([]byte(" "), 300), '}')...), payloadContent},
		{"SmallJSONObject", []byte(`{"message":"Not found"}`), payloadError},
		{"SmallJSONWithWhitespace", []byte("  \n{\"message\":\"busy\"}\n"), payloadError},
		{"Empty", nil, payloadError},
		{"WhitespaceOnly", []byte("   \n"), payloadError},
		{"SmallBinary", media(40), payloadContent},
		{"SmallBraceNotJSON", []byte("{not json"), payloadContent},
		{"SmallJSONArray", []byte(`[1,2]`), payloadContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyPayload(tt.data, 256))
		})
	}
}

func TestRetryPredicates(t *testing.T) {
	atLeast := CodeAtLeast(13)
	assert.False(t, atLeast(0))
	assert.False(t, atLeast(7))
	assert.True(t, atLeast(13))
	assert.True(t, atLeast(14))

	in := CodeIn(4, 14)
	assert.True(t, in(4))
	assert.True(t, in(14))
	assert.False(t, in(13))
}

func TestPayloadClassString(t *testing.T) {
	assert.Equal(t, "content", payloadContent.String())
	assert.Equal(t, "error_payload", payloadError.String())
}
