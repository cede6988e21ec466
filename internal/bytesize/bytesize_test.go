package bytesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		in   string
		want ByteSize
	}{
		{"0", 0},
		{"256", 256},
		{"256B", 256},
		{"1Ki", KiB},
		{"1KiB", KiB},
		{"2k", 2 * KB},
		{"50MB", 50 * MB},
		{"1.5Gi", GiB + GiB/2},
		{"  10 Mi ", 10 * MiB},
		{"1TiB", TiB},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseByteSize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseByteSizeErrors(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "-1", "10XB", "1.2.3M"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseByteSize(in)
			assert.Error(t, err)
		})
	}
}

func TestMarshalText(t *testing.T) {
	tests := []struct {
		in   ByteSize
		want string
	}{
		{0, "0"},
		{256, "256"},
		{KiB, "1Ki"},
		{1536, "1536"},
		{50 * MiB, "50Mi"},
		{3 * GiB, "3Gi"},
		{2 * TiB, "2Ti"},
	}
	for _, tt := range tests {
		out, err := tt.in.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(out))

		var back ByteSize
		require.NoError(t, back.UnmarshalText(out))
		assert.Equal(t, tt.in, back)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	type doc struct {
		Limit ByteSize `yaml:"limit"`
	}

	out, err := yaml.Marshal(doc{Limit: 64 * MiB})
	require.NoError(t, err)
	assert.Contains(t, string(out), "limit: 64Mi")

	var got doc
	require.NoError(t, yaml.Unmarshal([]byte("limit: 1Gi\n"), &got))
	assert.Equal(t, GiB, got.Limit)
}

func TestString(t *testing.T) {
	assert.Equal(t, "512B", ByteSize(512).String())
	assert.Equal(t, "1.50KiB", ByteSize(1536).String())
	assert.Equal(t, "50.00MiB", (50 * MiB).String())
	assert.Equal(t, "2.00GiB", (2 * GiB).String())
	assert.Equal(t, "1.00TiB", TiB.String())
}

func TestJSONSchema(t *testing.T) {
	s := ByteSize(0).JSONSchema()
	require.Len(t, s.OneOf, 2)
	assert.Equal(t, "integer", s.OneOf[0].Type)
	assert.Equal(t, "string", s.OneOf[1].Type)
	assert.Equal(t, int64(256), ByteSize(256).Int64())
}
