package ping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	samples := []Sample{
		{Time: 1626457680, Latency: 11.5},
		{Time: 1626457740, Latency: 1000},
		{Time: 1626462480, Latency: 13.9},
		{Time: 1536062893, Latency: 0.123456789},
		{Time: 1, Latency: 0},
	}

	for _, s := range samples {
		line := Encode(s)
		got, err := Decode(line)
		require.NoError(t, err, "line %q", line)
		assert.Equal(t, s, got)
	}
}

func TestEncode_Format(t *testing.T) {
	assert.Equal(t, "1626457680 11.5", Encode(Sample{Time: 1626457680, Latency: 11.5}))
	assert.Equal(t, "1626457740 1000", Encode(Sample{Time: 1626457740, Latency: 1000}))
}

func TestDecode_Malformed(t *testing.T) {
	lines := []string{
		"",
		"malformed",
		"1626457680",
		"1626457680 11.5 extra",
		"abc 11.5",
		"1626457680 abc",
		"1626457680.5 11.5",
		"1626457680 NaN",
		"1626457680 nan",
		"1626457680 Inf",
		"1626457680 +Inf",
		"1626457680 -Inf",
		"1626457680 1e999",
	}

	for _, line := range lines {
		_, err := Decode(line)
		assert.ErrorIs(t, err, ErrMalformedRecord, "line %q", line)
	}
}

func TestDecode_ExtraWhitespace(t *testing.T) {
	s, err := Decode("  1626457680 \t 11.5 \r")
	require.NoError(t, err)
	assert.Equal(t, Sample{Time: 1626457680, Latency: 11.5}, s)
}

func TestDecodeAll_DropsBadLines(t *testing.T) {
	data := []byte("1626457680 11.5\ngarbage\n1626457740 1000\n\n1626462480 13.9\n1626462540 1")

	got := DecodeAll(data)

	assert.Equal(t, []Sample{
		{Time: 1626457680, Latency: 11.5},
		{Time: 1626457740, Latency: 1000},
		{Time: 1626462480, Latency: 13.9},
		{Time: 1626462540, Latency: 1},
	}, got)
}

func TestDecodeAll_DropsNonFiniteLatencies(t *testing.T) {
	data := []byte("1767225600 12.5\n1767225660 NaN\n1767225720 Inf\n1767225780 -Inf\n1767225840 13.5\n")

	got := DecodeAll(data)

	assert.Equal(t, []Sample{
		{Time: 1767225600, Latency: 12.5},
		{Time: 1767225840, Latency: 13.5},
	}, got)
}

func TestDecodeAll_Empty(t *testing.T) {
	assert.Empty(t, DecodeAll(nil))
}

func TestSample_Lost(t *testing.T) {
	assert.False(t, Sample{Latency: 999.99}.Lost())
	assert.True(t, Sample{Latency: LostThreshold}.Lost())
	assert.True(t, Sample{Latency: 1500}.Lost())
}
