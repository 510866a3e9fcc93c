package ranger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScatterFullBodyLiteralScenario is spec.md section 8's scenario 2:
// ranges [(0,4),(10,4),(20,4)] scattered out of a 200-OK full body.
func TestScatterFullBodyLiteralScenario(t *testing.T) {
	resource := []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123")
	inputs := []RangeRequest{
		{Offset: 0, Size: 4, Buffer: make([]byte, 4)},
		{Offset: 10, Size: 4, Buffer: make([]byte, 4)},
		{Offset: 20, Size: 4, Buffer: make([]byte, 4)},
	}
	req := newFakeRequest(200, nil, resource)

	results, total, err := scatterFullBody(req, inputs)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	assert.Equal(t, "ABCD", string(results[0].Buffer[:results[0].Size]))
	assert.Equal(t, "KLMN", string(results[1].Buffer[:results[1].Size]))
	assert.Equal(t, "UVWX", string(results[2].Buffer[:results[2].Size]))
}

// TestScatterFullBodyOverlappingRanges verifies two ranges that share bytes
// each get their own independent, fully-populated copy.
func TestScatterFullBodyOverlappingRanges(t *testing.T) {
	resource := []byte("0123456789")
	inputs := []RangeRequest{
		{Offset: 2, Size: 6, Buffer: make([]byte, 6)}, // "234567"
		{Offset: 4, Size: 4, Buffer: make([]byte, 4)}, // "4567"
	}
	req := newFakeRequest(200, nil, resource)

	results, total, err := scatterFullBody(req, inputs)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
	assert.Equal(t, "234567", string(results[0].Buffer[:results[0].Size]))
	assert.Equal(t, "4567", string(results[1].Buffer[:results[1].Size]))
}

// TestScatterFullBodyUnsortedInputPreservesResultOrder ensures results are
// indexed by the caller's original input order, not the internal sort order
// used for the interval index.
func TestScatterFullBodyUnsortedInputPreservesResultOrder(t *testing.T) {
	resource := []byte("0123456789")
	inputs := []RangeRequest{
		{Offset: 8, Size: 2, Buffer: make([]byte, 2)}, // "89", requested first
		{Offset: 0, Size: 2, Buffer: make([]byte, 2)}, // "01", requested second
	}
	req := newFakeRequest(200, nil, resource)

	results, _, err := scatterFullBody(req, inputs)
	require.NoError(t, err)
	assert.Equal(t, "89", string(results[0].Buffer[:results[0].Size]))
	assert.Equal(t, "01", string(results[1].Buffer[:results[1].Size]))
}

// TestScatterFullBodySpansMultipleReadBlocks forces several internal
// scatterBlockSize-sized reads by serving a body three blocks long and checks
// that a range crossing a block boundary is still assembled correctly.
func TestScatterFullBodySpansMultipleReadBlocks(t *testing.T) {
	resource := make([]byte, scatterBlockSize*3)
	for i := range resource {
		resource[i] = byte(i % 256)
	}
	spanOffset := uint64(scatterBlockSize - 5)
	spanSize := uint64(10) // straddles the block boundary
	inputs := []RangeRequest{
		{Offset: spanOffset, Size: spanSize, Buffer: make([]byte, spanSize)},
	}
	req := newFakeRequest(200, nil, resource)

	results, total, err := scatterFullBody(req, inputs)
	require.NoError(t, err)
	assert.Equal(t, int64(spanSize), total)
	assert.Equal(t, resource[spanOffset:spanOffset+spanSize], results[0].Buffer)
}
