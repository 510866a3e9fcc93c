package ranger_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ranger "github.com/dwhowett/httpiovec"
)

func TestReaderTableDriven(t *testing.T) {
	content := syntheticResource(1 << 16)
	srv := newRangeServer(t, content)
	client := newHTTPIOClient(t, srv)

	r, err := ranger.NewReader(context.Background(), client, ranger.NewOrchestrator())
	require.NoError(t, err)

	cases := []TestCase{
		&ReadAtTestCase{Offset: 0, Size: 16, MD5: md5Sum(content[0:16])},
		&ReadAtTestCase{Offset: int64(200000 % len(content)), Size: 64, MD5: md5Sum(pad(content, 200000%len(content), 64))},
		&SequentialTestCase{Size: 32, MD5: md5Sum(pad(content, 0, 32))},
	}
	for _, tc := range cases {
		t.Run(tc.Name(), func(t *testing.T) { tc.RunTest(t, r) })
	}
}

// pad slices content[off:off+n], clamping and zero-padding past EOF the
// same way Reader's fixed-size read buffers are zero past EOF.
func pad(content []byte, off, n int) []byte {
	out := make([]byte, n)
	end := off + n
	if end > len(content) {
		end = len(content)
	}
	if off < len(content) {
		copy(out, content[off:end])
	}
	return out
}

func TestReaderReadAtAndSeek(t *testing.T) {
	content := syntheticResource(10000)
	srv := newRangeServer(t, content)
	client := newHTTPIOClient(t, srv)

	r, err := ranger.NewReader(context.Background(), client, nil)
	require.NoError(t, err)
	require.Equal(t, int64(len(content)), r.Length())

	buf := make([]byte, 100)
	n, err := r.ReadAt(buf, 500)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, content[500:600], buf)

	off, err := r.Seek(250, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(250), off)

	n, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, content[250:350], buf)
}

func TestReaderReadAtBeyondEOFFails(t *testing.T) {
	content := syntheticResource(100)
	srv := newRangeServer(t, content)
	client := newHTTPIOClient(t, srv)

	r, err := ranger.NewReader(context.Background(), client, nil)
	require.NoError(t, err)

	buf := make([]byte, 50)
	_, err = r.ReadAt(buf, 90)
	assert.Error(t, err)
}

func TestReaderSeekNegativeFails(t *testing.T) {
	content := syntheticResource(100)
	srv := newRangeServer(t, content)
	client := newHTTPIOClient(t, srv)

	r, err := ranger.NewReader(context.Background(), client, nil)
	require.NoError(t, err)

	_, err = r.Seek(-1, io.SeekStart)
	assert.Error(t, err)
}

// failingInitContext fails Initialize, standing in for the teacher's
// fetcherFailsToInitialize fixture.
type failingInitContext struct{}

func (failingInitContext) Initialize(ctx context.Context) (int64, error) {
	return 0, errors.New("failed to fetch info about thing")
}
func (failingInitContext) URIFragmentParam(key string) (string, bool) { return "", false }
func (failingInitContext) RequestParameters() ranger.RequestParameters {
	return ranger.RequestParameters{}
}
func (failingInitContext) Pread(ctx context.Context, buf []byte, size, offset uint64) (int64, error) {
	return 0, errors.New("should never be reached")
}
func (failingInitContext) NewRequest(ctx context.Context) (ranger.HTTPRequest, error) {
	return nil, errors.New("should never be reached")
}

func TestReaderFailsToInitialize(t *testing.T) {
	_, err := ranger.NewReader(context.Background(), failingInitContext{}, nil)
	assert.Error(t, err)
}
