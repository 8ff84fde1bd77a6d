package remote

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		in   string
		want Ref
	}{
		{"1AbCdEf", Ref{Provider: ProviderGDrive, ID: "1AbCdEf"}},
		{"  1AbCdEf\n", Ref{Provider: ProviderGDrive, ID: "1AbCdEf"}},
		{"gdrive:1AbCdEf", Ref{Provider: ProviderGDrive, ID: "1AbCdEf"}},
		{"dropbox:/Photos/2024/", Ref{Provider: ProviderDropbox, ID: "/Photos/2024"}},
		{"dropbox:/", Ref{Provider: ProviderDropbox, ID: ""}},
		{"dropbox:id:a4ayc_80_OEAAAAAAAAAXw", Ref{Provider: ProviderDropbox, ID: "id:a4ayc_80_OEAAAAAAAAAXw"}},
	}

	for _, tt := range tests {
		got, err := ParseRef(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "   ", "gdrive:", "s3:bucket"} {
		_, err := ParseRef(bad)
		assert.Error(t, err, bad)
	}
}

func TestRefString(t *testing.T) {
	assert.Equal(t, "dropbox:/Photos", Ref{Provider: ProviderDropbox, ID: "/Photos"}.String())
}

func TestRangeStreamChunks(t *testing.T) {
	data := []byte("0123456789")
	var ranges [][2]int64

	fetch := func(_ context.Context, offset, length int64) (io.ReadCloser, int64, error) {
		ranges = append(ranges, [2]int64{offset, length})
		return io.NopCloser(bytes.NewReader(data[offset : offset+length])), int64(len(data)), nil
	}

	s := newRangeStream(fetch, int64(len(data)), 4)

	var got []byte
	for {
		c, err := s.Next(context.Background())
		require.NoError(t, err)
		got = append(got, c.Data...)
		assert.Equal(t, int64(10), c.Total)
		if c.Done {
			assert.Equal(t, int64(10), c.Received)
			break
		}
	}

	assert.Equal(t, data, got)
	assert.Equal(t, [][2]int64{{0, 4}, {4, 4}, {8, 2}}, ranges)
}

func TestRangeStreamFailureDoesNotAdvance(t *testing.T) {
	data := []byte("abcdef")
	fail := true

	fetch := func(_ context.Context, offset, length int64) (io.ReadCloser, int64, error) {
		if fail {
			fail = false
			return nil, -1, errors.New("boom")
		}
		return io.NopCloser(bytes.NewReader(data[offset : offset+length])), -1, nil
	}

	s := newRangeStream(fetch, int64(len(data)), 3)

	_, err := s.Next(context.Background())
	require.Error(t, err)

	c, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), c.Data)
	assert.Equal(t, int64(3), c.Received)
}

func TestRangeStreamShortRead(t *testing.T) {
	fetch := func(_ context.Context, _, _ int64) (io.ReadCloser, int64, error) {
		return io.NopCloser(bytes.NewReader([]byte("ab"))), -1, nil
	}

	s := newRangeStream(fetch, 4, 4)

	_, err := s.Next(context.Background())
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestRangeStreamEmptyObject(t *testing.T) {
	fetch := func(_ context.Context, _, _ int64) (io.ReadCloser, int64, error) {
		t.Fatal("empty object must not be fetched")
		return nil, -1, nil
	}

	c, err := newRangeStream(fetch, 0, 4).Next(context.Background())
	require.NoError(t, err)
	assert.True(t, c.Done)
	assert.Zero(t, c.Total)
}

func TestRangeStreamSizeChanged(t *testing.T) {
	for _, current := range []int64{12, 2} {
		fetch := func(_ context.Context, _, length int64) (io.ReadCloser, int64, error) {
			return io.NopCloser(bytes.NewReader(make([]byte, length))), current, nil
		}

		s := newRangeStream(fetch, 8, 4)

		_, err := s.Next(context.Background())
		require.ErrorIs(t, err, ErrSizeChanged, current)

		_, err = s.Next(context.Background())
		assert.ErrorIs(t, err, ErrSizeChanged, "a stale stream must not advance")
	}
}

func TestContentRangeTotal(t *testing.T) {
	assert.Equal(t, int64(10), contentRangeTotal("bytes 0-3/10"))
	assert.Equal(t, int64(-1), contentRangeTotal("bytes 0-3/*"))
	assert.Equal(t, int64(-1), contentRangeTotal(""))
}

func TestRangeHeader(t *testing.T) {
	assert.Equal(t, "bytes=0-3", rangeHeader(0, 4))
	assert.Equal(t, "bytes=8-9", rangeHeader(8, 2))
}
