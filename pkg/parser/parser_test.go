package parser

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tourplan/tourplan/pkg/errors"
)

const sampleInstance = `2 3 120
2 1 1
2 1
1 2 9
3
0 0 0 0 0 0 480
1 10 0 15 8 0 200 30 1 0 0
2 0 10 20 6 60 300 25 0 1 1
# 注释行
3 5 5 10 4 0 480 10 0 0 1
`

func TestParse(t *testing.T) {
	p, err := Parse(strings.NewReader(sampleInstance))
	require.NoError(t, err)

	assert.Equal(t, 2, p.TourCount)
	assert.Equal(t, 3, p.POICount)
	assert.Equal(t, 120.0, p.Budget)
	assert.Equal(t, []int{2, 1, 1}, p.MaxPerType)
	assert.Equal(t, [][]int{{1, 2}, {3}}, p.Patterns)
	require.Len(t, p.POIs, 4)

	depot := p.Depot()
	require.NotNil(t, depot)
	assert.Equal(t, 480.0, depot.Close)
	assert.Empty(t, depot.Types)

	poi := p.POI(2)
	require.NotNil(t, poi)
	assert.Equal(t, []int{2, 3}, poi.Types)
	assert.Equal(t, 25.0, poi.Cost)
	assert.Equal(t, 60.0, poi.Open)

	assert.NoError(t, p.Validate())
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{
			name:  "首行字段不足",
			input: "2 3\n",
			line:  1,
		},
		{
			name:  "缺少类别标记",
			input: "1 1 10\n1\n1\n1\n0 0 0 0 0 0 100\n1 1 1 1 1 0 50 2 0\n",
			line:  6,
		},
		{
			name:  "字段数量不足",
			input: "1 1 10\n1\n1\n1\n0 0 0 0 0\n",
			line:  5,
		},
		{
			name:  "非数值字段",
			input: "1 1 10\n1\n1\nx\n",
			line:  4,
		},
		{
			name:  "模式截断",
			input: "2 1 10\n1\n1 1\n1\n",
			line:  4,
		},
		{
			name:  "兴趣点记录少于声明",
			input: "1 2 10\n1\n1\n1\n0 0 0 0 0 0 100\n1 1 1 1 1 0 50 2 1\n",
			line:  6,
		},
		{
			name:  "兴趣点记录多于声明",
			input: "1 1 10\n2\n1\n1\n0 0 0 0 0 0 100\n1 1 1 1 1 0 50 2 1\n2 2 2 1 1 0 50 2 1\n",
			line:  7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.CodeInputMalformed), "got %v", err)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.line, appErr.Fields["line"])
		})
	}
}

func TestDetectCompression(t *testing.T) {
	assert.Equal(t, CompressionGzip, DetectCompression("a/b/pr01.txt.gz"))
	assert.Equal(t, CompressionZstd, DetectCompression("pr01.ZST"))
	assert.Equal(t, CompressionLZ4, DetectCompression("pr01.lz4"))
	assert.Equal(t, CompressionNone, DetectCompression("pr01.txt"))
}

func TestParseFile_Compressed(t *testing.T) {
	dir := t.TempDir()

	writers := map[string]func(w io.Writer) io.WriteCloser{
		"plain.txt": func(w io.Writer) io.WriteCloser { return nopWriteCloser{w} },
		"inst.gz":   func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) },
		"inst.lz4":  func(w io.Writer) io.WriteCloser { return lz4.NewWriter(w) },
		"inst.zst": func(w io.Writer) io.WriteCloser {
			enc, err := zstd.NewWriter(w)
			require.NoError(t, err)
			return enc
		},
	}

	for name, wrap := range writers {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			w := wrap(&buf)
			_, err := w.Write([]byte(sampleInstance))
			require.NoError(t, err)
			require.NoError(t, w.Close())

			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

			p, err := ParseFile(path)
			require.NoError(t, err)
			assert.Len(t, p.POIs, 4)
			assert.NotEmpty(t, p.Name)
		})
	}
}

func TestParseFile_Directory(t *testing.T) {
	_, err := ParseFile(t.TempDir())
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput))
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
