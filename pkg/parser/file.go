package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	apperrors "github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/model"
)

// Compression 实例文件压缩格式
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

// DetectCompression 根据扩展名判断压缩格式
func DetectCompression(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return CompressionGzip
	case ".zst", ".zstd":
		return CompressionZstd
	case ".lz4":
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// ParseFile 解析实例文件，按扩展名透明解压
func ParseFile(path string) (*model.Problem, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "无法读取实例文件").WithField("path", path)
	}
	if info.IsDir() {
		return nil, apperrors.InvalidInput("file", fmt.Sprintf("%s 不是文件", path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "无法打开实例文件").WithField("path", path)
	}
	defer f.Close()

	r, closer, err := Decompress(f, DetectCompression(path))
	if err != nil {
		return nil, err
	}
	defer closer()

	p, err := Parse(r)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

// Decompress 按压缩格式包装读取器，返回的关闭函数释放解码器
func Decompress(r io.Reader, c Compression) (io.Reader, func(), error) {
	switch c {
	case CompressionGzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, apperrors.Wrap(err, apperrors.CodeInputMalformed, "gzip 解压失败")
		}
		return gr, func() { gr.Close() }, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, apperrors.Wrap(err, apperrors.CodeInputMalformed, "zstd 解压失败")
		}
		return dec, dec.Close, nil
	case CompressionLZ4:
		return lz4.NewReader(r), func() {}, nil
	default:
		return r, func() {}, nil
	}
}
