package compress

import (
	"fmt"
	"io"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// Algorithm selects the stream transform applied between the raw dump and
// the destination file. It is a single global setting for a run.
type Algorithm string

const (
	Plain Algorithm = "plain"
	Gzip  Algorithm = "gzip"
	XZ    Algorithm = "xz"
	LZMA  Algorithm = "lzma"
	BZ2   Algorithm = "bz2"
)

// ParseAlgorithm maps a COMPRESSION setting onto an Algorithm. An empty
// value means plain. Unknown values are a configuration error.
func ParseAlgorithm(value string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(value))) {
	case "", Plain:
		return Plain, nil
	case Gzip:
		return Gzip, nil
	case XZ:
		return XZ, nil
	case LZMA:
		return LZMA, nil
	case BZ2:
		return BZ2, nil
	default:
		return "", fmt.Errorf("unsupported compression algorithm: %q", value)
	}
}

// Suffix is the filename suffix appended after the provider's extension.
// lzma is an alias for xz; both produce the xz container format.
func (a Algorithm) Suffix() string {
	switch a {
	case Gzip:
		return ".gz"
	case XZ, LZMA:
		return ".xz"
	case BZ2:
		return ".bz2"
	default:
		return ""
	}
}

// NewWriter stacks the algorithm's streaming encoder on dst. Closing the
// returned writer flushes the encoder; dst itself is left open. The
// encoders never buffer a whole dump in memory.
func (a Algorithm) NewWriter(dst io.Writer) (io.WriteCloser, error) {
	switch a {
	case Plain:
		return nopWriteCloser{dst}, nil
	case Gzip:
		return gzip.NewWriter(dst), nil
	case XZ, LZMA:
		w, err := xz.NewWriter(dst)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz writer: %w", err)
		}
		return w, nil
	case BZ2:
		w, err := bzip2.NewWriter(dst, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
		if err != nil {
			return nil, fmt.Errorf("failed to create bzip2 writer: %w", err)
		}
		return w, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %q", a)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
