package dump

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	gzip "github.com/klauspost/pgzip"
)

// DefaultMaxLineBytes bounds a single dump line. Some works carry very long
// descriptions and subject lists, so this is far above bufio's default.
const DefaultMaxLineBytes = 64 << 20

// ErrLineTooLong is reported through LineErr for a line above the cap. The
// line is consumed and reading continues with the next one.
var ErrLineTooLong = errors.New("dump line too long")

type Options struct {
	MaxLineBytes int
	// Wrap, when set, wraps the raw file reader before decompression. size is
	// the on-disk size of the file. Used for progress reporting.
	Wrap func(r io.Reader, size int64) io.Reader
}

// Reader iterates the lines of a dump file. Files ending in .gz or .zst are
// decompressed on the fly.
type Reader struct {
	file    *os.File
	closers []func() error
	br      *bufio.Reader
	maxLine int
	size    int64

	line    int
	buf     []byte
	text    string
	lineErr error
	err     error
}

// Open opens a dump for reading. The caller must Close it.
func Open(path string, opts Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dump: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat dump: %w", err)
	}

	r := &Reader{file: f, size: st.Size()}

	var src io.Reader = f
	if opts.Wrap != nil {
		src = opts.Wrap(src, r.size)
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		g, err := gzip.NewReader(src)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip dump: %w", err)
		}
		r.closers = append(r.closers, g.Close)
		src = g
	case strings.HasSuffix(path, ".zst"), strings.HasSuffix(path, ".zstd"):
		z, err := zstd.NewReader(src)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open zstd dump: %w", err)
		}
		r.closers = append(r.closers, func() error { z.Close(); return nil })
		src = z
	}

	maxLine := opts.MaxLineBytes
	if maxLine <= 0 {
		maxLine = DefaultMaxLineBytes
	}
	r.maxLine = maxLine
	r.br = bufio.NewReaderSize(src, 64*1024)
	return r, nil
}

// Next advances to the next line. It returns false at the end of the dump
// or on a read error, which Err then reports.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	r.buf = r.buf[:0]
	r.text, r.lineErr = "", nil

	var read int
	tooLong := false
	for {
		frag, err := r.br.ReadSlice('\n')
		read += len(frag)
		if !tooLong {
			r.buf = append(r.buf, frag...)
			if len(dropEOL(r.buf)) > r.maxLine {
				tooLong = true
				r.buf = r.buf[:0]
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			if read == 0 {
				return false
			}
			r.err = io.EOF
			break
		}
		if err != nil {
			r.err = err
			return false
		}
		break
	}

	r.line++
	if tooLong {
		r.lineErr = fmt.Errorf("%w: more than %d bytes", ErrLineTooLong, r.maxLine)
		return true
	}
	r.text = string(dropEOL(r.buf))
	return true
}

// Text returns the current line without its terminator.
func (r *Reader) Text() string { return r.text }

// LineErr is non-nil when the current line could not be returned, currently
// only ErrLineTooLong.
func (r *Reader) LineErr() error { return r.lineErr }

// Line returns the 1-based number of the current line.
func (r *Reader) Line() int { return r.line }

// Size is the on-disk size of the dump, compressed if it is compressed.
func (r *Reader) Size() int64 { return r.size }

// Err returns the first read error, if any. Reaching the end is not an error.
func (r *Reader) Err() error {
	if r.err == nil || errors.Is(r.err, io.EOF) {
		return nil
	}
	return fmt.Errorf("read dump line %d: %w", r.line+1, r.err)
}

func dropEOL(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte{'\n'})
	return bytes.TrimSuffix(b, []byte{'\r'})
}

func (r *Reader) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	if err := r.file.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
