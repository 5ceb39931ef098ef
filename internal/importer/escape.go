package importer

import "io"

type escState int

const (
	// outside of a quoted field
	escStart escState = iota
	// inside a quoted field
	escQuoted
	// inside a quoted field, previous byte was a backslash
	escBackslash
)

// unescapeReader rewrites backslash-escaped quotes inside quoted CSV fields
// (\" becomes "") so encoding/csv accepts exports that use C-style escaping.
// \n inside a quoted field becomes a newline; any other escaped byte is kept
// as is.
type unescapeReader struct {
	src       io.Reader
	buf       []byte
	remaining []byte
	pending   []byte // bytes to emit before remaining
	state     escState
	err       error // sticky error from src, reported once remaining drains
}

func newUnescapeReader(r io.Reader) *unescapeReader {
	return &unescapeReader{
		src: r,
		buf: make([]byte, 4096),
	}
}

func (u *unescapeReader) Read(p []byte) (int, error) {
	if len(u.pending) != 0 {
		n := copy(p, u.pending)
		u.pending = u.pending[n:]
		return n, nil
	}

	if len(u.remaining) == 0 {
		if u.err != nil {
			return 0, u.err
		}
		n, err := u.src.Read(u.buf)
		u.err = err
		if n == 0 {
			return 0, err
		}
		u.remaining = u.buf[:n]
	}

	i := 0
	for i < len(p) && len(u.remaining) != 0 {
		next := u.remaining[0]
		u.remaining = u.remaining[1:]
		switch u.state {
		case escStart:
			p[i] = next
			i++
			if next == '"' {
				u.state = escQuoted
			}
		case escQuoted:
			switch next {
			case '"':
				p[i] = next
				i++
				u.state = escStart
			case '\\':
				u.state = escBackslash
			default:
				p[i] = next
				i++
			}
		case escBackslash:
			switch next {
			case '"':
				u.pending = []byte{'"', '"'}
			case 'n':
				u.pending = []byte{'\n'}
			default:
				u.pending = []byte{next}
			}
			u.state = escQuoted
			return i, nil
		}
	}
	return i, nil
}
