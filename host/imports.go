package host

import (
	"errors"
	"fmt"
)

// ImportKind is the external kind of an import.
type ImportKind byte

const (
	KindFunc ImportKind = iota
	KindTable
	KindMemory
	KindGlobal
)

func (k ImportKind) String() string {
	switch k {
	case KindFunc:
		return "func"
	case KindTable:
		return "table"
	case KindMemory:
		return "memory"
	case KindGlobal:
		return "global"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

type importEntry struct {
	module, name string
	kind         ImportKind
}

var errTruncated = errors.New("truncated import section")

// scanImports lists the import section of bin in declaration order.
// wazero reports function and memory imports but not tables or globals,
// so the section is read directly.
func scanImports(bin []byte) ([]importEntry, error) {
	r := &reader{buf: bin, off: 8}
	for r.off < len(r.buf) {
		id, err := r.byte()
		if err != nil {
			return nil, err
		}
		size, err := r.uleb()
		if err != nil {
			return nil, err
		}
		end := r.off + int(size)
		if size > uint64(len(r.buf)) || end > len(r.buf) {
			return nil, errTruncated
		}
		if id != 2 {
			r.off = end
			continue
		}
		sec := &reader{buf: r.buf[:end], off: r.off}
		return sec.imports()
	}
	return nil, nil
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) byte() (byte, error) {
	if r.off >= len(r.buf) {
		return 0, errTruncated
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *reader) uleb() (uint64, error) {
	var v uint64
	for shift := 0; shift < 64; shift += 7 {
		b, err := r.byte()
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, errTruncated
}

func (r *reader) name() (string, error) {
	n, err := r.uleb()
	if err != nil {
		return "", err
	}
	if n > uint64(len(r.buf)-r.off) {
		return "", errTruncated
	}
	s := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	return s, nil
}

func (r *reader) limits() error {
	flags, err := r.byte()
	if err != nil {
		return err
	}
	if _, err := r.uleb(); err != nil {
		return err
	}
	if flags&1 != 0 {
		_, err = r.uleb()
	}
	return err
}

func (r *reader) imports() ([]importEntry, error) {
	count, err := r.uleb()
	if err != nil {
		return nil, err
	}
	var entries []importEntry
	for i := uint64(0); i < count; i++ {
		var e importEntry
		if e.module, err = r.name(); err != nil {
			return nil, err
		}
		if e.name, err = r.name(); err != nil {
			return nil, err
		}
		kind, err := r.byte()
		if err != nil {
			return nil, err
		}
		e.kind = ImportKind(kind)

		switch e.kind {
		case KindFunc:
			_, err = r.uleb()
		case KindTable:
			if _, err = r.byte(); err == nil {
				err = r.limits()
			}
		case KindMemory:
			err = r.limits()
		case KindGlobal:
			if _, err = r.byte(); err == nil {
				_, err = r.byte()
			}
		default:
			err = fmt.Errorf("unknown import kind 0x%02x", kind)
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
