package wasm

// Binary format constants.
var (
	magic   = []byte{0x00, 0x61, 0x73, 0x6D} // \0asm
	version = []byte{0x01, 0x00, 0x00, 0x00}
)

// Section IDs, in the order they must appear.
const (
	sectionType     byte = 1
	sectionImport   byte = 2
	sectionFunction byte = 3
	sectionExport   byte = 7
	sectionCode     byte = 10
)

const (
	typeFunc   byte = 0x60
	externFunc byte = 0x00
	opEnd      byte = 0x0B
)

// encoder accumulates binary output. All encoders append; none fail.
type encoder struct {
	buf []byte
}

func (e *encoder) byte(b byte) { e.buf = append(e.buf, b) }

func (e *encoder) bytes(b []byte) { e.buf = append(e.buf, b...) }

func (e *encoder) u32(v uint32) { e.buf = appendULEB128(e.buf, uint64(v)) }

func (e *encoder) i32(v int32) { e.buf = appendSLEB128(e.buf, int64(v)) }

func (e *encoder) name(s string) {
	e.u32(uint32(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) valTypes(ts []ValType) {
	e.u32(uint32(len(ts)))
	for _, t := range ts {
		e.byte(byte(t))
	}
}

// section appends a section with its ID and size prefix.
func (e *encoder) section(id byte, contents []byte) {
	e.byte(id)
	e.u32(uint32(len(contents)))
	e.bytes(contents)
}

// appendULEB128 appends value as unsigned LEB128.
func appendULEB128(dst []byte, value uint64) []byte {
	for {
		b := byte(value & 0x7F)
		value >>= 7
		if value != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if value == 0 {
			return dst
		}
	}
}

// appendSLEB128 appends value as signed LEB128.
func appendSLEB128(dst []byte, value int64) []byte {
	for {
		b := byte(value & 0x7F)
		value >>= 7
		if (value == 0 && b&0x40 == 0) || (value == -1 && b&0x40 != 0) {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}
