package bytebuf

// Buffer is a contiguous byte region with separate read and write cursors.
// Unconsumed data lives in [readPos, writePos); the space after writePos is
// available for appends. A fresh Buffer holds no memory at all, so idle
// connections cost nothing until the first byte arrives.
type Buffer struct {
	data     []byte
	readPos  int
	writePos int
}

// initialCapacity is used the first time a zero-capacity buffer grows.
const initialCapacity = 64

// ReadableBytes returns the number of unconsumed bytes.
func (b *Buffer) ReadableBytes() int {
	return b.writePos - b.readPos
}

// WritableBytes returns the free space behind the write cursor.
func (b *Buffer) WritableBytes() int {
	return len(b.data) - b.writePos
}

// Peek returns the unconsumed region without copying. The slice is only
// valid until the next mutating call.
func (b *Buffer) Peek() []byte {
	return b.data[b.readPos:b.writePos]
}

// WritableSlice returns the free region behind the write cursor. Callers
// fill it directly (a socket read) and then call AdvanceWrite.
func (b *Buffer) WritableSlice() []byte {
	return b.data[b.writePos:]
}

// AdvanceWrite moves the write cursor after n bytes were written into the
// slice returned by WritableSlice.
func (b *Buffer) AdvanceWrite(n int) {
	if b.writePos+n > len(b.data) {
		panic("bytebuf: advance past capacity")
	}
	b.writePos += n
}

// Consume advances the read cursor by n bytes. When everything has been
// consumed both cursors reset to zero, so the request-response steady state
// never compacts or grows.
func (b *Buffer) Consume(n int) {
	if n > b.ReadableBytes() {
		panic("bytebuf: consume past write cursor")
	}
	b.readPos += n
	if b.readPos == b.writePos {
		b.readPos = 0
		b.writePos = 0
	}
}

// Append copies p behind the write cursor, growing as needed.
func (b *Buffer) Append(p []byte) {
	b.EnsureWritable(len(p))
	copy(b.data[b.writePos:], p)
	b.writePos += len(p)
}

// AppendByte copies a single byte behind the write cursor.
func (b *Buffer) AppendByte(c byte) {
	b.EnsureWritable(1)
	b.data[b.writePos] = c
	b.writePos++
}

// AppendString copies s behind the write cursor.
func (b *Buffer) AppendString(s string) {
	b.EnsureWritable(len(s))
	copy(b.data[b.writePos:], s)
	b.writePos += len(s)
}

// EnsureWritable guarantees at least n bytes of space behind the write
// cursor. Three tiers, cheapest first: the space is already there; the
// consumed prefix can be reclaimed by shifting live data to the front; the
// backing array must grow (doubling until the request fits).
func (b *Buffer) EnsureWritable(n int) {
	if b.WritableBytes() >= n {
		return
	}

	readable := b.ReadableBytes()

	if len(b.data)-readable >= n {
		copy(b.data, b.data[b.readPos:b.writePos])
		b.readPos = 0
		b.writePos = readable
		return
	}

	copy(b.data, b.data[b.readPos:b.writePos])
	b.readPos = 0
	b.writePos = readable

	needed := readable + n
	capacity := len(b.data)
	if capacity == 0 {
		capacity = initialCapacity
	}
	for capacity < needed {
		capacity *= 2
	}
	grown := make([]byte, capacity)
	copy(grown, b.data[:readable])
	b.data = grown
}
