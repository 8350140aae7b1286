package resp

import (
	"strconv"

	"github.com/lunarisdb/lunaris/internal/bytebuf"
)

// Reply serialization. Each writer appends one complete reply element to the
// connection's outgoing buffer. Array replies are an array header followed by
// one element writer call per member.

// WriteSimpleString appends +s\r\n.
func WriteSimpleString(b *bytebuf.Buffer, s string) {
	b.AppendByte(TypeSimpleString)
	b.AppendString(s)
	b.AppendString("\r\n")
}

// WriteError appends -msg\r\n.
func WriteError(b *bytebuf.Buffer, msg string) {
	b.AppendByte(TypeError)
	b.AppendString(msg)
	b.AppendString("\r\n")
}

// WriteInteger appends :n\r\n.
func WriteInteger(b *bytebuf.Buffer, n int64) {
	b.AppendByte(TypeInteger)
	b.AppendString(strconv.FormatInt(n, 10))
	b.AppendString("\r\n")
}

// WriteBulk appends $len\r\npayload\r\n. The payload is written by length and
// may contain any byte values.
func WriteBulk(b *bytebuf.Buffer, payload []byte) {
	b.AppendByte(TypeBulkString)
	b.AppendString(strconv.Itoa(len(payload)))
	b.AppendString("\r\n")
	b.Append(payload)
	b.AppendString("\r\n")
}

// WriteBulkString is WriteBulk for string payloads.
func WriteBulkString(b *bytebuf.Buffer, s string) {
	b.AppendByte(TypeBulkString)
	b.AppendString(strconv.Itoa(len(s)))
	b.AppendString("\r\n")
	b.AppendString(s)
	b.AppendString("\r\n")
}

// WriteNull appends the null bulk string $-1\r\n.
func WriteNull(b *bytebuf.Buffer) {
	b.AppendString("$-1\r\n")
}

// WriteArrayHeader appends *n\r\n. The n member elements follow.
func WriteArrayHeader(b *bytebuf.Buffer, n int) {
	b.AppendByte(TypeArray)
	b.AppendString(strconv.Itoa(n))
	b.AppendString("\r\n")
}
