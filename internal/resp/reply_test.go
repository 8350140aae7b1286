package resp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lunarisdb/lunaris/internal/bytebuf"
	"github.com/lunarisdb/lunaris/internal/resp"
)

func TestReplyWriters(t *testing.T) {
	tests := []struct {
		name  string
		write func(b *bytebuf.Buffer)
		want  string
	}{
		{"simple string", func(b *bytebuf.Buffer) { resp.WriteSimpleString(b, "OK") }, "+OK\r\n"},
		{"error", func(b *bytebuf.Buffer) { resp.WriteError(b, "ERR boom") }, "-ERR boom\r\n"},
		{"integer", func(b *bytebuf.Buffer) { resp.WriteInteger(b, 42) }, ":42\r\n"},
		{"negative integer", func(b *bytebuf.Buffer) { resp.WriteInteger(b, -2) }, ":-2\r\n"},
		{"bulk", func(b *bytebuf.Buffer) { resp.WriteBulk(b, []byte("hello")) }, "$5\r\nhello\r\n"},
		{"empty bulk", func(b *bytebuf.Buffer) { resp.WriteBulkString(b, "") }, "$0\r\n\r\n"},
		{"null bulk", resp.WriteNull, "$-1\r\n"},
		{"array header", func(b *bytebuf.Buffer) { resp.WriteArrayHeader(b, 3) }, "*3\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b bytebuf.Buffer
			tt.write(&b)
			assert.Equal(t, tt.want, string(b.Peek()))
		})
	}
}

func TestEncodeCommand(t *testing.T) {
	frame := resp.EncodeCommandStrings("SET", "a", "1")
	assert.Equal(t, "*3\r\n$3\r\nSET\r\n$1\r\na\r\n$1\r\n1\r\n", string(frame))
}

func TestRepliesConcatenateInOrder(t *testing.T) {
	var b bytebuf.Buffer
	resp.WriteArrayHeader(&b, 2)
	resp.WriteBulkString(&b, "x")
	resp.WriteInteger(&b, 7)
	assert.Equal(t, "*2\r\n$1\r\nx\r\n:7\r\n", string(b.Peek()))
}
