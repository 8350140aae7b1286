package server

import (
	"github.com/lunarisdb/lunaris/internal/bytebuf"
	"github.com/lunarisdb/lunaris/internal/resp"
	"github.com/lunarisdb/lunaris/internal/store"
)

// COMMAND introspection, enough for interactive clients that probe the
// server on connect. The reply is derived from the live registry: one
// [name, arity, flags] element per command. Subcommands such as COMMAND
// DOCS get an empty array, which clients treat as "no documentation".
func registerIntrospection(t *commandTable) {
	t.register(command{name: "COMMAND", arity: -1, run: func(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
		return cmdCommand(t, out, args)
	}})
}

func cmdCommand(t *commandTable, out *bytebuf.Buffer, args [][]byte) bool {
	if len(args) > 1 {
		resp.WriteArrayHeader(out, 0)
		return true
	}

	resp.WriteArrayHeader(out, len(t.cmds))
	for _, c := range t.cmds {
		resp.WriteArrayHeader(out, 3)
		resp.WriteBulkString(out, c.name)
		resp.WriteInteger(out, int64(c.arity))
		if c.write {
			resp.WriteArrayHeader(out, 1)
			resp.WriteSimpleString(out, "write")
		} else {
			resp.WriteArrayHeader(out, 1)
			resp.WriteSimpleString(out, "readonly")
		}
	}
	return true
}
