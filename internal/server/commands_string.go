package server

import (
	"github.com/lunarisdb/lunaris/internal/bytebuf"
	"github.com/lunarisdb/lunaris/internal/resp"
	"github.com/lunarisdb/lunaris/internal/store"
)

func registerStringCommands(t *commandTable) {
	t.register(command{name: "PING", arity: -1, run: cmdPing})
	t.register(command{name: "ECHO", arity: 2, run: cmdEcho})
	t.register(command{name: "SET", arity: 3, write: true, run: cmdSet})
	t.register(command{name: "GET", arity: 2, run: cmdGet})
}

func cmdPing(_ *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	if len(args) == 1 {
		resp.WriteSimpleString(out, "PONG")
	} else {
		resp.WriteBulk(out, args[1])
	}
	return true
}

func cmdEcho(_ *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	resp.WriteBulk(out, args[1])
	return true
}

func cmdSet(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	db.SetString(string(args[1]), args[2])
	resp.WriteSimpleString(out, "OK")
	return true
}

func cmdGet(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	val, found, isString := db.Get(string(args[1]))
	if !found {
		resp.WriteNull(out)
		return true
	}
	if !isString {
		resp.WriteError(out, wrongTypeErr)
		return false
	}
	resp.WriteBulk(out, val)
	return true
}
