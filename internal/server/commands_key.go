package server

import (
	"strconv"
	"time"

	"github.com/lunarisdb/lunaris/internal/bytebuf"
	"github.com/lunarisdb/lunaris/internal/resp"
	"github.com/lunarisdb/lunaris/internal/store"
)

func registerKeyCommands(t *commandTable) {
	t.register(command{name: "DEL", arity: -2, write: true, run: cmdDel})
	t.register(command{name: "EXISTS", arity: -2, run: cmdExists})
	t.register(command{name: "KEYS", arity: 2, run: cmdKeys})
	t.register(command{name: "EXPIRE", arity: 3, write: true, run: cmdExpire})
	t.register(command{name: "TTL", arity: 2, run: cmdTTL})
	t.register(command{name: "PEXPIRE", arity: 3, write: true, run: cmdPexpire})
	t.register(command{name: "PTTL", arity: 2, run: cmdPTTL})
	t.register(command{name: "DBSIZE", arity: 1, run: cmdDBSize})
	t.register(command{name: "TYPE", arity: 2, run: cmdType})
}

func parseInt(arg []byte) (int64, bool) {
	n, err := strconv.ParseInt(string(arg), 10, 64)
	return n, err == nil
}

func cmdDel(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	var count int64
	for _, key := range args[1:] {
		if db.Del(string(key)) {
			count++
		}
	}
	resp.WriteInteger(out, count)
	return true
}

func cmdExists(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	var count int64
	for _, key := range args[1:] {
		if db.Exists(string(key)) {
			count++
		}
	}
	resp.WriteInteger(out, count)
	return true
}

// cmdKeys supports only the literal pattern "*"; the argument is accepted
// syntactically either way.
func cmdKeys(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	if string(args[1]) != "*" {
		resp.WriteError(out, syntaxErr)
		return false
	}
	keys := db.Keys()
	resp.WriteArrayHeader(out, len(keys))
	for _, key := range keys {
		resp.WriteBulkString(out, key)
	}
	return true
}

func cmdExpire(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	seconds, ok := parseInt(args[2])
	if !ok {
		resp.WriteError(out, notIntegerErr)
		return false
	}
	set := db.SetExpire(string(args[1]), time.Now().UnixMilli()+seconds*1000)
	resp.WriteInteger(out, boolToInt(set))
	return true
}

func cmdPexpire(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	ms, ok := parseInt(args[2])
	if !ok {
		resp.WriteError(out, notIntegerErr)
		return false
	}
	set := db.SetExpire(string(args[1]), time.Now().UnixMilli()+ms)
	resp.WriteInteger(out, boolToInt(set))
	return true
}

func cmdTTL(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	remaining := db.TTL(string(args[1]))
	if remaining >= 0 {
		remaining /= 1000
	}
	resp.WriteInteger(out, remaining)
	return true
}

func cmdPTTL(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	resp.WriteInteger(out, db.TTL(string(args[1])))
	return true
}

func cmdDBSize(db *store.DB, out *bytebuf.Buffer, _ [][]byte) bool {
	resp.WriteInteger(out, int64(db.DBSize()))
	return true
}

func cmdType(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	entry := db.FindEntry(string(args[1]))
	if entry == nil {
		resp.WriteSimpleString(out, "none")
		return true
	}
	resp.WriteSimpleString(out, entry.Value.Type.TypeName())
	return true
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
