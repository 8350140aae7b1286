package server

import (
	"github.com/lunarisdb/lunaris/internal/bytebuf"
	"github.com/lunarisdb/lunaris/internal/resp"
	"github.com/lunarisdb/lunaris/internal/store"
)

func registerHashCommands(t *commandTable) {
	t.register(command{name: "HSET", arity: -4, write: true, run: cmdHSet})
	t.register(command{name: "HGET", arity: 3, run: cmdHGet})
	t.register(command{name: "HDEL", arity: -3, write: true, run: cmdHDel})
	t.register(command{name: "HGETALL", arity: 2, run: cmdHGetAll})
	t.register(command{name: "HLEN", arity: 2, run: cmdHLen})
}

func cmdHSet(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	if (len(args)-2)%2 != 0 {
		resp.WriteError(out, wrongArity("HSET"))
		return false
	}

	entry, wrongType := typedOrCreate(db, string(args[1]), store.TypeHash, store.NewHash)
	if wrongType {
		resp.WriteError(out, wrongTypeErr)
		return false
	}

	var added int64
	for i := 2; i < len(args); i += 2 {
		field := string(args[i])
		if _, exists := entry.Value.Hash[field]; !exists {
			added++
		}
		entry.Value.Hash[field] = args[i+1]
	}
	resp.WriteInteger(out, added)
	return true
}

func cmdHGet(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	entry, wrongType := typedEntry(db, string(args[1]), store.TypeHash)
	if wrongType {
		resp.WriteError(out, wrongTypeErr)
		return false
	}
	if entry == nil {
		resp.WriteNull(out)
		return true
	}

	val, exists := entry.Value.Hash[string(args[2])]
	if !exists {
		resp.WriteNull(out)
		return true
	}
	resp.WriteBulk(out, val)
	return true
}

func cmdHDel(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	key := string(args[1])
	entry, wrongType := typedEntry(db, key, store.TypeHash)
	if wrongType {
		resp.WriteError(out, wrongTypeErr)
		return false
	}
	if entry == nil {
		resp.WriteInteger(out, 0)
		return true
	}

	var removed int64
	for _, field := range args[2:] {
		if _, exists := entry.Value.Hash[string(field)]; exists {
			delete(entry.Value.Hash, string(field))
			removed++
		}
	}
	if len(entry.Value.Hash) == 0 {
		db.Del(key)
	}
	resp.WriteInteger(out, removed)
	return true
}

func cmdHGetAll(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	entry, wrongType := typedEntry(db, string(args[1]), store.TypeHash)
	if wrongType {
		resp.WriteError(out, wrongTypeErr)
		return false
	}
	if entry == nil {
		resp.WriteArrayHeader(out, 0)
		return true
	}

	resp.WriteArrayHeader(out, len(entry.Value.Hash)*2)
	for field, val := range entry.Value.Hash {
		resp.WriteBulkString(out, field)
		resp.WriteBulk(out, val)
	}
	return true
}

func cmdHLen(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	entry, wrongType := typedEntry(db, string(args[1]), store.TypeHash)
	if wrongType {
		resp.WriteError(out, wrongTypeErr)
		return false
	}
	if entry == nil {
		resp.WriteInteger(out, 0)
		return true
	}
	resp.WriteInteger(out, int64(len(entry.Value.Hash)))
	return true
}
