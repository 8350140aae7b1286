package server

import (
	"github.com/lunarisdb/lunaris/internal/bytebuf"
	"github.com/lunarisdb/lunaris/internal/resp"
	"github.com/lunarisdb/lunaris/internal/store"
)

func registerSetCommands(t *commandTable) {
	t.register(command{name: "SADD", arity: -3, write: true, run: cmdSAdd})
	t.register(command{name: "SREM", arity: -3, write: true, run: cmdSRem})
	t.register(command{name: "SISMEMBER", arity: 3, run: cmdSIsMember})
	t.register(command{name: "SMEMBERS", arity: 2, run: cmdSMembers})
	t.register(command{name: "SCARD", arity: 2, run: cmdSCard})
}

func cmdSAdd(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	entry, wrongType := typedOrCreate(db, string(args[1]), store.TypeSet, store.NewSet)
	if wrongType {
		resp.WriteError(out, wrongTypeErr)
		return false
	}

	var added int64
	for _, member := range args[2:] {
		m := string(member)
		if _, exists := entry.Value.Set[m]; !exists {
			entry.Value.Set[m] = struct{}{}
			added++
		}
	}
	resp.WriteInteger(out, added)
	return true
}

func cmdSRem(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	key := string(args[1])
	entry, wrongType := typedEntry(db, key, store.TypeSet)
	if wrongType {
		resp.WriteError(out, wrongTypeErr)
		return false
	}
	if entry == nil {
		resp.WriteInteger(out, 0)
		return true
	}

	var removed int64
	for _, member := range args[2:] {
		m := string(member)
		if _, exists := entry.Value.Set[m]; exists {
			delete(entry.Value.Set, m)
			removed++
		}
	}
	if len(entry.Value.Set) == 0 {
		db.Del(key)
	}
	resp.WriteInteger(out, removed)
	return true
}

func cmdSIsMember(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	entry, wrongType := typedEntry(db, string(args[1]), store.TypeSet)
	if wrongType {
		resp.WriteError(out, wrongTypeErr)
		return false
	}
	if entry == nil {
		resp.WriteInteger(out, 0)
		return true
	}
	_, exists := entry.Value.Set[string(args[2])]
	resp.WriteInteger(out, boolToInt(exists))
	return true
}

func cmdSMembers(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	entry, wrongType := typedEntry(db, string(args[1]), store.TypeSet)
	if wrongType {
		resp.WriteError(out, wrongTypeErr)
		return false
	}
	if entry == nil {
		resp.WriteArrayHeader(out, 0)
		return true
	}

	resp.WriteArrayHeader(out, len(entry.Value.Set))
	for member := range entry.Value.Set {
		resp.WriteBulkString(out, member)
	}
	return true
}

func cmdSCard(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	entry, wrongType := typedEntry(db, string(args[1]), store.TypeSet)
	if wrongType {
		resp.WriteError(out, wrongTypeErr)
		return false
	}
	if entry == nil {
		resp.WriteInteger(out, 0)
		return true
	}
	resp.WriteInteger(out, int64(len(entry.Value.Set)))
	return true
}
