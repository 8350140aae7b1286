package server

import (
	"github.com/lunarisdb/lunaris/internal/bytebuf"
	"github.com/lunarisdb/lunaris/internal/resp"
	"github.com/lunarisdb/lunaris/internal/store"
)

func registerListCommands(t *commandTable) {
	t.register(command{name: "LPUSH", arity: -3, write: true, run: cmdLPush})
	t.register(command{name: "RPUSH", arity: -3, write: true, run: cmdRPush})
	t.register(command{name: "LPOP", arity: 2, write: true, run: cmdLPop})
	t.register(command{name: "RPOP", arity: 2, write: true, run: cmdRPop})
	t.register(command{name: "LLEN", arity: 2, run: cmdLLen})
	t.register(command{name: "LRANGE", arity: 4, run: cmdLRange})
}

// typedEntry fetches key's entry and validates its variant. The second
// return is true when the key exists but holds a different variant.
func typedEntry(db *store.DB, key string, typ store.DataType) (*store.Entry, bool) {
	entry := db.FindEntry(key)
	if entry == nil {
		return nil, false
	}
	if entry.Value.Type != typ {
		return nil, true
	}
	return entry, false
}

// typedOrCreate is typedEntry for the push-style commands that create the
// container on first touch.
func typedOrCreate(db *store.DB, key string, typ store.DataType, create func() store.Object) (*store.Entry, bool) {
	entry, wrongType := typedEntry(db, key, typ)
	if wrongType {
		return nil, true
	}
	if entry == nil {
		db.SetObject(key, create())
		entry = db.FindEntry(key)
	}
	return entry, false
}

func cmdLPush(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	entry, wrongType := typedOrCreate(db, string(args[1]), store.TypeList, store.NewList)
	if wrongType {
		resp.WriteError(out, wrongTypeErr)
		return false
	}
	for _, item := range args[2:] {
		entry.Value.List = append([]store.Item{item}, entry.Value.List...)
	}
	resp.WriteInteger(out, int64(len(entry.Value.List)))
	return true
}

func cmdRPush(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	entry, wrongType := typedOrCreate(db, string(args[1]), store.TypeList, store.NewList)
	if wrongType {
		resp.WriteError(out, wrongTypeErr)
		return false
	}
	entry.Value.List = append(entry.Value.List, args[2:]...)
	resp.WriteInteger(out, int64(len(entry.Value.List)))
	return true
}

func cmdLPop(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	key := string(args[1])
	entry, wrongType := typedEntry(db, key, store.TypeList)
	if wrongType {
		resp.WriteError(out, wrongTypeErr)
		return false
	}
	if entry == nil {
		resp.WriteNull(out)
		return true
	}

	item := entry.Value.List[0]
	entry.Value.List = entry.Value.List[1:]
	if len(entry.Value.List) == 0 {
		db.Del(key)
	}
	resp.WriteBulk(out, item)
	return true
}

func cmdRPop(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	key := string(args[1])
	entry, wrongType := typedEntry(db, key, store.TypeList)
	if wrongType {
		resp.WriteError(out, wrongTypeErr)
		return false
	}
	if entry == nil {
		resp.WriteNull(out)
		return true
	}

	last := len(entry.Value.List) - 1
	item := entry.Value.List[last]
	entry.Value.List = entry.Value.List[:last]
	if len(entry.Value.List) == 0 {
		db.Del(key)
	}
	resp.WriteBulk(out, item)
	return true
}

func cmdLLen(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	entry, wrongType := typedEntry(db, string(args[1]), store.TypeList)
	if wrongType {
		resp.WriteError(out, wrongTypeErr)
		return false
	}
	if entry == nil {
		resp.WriteInteger(out, 0)
		return true
	}
	resp.WriteInteger(out, int64(len(entry.Value.List)))
	return true
}

func cmdLRange(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	start, ok1 := parseInt(args[2])
	stop, ok2 := parseInt(args[3])
	if !ok1 || !ok2 {
		resp.WriteError(out, notIntegerErr)
		return false
	}

	entry, wrongType := typedEntry(db, string(args[1]), store.TypeList)
	if wrongType {
		resp.WriteError(out, wrongTypeErr)
		return false
	}
	if entry == nil {
		resp.WriteArrayHeader(out, 0)
		return true
	}

	n := int64(len(entry.Value.List))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		resp.WriteArrayHeader(out, 0)
		return true
	}

	resp.WriteArrayHeader(out, int(stop-start+1))
	for i := start; i <= stop; i++ {
		resp.WriteBulk(out, entry.Value.List[i])
	}
	return true
}
