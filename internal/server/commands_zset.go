package server

import (
	"strconv"
	"strings"

	"github.com/lunarisdb/lunaris/internal/bytebuf"
	"github.com/lunarisdb/lunaris/internal/resp"
	"github.com/lunarisdb/lunaris/internal/store"
)

func registerZSetCommands(t *commandTable) {
	t.register(command{name: "ZADD", arity: -4, write: true, run: cmdZAdd})
	t.register(command{name: "ZSCORE", arity: 3, run: cmdZScore})
	t.register(command{name: "ZRANK", arity: 3, run: cmdZRank})
	t.register(command{name: "ZRANGE", arity: -4, run: cmdZRange})
	t.register(command{name: "ZCARD", arity: 2, run: cmdZCard})
	t.register(command{name: "ZREM", arity: -3, write: true, run: cmdZRem})
}

func cmdZAdd(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	if (len(args)-2)%2 != 0 {
		resp.WriteError(out, wrongArity("ZADD"))
		return false
	}

	// Validate every score before touching the keyspace, so a bad pair in
	// the middle cannot leave a half-applied command.
	scores := make([]float64, 0, (len(args)-2)/2)
	for i := 2; i < len(args); i += 2 {
		score, err := strconv.ParseFloat(string(args[i]), 64)
		if err != nil {
			resp.WriteError(out, notFloatErr)
			return false
		}
		scores = append(scores, score)
	}

	entry, wrongType := typedOrCreate(db, string(args[1]), store.TypeZSet, store.NewZSet)
	if wrongType {
		resp.WriteError(out, wrongTypeErr)
		return false
	}
	zset := entry.Value.ZSet

	var added int64
	for i := 2; i < len(args); i += 2 {
		score := scores[(i-2)/2]
		member := string(args[i+1])

		if old, exists := zset.Dict[member]; exists {
			// Existing member: relocate in the index when the score moved,
			// never counted as added.
			if old != score {
				zset.Index.Remove(member, old)
				zset.Index.Insert(member, score)
				zset.Dict[member] = score
			}
		} else {
			zset.Index.Insert(member, score)
			zset.Dict[member] = score
			added++
		}
	}
	resp.WriteInteger(out, added)
	return true
}

func cmdZScore(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	entry, wrongType := typedEntry(db, string(args[1]), store.TypeZSet)
	if wrongType {
		resp.WriteError(out, wrongTypeErr)
		return false
	}
	if entry == nil {
		resp.WriteNull(out)
		return true
	}

	score, exists := entry.Value.ZSet.Dict[string(args[2])]
	if !exists {
		resp.WriteNull(out)
		return true
	}
	resp.WriteBulkString(out, store.FormatScore(score))
	return true
}

func cmdZRank(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	entry, wrongType := typedEntry(db, string(args[1]), store.TypeZSet)
	if wrongType {
		resp.WriteError(out, wrongTypeErr)
		return false
	}
	if entry == nil {
		resp.WriteNull(out)
		return true
	}

	member := string(args[2])
	score, exists := entry.Value.ZSet.Dict[member]
	if !exists {
		resp.WriteNull(out)
		return true
	}
	resp.WriteInteger(out, int64(entry.Value.ZSet.Index.Rank(member, score)))
	return true
}

func cmdZRange(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	withScores := false
	switch len(args) {
	case 4:
	case 5:
		if !strings.EqualFold(string(args[4]), "WITHSCORES") {
			resp.WriteError(out, syntaxErr)
			return false
		}
		withScores = true
	default:
		resp.WriteError(out, syntaxErr)
		return false
	}

	start, ok1 := parseInt(args[2])
	stop, ok2 := parseInt(args[3])
	if !ok1 || !ok2 {
		resp.WriteError(out, notIntegerErr)
		return false
	}

	entry, wrongType := typedEntry(db, string(args[1]), store.TypeZSet)
	if wrongType {
		resp.WriteError(out, wrongTypeErr)
		return false
	}
	if entry == nil {
		resp.WriteArrayHeader(out, 0)
		return true
	}

	members := entry.Value.ZSet.Index.RangeByRank(int(start), int(stop))
	if withScores {
		resp.WriteArrayHeader(out, len(members)*2)
		for _, sm := range members {
			resp.WriteBulkString(out, sm.Member)
			resp.WriteBulkString(out, store.FormatScore(sm.Score))
		}
	} else {
		resp.WriteArrayHeader(out, len(members))
		for _, sm := range members {
			resp.WriteBulkString(out, sm.Member)
		}
	}
	return true
}

func cmdZCard(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	entry, wrongType := typedEntry(db, string(args[1]), store.TypeZSet)
	if wrongType {
		resp.WriteError(out, wrongTypeErr)
		return false
	}
	if entry == nil {
		resp.WriteInteger(out, 0)
		return true
	}
	resp.WriteInteger(out, int64(entry.Value.ZSet.Index.Len()))
	return true
}

func cmdZRem(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool {
	key := string(args[1])
	entry, wrongType := typedEntry(db, key, store.TypeZSet)
	if wrongType {
		resp.WriteError(out, wrongTypeErr)
		return false
	}
	if entry == nil {
		resp.WriteInteger(out, 0)
		return true
	}
	zset := entry.Value.ZSet

	var removed int64
	for _, member := range args[2:] {
		m := string(member)
		if score, exists := zset.Dict[m]; exists {
			zset.Index.Remove(m, score)
			delete(zset.Dict, m)
			removed++
		}
	}
	if len(zset.Dict) == 0 {
		db.Del(key)
	}
	resp.WriteInteger(out, removed)
	return true
}
