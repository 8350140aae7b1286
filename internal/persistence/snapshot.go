package persistence

import (
	"strconv"

	"github.com/lunarisdb/lunaris/internal/resp"
	"github.com/lunarisdb/lunaris/internal/store"
)

// Snapshot serializes the minimal command sequence that rebuilds every live
// key: SET for strings, RPUSH for lists in order, HSET for hashes, SADD for
// sets, ZADD for ordered sets in ascending (score, member) order, and a
// trailing PEXPIRE for any key with remaining TTL. Replaying the result
// against an empty keyspace reproduces the current one.
func Snapshot(db *store.DB) []byte {
	var out []byte

	for _, key := range db.Keys() {
		entry := db.FindEntry(key)
		if entry == nil {
			continue // expired between Keys and here
		}

		switch entry.Value.Type {
		case store.TypeString:
			out = append(out, resp.EncodeCommand([][]byte{
				[]byte("SET"), []byte(key), entry.Value.StringBytes(),
			})...)

		case store.TypeList:
			if len(entry.Value.List) == 0 {
				break
			}
			cmd := [][]byte{[]byte("RPUSH"), []byte(key)}
			for _, item := range entry.Value.List {
				cmd = append(cmd, item)
			}
			out = append(out, resp.EncodeCommand(cmd)...)

		case store.TypeHash:
			if len(entry.Value.Hash) == 0 {
				break
			}
			cmd := [][]byte{[]byte("HSET"), []byte(key)}
			for field, val := range entry.Value.Hash {
				cmd = append(cmd, []byte(field), val)
			}
			out = append(out, resp.EncodeCommand(cmd)...)

		case store.TypeSet:
			if len(entry.Value.Set) == 0 {
				break
			}
			cmd := [][]byte{[]byte("SADD"), []byte(key)}
			for member := range entry.Value.Set {
				cmd = append(cmd, []byte(member))
			}
			out = append(out, resp.EncodeCommand(cmd)...)

		case store.TypeZSet:
			members := entry.Value.ZSet.Index.RangeByRank(0, -1)
			if len(members) == 0 {
				break
			}
			cmd := [][]byte{[]byte("ZADD"), []byte(key)}
			for _, sm := range members {
				cmd = append(cmd, []byte(store.FormatScore(sm.Score)), []byte(sm.Member))
			}
			out = append(out, resp.EncodeCommand(cmd)...)
		}

		if remaining := db.TTL(key); remaining > 0 {
			out = append(out, resp.EncodeCommand([][]byte{
				[]byte("PEXPIRE"), []byte(key),
				[]byte(strconv.FormatInt(remaining, 10)),
			})...)
		}
	}

	return out
}
