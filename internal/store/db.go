package store

import "time"

// DB is the keyspace: the hash table plus the expiration heap. Every keyed
// lookup runs lazy expiration first, so callers never observe an entry whose
// deadline has passed. DB is owned by a single goroutine; it carries no
// locks.
type DB struct {
	table hashTable
	heap  *ttlHeap

	// nowMs is swappable so expiration tests do not have to sleep.
	nowMs func() int64
}

// TTL results for missing keys and keys without a deadline.
const (
	TTLMissing  = -2
	TTLNoExpire = -1
)

func NewDB() *DB {
	return &DB{
		heap:  newTTLHeap(),
		nowMs: func() int64 { return time.Now().UnixMilli() },
	}
}

// expireIfDue deletes entry when its deadline has passed. Reports whether
// the entry was removed.
func (db *DB) expireIfDue(entry *Entry) bool {
	if entry.ExpireAt < 0 || db.nowMs() < entry.ExpireAt {
		return false
	}
	db.heap.remove(entry.Key)
	db.table.del(entry.Key)
	return true
}

// FindEntry looks up key with lazy expiration and returns the raw entry.
// Typed commands use it to validate the variant before mutating in place.
func (db *DB) FindEntry(key string) *Entry {
	entry := db.table.find(key)
	if entry == nil {
		return nil
	}
	if db.expireIfDue(entry) {
		return nil
	}
	return entry
}

// Get returns the string projection of key's value. The second result is
// false when the key is absent (or just expired); the third is false when
// the key holds a non-string variant.
func (db *DB) Get(key string) ([]byte, bool, bool) {
	entry := db.FindEntry(key)
	if entry == nil {
		return nil, false, true
	}
	if entry.Value.Type != TypeString {
		return nil, true, false
	}
	return entry.Value.StringBytes(), true, true
}

// SetString upserts a byte-string value and clears any expiration the key
// carried, in the entry and in the heap both.
func (db *DB) SetString(key string, val []byte) {
	db.heap.remove(key)
	db.table.set(key, NewString(val))
	if entry := db.table.find(key); entry != nil {
		entry.ExpireAt = -1
	}
}

// SetObject upserts without touching expiration; container commands create
// their collections through it.
func (db *DB) SetObject(key string, value Object) {
	db.table.set(key, value)
}

// Del removes key from the heap and the table. Reports whether it existed.
func (db *DB) Del(key string) bool {
	db.heap.remove(key)
	return db.table.del(key)
}

// Exists reports key presence after lazy expiration.
func (db *DB) Exists(key string) bool {
	return db.FindEntry(key) != nil
}

// Keys returns every live key. No expiration pass runs here; callers that
// care about freshness probe the keys they touch.
func (db *DB) Keys() []string {
	return db.table.keys()
}

// DBSize returns the live key count.
func (db *DB) DBSize() int {
	return db.table.size()
}

// RehashStep migrates one bounded batch of the in-progress rehash. The
// serving loop calls it once per iteration.
func (db *DB) RehashStep() {
	db.table.rehashStep(rehashBatchSize)
}

// SetExpire sets key's absolute deadline in milliseconds. A key that is
// missing or already past a previous deadline reports false and, in the
// latter case, is deleted.
func (db *DB) SetExpire(key string, expireAtMs int64) bool {
	entry := db.table.find(key)
	if entry == nil {
		return false
	}
	if db.expireIfDue(entry) {
		return false
	}
	entry.ExpireAt = expireAtMs
	db.heap.push(key, expireAtMs)
	return true
}

// RemoveExpire clears key's deadline.
func (db *DB) RemoveExpire(key string) {
	entry := db.table.find(key)
	if entry == nil {
		return
	}
	entry.ExpireAt = -1
	db.heap.remove(key)
}

// TTL returns the remaining lifetime in milliseconds, TTLNoExpire for a key
// without a deadline, TTLMissing for an absent (or just-expired) key.
func (db *DB) TTL(key string) int64 {
	entry := db.table.find(key)
	if entry == nil {
		return TTLMissing
	}
	if db.expireIfDue(entry) {
		return TTLMissing
	}
	if entry.ExpireAt < 0 {
		return TTLNoExpire
	}
	return entry.ExpireAt - db.nowMs()
}

// ActiveExpireCycle pops at most maxWork overdue deadlines from the heap and
// deletes their keys. Returns how many were removed; the serving loop's
// timer drives it so expiration cannot starve I/O.
func (db *DB) ActiveExpireCycle(maxWork int) int {
	expired := db.heap.popExpired(db.nowMs(), maxWork)
	for _, key := range expired {
		db.table.del(key)
	}
	return len(expired)
}
