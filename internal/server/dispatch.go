package server

import (
	"fmt"
	"strings"

	"github.com/lunarisdb/lunaris/internal/bytebuf"
	"github.com/lunarisdb/lunaris/internal/resp"
	"github.com/lunarisdb/lunaris/internal/store"
)

const (
	wrongTypeErr  = "WRONGTYPE Operation against a key holding the wrong kind of value"
	notIntegerErr = "ERR value is not an integer or out of range"
	notFloatErr   = "ERR value is not a valid float"
	syntaxErr     = "ERR syntax error"
)

// handlerFunc executes one validated command against the keyspace, writing
// the reply into out. The return reports successful execution; a write
// command reaches the append log only when its handler returned true.
type handlerFunc func(db *store.DB, out *bytebuf.Buffer, args [][]byte) bool

type command struct {
	name  string
	arity int // positive = exact arg count, negative = minimum
	write bool
	run   handlerFunc
}

// commandTable maps uppercased names to commands and validates arity before
// dispatching. Unknown names and wrong arity produce error replies, never
// connection failures.
type commandTable struct {
	cmds map[string]*command
}

func newCommandTable() *commandTable {
	t := &commandTable{cmds: make(map[string]*command)}
	registerStringCommands(t)
	registerKeyCommands(t)
	registerListCommands(t)
	registerHashCommands(t)
	registerSetCommands(t)
	registerZSetCommands(t)
	registerIntrospection(t)
	return t
}

func (t *commandTable) register(c command) {
	c.name = strings.ToUpper(c.name)
	t.cmds[c.name] = &c
}

// dispatch validates args and invokes the handler. It returns the matched
// command (nil when the name or arity was rejected) and the handler's
// success report.
func (t *commandTable) dispatch(db *store.DB, out *bytebuf.Buffer, args [][]byte) (*command, bool) {
	if len(args) == 0 {
		return nil, false
	}

	name := strings.ToUpper(string(args[0]))
	c, found := t.cmds[name]
	if !found {
		resp.WriteError(out, fmt.Sprintf("ERR unknown command '%s'", string(args[0])))
		return nil, false
	}

	n := len(args)
	if (c.arity > 0 && n != c.arity) || (c.arity < 0 && n < -c.arity) {
		resp.WriteError(out, wrongArity(name))
		return nil, false
	}

	return c, c.run(db, out, args)
}

func wrongArity(name string) string {
	return fmt.Sprintf("ERR wrong number of arguments for '%s' command", name)
}
