package reactor

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/lunarisdb/lunaris/internal/bytebuf"
)

// readWindow is how much space HandleRead guarantees before each read call.
const readWindow = 4096

// Conn is the per-socket state: the non-blocking descriptor, the incoming
// and outgoing buffers, the interest flags the serving loop consults when it
// computes the desired event mask, and a last-activity timestamp. A Conn is
// created on accept and lives behind exactly one fd→Conn map entry; it is
// never copied.
type Conn struct {
	fd  int
	in  bytebuf.Buffer
	out bytebuf.Buffer

	wantRead  bool
	wantWrite bool
	wantClose bool

	lastActivity time.Time
}

func NewConn(fd int) *Conn {
	return &Conn{fd: fd, wantRead: true, lastActivity: time.Now()}
}

func (c *Conn) FD() int                 { return c.fd }
func (c *Conn) In() *bytebuf.Buffer     { return &c.in }
func (c *Conn) Out() *bytebuf.Buffer    { return &c.out }
func (c *Conn) WantRead() bool          { return c.wantRead }
func (c *Conn) WantWrite() bool         { return c.wantWrite }
func (c *Conn) WantClose() bool         { return c.wantClose }
func (c *Conn) SetWantRead(v bool)      { c.wantRead = v }
func (c *Conn) SetWantWrite(v bool)     { c.wantWrite = v }
func (c *Conn) SetWantClose(v bool)     { c.wantClose = v }
func (c *Conn) LastActivity() time.Time { return c.lastActivity }

// HandleRead performs one non-blocking read into the incoming buffer.
// Returns false on peer EOF or a fatal error; EAGAIN keeps the connection
// alive with no data.
func (c *Conn) HandleRead() bool {
	c.in.EnsureWritable(readWindow)

	n, err := unix.Read(c.fd, c.in.WritableSlice())
	if n > 0 {
		c.in.AdvanceWrite(n)
		c.lastActivity = time.Now()
		return true
	}
	if n == 0 && err == nil {
		return false // peer closed
	}
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return true
	}
	return false
}

// HandleWrite attempts one non-blocking write of the outgoing buffer.
// Returns false only on a fatal error; a full kernel buffer just waits for
// the next writable event.
func (c *Conn) HandleWrite() bool {
	if c.out.ReadableBytes() == 0 {
		return true
	}

	n, err := unix.Write(c.fd, c.out.Peek())
	if n > 0 {
		c.out.Consume(n)
		c.lastActivity = time.Now()
		return true
	}
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return true
	}
	if err == nil {
		return true // zero-byte write, try again later
	}
	return false
}

// Close releases the descriptor.
func (c *Conn) Close() {
	if c.fd >= 0 {
		unix.Close(c.fd)
		c.fd = -1
	}
}

// DesiredMask folds the interest flags into a reactor event mask.
func (c *Conn) DesiredMask() uint32 {
	var mask uint32
	if c.wantRead {
		mask |= EventRead
	}
	if c.wantWrite {
		mask |= EventWrite
	}
	return mask
}
