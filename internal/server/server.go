package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/lunarisdb/lunaris/internal/bytebuf"
	"github.com/lunarisdb/lunaris/internal/config"
	"github.com/lunarisdb/lunaris/internal/persistence"
	"github.com/lunarisdb/lunaris/internal/reactor"
	"github.com/lunarisdb/lunaris/internal/resp"
	"github.com/lunarisdb/lunaris/internal/store"
)

const pollTimeout = 100 * time.Millisecond

var (
	connectionsAccepted = metrics.NewCounter("lunaris_connections_accepted_total")
	commandsProcessed   = metrics.NewCounter("lunaris_commands_processed_total")
	keysExpired         = metrics.NewCounter("lunaris_keys_expired_total")
	aofRewrites         = metrics.NewCounter("lunaris_aof_rewrites_total")
)

// Server owns the listening descriptor, the reactor, the fd→connection map,
// the keyspace, the command table and the append log. Everything except the
// AOF rewrite's snapshot writer runs on the goroutine that calls Run.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	db    *store.DB
	table *commandTable
	aof   *persistence.Log

	loop     *reactor.Reactor
	conns    map[int]*reactor.Conn
	listenFd int
	port     int
}

// New builds a server: keyspace, command table, append-log replay, listener
// and reactor. Startup failures here are fatal; the process exits nonzero.
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logger,
		db:     store.NewDB(),
		table:  newCommandTable(),
		conns:  make(map[int]*reactor.Conn),
	}
	s.registerRewriteCommand()

	raiseFdLimit()

	if cfg.AOF.Enabled {
		replayed, err := persistence.Load(cfg.AOF.Filename, func(out *bytebuf.Buffer, args [][]byte) {
			s.table.dispatch(s.db, out, args)
		}, logger)
		if err != nil {
			return nil, err
		}
		if replayed > 0 {
			logger.Info("keyspace restored from append log",
				zap.Int("commands", replayed), zap.Int("keys", s.db.DBSize()))
		}

		aof, err := persistence.Open(cfg.AOF.Filename, persistence.ParsePolicy(cfg.AOF.Fsync), logger)
		if err != nil {
			return nil, err
		}
		s.aof = aof
	}

	loop, err := reactor.New()
	if err != nil {
		return nil, err
	}
	s.loop = loop

	fd, port, err := listen(cfg.Server.Host, cfg.Server.Port)
	if err != nil {
		loop.Close()
		return nil, err
	}
	s.listenFd = fd
	s.port = port

	if err := loop.Add(fd, reactor.EventRead); err != nil {
		unix.Close(fd)
		loop.Close()
		return nil, fmt.Errorf("register listener: %w", err)
	}

	loop.SetTimer(s.tick, cfg.Expire.Interval)

	if cfg.Metrics.Enabled {
		s.serveMetrics(cfg.Metrics.Addr)
	}

	return s, nil
}

// Port returns the bound TCP port.
func (s *Server) Port() int { return s.port }

// Run drives the reactor until ctx is cancelled. Each iteration: poll, serve
// ready descriptors, advance one rehash batch, release dead connections.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving",
		zap.String("host", s.cfg.Server.Host), zap.Int("port", s.port))

	for ctx.Err() == nil {
		events, err := s.loop.Poll(pollTimeout)
		if err != nil {
			return err
		}

		for _, ev := range events {
			if ev.FD == s.listenFd {
				s.acceptAll()
				continue
			}
			s.serveConn(ev)
		}

		s.db.RehashStep()
		s.releaseClosed()
	}

	s.shutdown()
	return nil
}

// tick is the reactor's periodic slot: active expiration and the append
// log's timed duties.
func (s *Server) tick() {
	if n := s.db.ActiveExpireCycle(s.cfg.Expire.KeysPerCycle); n > 0 {
		keysExpired.Add(n)
		if s.logger.Core().Enabled(zap.DebugLevel) {
			s.logger.Debug("active expiration", zap.Int("keys", n))
		}
	}
	if s.aof != nil {
		s.aof.Tick()
	}
}

// acceptAll drains the accept queue; the listener is level-triggered but
// draining keeps latency flat under accept bursts.
func (s *Server) acceptAll() {
	for {
		fd, _, err := unix.Accept4(s.listenFd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
				s.logger.Warn("accept failed", zap.Error(err))
			}
			return
		}

		conn := reactor.NewConn(fd)
		if err := s.loop.Add(fd, conn.DesiredMask()); err != nil {
			s.logger.Warn("register connection failed", zap.Error(err))
			conn.Close()
			continue
		}
		s.conns[fd] = conn
		connectionsAccepted.Inc()
		if s.logger.Core().Enabled(zap.DebugLevel) {
			s.logger.Debug("client connected", zap.Int("fd", fd))
		}
	}
}

// serveConn applies one readiness report to a connection: read, parse and
// dispatch as many complete frames as arrived, attempt a write, then
// recompute the interest mask.
func (s *Server) serveConn(ev reactor.Event) {
	conn, ok := s.conns[ev.FD]
	if !ok {
		return // released earlier this iteration
	}

	if ev.Mask&reactor.EventError != 0 {
		conn.SetWantClose(true)
		return
	}

	if ev.Mask&reactor.EventRead != 0 {
		if !conn.HandleRead() {
			// EOF or fatal read error. Keep the connection around until
			// pending replies drain.
			conn.SetWantRead(false)
		}

		for {
			args, ok := resp.Parse(conn.In())
			if !ok {
				break
			}
			if len(args) == 0 {
				continue
			}
			s.execute(conn.Out(), args)
		}

		if conn.Out().ReadableBytes() > 0 {
			conn.SetWantWrite(true)
		}
	}

	if ev.Mask&reactor.EventWrite != 0 && !conn.WantClose() {
		if !conn.HandleWrite() {
			conn.SetWantClose(true)
		} else if conn.Out().ReadableBytes() == 0 {
			conn.SetWantWrite(false)
		}
	}

	if !conn.WantRead() && conn.Out().ReadableBytes() == 0 {
		conn.SetWantClose(true)
	}

	if !conn.WantClose() {
		if err := s.loop.Mod(ev.FD, conn.DesiredMask()); err != nil {
			s.logger.Warn("update interest failed", zap.Int("fd", ev.FD), zap.Error(err))
			conn.SetWantClose(true)
		}
	}
}

// execute dispatches one command and feeds the append log after a
// successful write command.
func (s *Server) execute(out *bytebuf.Buffer, args [][]byte) {
	cmd, ok := s.table.dispatch(s.db, out, args)
	commandsProcessed.Inc()

	if ok && cmd != nil && cmd.write && s.aof != nil {
		s.aof.Append(resp.EncodeCommand(args))
	}
}

func (s *Server) releaseClosed() {
	for fd, conn := range s.conns {
		if !conn.WantClose() {
			continue
		}
		s.loop.Del(fd)
		conn.Close()
		delete(s.conns, fd)
		if s.logger.Core().Enabled(zap.DebugLevel) {
			s.logger.Debug("client disconnected", zap.Int("fd", fd))
		}
	}
}

func (s *Server) shutdown() {
	s.logger.Info("shutting down", zap.Int("connections", len(s.conns)))

	for fd, conn := range s.conns {
		s.loop.Del(fd)
		conn.Close()
		delete(s.conns, fd)
	}
	unix.Close(s.listenFd)
	s.loop.Close()

	if s.aof != nil {
		if err := s.aof.Close(); err != nil {
			s.logger.Warn("append log close failed", zap.Error(err))
		}
	}
}

// registerRewriteCommand wires BGREWRITEAOF; it needs the server because the
// snapshot is taken from the live keyspace and handed to the append log.
func (s *Server) registerRewriteCommand() {
	s.table.register(command{name: "BGREWRITEAOF", arity: 1, run: func(db *store.DB, out *bytebuf.Buffer, _ [][]byte) bool {
		if s.aof == nil {
			resp.WriteError(out, "ERR append only file is disabled")
			return false
		}
		if err := s.aof.TriggerRewrite(persistence.Snapshot(db)); err != nil {
			resp.WriteError(out, "ERR "+err.Error())
			return false
		}
		aofRewrites.Inc()
		resp.WriteSimpleString(out, "Background append only file rewriting started")
		return true
	}})
}

// serveMetrics exposes the Prometheus counters on their own listener; it
// never touches the keyspace, only atomic counters.
func (s *Server) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			s.logger.Warn("metrics listener failed", zap.Error(err))
		}
	}()
	s.logger.Info("metrics exposed", zap.String("addr", addr))
}
