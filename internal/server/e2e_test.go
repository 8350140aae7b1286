package server_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lunarisdb/lunaris/internal/config"
	"github.com/lunarisdb/lunaris/internal/server"
)

// startServer runs a server on a loopback port of the kernel's choosing and
// returns a connected client. Cancelling stops the serving loop; the
// returned channel closes once shutdown finished.
func startServer(t *testing.T, cfg *config.Config) (*redis.Client, context.CancelFunc, <-chan struct{}) {
	t.Helper()

	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0

	srv, err := server.New(cfg, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Run(ctx) //nolint:errcheck
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("127.0.0.1:%d", srv.Port()),
	})
	t.Cleanup(func() { client.Close() })

	return client, cancel, done
}

// S1 — pipelined commands on one connection are answered in order.
func TestPipelinedCommands(t *testing.T) {
	rdb, _, _ := startServer(t, config.Default())
	ctx := context.Background()

	pipe := rdb.Pipeline()
	setCmd := pipe.Set(ctx, "a", "1", 0)
	getCmd := pipe.Get(ctx, "a")
	_, err := pipe.Exec(ctx)
	require.NoError(t, err)

	assert.Equal(t, "OK", setCmd.Val())
	assert.Equal(t, "1", getCmd.Val())
}

func TestManyPipelinedWrites(t *testing.T) {
	rdb, _, _ := startServer(t, config.Default())
	ctx := context.Background()

	const count = 1000
	pipe := rdb.Pipeline()
	for i := 0; i < count; i++ {
		pipe.Set(ctx, fmt.Sprintf("key_%d", i), fmt.Sprintf("val_%d", i), 0)
	}
	gets := make([]*redis.StringCmd, count)
	for i := 0; i < count; i++ {
		gets[i] = pipe.Get(ctx, fmt.Sprintf("key_%d", i))
	}
	_, err := pipe.Exec(ctx)
	require.NoError(t, err)

	for i := 0; i < count; i++ {
		assert.Equal(t, fmt.Sprintf("val_%d", i), gets[i].Val())
	}
}

// S3 — TTL round trip against the real clock.
func TestTTLExpiry(t *testing.T) {
	rdb, _, _ := startServer(t, config.Default())
	ctx := context.Background()

	require.NoError(t, rdb.Set(ctx, "k", "v", 0).Err())
	ok, err := rdb.PExpire(ctx, "k", 100*time.Millisecond).Result()
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(150 * time.Millisecond)

	_, err = rdb.Get(ctx, "k").Result()
	assert.ErrorIs(t, err, redis.Nil)

	pttl, err := rdb.PTTL(ctx, "k").Result()
	require.NoError(t, err)
	assert.Negative(t, pttl)

	size, err := rdb.DBSize(ctx).Result()
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestTypedCommandsOverWire(t *testing.T) {
	rdb, _, _ := startServer(t, config.Default())
	ctx := context.Background()

	// Lists
	require.NoError(t, rdb.RPush(ctx, "l", "x", "y", "z").Err())
	vals, err := rdb.LRange(ctx, "l", 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, vals)

	// Hashes
	require.NoError(t, rdb.HSet(ctx, "h", "f", "v").Err())
	v, err := rdb.HGet(ctx, "h", "f").Result()
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	// Sets
	require.NoError(t, rdb.SAdd(ctx, "s", "a", "b").Err())
	n, err := rdb.SCard(ctx, "s").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	// Ordered sets
	require.NoError(t, rdb.ZAdd(ctx, "z",
		redis.Z{Score: 1, Member: "a"},
		redis.Z{Score: 2, Member: "b"},
		redis.Z{Score: 3, Member: "c"}).Err())
	require.NoError(t, rdb.ZAdd(ctx, "z", redis.Z{Score: 5, Member: "a"}).Err())
	zs, err := rdb.ZRangeWithScores(ctx, "z", 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, zs, 3)
	assert.Equal(t, "b", zs[0].Member)
	assert.Equal(t, "c", zs[1].Member)
	assert.Equal(t, "a", zs[2].Member)
	assert.Equal(t, 5.0, zs[2].Score)

	// Wrong type over the wire
	err = rdb.LPush(ctx, "h", "boom").Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WRONGTYPE")
}

func TestConcurrentClients(t *testing.T) {
	rdb, _, _ := startServer(t, config.Default())
	ctx := context.Background()

	const workers = 8
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			c := redis.NewClient(&redis.Options{Addr: rdb.Options().Addr})
			defer c.Close()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("w%d_k%d", w, i)
				if err := c.Set(ctx, key, "v", 0).Err(); err != nil {
					errs <- err
					return
				}
				if _, err := c.Get(ctx, key).Result(); err != nil {
					errs <- err
					return
				}
			}
			errs <- nil
		}(w)
	}
	for w := 0; w < workers; w++ {
		require.NoError(t, <-errs)
	}

	size, err := rdb.DBSize(ctx).Result()
	require.NoError(t, err)
	assert.EqualValues(t, workers*200, size)
}

// Keys written before a restart come back from the append log.
func TestAOFSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.AOF.Enabled = true
	cfg.AOF.Filename = filepath.Join(dir, "appendonly.aof")
	cfg.AOF.Fsync = "always"

	rdb, cancel, done := startServer(t, cfg)
	ctx := context.Background()

	require.NoError(t, rdb.Set(ctx, "persisted", "yes", 0).Err())
	require.NoError(t, rdb.RPush(ctx, "list", "1", "2").Err())

	cancel()
	<-done

	cfg2 := config.Default()
	cfg2.AOF.Enabled = true
	cfg2.AOF.Filename = cfg.AOF.Filename
	rdb2, _, _ := startServer(t, cfg2)

	v, err := rdb2.Get(ctx, "persisted").Result()
	require.NoError(t, err)
	assert.Equal(t, "yes", v)

	vals, err := rdb2.LRange(ctx, "list", 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, vals)
}

func TestBGRewriteCompactsLog(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.AOF.Enabled = true
	cfg.AOF.Filename = filepath.Join(dir, "appendonly.aof")
	cfg.AOF.Fsync = "always"

	rdb, cancel, done := startServer(t, cfg)
	ctx := context.Background()

	// Churn one key so the log carries redundant history.
	for i := 0; i < 50; i++ {
		require.NoError(t, rdb.Set(ctx, "churn", fmt.Sprintf("v%d", i), 0).Err())
	}

	require.NoError(t, rdb.BgRewriteAOF(ctx).Err())

	// The rewrite completes on a timer tick; give it a moment.
	require.Eventually(t, func() bool {
		v, err := rdb.Get(ctx, "churn").Result()
		return err == nil && v == "v49"
	}, 2*time.Second, 20*time.Millisecond)
	time.Sleep(500 * time.Millisecond)

	cancel()
	<-done

	cfg2 := config.Default()
	cfg2.AOF.Enabled = true
	cfg2.AOF.Filename = cfg.AOF.Filename
	rdb2, _, _ := startServer(t, cfg2)

	v, err := rdb2.Get(ctx, "churn").Result()
	require.NoError(t, err)
	assert.Equal(t, "v49", v)
}
