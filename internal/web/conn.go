package web

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/HerbHall/labtrack/internal/console"
	"github.com/HerbHall/labtrack/internal/render"
)

const (
	writeTimeout   = 10 * time.Second
	pingInterval   = 30 * time.Second
	maxIntentBytes = 64 << 10
	outboxSize     = 256

	msgThrottled = "Too many actions. Wait a moment and try again."
)

// client connects one console session to one websocket. Patches flow
// through a bounded outbox; when it overflows the client is marked stale
// and the writer sends a full snapshot of the mirrored document instead.
type client struct {
	conn      *websocket.Conn
	session   *console.Session
	doc       *render.Document
	out       chan []render.Patch
	resync    chan struct{}
	stale     atomic.Bool
	limiter   *rate.Limiter
	metrics   *metrics
	logger    *zap.Logger
	remote    string
	connected time.Time
	// throttled is set while intents are being dropped; read loop only.
	throttled bool
}

// Apply implements render.Surface. It never blocks the session loop.
func (c *client) Apply(patches ...render.Patch) {
	if len(patches) == 0 {
		return
	}
	batch := append([]render.Patch(nil), patches...)
	select {
	case c.out <- batch:
	default:
		c.stale.Store(true)
		select {
		case c.resync <- struct{}{}:
		default:
		}
	}
}

// run pumps intents and patches until either side fails or ctx ends.
func (c *client) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.readLoop(gctx) })
	g.Go(func() error { return c.writeLoop(gctx) })
	return g.Wait()
}

func (c *client) readLoop(ctx context.Context) error {
	for {
		var in console.Intent
		if err := wsjson.Read(ctx, c.conn, &in); err != nil {
			return err
		}
		if !in.Action.Known() {
			c.logger.Debug("unknown intent dropped", zap.String("action", string(in.Action)))
			continue
		}
		if !c.limiter.Allow() {
			c.logger.Warn("intent rate exceeded", zap.String("action", string(in.Action)))
			// One toast per run of dropped intents.
			if !c.throttled {
				c.throttled = true
				c.session.Notify(msgThrottled, render.ToastError)
			}
			continue
		}
		c.throttled = false
		c.metrics.intents.WithLabelValues(string(in.Action)).Inc()
		c.session.Dispatch(in)
	}
}

func (c *client) writeLoop(ctx context.Context) error {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		var batch []render.Patch
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				return err
			}
			continue
		case <-c.resync:
		case batch = <-c.out:
		}

		if c.stale.Swap(false) {
			c.drain()
			batch = c.doc.Snapshot()
			c.metrics.resyncs.Inc()
		}
		if len(batch) == 0 {
			continue
		}
		if err := c.write(ctx, batch); err != nil {
			return err
		}
	}
}

func (c *client) write(ctx context.Context, batch []render.Patch) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(wctx, c.conn, batch); err != nil {
		return err
	}
	c.metrics.patches.Add(float64(len(batch)))
	return nil
}

// drain discards queued batches; the snapshot that follows covers them.
func (c *client) drain() {
	for {
		select {
		case <-c.out:
		default:
			return
		}
	}
}

// closeStatus picks the close frame for how run ended.
func closeStatus(serverCtx context.Context, err error) (websocket.StatusCode, string) {
	switch {
	case serverCtx.Err() != nil:
		return websocket.StatusGoingAway, "server shutting down"
	case websocket.CloseStatus(err) != -1, errors.Is(err, context.Canceled):
		return websocket.StatusNormalClosure, ""
	default:
		return websocket.StatusInternalError, "connection error"
	}
}
