package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sysdict/pkg/logger"
)

// ChannelDictionaryChanged is the NOTIFY channel announcing dictionary writes.
// The payload names the changed entity type.
const ChannelDictionaryChanged = "dictionary_changed"

// NotificationHandler is called for each received notification.
type NotificationHandler func(ctx context.Context, channel string, payload string)

// Listener holds a dedicated connection subscribed with LISTEN and dispatches
// notifications to registered handlers. The connection is re-acquired after errors.
type Listener struct {
	pool     *pgxpool.Pool
	channels []string

	handlers   []NotificationHandler
	handlersMu sync.RWMutex

	// Lifecycle
	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool

	retryDelay  time.Duration
	waitTimeout time.Duration
}

// NewListener creates a listener for the given channels.
func NewListener(pool *pgxpool.Pool, channels ...string) *Listener {
	return &Listener{
		pool:        pool,
		channels:    channels,
		retryDelay:  time.Second,
		waitTimeout: 30 * time.Second,
	}
}

// OnNotification registers a handler.
func (l *Listener) OnNotification(h NotificationHandler) {
	l.handlersMu.Lock()
	l.handlers = append(l.handlers, h)
	l.handlersMu.Unlock()
}

// InvalidateOnNotification flushes lookup whenever a notification arrives.
func InvalidateOnNotification[V any](l *Listener, lookup *Lookup[V]) {
	l.OnNotification(func(ctx context.Context, channel, payload string) {
		if err := lookup.InvalidateAll(ctx); err != nil {
			logger.Error(ctx, "failed to invalidate cache on notification",
				"region", lookup.Region(), "channel", channel, "payload", payload, "error", err)
		}
	})
}

// Start begins listening in a background goroutine.
func (l *Listener) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	l.lifecycleMu.Lock()
	defer l.lifecycleMu.Unlock()
	if l.started {
		return
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.started = true

	l.wg.Add(1)
	go l.listenLoop()
	logger.Info(l.ctx, "notification listener started", "channels", l.channels)
}

// Stop gracefully stops the listener.
func (l *Listener) Stop() {
	l.lifecycleMu.Lock()
	if !l.started {
		l.lifecycleMu.Unlock()
		return
	}
	cancel := l.cancel
	l.started = false
	l.cancel = nil
	l.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
	}
	l.wg.Wait()
	logger.Info(context.Background(), "notification listener stopped")
}

func (l *Listener) listenLoop() {
	defer l.wg.Done()

	for {
		if l.ctx.Err() != nil {
			return
		}

		conn, err := l.pool.Acquire(l.ctx)
		if err != nil {
			logger.Error(l.ctx, "failed to acquire connection for LISTEN", "error", err)
			l.sleep()
			continue
		}

		if err := l.subscribe(conn); err != nil {
			logger.Error(l.ctx, "failed to LISTEN", "error", err)
			conn.Release()
			l.sleep()
			continue
		}

		l.waitForNotifications(conn)
		conn.Release()
		if l.ctx.Err() != nil {
			return
		}

		// Changes may have been missed while reconnecting.
		l.dispatch("", "")
	}
}

func (l *Listener) subscribe(conn *pgxpool.Conn) error {
	for _, ch := range l.channels {
		if _, err := conn.Exec(l.ctx, "LISTEN "+pgx.Identifier{ch}.Sanitize()); err != nil {
			return err
		}
	}
	logger.Info(l.ctx, "listening for notifications", "channels", l.channels)
	return nil
}

func (l *Listener) waitForNotifications(conn *pgxpool.Conn) {
	for {
		if l.ctx.Err() != nil {
			return
		}

		ctx, cancel := context.WithTimeout(l.ctx, l.waitTimeout)
		notification, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			if ctx.Err() != nil {
				// Timeout is expected, keep listening
				continue
			}
			logger.Warn(l.ctx, "notification connection lost", "error", err)
			return
		}

		logger.Debug(l.ctx, "received notification",
			"channel", notification.Channel,
			"payload", notification.Payload)
		l.dispatch(notification.Channel, notification.Payload)
	}
}

// dispatch calls every handler, recovering handler panics.
func (l *Listener) dispatch(channel, payload string) {
	l.handlersMu.RLock()
	defer l.handlersMu.RUnlock()

	for _, h := range l.handlers {
		func(h NotificationHandler) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error(l.ctx, "notification handler panic recovered", "channel", channel, "panic", r)
				}
			}()
			h(l.ctx, channel, payload)
		}(h)
	}
}

func (l *Listener) sleep() {
	select {
	case <-l.ctx.Done():
	case <-time.After(l.retryDelay):
	}
}
