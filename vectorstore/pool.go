package vectorstore

import (
	"context"
	"log/slog"
	"sync"
)

// connPool is a bounded pool of index connections with scoped acquisition.
// Connections are created lazily up to the configured size and reused across
// operations; a connection involved in a failed operation is discarded
// rather than returned, so a wedged client never circulates.
type connPool struct {
	factory ConnFactory
	idle    chan Conn
	slots   chan struct{}
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

func newConnPool(factory ConnFactory, size int, logger *slog.Logger) *connPool {
	if size < 1 {
		size = 1
	}
	return &connPool{
		factory: factory,
		idle:    make(chan Conn, size),
		slots:   make(chan struct{}, size),
		logger:  logger,
	}
}

// acquire returns a connection, creating one if the pool is below capacity.
// Blocks until a connection frees up or ctx is done.
func (p *connPool) acquire(ctx context.Context) (Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.mu.Unlock()

	// Fast path: an idle connection is waiting.
	select {
	case conn := <-p.idle:
		return conn, nil
	default:
	}

	select {
	case conn := <-p.idle:
		return conn, nil
	case p.slots <- struct{}{}:
		conn, err := p.factory(ctx)
		if err != nil {
			<-p.slots
			return nil, err
		}
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// release returns a connection to the pool, or discards it when healthy is
// false or the pool has been closed.
func (p *connPool) release(conn Conn, healthy bool) {
	if conn == nil {
		return
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if !healthy || closed {
		p.discard(conn)
		return
	}

	select {
	case p.idle <- conn:
	default:
		// Pool refilled concurrently; drop the extra connection.
		p.discard(conn)
	}
}

func (p *connPool) discard(conn Conn) {
	if err := conn.Close(); err != nil {
		p.logger.Warn("error closing index connection", "err", err)
	}
	<-p.slots
}

// close drains and closes all idle connections. In-flight connections are
// discarded on release.
func (p *connPool) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case conn := <-p.idle:
			p.discard(conn)
		default:
			return
		}
	}
}
