package filter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/tellows-fastagi/internal/adapters/agi"
	"github.com/mikey/tellows-fastagi/internal/core"
	"github.com/mikey/tellows-fastagi/internal/metrics"
	"go.uber.org/zap"
)

const maxAcceptBackoff = time.Second

// FastAGIFilter serves FastAGI connections from Asterisk, one caller check
// per connection
type FastAGIFilter struct {
	service         *core.CallerCheckService
	logger          *zap.Logger
	metrics         *metrics.Metrics
	listenAddr      string
	timeout         time.Duration
	shutdownTimeout time.Duration

	// ctx bounds every lookup and is cancelled when Stop gives up waiting
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	ln        net.Listener
	conns     map[net.Conn]struct{}
	handlers  sync.WaitGroup
	serveDone chan struct{}
	closing   atomic.Bool
}

// NewFastAGIFilter creates a new FastAGI filter
func NewFastAGIFilter(
	service *core.CallerCheckService,
	logger *zap.Logger,
	m *metrics.Metrics,
	listenAddr string,
	timeout time.Duration,
	shutdownTimeout time.Duration,
) *FastAGIFilter {
	ctx, cancel := context.WithCancel(context.Background())
	return &FastAGIFilter{
		service:         service,
		logger:          logger,
		metrics:         m,
		listenAddr:      listenAddr,
		timeout:         timeout,
		shutdownTimeout: shutdownTimeout,
		ctx:             ctx,
		cancel:          cancel,
		conns:           make(map[net.Conn]struct{}),
		serveDone:       make(chan struct{}),
	}
}

// Start binds the listen address and accepts connections in the background
func (f *FastAGIFilter) Start() error {
	ln, err := net.Listen("tcp", f.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.listenAddr, err)
	}

	f.mu.Lock()
	f.ln = ln
	f.mu.Unlock()

	f.logger.Info("Starting FastAGI server",
		zap.String("address", ln.Addr().String()),
		zap.Duration("timeout", f.timeout),
		zap.Bool("cache_enabled", f.service.CacheEnabled()))

	go f.serve(ln)
	return nil
}

// Addr returns the bound address, or nil before Start
func (f *FastAGIFilter) Addr() net.Addr {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ln == nil {
		return nil
	}
	return f.ln.Addr()
}

// Stop stops accepting, lets in-flight connections finish within the
// shutdown timeout and closes whatever is left afterwards
func (f *FastAGIFilter) Stop() error {
	if !f.closing.CompareAndSwap(false, true) {
		return nil
	}

	f.mu.Lock()
	ln := f.ln
	f.mu.Unlock()
	if ln == nil {
		f.cancel()
		return nil
	}

	err := ln.Close()
	<-f.serveDone

	done := make(chan struct{})
	go func() {
		f.handlers.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(f.shutdownTimeout):
		f.logger.Warn("Closing in-flight connections after shutdown timeout",
			zap.Duration("shutdown_timeout", f.shutdownTimeout))
		f.cancel()
		f.closeAll()
		<-done
	}
	f.cancel()

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// CheckCaller runs the lookup pipeline without a FastAGI connection
func (f *FastAGIFilter) CheckCaller(ctx context.Context, callerID string) (*core.Decision, error) {
	return f.service.Check(ctx, callerID)
}

// serve is the accept loop. Each connection gets its own goroutine so a slow
// or failing handler never blocks accepting.
func (f *FastAGIFilter) serve(ln net.Listener) {
	defer close(f.serveDone)

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if f.closing.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff = min(2*backoff, maxAcceptBackoff)
			}
			f.logger.Error("Accept failed, retrying", zap.Error(err), zap.Duration("backoff", backoff))
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		f.track(conn)
		f.handlers.Add(1)
		go f.handleConn(conn)
	}
}

// handleConn owns one connection from accept to close
func (f *FastAGIFilter) handleConn(conn net.Conn) {
	defer f.handlers.Done()
	defer f.untrack(conn)
	defer conn.Close()

	logger := f.logger.With(
		zap.String("session_id", uuid.NewString()),
		zap.String("peer", conn.RemoteAddr().String()))

	f.metrics.ActiveConnections.Inc()
	defer f.metrics.ActiveConnections.Dec()

	outcome := metrics.OutcomeNoScore
	defer func() {
		if r := recover(); r != nil {
			outcome = metrics.OutcomePanic
			logger.Error("Connection handler failed",
				zap.Error(core.ErrHandlerPanic),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
		f.metrics.Connections.WithLabelValues(outcome).Inc()
	}()

	outcome = f.serveConn(conn, logger)
}

// serveConn reads the request, checks the caller and writes at most one
// response line. It returns the connection outcome.
func (f *FastAGIFilter) serveConn(conn net.Conn, logger *zap.Logger) string {
	deadline := time.Now().Add(f.timeout)
	if err := conn.SetDeadline(deadline); err != nil {
		logger.Warn("Failed to set connection deadline", zap.Error(err))
	}
	ctx, cancel := context.WithDeadline(f.ctx, deadline)
	defer cancel()

	req, err := agi.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		if isTimeout(err) {
			logger.Warn("Timeout receiving data", zap.Error(core.ErrConnectionTimeout))
			return metrics.OutcomeTimeout
		}
		logger.Warn("Unable to read FastAGI request", zap.Error(fmt.Errorf("%w: %w", core.ErrProtocol, err)))
		return metrics.OutcomeProtocol
	}

	callerID := req.CallerID()
	logger.Info("Checking caller", zap.String("caller_id", callerID))

	start := time.Now()
	decision, err := f.service.Check(ctx, callerID)
	f.recordLookup(decision, err, time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("Lookup aborted by connection deadline",
				zap.Error(core.ErrConnectionTimeout),
				zap.NamedError("cause", err))
			return metrics.OutcomeTimeout
		}
		logger.Warn("No score set", zap.String("caller_id", callerID), zap.Error(err))
		return metrics.OutcomeNoScore
	}

	if !decision.HasScore {
		return metrics.OutcomeNoScore
	}

	if err := agi.WriteSetVariable(conn, core.ScoreVariable, strconv.Itoa(decision.Score)); err != nil {
		if isTimeout(err) {
			logger.Warn("Timeout sending score", zap.Error(core.ErrConnectionTimeout))
			return metrics.OutcomeTimeout
		}
		logger.Warn("Failed to send score", zap.Error(err))
		return metrics.OutcomeWriteError
	}

	logger.Info("Score sent",
		zap.String("caller_id", callerID),
		zap.String("number", decision.Number),
		zap.Int("score", decision.Score),
		zap.String("source", string(decision.Source)))
	return metrics.OutcomeScored
}

// recordLookup updates the lookup counters for one decision
func (f *FastAGIFilter) recordLookup(decision *core.Decision, err error, elapsed time.Duration) {
	if decision == nil {
		return
	}

	cacheConsulted := f.service.CacheEnabled() && decision.Number != ""
	switch {
	case decision.CacheErr != nil:
		f.metrics.Lookups.WithLabelValues("cache", "error").Inc()
	case decision.Source == core.SourceCache:
		f.metrics.Lookups.WithLabelValues("cache", "hit").Inc()
	case cacheConsulted && decision.Source == core.SourceRemote:
		f.metrics.Lookups.WithLabelValues("cache", "miss").Inc()
	}

	if decision.Source == core.SourceRemote {
		result := "ok"
		if err != nil {
			result = "error"
		}
		f.metrics.Lookups.WithLabelValues("remote", result).Inc()
	}

	f.metrics.LookupDuration.WithLabelValues(string(decision.Source)).Observe(elapsed.Seconds())
}

func (f *FastAGIFilter) track(conn net.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conns[conn] = struct{}{}
}

func (f *FastAGIFilter) untrack(conn net.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.conns, conn)
}

func (f *FastAGIFilter) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.conns {
		_ = conn.Close()
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
