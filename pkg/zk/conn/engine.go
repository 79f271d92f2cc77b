package conn

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// DialFunc opens the TCP connection to a single endpoint. Config.Dial can
// substitute another transport; pkg/zk leaves it nil and Engine falls back
// to a net.Dialer bounded by the dial timeout, the same way the teacher's cmd/ binaries
// hardcode "tcp" dialing rather than taking a dialer interface.
type DialFunc func(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error)

func defaultDial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	return d.DialContext(ctx, "tcp", addr)
}

// Config configures a session Engine. There is no YAML/flags layer here,
// matching pkg/zk's options.go: everything arrives as constructor
// arguments assembled by the facade.
type Config struct {
	Hosts          []string
	SessionTimeout time.Duration
	DialTimeout    time.Duration
	MaxFrameSize   int32
	SessionID      int64
	Password       []byte
	Authenticator  Authenticator
	Logger         *log.Logger
	DefaultWatcher func(Event)
	Dial           DialFunc
}

// Engine is component D from spec.md section 4.D: the single owner of the
// socket and the state variable. It drives the state machine, multiplexes
// requests through the Registry, and forwards watch notifications to the
// Dispatcher. Grounded on the teacher's server.Message loop (one goroutine
// draining a channel of heterogeneous events, replying in order) turned
// inside-out: here the client drives reconnect and heartbeats instead of a
// server draining a stream.
type Engine struct {
	hosts         *HostProvider
	registry      *Registry
	watches       *WatchRegistry
	dispatcher    *Dispatcher
	authenticator Authenticator
	logger        *log.Logger
	dial          DialFunc
	dialTimeout   time.Duration
	maxFrameSize  int32

	state atomic.Int32

	mu                sync.Mutex
	sessionID         int64
	password          []byte
	negotiatedTimeout time.Duration
	requestedTimeout  time.Duration
	authBacklog       []AuthInfo
	activeConn        net.Conn

	lastZxidSeen atomic.Int64

	closeOnce sync.Once
	closeCh   chan struct{}
	stopped   chan struct{}
}

// NewEngine validates cfg and builds an Engine that has not started
// connecting yet; call Start to begin the reconnect loop.
func NewEngine(cfg Config) (*Engine, error) {
	hosts, err := NewHostProvider(cfg.Hosts)
	if err != nil {
		return nil, err
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = 6 * time.Second
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.MaxFrameSize <= 0 {
		cfg.MaxFrameSize = 1 << 20
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Dial == nil {
		cfg.Dial = defaultDial
	}

	watches := NewWatchRegistry()
	e := &Engine{
		hosts:            hosts,
		registry:         NewRegistry(),
		watches:          watches,
		dispatcher:       NewDispatcher(watches, cfg.DefaultWatcher),
		authenticator:    cfg.Authenticator,
		logger:           cfg.Logger,
		dial:             cfg.Dial,
		dialTimeout:      cfg.DialTimeout,
		maxFrameSize:     cfg.MaxFrameSize,
		sessionID:        cfg.SessionID,
		password:         cfg.Password,
		requestedTimeout: cfg.SessionTimeout,
		closeCh:          make(chan struct{}),
		stopped:          make(chan struct{}),
	}
	e.state.Store(int32(NotConnected))
	return e, nil
}

// Watches exposes the registry so pkg/zk can install/inspect watches
// without the engine needing to know about paths or chroot.
func (e *Engine) Watches() *WatchRegistry { return e.watches }

// State returns the engine's current state.
func (e *Engine) State() State { return State(e.state.Load()) }

func (e *Engine) setState(s State) { e.state.Store(int32(s)) }

// SessionID returns the session id negotiated with the server, 0 before
// the first successful handshake.
func (e *Engine) SessionID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// SessionPassword returns the opaque session password.
func (e *Engine) SessionPassword() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.password
}

// LastZxidSeen returns the highest zxid the client has observed so far.
func (e *Engine) LastZxidSeen() int64 { return e.lastZxidSeen.Load() }

// QueueAuth appends an (scheme, auth) pair to be sent once a session is
// live, per spec.md section 4.D "flush auth_info backlog as priority
// requests". If already CONNECTED, it is sent immediately.
func (e *Engine) QueueAuth(info AuthInfo) {
	e.mu.Lock()
	e.authBacklog = append(e.authBacklog, info)
	e.mu.Unlock()
	e.registry.wake()
}

// Start launches the reconnect loop in the background. Calling Start twice
// is a programmer error the same way calling net/rpc.Dial twice would be;
// callers use pkg/zk.New, which calls this exactly once.
func (e *Engine) Start() {
	go e.run()
}

// Submit is the asynchronous submission path spec.md section 5 describes:
// it blocks until a matching reply arrives, the pending entry is failed by
// the engine, the context is cancelled, or the engine closes. reqType and
// body are opaque to the engine; encode/decode happen in pkg/zk.
func (e *Engine) Submit(ctx context.Context, reqType int32, body []byte, watch *WatchSpec) (Result, error) {
	select {
	case <-e.closeCh:
		return Result{}, ErrClosed
	default:
	}
	st := e.State()
	if st == NotConnected || st.Terminal() {
		return Result{}, fmt.Errorf("%w: engine is %s", ErrConnectionLoss, st)
	}

	frame := func(xid int32) []byte {
		return EncodeRequestEnvelope(RequestHeader{Xid: xid, Type: reqType}, body)
	}
	xid, done, err := e.registry.Submit(frame, watch)
	if err != nil {
		return Result{}, err
	}

	select {
	case res := <-done:
		return res, res.Err
	case <-ctx.Done():
		e.registry.Cancel(xid)
		return Result{}, ctx.Err()
	case <-e.closeCh:
		e.registry.Cancel(xid)
		return Result{}, ErrClosed
	}
}

// Close idempotently stops the engine: it signals the writer to send a
// close-session frame (best effort), tears down the socket, drains every
// pending request, and stops the dispatcher after any already-queued
// events are delivered. Safe to call from multiple goroutines (DESIGN
// NOTES "finalizer/GC-based cleanup" idempotence requirement).
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		close(e.closeCh)
		e.setState(Closed)
		e.mu.Lock()
		if e.activeConn != nil {
			e.activeConn.Close()
		}
		e.mu.Unlock()
	})
	<-e.stopped
	e.registry.Close()
	e.registry.Drain(ErrClosed)
	e.dispatcher.Close()
	return nil
}

func (e *Engine) run() {
	defer close(e.stopped)
	ctx := context.Background()
	for {
		st := e.State()
		if st.Terminal() {
			return
		}
		select {
		case <-e.closeCh:
			return
		default:
		}

		endpoint := e.hosts.Next()
		e.setState(Connecting)

		dialCtx, cancel := context.WithTimeout(ctx, e.dialTimeout)
		tcpConn, err := e.dial(dialCtx, endpoint, e.dialTimeout)
		cancel()
		if err != nil {
			e.logger.Printf("zkconn: dial %s: %v", endpoint, err)
			e.maybeBackoff()
			continue
		}

		err = e.serveConnection(tcpConn)
		tcpConn.Close()

		if err == nil {
			continue
		}
		if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrAuthFailed) {
			return
		}
		select {
		case <-e.closeCh:
			return
		default:
		}
		e.logger.Printf("zkconn: connection lost: %v", err)
		e.setState(Connecting)
		e.dispatcher.DispatchState(Connecting, err)
		e.registry.DrainUnacked(ErrConnectionLoss)
	}
}

func (e *Engine) maybeBackoff() {
	if e.hosts.CycleComplete() {
		time.Sleep(e.hosts.BackoffCycle())
	}
}

// serveConnection runs one TCP connection end to end: the connect
// handshake, then the reader/writer loops, until either fails. It returns
// nil only when Close initiated a clean shutdown.
func (e *Engine) serveConnection(tcpConn net.Conn) error {
	e.mu.Lock()
	e.activeConn = tcpConn
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		if e.activeConn == tcpConn {
			e.activeConn = nil
		}
		e.mu.Unlock()
	}()

	codec := NewCodec(tcpConn, e.maxFrameSize)
	e.setState(Associating)

	e.mu.Lock()
	sessionID := e.sessionID
	password := e.password
	timeoutMs := int32(e.requestedTimeout / time.Millisecond)
	e.mu.Unlock()

	req := &ConnectRequest{
		ProtocolVersion: 0,
		LastZxidSeen:    e.lastZxidSeen.Load(),
		TimeoutMs:       timeoutMs,
		SessionID:       sessionID,
		Password:        password,
	}
	if err := codec.WriteFrame(EncodeConnectRequest(req)); err != nil {
		return err
	}
	frame, err := codec.ReadFrame()
	if err != nil {
		return err
	}
	resp, err := DecodeConnectResponse(frame)
	if err != nil {
		return err
	}
	if resp.SessionID == 0 {
		e.setState(Closed)
		e.registry.Drain(ErrSessionExpired)
		e.dispatcher.DispatchExpired(ErrSessionExpired)
		return ErrSessionExpired
	}

	e.mu.Lock()
	e.sessionID = resp.SessionID
	e.password = resp.Password
	e.negotiatedTimeout = time.Duration(resp.NegotiatedTimeout) * time.Millisecond
	negotiated := e.negotiatedTimeout
	e.mu.Unlock()

	e.setState(Connected)
	e.hosts.Connected()
	e.dispatcher.DispatchState(Connected, nil)

	if e.authenticator != nil {
		authCtx, cancel := context.WithTimeout(context.Background(), e.dialTimeout)
		authErr := e.authenticator.Authenticate(authCtx, func(scheme string, auth []byte) error {
			return e.writeAuth(codec, scheme, auth)
		})
		cancel()
		if authErr != nil {
			e.setState(AuthFailed)
			e.registry.Drain(ErrAuthFailed)
			e.dispatcher.DispatchState(AuthFailed, authErr)
			return ErrAuthFailed
		}
	}

	e.mu.Lock()
	backlog := e.authBacklog
	e.authBacklog = nil
	e.mu.Unlock()
	for _, info := range backlog {
		if err := e.writeAuth(codec, info.Scheme, info.Auth); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(context.Background())
	g.Go(func() error { return e.writerLoop(gctx, codec, negotiated) })
	g.Go(func() error { return e.readerLoop(gctx, tcpConn, codec, negotiated) })
	return g.Wait()
}

func (e *Engine) writeAuth(codec *Codec, scheme string, auth []byte) error {
	body := appendBytes(appendStringBytes(nil, scheme), auth)
	frame := EncodeRequestEnvelope(RequestHeader{Xid: XidAuth, Type: -4}, body)
	return codec.WriteFrame(frame)
}

func appendStringBytes(buf []byte, s string) []byte {
	return appendBytes(buf, []byte(s))
}

func (e *Engine) writerLoop(ctx context.Context, codec *Codec, negotiated time.Duration) error {
	pingEvery := negotiated / 3
	if pingEvery <= 0 {
		pingEvery = time.Second
	}
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		e.mu.Lock()
		backlog := e.authBacklog
		e.authBacklog = nil
		e.mu.Unlock()
		for _, info := range backlog {
			if err := e.writeAuth(codec, info.Scheme, info.Auth); err != nil {
				return err
			}
		}

		if xid, frame, ok := e.registry.NextToWrite(); ok {
			if err := codec.WriteFrame(frame); err != nil {
				return err
			}
			e.registry.MarkWritten(xid)
			ticker.Reset(pingEvery)
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.closeCh:
			_ = e.writeClose(codec)
			return nil
		case <-ticker.C:
			if err := e.writePing(codec); err != nil {
				return err
			}
		case <-e.registry.Signal():
		}
	}
}

func (e *Engine) writePing(codec *Codec) error {
	frame := EncodeRequestEnvelope(RequestHeader{Xid: XidPing, Type: -2}, nil)
	return codec.WriteFrame(frame)
}

func (e *Engine) writeClose(codec *Codec) error {
	frame := EncodeRequestEnvelope(RequestHeader{Xid: XidClose, Type: -11}, nil)
	return codec.WriteFrame(frame)
}

func (e *Engine) readerLoop(ctx context.Context, tcpConn net.Conn, codec *Codec, negotiated time.Duration) error {
	deadline := 2 * negotiated / 3
	for {
		if deadline > 0 {
			_ = tcpConn.SetReadDeadline(time.Now().Add(deadline))
		}
		frame, err := codec.ReadFrame()
		if err != nil {
			return err
		}
		h, body, err := DecodeResponseEnvelope(frame)
		if err != nil {
			return err
		}

		switch h.Xid {
		case XidNotification:
			e.handleNotification(body)
		case XidPing:
			// liveness only; the read deadline reset above is the effect.
		case XidAuth:
			if h.Err != 0 {
				e.setState(AuthFailed)
				e.registry.Drain(ErrAuthFailed)
				e.dispatcher.DispatchState(AuthFailed, ErrAuthFailed)
				return ErrAuthFailed
			}
		default:
			e.bumpZxid(h.Zxid)
			watch, err := e.registry.Match(h.Xid, Result{Zxid: h.Zxid, Body: body, Err: wireErr(h.Err)})
			if err != nil {
				return err
			}
			if watch != nil && shouldInstall(h.Err, watch.Kind) {
				e.watches.Install(watch.Path, watch.Kind, watch.Handler)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// shouldInstall implements spec.md section 4.D's watch-install rule: a
// handler is installed on success, with the exception that EXIST installs
// on both success and NoNode.
func shouldInstall(errCode int32, kind WatchKind) bool {
	const noNode = -101
	if errCode == 0 {
		return true
	}
	return kind == WatchExist && errCode == noNode
}

func wireErr(code int32) error {
	if code == 0 {
		return nil
	}
	return &WireError{Code: code}
}

// WireError wraps a raw server error code; pkg/zk attaches the path and
// maps it to the public *zk.Error type.
type WireError struct {
	Code int32
}

func (e *WireError) Error() string {
	return fmt.Sprintf("zkconn: server error code %d", e.Code)
}

func (e *Engine) bumpZxid(zxid int64) {
	for {
		cur := e.lastZxidSeen.Load()
		if zxid <= cur {
			return
		}
		if e.lastZxidSeen.CompareAndSwap(cur, zxid) {
			return
		}
	}
}

// handleNotification decodes a watch-event body (event type ++ path, the
// same shape the in-memory test fixture emits) and forwards it to the
// dispatcher.
func (e *Engine) handleNotification(body []byte) {
	d := &decoder{buf: body}
	eventType := EventType(d.int32())
	path := string(d.bytes())
	if d.err() != nil {
		e.logger.Printf("zkconn: malformed watch notification: %v", d.err())
		return
	}
	e.dispatcher.DispatchNode(eventType, path)
}

// EncodeNotification is the inverse of handleNotification's decode,
// exposed so internal/zktest can build the exact bytes the reader expects.
func EncodeNotification(eventType EventType, path string) []byte {
	buf := appendInt32(nil, int32(eventType))
	buf = appendBytes(buf, []byte(path))
	return buf
}
