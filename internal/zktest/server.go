package zktest

import (
	"bytes"
	"errors"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mikekulinski/zkconn/pkg/zk"
	"github.com/mikekulinski/zkconn/pkg/zk/conn"
	"github.com/mikekulinski/zkconn/pkg/zk/wire"
)

// serverConn is the per-connection state the accept loop hands to
// handleConn: the negotiated session identity plus the outbound channel
// watch notifications are pushed onto, mirroring the single-writer
// discipline pkg/zk/conn.Engine uses on the client side. connTag is a
// per-TCP-connection label (a session can be re-attached to a new TCP
// connection on reconnect, so it's distinct from the session id), letting
// integration-test log lines distinguish concurrently connected sessions
// and successive connections to the same session.
type serverConn struct {
	id       int64
	password []byte
	deadline time.Time
	sess     *session
	out      chan []byte
	connTag  string
}

// Server is the fixture's connection acceptor. Grounded on the teacher's
// server.Server plus its Message/StartSession/CloseSession trio, collapsed
// onto this module's bespoke frame codec instead of a gRPC stream.
type Server struct {
	db     *DB
	logger *log.Logger

	mu       sync.Mutex
	sessions map[int64]*serverConn
	nextID   int64

	listener net.Listener
	wg       sync.WaitGroup
	closeCh  chan struct{}
}

func NewServer(logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		db:       NewDB(),
		logger:   logger,
		sessions: make(map[int64]*serverConn),
		closeCh:  make(chan struct{}),
	}
}

// Serve accepts connections on l until Close is called.
func (s *Server) Serve(l net.Listener) error {
	s.listener = l
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.reapExpiredSessions()
	}()
	for {
		c, err := l.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return nil
			default:
				return err
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(c)
		}()
	}
}

// Close stops accepting and waits for every connection handler to finish.
func (s *Server) Close() error {
	select {
	case <-s.closeCh:
	default:
		close(s.closeCh)
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	return nil
}

// reapExpiredSessions sweeps sessions past their deadline, so a session
// nobody ever reconnects to eventually releases its ephemeral nodes instead
// of leaking forever. An attached connection keeps its session alive only
// by pushing the deadline forward on every frame it reads.
func (s *Server) reapExpiredSessions() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.closeCh:
			return
		case <-ticker.C:
			var expired []*serverConn
			s.mu.Lock()
			for id, sc := range s.sessions {
				if time.Now().After(sc.deadline) {
					expired = append(expired, sc)
					delete(s.sessions, id)
				}
			}
			s.mu.Unlock()
			for _, sc := range expired {
				for path := range sc.sess.ephemeralPaths {
					s.db.DeleteEphemeral(path)
				}
			}
		}
	}
}

func (s *Server) negotiate(req *conn.ConnectRequest, negotiated time.Duration) *serverConn {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.SessionID != 0 {
		sc, ok := s.sessions[req.SessionID]
		if !ok || !bytes.Equal(sc.password, req.Password) || time.Now().After(sc.deadline) {
			delete(s.sessions, req.SessionID)
			return nil
		}
		sc.deadline = time.Now().Add(negotiated)
		return sc
	}

	s.nextID++
	id := s.nextID
	password := make([]byte, 16)
	for i := range password {
		password[i] = byte(id >> (uint(i%8) * 8))
	}
	sc := &serverConn{
		id:       id,
		password: password,
		deadline: time.Now().Add(negotiated),
		sess:     newSession(id, password),
	}
	s.sessions[id] = sc
	return sc
}

// endSession is only called for an explicit client close (XidClose), never
// for an ordinary dropped TCP connection: spec.md section 3's session
// survives across reconnects until the negotiated timeout elapses, so a
// mid-session socket loss must leave sc in s.sessions for negotiate to
// resume, not tear it down. Expiration for a session nobody reconnects to
// is swept by reapExpiredSessions once its deadline passes.
func (s *Server) endSession(sc *serverConn) {
	s.mu.Lock()
	delete(s.sessions, sc.id)
	s.mu.Unlock()

	for path := range sc.sess.ephemeralPaths {
		s.db.DeleteEphemeral(path)
	}
}

func (s *Server) handleConn(raw net.Conn) {
	defer raw.Close()
	codec := conn.NewCodec(raw, 1<<20)

	frame, err := codec.ReadFrame()
	if err != nil {
		return
	}
	req, err := conn.DecodeConnectRequest(frame)
	if err != nil {
		return
	}

	timeoutMs := req.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = 6000
	}
	negotiated := time.Duration(timeoutMs) * time.Millisecond

	sc := s.negotiate(req, negotiated)
	if sc == nil {
		_ = codec.WriteFrame(conn.EncodeConnectResponse(&conn.ConnectResponse{}))
		return
	}
	sc.connTag = uuid.NewString()
	s.logger.Printf("zktest: connection %s negotiated session %d", sc.connTag, sc.id)
	if err := codec.WriteFrame(conn.EncodeConnectResponse(&conn.ConnectResponse{
		NegotiatedTimeout: int32(negotiated / time.Millisecond),
		SessionID:         sc.id,
		Password:          sc.password,
	})); err != nil {
		return
	}

	out := make(chan []byte, 64)
	sc.out = out
	explicitClose := false
	defer func() {
		close(out)
		if explicitClose {
			s.endSession(sc)
		}
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for frame := range out {
			if err := codec.WriteFrame(frame); err != nil {
				return
			}
		}
	}()
	defer func() {
		select {
		case <-writerDone:
		case <-time.After(time.Second):
		}
	}()

	notify := func(eventType conn.EventType, path string) {
		select {
		case out <- conn.EncodeResponseEnvelope(conn.ResponseHeader{Xid: conn.XidNotification}, conn.EncodeNotification(eventType, path)):
		default:
			s.logger.Printf("zktest: connection %s dropped notification for session %d, path %s: outbox full", sc.connTag, sc.id, path)
		}
	}

	for {
		_ = raw.SetReadDeadline(time.Now().Add(negotiated))
		frame, err := codec.ReadFrame()
		if err != nil {
			return
		}

		s.mu.Lock()
		sc.deadline = time.Now().Add(negotiated)
		s.mu.Unlock()

		h, body, err := conn.DecodeRequestEnvelope(frame)
		if err != nil {
			return
		}

		switch h.Xid {
		case conn.XidPing:
			resp := conn.EncodeResponseEnvelope(conn.ResponseHeader{Xid: conn.XidPing, Zxid: s.db.CurrentZxid()}, nil)
			select {
			case out <- resp:
			case <-s.closeCh:
				return
			}
		case conn.XidClose:
			explicitClose = true
			return
		case conn.XidAuth:
			resp := conn.EncodeResponseEnvelope(conn.ResponseHeader{Xid: conn.XidAuth, Zxid: s.db.CurrentZxid()}, nil)
			select {
			case out <- resp:
			case <-s.closeCh:
				return
			}
		default:
			resp := s.handleRequest(sc, h, body, notify)
			select {
			case out <- resp:
			case <-s.closeCh:
				return
			}
		}
	}
}

func (s *Server) handleRequest(sc *serverConn, h conn.RequestHeader, body []byte, notify func(conn.EventType, string)) []byte {
	var respBody []byte
	code := zk.ErrCodeUnimplemented

	switch h.Type {
	case wire.OpCreate:
		req, err := wire.DecodeCreateRequest(body)
		if err != nil {
			code = zk.ErrCodeMarshallingError
			break
		}
		if len(req.ACL) == 0 {
			code = zk.ErrCodeInvalidACL
			break
		}
		created, c := s.db.Create(req.Path, req.Data, req.ACL, req.Ephemeral, req.Sequential, sc.id)
		code = c
		if code == zk.ErrCodeOK {
			if req.Ephemeral {
				sc.sess.trackEphemeral(created)
			}
			respBody = wire.EncodeCreateResponse(created)
		}

	case wire.OpDelete:
		req, err := wire.DecodeDeleteRequest(body)
		if err != nil {
			code = zk.ErrCodeMarshallingError
			break
		}
		code = s.db.Delete(req.Path, req.Version)
		if code == zk.ErrCodeOK {
			sc.sess.untrackEphemeral(req.Path)
		}

	case wire.OpExists:
		req, err := wire.DecodePathWatchRequest(body)
		if err != nil {
			code = zk.ErrCodeMarshallingError
			break
		}
		var w func(conn.EventType, string)
		if req.Watch {
			w = notify
		}
		stat, found := s.db.Exists(req.Path, w)
		if found {
			code = zk.ErrCodeOK
			respBody = wire.EncodeStatResponse(stat)
		} else {
			code = zk.ErrCodeNoNode
		}

	case wire.OpGetData:
		req, err := wire.DecodePathWatchRequest(body)
		if err != nil {
			code = zk.ErrCodeMarshallingError
			break
		}
		var w func(conn.EventType, string)
		if req.Watch {
			w = notify
		}
		data, stat, c := s.db.GetData(req.Path, w)
		code = c
		if code == zk.ErrCodeOK {
			respBody = wire.EncodeGetDataResponse(data, stat)
		}

	case wire.OpSetData:
		req, err := wire.DecodeSetDataRequest(body)
		if err != nil {
			code = zk.ErrCodeMarshallingError
			break
		}
		stat, c := s.db.SetData(req.Path, req.Data, req.Version)
		code = c
		if code == zk.ErrCodeOK {
			respBody = wire.EncodeStatResponse(stat)
		}

	case wire.OpGetACL:
		path, err := wire.DecodePathRequest(body)
		if err != nil {
			code = zk.ErrCodeMarshallingError
			break
		}
		acl, stat, c := s.db.GetACL(path)
		code = c
		if code == zk.ErrCodeOK {
			respBody = wire.EncodeGetACLResponse(acl, stat)
		}

	case wire.OpSetACL:
		req, err := wire.DecodeSetACLRequest(body)
		if err != nil {
			code = zk.ErrCodeMarshallingError
			break
		}
		if len(req.ACL) == 0 {
			code = zk.ErrCodeInvalidACL
			break
		}
		stat, c := s.db.SetACL(req.Path, req.ACL, req.Version)
		code = c
		if code == zk.ErrCodeOK {
			respBody = wire.EncodeStatResponse(stat)
		}

	case wire.OpGetChildren:
		req, err := wire.DecodePathWatchRequest(body)
		if err != nil {
			code = zk.ErrCodeMarshallingError
			break
		}
		var w func(conn.EventType, string)
		if req.Watch {
			w = notify
		}
		children, c := s.db.GetChildren(req.Path, w)
		code = c
		if code == zk.ErrCodeOK {
			respBody = wire.EncodeGetChildrenResponse(children)
		}

	case wire.OpSync:
		_, err := wire.DecodePathRequest(body)
		if err != nil {
			code = zk.ErrCodeMarshallingError
			break
		}
		code = zk.ErrCodeOK
	}

	return conn.EncodeResponseEnvelope(conn.ResponseHeader{
		Xid:  h.Xid,
		Zxid: s.db.CurrentZxid(),
		Err:  int32(code),
	}, respBody)
}

// ErrServerClosed is returned by Serve's callers that check for a clean
// shutdown; Serve itself returns nil on a Close-initiated shutdown, this
// exists for callers that want to log the distinction explicitly.
var ErrServerClosed = errors.New("zktest: server closed")
