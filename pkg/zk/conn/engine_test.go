package conn

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeServer is a minimal hand-rolled stand-in for a real ZooKeeper-style
// server, just enough of the handshake and envelope shape for Engine's own
// unit tests: accept one connection, answer Connect, then echo every
// request straight back as a success reply with the same body. The full
// fixture in internal/zktest exercises the rest of the protocol end to end;
// this one stays in package conn to test Engine without an import cycle.
type fakeServer struct {
	listener net.Listener
}

func startFakeServer(t *testing.T) (addr string, srv *fakeServer) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeServer{listener: l}
	go s.acceptLoop()
	t.Cleanup(func() { _ = l.Close() })
	return l.Addr().String(), s
}

func (s *fakeServer) acceptLoop() {
	for {
		c, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(c)
	}
}

func (s *fakeServer) handle(c net.Conn) {
	defer c.Close()
	codec := NewCodec(c, 1<<20)

	frame, err := codec.ReadFrame()
	if err != nil {
		return
	}
	if _, err := DecodeConnectRequest(frame); err != nil {
		return
	}
	resp := EncodeConnectResponse(&ConnectResponse{
		NegotiatedTimeout: 6000,
		SessionID:         7,
		Password:          []byte("pw"),
	})
	if err := codec.WriteFrame(resp); err != nil {
		return
	}

	for {
		frame, err := codec.ReadFrame()
		if err != nil {
			return
		}
		h, body, err := DecodeRequestEnvelope(frame)
		if err != nil {
			return
		}
		switch h.Xid {
		case XidPing, XidAuth:
			continue
		case XidClose:
			return
		default:
			reply := EncodeResponseEnvelope(ResponseHeader{Xid: h.Xid, Zxid: 1, Err: 0}, body)
			if err := codec.WriteFrame(reply); err != nil {
				return
			}
		}
	}
}

func waitForState(t *testing.T, e *Engine, want State) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if e.State() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("engine never reached state %s, stuck at %s", want, e.State())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestEngineConnectsAndSubmitsRoundTrip(t *testing.T) {
	addr, _ := startFakeServer(t)
	e, err := NewEngine(Config{Hosts: []string{addr}})
	require.NoError(t, err)
	e.Start()
	defer e.Close()

	waitForState(t, e, Connected)
	require.EqualValues(t, 7, e.SessionID())
	require.Equal(t, []byte("pw"), e.SessionPassword())

	res, err := e.Submit(context.Background(), 42, []byte("hello"), nil)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), res.Body)
	require.EqualValues(t, 1, res.Zxid)
}

func TestEngineSubmitFailsWhenNotConnected(t *testing.T) {
	e, err := NewEngine(Config{Hosts: []string{"127.0.0.1:1"}})
	require.NoError(t, err)
	_, err = e.Submit(context.Background(), 1, nil, nil)
	require.ErrorIs(t, err, ErrConnectionLoss)
}

func TestEngineCloseIsIdempotentAndUnblocksSubmit(t *testing.T) {
	addr, _ := startFakeServer(t)
	e, err := NewEngine(Config{Hosts: []string{addr}})
	require.NoError(t, err)
	e.Start()
	waitForState(t, e, Connected)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err = e.Submit(context.Background(), 1, nil, nil)
	require.Error(t, err)
}

func TestEngineSubmitCancelledByContext(t *testing.T) {
	addr, _ := startFakeServer(t)
	e, err := NewEngine(Config{Hosts: []string{addr}})
	require.NoError(t, err)
	e.Start()
	defer e.Close()
	waitForState(t, e, Connected)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Submit(ctx, 1, nil, nil)
	require.ErrorIs(t, err, context.Canceled)
}
