package conn

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Reserved xids from spec.md section 6.
const (
	XidNotification int32 = -1
	XidPing         int32 = -2
	XidAuth         int32 = -4
	XidClose        int32 = -11
)

// RequestHeader is the request envelope from spec.md section 6:
// xid:i32 ++ type:i32 ++ body.
type RequestHeader struct {
	Xid  int32
	Type int32
}

// ResponseHeader is the reply envelope: xid:i32 ++ zxid:i64 ++ err:i32,
// body omitted when Err != 0.
type ResponseHeader struct {
	Xid int32
	Zxid int64
	Err  int32
}

// ConnectRequest is the first frame the client ever sends, immediately
// after the TCP handshake.
type ConnectRequest struct {
	ProtocolVersion int32
	LastZxidSeen    int64
	TimeoutMs       int32
	SessionID       int64
	Password        []byte
}

// ConnectResponse is the server's reply to ConnectRequest. SessionID == 0
// means the server refused to resume the previous session (spec.md
// section 4.B): the engine must surface Expired.
type ConnectResponse struct {
	ProtocolVersion   int32
	NegotiatedTimeout int32
	SessionID         int64
	Password          []byte
}

// Codec reads and writes length-prefixed frames on a byte stream and
// knows the three distinguished shapes spec.md section 4.B names: the
// connect handshake, the per-request envelope, and ping/auth/close (which
// share the request envelope's shape and are only distinguished by xid).
//
// There is no third-party framing library backing this: the wire format
// is bespoke and byte-exact (spec.md section 4.B), so the codec is built
// directly on encoding/binary the same way the real protocol's own
// reference client is — see DESIGN.md for why no dependency could serve
// this instead.
type Codec struct {
	rw           io.ReadWriter
	maxFrameSize int32
}

// NewCodec wraps rw (typically a net.Conn) with the frame codec. maxFrameSize
// bounds how large a single frame may claim to be before ReadFrame fails
// with ErrProtocolError, guarding against a corrupt length prefix causing
// an unbounded allocation.
func NewCodec(rw io.ReadWriter, maxFrameSize int32) *Codec {
	return &Codec{rw: rw, maxFrameSize: maxFrameSize}
}

// ReadFrame reads one length-prefixed frame: a 4-byte big-endian length
// followed by that many payload bytes.
func (c *Codec) ReadFrame() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(c.rw, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: reading frame length: %v", ErrProtocolError, err)
	}
	n := int32(binary.BigEndian.Uint32(lenBuf[:]))
	if n < 0 || n > c.maxFrameSize {
		return nil, fmt.Errorf("%w: impossible frame length %d", ErrProtocolError, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.rw, buf); err != nil {
		return nil, fmt.Errorf("%w: reading frame body: %v", ErrProtocolError, err)
	}
	return buf, nil
}

// WriteFrame writes the 4-byte big-endian length prefix followed by body.
func (c *Codec) WriteFrame(body []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := c.rw.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("%w: writing frame length: %v", ErrProtocolError, err)
	}
	if _, err := c.rw.Write(body); err != nil {
		return fmt.Errorf("%w: writing frame body: %v", ErrProtocolError, err)
	}
	return nil
}

// EncodeConnectRequest serializes req per spec.md section 6.
func EncodeConnectRequest(req *ConnectRequest) []byte {
	buf := make([]byte, 0, 4+8+4+8+4+len(req.Password))
	buf = appendInt32(buf, req.ProtocolVersion)
	buf = appendInt64(buf, req.LastZxidSeen)
	buf = appendInt32(buf, req.TimeoutMs)
	buf = appendInt64(buf, req.SessionID)
	buf = appendBytes(buf, req.Password)
	return buf
}

// DecodeConnectRequest is the server-fixture-side inverse of
// EncodeConnectRequest.
func DecodeConnectRequest(buf []byte) (*ConnectRequest, error) {
	d := &decoder{buf: buf}
	req := &ConnectRequest{}
	req.ProtocolVersion = d.int32()
	req.LastZxidSeen = d.int64()
	req.TimeoutMs = d.int32()
	req.SessionID = d.int64()
	req.Password = d.bytes()
	return req, d.err()
}

// EncodeConnectResponse serializes resp per spec.md section 6.
func EncodeConnectResponse(resp *ConnectResponse) []byte {
	buf := make([]byte, 0, 4+4+8+4+len(resp.Password))
	buf = appendInt32(buf, resp.ProtocolVersion)
	buf = appendInt32(buf, resp.NegotiatedTimeout)
	buf = appendInt64(buf, resp.SessionID)
	buf = appendBytes(buf, resp.Password)
	return buf
}

// DecodeConnectResponse is the client-side inverse of EncodeConnectResponse.
func DecodeConnectResponse(buf []byte) (*ConnectResponse, error) {
	d := &decoder{buf: buf}
	resp := &ConnectResponse{}
	resp.ProtocolVersion = d.int32()
	resp.NegotiatedTimeout = d.int32()
	resp.SessionID = d.int64()
	resp.Password = d.bytes()
	return resp, d.err()
}

// EncodeRequestEnvelope prefixes body with the (xid, type) header.
func EncodeRequestEnvelope(h RequestHeader, body []byte) []byte {
	buf := make([]byte, 0, 8+len(body))
	buf = appendInt32(buf, h.Xid)
	buf = appendInt32(buf, h.Type)
	buf = append(buf, body...)
	return buf
}

// DecodeRequestEnvelope splits a frame into its header and body. Used by
// the test fixture server, which plays the role the real server plays on
// the wire.
func DecodeRequestEnvelope(frame []byte) (RequestHeader, []byte, error) {
	d := &decoder{buf: frame}
	h := RequestHeader{Xid: d.int32(), Type: d.int32()}
	if err := d.err(); err != nil {
		return RequestHeader{}, nil, err
	}
	return h, d.rest(), nil
}

// EncodeResponseEnvelope prefixes body with (xid, zxid, err). body must be
// empty when h.Err != 0, per spec.md section 6.
func EncodeResponseEnvelope(h ResponseHeader, body []byte) []byte {
	buf := make([]byte, 0, 16+len(body))
	buf = appendInt32(buf, h.Xid)
	buf = appendInt64(buf, h.Zxid)
	buf = appendInt32(buf, h.Err)
	if h.Err == 0 {
		buf = append(buf, body...)
	}
	return buf
}

// DecodeResponseEnvelope splits a reply frame into its header and body.
func DecodeResponseEnvelope(frame []byte) (ResponseHeader, []byte, error) {
	d := &decoder{buf: frame}
	h := ResponseHeader{Xid: d.int32(), Zxid: d.int64(), Err: d.int32()}
	if err := d.err(); err != nil {
		return ResponseHeader{}, nil, err
	}
	return h, d.rest(), nil
}

func appendInt32(buf []byte, v int32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return append(buf, b[:]...)
}

func appendInt64(buf []byte, v int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	return append(buf, b[:]...)
}

func appendBytes(buf []byte, data []byte) []byte {
	buf = appendInt32(buf, int32(len(data)))
	return append(buf, data...)
}

// decoder walks a byte slice left to right, latching the first error it
// hits so callers can ignore intermediate error checks, the same shape as
// the teacher's ZXID helpers favor small, single-purpose accessors over
// threading error returns through every call.
type decoder struct {
	buf []byte
	pos int
	e   error
}

func (d *decoder) need(n int) bool {
	if d.e != nil {
		return false
	}
	if d.pos+n > len(d.buf) {
		d.e = fmt.Errorf("%w: short frame", ErrProtocolError)
		return false
	}
	return true
}

func (d *decoder) int32() int32 {
	if !d.need(4) {
		return 0
	}
	v := int32(binary.BigEndian.Uint32(d.buf[d.pos : d.pos+4]))
	d.pos += 4
	return v
}

func (d *decoder) int64() int64 {
	if !d.need(8) {
		return 0
	}
	v := int64(binary.BigEndian.Uint64(d.buf[d.pos : d.pos+8]))
	d.pos += 8
	return v
}

func (d *decoder) bytes() []byte {
	n := d.int32()
	if n < 0 {
		return nil
	}
	if !d.need(int(n)) {
		return nil
	}
	v := make([]byte, n)
	copy(v, d.buf[d.pos:d.pos+int(n)])
	d.pos += int(n)
	return v
}

func (d *decoder) rest() []byte {
	if d.e != nil {
		return nil
	}
	return d.buf[d.pos:]
}

func (d *decoder) err() error {
	return d.e
}
