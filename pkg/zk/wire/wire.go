// Package wire owns the request/response body encoding for every facade
// operation. spec.md section 1 puts "on-wire record framing for each
// individual request/response body" explicitly out of scope for the
// connection subsystem and treats it as opaque encode(body)/decode(bytes);
// this package is that opaque codec, shared by pkg/zk (which calls it as a
// client) and internal/zktest (which calls it as a server), so both sides
// agree on the exact bytes without either depending on the other.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrShortBody is returned when a response or request body ends before a
// field it promised (via a length prefix) can be fully read.
var ErrShortBody = errors.New("wire: short body")

// Request op types. The exact integers are this module's own convention:
// spec.md section 1 explicitly leaves body framing unspecified.
const (
	OpCreate      int32 = 1
	OpDelete      int32 = 2
	OpExists      int32 = 3
	OpGetData     int32 = 4
	OpSetData     int32 = 5
	OpGetACL      int32 = 6
	OpSetACL      int32 = 7
	OpGetChildren int32 = 8
	OpSync        int32 = 9
)

// Stat mirrors the 11 metadata fields ZooKeeper attaches to every znode
// (spec.md section 3 "Stat"). pkg/zk.Stat and this type have identical
// shape; they stay separate types so this package never imports pkg/zk.
type Stat struct {
	Czxid          int64
	Mzxid          int64
	Ctime          int64
	Mtime          int64
	Version        int32
	Cversion       int32
	Aversion       int32
	EphemeralOwner int64
	DataLength     int32
	NumChildren    int32
	Pzxid          int64
}

// ACL mirrors pkg/zk.ACL's (permissions, principal) shape.
type ACL struct {
	Perms  int32
	Scheme string
	ID     string
}

type buf struct{ b []byte }

func (w *buf) I32(v int32) *buf {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	w.b = append(w.b, b[:]...)
	return w
}

func (w *buf) I64(v int64) *buf {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	w.b = append(w.b, b[:]...)
	return w
}

func (w *buf) Bytes(v []byte) *buf {
	w.I32(int32(len(v)))
	w.b = append(w.b, v...)
	return w
}

func (w *buf) Str(s string) *buf {
	return w.Bytes([]byte(s))
}

func (w *buf) Bool(v bool) *buf {
	if v {
		w.b = append(w.b, 1)
	} else {
		w.b = append(w.b, 0)
	}
	return w
}

func (w *buf) ACLList(acl []ACL) *buf {
	w.I32(int32(len(acl)))
	for _, a := range acl {
		w.I32(a.Perms)
		w.Str(a.Scheme)
		w.Str(a.ID)
	}
	return w
}

func (w *buf) Stat(s Stat) *buf {
	w.I64(s.Czxid)
	w.I64(s.Mzxid)
	w.I64(s.Ctime)
	w.I64(s.Mtime)
	w.I32(s.Version)
	w.I32(s.Cversion)
	w.I32(s.Aversion)
	w.I64(s.EphemeralOwner)
	w.I32(s.DataLength)
	w.I32(s.NumChildren)
	w.I64(s.Pzxid)
	return w
}

type dec struct {
	b   []byte
	pos int
	err error
}

func (d *dec) need(n int) bool {
	if d.err != nil {
		return false
	}
	if d.pos+n > len(d.b) {
		d.err = fmt.Errorf("%w", ErrShortBody)
		return false
	}
	return true
}

func (d *dec) I32() int32 {
	if !d.need(4) {
		return 0
	}
	v := int32(binary.BigEndian.Uint32(d.b[d.pos : d.pos+4]))
	d.pos += 4
	return v
}

func (d *dec) I64() int64 {
	if !d.need(8) {
		return 0
	}
	v := int64(binary.BigEndian.Uint64(d.b[d.pos : d.pos+8]))
	d.pos += 8
	return v
}

func (d *dec) Bytes() []byte {
	n := d.I32()
	if n <= 0 || !d.need(int(n)) {
		return nil
	}
	v := make([]byte, n)
	copy(v, d.b[d.pos:d.pos+int(n)])
	d.pos += int(n)
	return v
}

func (d *dec) Str() string {
	return string(d.Bytes())
}

func (d *dec) Bool() bool {
	if !d.need(1) {
		return false
	}
	v := d.b[d.pos] != 0
	d.pos++
	return v
}

func (d *dec) Stat() Stat {
	var s Stat
	s.Czxid = d.I64()
	s.Mzxid = d.I64()
	s.Ctime = d.I64()
	s.Mtime = d.I64()
	s.Version = d.I32()
	s.Cversion = d.I32()
	s.Aversion = d.I32()
	s.EphemeralOwner = d.I64()
	s.DataLength = d.I32()
	s.NumChildren = d.I32()
	s.Pzxid = d.I64()
	return s
}

func (d *dec) ACLList() []ACL {
	n := int(d.I32())
	if n <= 0 {
		return nil
	}
	out := make([]ACL, 0, n)
	for i := 0; i < n; i++ {
		perms := d.I32()
		scheme := d.Str()
		id := d.Str()
		out = append(out, ACL{Perms: perms, Scheme: scheme, ID: id})
	}
	return out
}

// CreateRequest is the decoded shape of a Create request body.
type CreateRequest struct {
	Path       string
	Data       []byte
	ACL        []ACL
	Ephemeral  bool
	Sequential bool
}

func EncodeCreateRequest(r CreateRequest) []byte {
	w := &buf{}
	w.Str(r.Path).Bytes(r.Data).ACLList(r.ACL).Bool(r.Ephemeral).Bool(r.Sequential)
	return w.b
}

func DecodeCreateRequest(body []byte) (CreateRequest, error) {
	d := &dec{b: body}
	r := CreateRequest{
		Path: d.Str(),
		Data: d.Bytes(),
		ACL:  d.ACLList(),
	}
	r.Ephemeral = d.Bool()
	r.Sequential = d.Bool()
	return r, d.err
}

func EncodeCreateResponse(path string) []byte {
	return (&buf{}).Str(path).b
}

func DecodeCreateResponse(body []byte) (string, error) {
	d := &dec{b: body}
	path := d.Str()
	return path, d.err
}

type DeleteRequest struct {
	Path    string
	Version int32
}

func EncodeDeleteRequest(r DeleteRequest) []byte {
	return (&buf{}).Str(r.Path).I32(r.Version).b
}

func DecodeDeleteRequest(body []byte) (DeleteRequest, error) {
	d := &dec{b: body}
	r := DeleteRequest{Path: d.Str(), Version: d.I32()}
	return r, d.err
}

type PathWatchRequest struct {
	Path  string
	Watch bool
}

func EncodePathWatchRequest(r PathWatchRequest) []byte {
	return (&buf{}).Str(r.Path).Bool(r.Watch).b
}

func DecodePathWatchRequest(body []byte) (PathWatchRequest, error) {
	d := &dec{b: body}
	r := PathWatchRequest{Path: d.Str(), Watch: d.Bool()}
	return r, d.err
}

func EncodeStatResponse(s Stat) []byte {
	return (&buf{}).Stat(s).b
}

func DecodeStatResponse(body []byte) (Stat, error) {
	d := &dec{b: body}
	s := d.Stat()
	return s, d.err
}

func EncodeGetDataResponse(data []byte, s Stat) []byte {
	return (&buf{}).Bytes(data).Stat(s).b
}

func DecodeGetDataResponse(body []byte) ([]byte, Stat, error) {
	d := &dec{b: body}
	data := d.Bytes()
	s := d.Stat()
	return data, s, d.err
}

type SetDataRequest struct {
	Path    string
	Data    []byte
	Version int32
}

func EncodeSetDataRequest(r SetDataRequest) []byte {
	return (&buf{}).Str(r.Path).Bytes(r.Data).I32(r.Version).b
}

func DecodeSetDataRequest(body []byte) (SetDataRequest, error) {
	d := &dec{b: body}
	r := SetDataRequest{Path: d.Str(), Data: d.Bytes(), Version: d.I32()}
	return r, d.err
}

func EncodePathRequest(path string) []byte {
	return (&buf{}).Str(path).b
}

func DecodePathRequest(body []byte) (string, error) {
	d := &dec{b: body}
	path := d.Str()
	return path, d.err
}

func EncodeGetACLResponse(acl []ACL, s Stat) []byte {
	return (&buf{}).ACLList(acl).Stat(s).b
}

func DecodeGetACLResponse(body []byte) ([]ACL, Stat, error) {
	d := &dec{b: body}
	acl := d.ACLList()
	s := d.Stat()
	return acl, s, d.err
}

type SetACLRequest struct {
	Path    string
	ACL     []ACL
	Version int32
}

func EncodeSetACLRequest(r SetACLRequest) []byte {
	return (&buf{}).Str(r.Path).ACLList(r.ACL).I32(r.Version).b
}

func DecodeSetACLRequest(body []byte) (SetACLRequest, error) {
	d := &dec{b: body}
	r := SetACLRequest{Path: d.Str(), ACL: d.ACLList(), Version: d.I32()}
	return r, d.err
}

func EncodeGetChildrenResponse(children []string) []byte {
	w := &buf{}
	w.I32(int32(len(children)))
	for _, c := range children {
		w.Str(c)
	}
	return w.b
}

func DecodeGetChildrenResponse(body []byte) ([]string, error) {
	d := &dec{b: body}
	n := int(d.I32())
	children := make([]string, 0, n)
	for i := 0; i < n; i++ {
		children = append(children, d.Str())
	}
	return children, d.err
}
