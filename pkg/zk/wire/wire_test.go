package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleStat() Stat {
	return Stat{
		Czxid:          1,
		Mzxid:          2,
		Ctime:          1000,
		Mtime:          2000,
		Version:        3,
		Cversion:       4,
		Aversion:       5,
		EphemeralOwner: 99,
		DataLength:     5,
		NumChildren:    2,
		Pzxid:          6,
	}
}

func sampleACL() []ACL {
	return []ACL{
		{Perms: 31, Scheme: "world", ID: "anyone"},
		{Perms: 1, Scheme: "ip", ID: "10.0.0.0/8"},
	}
}

func TestCreateRequestRoundTrip(t *testing.T) {
	req := CreateRequest{
		Path:       "/a/b",
		Data:       []byte("hello"),
		ACL:        sampleACL(),
		Ephemeral:  true,
		Sequential: false,
	}
	got, err := DecodeCreateRequest(EncodeCreateRequest(req))
	require.NoError(t, err)
	require.Equal(t, req, got)
}

func TestCreateRequestRoundTripEmptyData(t *testing.T) {
	req := CreateRequest{Path: "/a", ACL: sampleACL()}
	got, err := DecodeCreateRequest(EncodeCreateRequest(req))
	require.NoError(t, err)
	require.Equal(t, req.Path, got.Path)
	require.Empty(t, got.Data)
	require.Equal(t, req.ACL, got.ACL)
	require.False(t, got.Ephemeral)
	require.False(t, got.Sequential)
}

func TestCreateResponseRoundTrip(t *testing.T) {
	path, err := DecodeCreateResponse(EncodeCreateResponse("/a/b0000000001"))
	require.NoError(t, err)
	require.Equal(t, "/a/b0000000001", path)
}

func TestDeleteRequestRoundTrip(t *testing.T) {
	req := DeleteRequest{Path: "/a/b", Version: 7}
	got, err := DecodeDeleteRequest(EncodeDeleteRequest(req))
	require.NoError(t, err)
	require.Equal(t, req, got)
}

func TestPathWatchRequestRoundTrip(t *testing.T) {
	req := PathWatchRequest{Path: "/a/b", Watch: true}
	got, err := DecodePathWatchRequest(EncodePathWatchRequest(req))
	require.NoError(t, err)
	require.Equal(t, req, got)

	req2 := PathWatchRequest{Path: "/a/b", Watch: false}
	got2, err := DecodePathWatchRequest(EncodePathWatchRequest(req2))
	require.NoError(t, err)
	require.Equal(t, req2, got2)
}

func TestStatResponseRoundTrip(t *testing.T) {
	stat := sampleStat()
	got, err := DecodeStatResponse(EncodeStatResponse(stat))
	require.NoError(t, err)
	require.Equal(t, stat, got)
}

func TestGetDataResponseRoundTrip(t *testing.T) {
	stat := sampleStat()
	data, got, err := DecodeGetDataResponse(EncodeGetDataResponse([]byte("payload"), stat))
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), data)
	require.Equal(t, stat, got)
}

func TestSetDataRequestRoundTrip(t *testing.T) {
	req := SetDataRequest{Path: "/a/b", Data: []byte("v2"), Version: -1}
	got, err := DecodeSetDataRequest(EncodeSetDataRequest(req))
	require.NoError(t, err)
	require.Equal(t, req, got)
}

func TestPathRequestRoundTrip(t *testing.T) {
	path, err := DecodePathRequest(EncodePathRequest("/a/b"))
	require.NoError(t, err)
	require.Equal(t, "/a/b", path)
}

func TestGetACLResponseRoundTrip(t *testing.T) {
	acl := sampleACL()
	stat := sampleStat()
	gotACL, gotStat, err := DecodeGetACLResponse(EncodeGetACLResponse(acl, stat))
	require.NoError(t, err)
	require.Equal(t, acl, gotACL)
	require.Equal(t, stat, gotStat)
}

func TestSetACLRequestRoundTrip(t *testing.T) {
	req := SetACLRequest{Path: "/a/b", ACL: sampleACL(), Version: 2}
	got, err := DecodeSetACLRequest(EncodeSetACLRequest(req))
	require.NoError(t, err)
	require.Equal(t, req, got)
}

func TestGetChildrenResponseRoundTrip(t *testing.T) {
	children := []string{"c1", "c2", "c3"}
	got, err := DecodeGetChildrenResponse(EncodeGetChildrenResponse(children))
	require.NoError(t, err)
	require.Equal(t, children, got)
}

func TestGetChildrenResponseRoundTripEmpty(t *testing.T) {
	got, err := DecodeGetChildrenResponse(EncodeGetChildrenResponse(nil))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDecodeShortBody(t *testing.T) {
	_, err := DecodeStatResponse([]byte{0, 1, 2})
	require.ErrorIs(t, err, ErrShortBody)
}

func TestDecodeDeleteRequestShortBody(t *testing.T) {
	_, err := DecodeDeleteRequest(nil)
	require.ErrorIs(t, err, ErrShortBody)
}
