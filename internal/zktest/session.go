package zktest

// session tracks the per-connection state the fixture server needs beyond
// the tree itself: the negotiated session id/password pair, and the set of
// ephemeral nodes owned by this session so they can be swept when the
// session ends (an explicit close or expiry). Grounded on the teacher's session.Session, minus its
// Messages channel (server.go's serverConn plays that role here since it
// also has to multiplex watch notifications onto the same socket).
type session struct {
	id             int64
	password       []byte
	ephemeralPaths map[string]struct{}
}

func newSession(id int64, password []byte) *session {
	return &session{
		id:             id,
		password:       password,
		ephemeralPaths: make(map[string]struct{}),
	}
}

func (s *session) trackEphemeral(path string) {
	s.ephemeralPaths[path] = struct{}{}
}

func (s *session) untrackEphemeral(path string) {
	delete(s.ephemeralPaths, path)
}
