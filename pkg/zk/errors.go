package zk

import "fmt"

// ErrCode is one of the server-reported error codes from spec.md section 6,
// or one of the client-local codes the session engine surfaces when the
// socket or session itself is the problem rather than a single operation.
type ErrCode int32

const (
	ErrCodeOK                     ErrCode = 0
	ErrCodeSystemError            ErrCode = -1
	ErrCodeRuntimeInconsistency   ErrCode = -2
	ErrCodeDataInconsistency      ErrCode = -3
	ErrCodeConnectionLoss         ErrCode = -4
	ErrCodeMarshallingError       ErrCode = -5
	ErrCodeUnimplemented          ErrCode = -6
	ErrCodeOperationTimeout       ErrCode = -7
	ErrCodeBadArguments           ErrCode = -8
	ErrCodeAPIError               ErrCode = -100
	ErrCodeNoNode                 ErrCode = -101
	ErrCodeNoAuth                 ErrCode = -102
	ErrCodeBadVersion             ErrCode = -103
	ErrCodeNoChildrenForEphemeral ErrCode = -108
	ErrCodeNodeExists             ErrCode = -110
	ErrCodeNotEmpty               ErrCode = -111
	ErrCodeSessionExpired         ErrCode = -112
	ErrCodeInvalidCallback        ErrCode = -113
	ErrCodeInvalidACL             ErrCode = -114
	ErrCodeAuthFailed             ErrCode = -115

	// ErrCodeProtocolError and ErrCodeConfigError never travel on the wire;
	// they are raised locally by the frame codec and host list manager.
	ErrCodeProtocolError ErrCode = -1000
	ErrCodeConfigError   ErrCode = -1001
)

var codeNames = map[ErrCode]string{
	ErrCodeOK:                     "ok",
	ErrCodeSystemError:            "system error",
	ErrCodeRuntimeInconsistency:   "runtime inconsistency",
	ErrCodeDataInconsistency:      "data inconsistency",
	ErrCodeConnectionLoss:         "connection loss",
	ErrCodeMarshallingError:       "marshalling error",
	ErrCodeUnimplemented:          "unimplemented",
	ErrCodeOperationTimeout:       "operation timeout",
	ErrCodeBadArguments:           "bad arguments",
	ErrCodeAPIError:               "api error",
	ErrCodeNoNode:                 "no node",
	ErrCodeNoAuth:                 "no auth",
	ErrCodeBadVersion:             "bad version",
	ErrCodeNoChildrenForEphemeral: "no children for ephemeral znodes",
	ErrCodeNodeExists:             "node exists",
	ErrCodeNotEmpty:               "not empty",
	ErrCodeSessionExpired:         "session expired",
	ErrCodeInvalidCallback:        "invalid callback",
	ErrCodeInvalidACL:             "invalid acl",
	ErrCodeAuthFailed:             "auth failed",
	ErrCodeProtocolError:          "protocol error",
	ErrCodeConfigError:            "config error",
}

func (c ErrCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("error code %d", int32(c))
}

// Error is a server-reported or session-local failure tied to a specific
// path (empty when the failure isn't path-scoped, e.g. ConnectionLoss).
type Error struct {
	Code ErrCode
	Path string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Path)
}

func newError(code ErrCode, path string) *Error {
	return &Error{Code: code, Path: path}
}

// Is lets errors.Is(err, zk.ErrNoNode) work without callers type-asserting
// *Error and comparing Code by hand.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel errors for errors.Is comparisons, one per spec.md section 6 code
// plus the two client-local codes the connection subsystem adds.
var (
	ErrSystemError            = newError(ErrCodeSystemError, "")
	ErrRuntimeInconsistency   = newError(ErrCodeRuntimeInconsistency, "")
	ErrDataInconsistency      = newError(ErrCodeDataInconsistency, "")
	ErrConnectionLoss         = newError(ErrCodeConnectionLoss, "")
	ErrMarshallingError       = newError(ErrCodeMarshallingError, "")
	ErrUnimplemented          = newError(ErrCodeUnimplemented, "")
	ErrOperationTimeout       = newError(ErrCodeOperationTimeout, "")
	ErrBadArguments           = newError(ErrCodeBadArguments, "")
	ErrAPIError               = newError(ErrCodeAPIError, "")
	ErrNoNode                 = newError(ErrCodeNoNode, "")
	ErrNoAuth                 = newError(ErrCodeNoAuth, "")
	ErrBadVersion             = newError(ErrCodeBadVersion, "")
	ErrNoChildrenForEphemeral = newError(ErrCodeNoChildrenForEphemeral, "")
	ErrNodeExists             = newError(ErrCodeNodeExists, "")
	ErrNotEmpty               = newError(ErrCodeNotEmpty, "")
	ErrSessionExpired         = newError(ErrCodeSessionExpired, "")
	ErrInvalidCallback        = newError(ErrCodeInvalidCallback, "")
	ErrInvalidACL             = newError(ErrCodeInvalidACL, "")
	ErrAuthFailed             = newError(ErrCodeAuthFailed, "")
	ErrProtocolError          = newError(ErrCodeProtocolError, "")
	ErrConfigError            = newError(ErrCodeConfigError, "")
)

// errFromCode wraps a wire-reported error code with the path the request
// was for, so callers get a useful message without losing errors.Is support.
func errFromCode(code ErrCode, path string) error {
	if code == ErrCodeOK {
		return nil
	}
	return newError(code, path)
}
