package zk

import "strings"

// validatePath rejects anything that isn't an absolute path with no
// trailing slash and no empty segments; the root "/" itself is accepted. Grounded on the teacher's server.validatePath, which
// enforced the same four rules; the difference is this runs client-side
// before a request is ever built, per spec.md section 7 "User errors: fail
// immediately, before submission".
func validatePath(path string) error {
	if path == "" {
		return newError(ErrCodeBadArguments, path)
	}
	if !strings.HasPrefix(path, "/") {
		return newError(ErrCodeBadArguments, path)
	}
	if path == "/" {
		return nil
	}
	if strings.HasSuffix(path, "/") {
		return newError(ErrCodeBadArguments, path)
	}
	for _, name := range strings.Split(path[1:], "/") {
		if name == "" {
			return newError(ErrCodeBadArguments, path)
		}
	}
	return nil
}

// prependChroot builds the server-bound path for a client path. The root
// path "/" is special-cased to just the chroot itself, matching the
// facade-level contract table in spec.md section 6 ("Delete: chroot+path
// (or `/` unchanged)").
func prependChroot(chroot, path string) string {
	if chroot == "" {
		return path
	}
	if path == "/" {
		return chroot
	}
	return chroot + path
}

// stripChroot is the inverse of prependChroot, applied to server paths
// before they reach the caller (created-path responses, watch events).
// Round-trip invariant (spec.md section 8): stripChroot(c, prependChroot(c, p)) == p.
func stripChroot(chroot, serverPath string) string {
	if chroot == "" {
		return serverPath
	}
	trimmed := strings.TrimPrefix(serverPath, chroot)
	if trimmed == "" {
		return "/"
	}
	return trimmed
}

// splitChroot parses the optional trailing "/chroot/path" off a connect
// string host list, per spec.md section 3 "Connect string".
func splitChroot(connectString string) (hosts string, chroot string, err error) {
	idx := strings.Index(connectString, "/")
	if idx < 0 {
		return connectString, "", nil
	}
	hosts = connectString[:idx]
	chroot = connectString[idx:]
	if chroot == "/" {
		return hosts, "", nil
	}
	if err := validatePath(chroot); err != nil {
		return "", "", newError(ErrCodeConfigError, chroot)
	}
	return hosts, chroot, nil
}
