//go:build !linux && !darwin

package api

import (
	"net"
	"os"
)

// peerUID has no portable implementation on this platform; the socket
// file's own permissions are the only access control.
func peerUID(conn *net.UnixConn) (int, error) {
	return os.Getuid(), nil
}
