package api

import (
	"log/slog"
	"net"
	"os"
)

// peerCheckedListener rejects Unix-socket connections from any uid
// other than the daemon's own. Socket file permissions already restrict
// access; the peer check holds even if the socket directory is
// misconfigured.
type peerCheckedListener struct {
	net.Listener
	logger *slog.Logger
}

func (l *peerCheckedListener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}

		uc, ok := conn.(*net.UnixConn)
		if !ok {
			return conn, nil
		}
		uid, err := peerUID(uc)
		if err != nil {
			l.logger.Warn("peer credential check failed", "error", err)
			conn.Close()
			continue
		}
		if uid != os.Getuid() {
			l.logger.Warn("rejecting connection from foreign uid", "uid", uid)
			conn.Close()
			continue
		}
		return conn, nil
	}
}
