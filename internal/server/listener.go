package server

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// listen opens the IPv4 TCP listening socket: non-blocking, SO_REUSEADDR,
// backlog at the OS maximum. It returns the descriptor and the bound port
// (meaningful when the caller asked for port 0).
func listen(host string, port int) (int, int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, 0, fmt.Errorf("socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, 0, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}

	ip := net.ParseIP(host)
	if ip != nil {
		ip = ip.To4()
	}
	if ip == nil {
		unix.Close(fd)
		return -1, 0, fmt.Errorf("listen: %q is not an IPv4 address", host)
	}

	addr := &unix.SockaddrInet4{Port: port}
	copy(addr.Addr[:], ip)

	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return -1, 0, fmt.Errorf("bind %s:%d: %w", host, port, err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return -1, 0, fmt.Errorf("listen: %w", err)
	}

	sa, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return -1, 0, fmt.Errorf("getsockname: %w", err)
	}
	bound := sa.(*unix.SockaddrInet4).Port

	return fd, bound, nil
}

// raiseFdLimit lifts RLIMIT_NOFILE so thousands of connections fit. Falling
// back to the current hard limit is best effort.
func raiseFdLimit() {
	want := unix.Rlimit{Cur: 65536, Max: 65536}
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &want); err == nil {
		return
	}
	var have unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &have); err == nil {
		have.Cur = have.Max
		unix.Setrlimit(unix.RLIMIT_NOFILE, &have)
	}
}
