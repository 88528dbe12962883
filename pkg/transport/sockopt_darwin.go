//go:build darwin

package transport

import "golang.org/x/sys/unix"

func applyVoiceSockOpts(fd, dscp int) error {
	if dscp == 0 {
		return nil
	}
	tos := dscp << 2
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TOS, tos); err != nil {
		return unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_TCLASS, tos)
	}
	return nil
}
