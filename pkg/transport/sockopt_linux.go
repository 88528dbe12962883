//go:build linux

package transport

import "golang.org/x/sys/unix"

// Приоритет сокета для интерактивного аудио
const voiceSocketPriority = 6

func applyVoiceSockOpts(fd, dscp int) error {
	// Без CAP_NET_ADMIN или в контейнере приоритет может быть недоступен
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_PRIORITY, voiceSocketPriority)

	if dscp == 0 {
		return nil
	}
	tos := dscp << 2
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TOS, tos); err != nil {
		// IPv6 сокет
		return unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_TCLASS, tos)
	}
	return nil
}
