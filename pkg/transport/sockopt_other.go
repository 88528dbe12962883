//go:build !linux && !darwin

package transport

func applyVoiceSockOpts(fd, dscp int) error {
	return nil
}
