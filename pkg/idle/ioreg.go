package idle

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/idlehook/pkg/interfaces"
)

// IoregSource reads HIDIdleTime from the macOS I/O registry.
type IoregSource struct {
	cmdExecutor cmdExecutor
}

var _ interfaces.IdleSource = (*IoregSource)(nil)

// NewIoregSource creates an ioreg idle source.
func NewIoregSource() *IoregSource {
	return &IoregSource{cmdExecutor: defaultCmdExecutor}
}

// Idle implements interfaces.IdleSource.
func (s *IoregSource) Idle() (time.Duration, error) {
	output, err := s.cmdExecutor("ioreg", "-c", "IOHIDSystem", "-d", "4")
	if err != nil {
		return 0, fmt.Errorf("failed to execute ioreg: %w", err)
	}

	nanos, err := parseHIDIdleTime(output)
	if err != nil {
		return 0, fmt.Errorf("failed to parse HIDIdleTime: %w", err)
	}
	return time.Duration(nanos), nil
}

// parseHIDIdleTime finds a line of the form `"HIDIdleTime" = 123456789`.
func parseHIDIdleTime(output []byte) (int64, error) {
	for _, line := range bytes.Split(output, []byte("\n")) {
		text := string(bytes.TrimSpace(line))
		if !strings.Contains(text, "HIDIdleTime") {
			continue
		}

		parts := strings.Split(text, "=")
		if len(parts) != 2 {
			continue
		}

		value := strings.TrimSpace(strings.Trim(strings.TrimSpace(parts[1]), "\""))
		nanos, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse idle time value: %w", err)
		}
		return nanos, nil
	}

	return 0, errors.New("HIDIdleTime not found in ioreg output")
}
