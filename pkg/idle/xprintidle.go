package idle

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/idlehook/pkg/interfaces"
)

// XprintidleSource asks the xprintidle utility, which prints the X idle
// time in milliseconds.
type XprintidleSource struct {
	cmdExecutor cmdExecutor
}

var _ interfaces.IdleSource = (*XprintidleSource)(nil)

// NewXprintidleSource creates an xprintidle idle source.
func NewXprintidleSource() *XprintidleSource {
	return &XprintidleSource{cmdExecutor: defaultCmdExecutor}
}

// Idle implements interfaces.IdleSource.
func (s *XprintidleSource) Idle() (time.Duration, error) {
	output, err := s.cmdExecutor("xprintidle")
	if err != nil {
		return 0, fmt.Errorf("failed to execute xprintidle: %w", err)
	}

	ms, err := strconv.ParseUint(strings.TrimSpace(string(output)), 10, 63)
	if err != nil {
		return 0, fmt.Errorf("failed to parse xprintidle output: %w", err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
