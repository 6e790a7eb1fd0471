package idle

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/idlehook/pkg/interfaces"
)

// ErrNotInTmux is returned when tmux idle time is asked for outside tmux.
var ErrNotInTmux = errors.New("not in a tmux session")

// TmuxSource reports the idle time of the most recently active client
// attached to a tmux session.
type TmuxSource struct {
	sessionName string
	cmdExecutor cmdExecutor
	getenv      func(string) string
	now         func() time.Time
}

var _ interfaces.IdleSource = (*TmuxSource)(nil)

// NewTmuxSource creates a tmux idle source.
// If sessionName is empty, the session of the calling client is used.
func NewTmuxSource(sessionName string) *TmuxSource {
	return &TmuxSource{
		sessionName: sessionName,
		cmdExecutor: defaultCmdExecutor,
		getenv:      os.Getenv,
		now:         time.Now,
	}
}

// Idle implements interfaces.IdleSource.
func (s *TmuxSource) Idle() (time.Duration, error) {
	if !s.inTmux() {
		return 0, ErrNotInTmux
	}

	sessionName := s.sessionName
	if sessionName == "" {
		name, err := s.currentSessionName()
		if err != nil {
			return 0, fmt.Errorf("failed to get current session name: %w", err)
		}
		sessionName = name
	}

	idle, err := s.sessionIdle(sessionName)
	if err != nil {
		return 0, fmt.Errorf("failed to get session idle time: %w", err)
	}
	return idle, nil
}

// Available reports whether we run inside tmux and the tmux binary works.
func (s *TmuxSource) Available() bool {
	if !s.inTmux() {
		return false
	}
	_, err := s.cmdExecutor("tmux", "-V")
	return err == nil
}

func (s *TmuxSource) inTmux() bool {
	return s.getenv("TMUX") != ""
}

func (s *TmuxSource) currentSessionName() (string, error) {
	output, err := s.cmdExecutor("tmux", "display-message", "-p", "#{session_name}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// sessionIdle returns the smallest idle time across the session's clients.
func (s *TmuxSource) sessionIdle(sessionName string) (time.Duration, error) {
	output, err := s.cmdExecutor("tmux", "list-clients", "-t", sessionName, "-F", "#{client_activity}")
	if err != nil {
		return 0, err
	}

	var latest time.Time
	for _, line := range bytes.Split(bytes.TrimSpace(output), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		// client_activity is seconds since the epoch
		secs, err := strconv.ParseInt(string(line), 10, 64)
		if err != nil {
			continue
		}
		if at := time.Unix(secs, 0); at.After(latest) {
			latest = at
		}
	}

	if latest.IsZero() {
		return 0, fmt.Errorf("no client activity for session %s", sessionName)
	}

	// Clock skew can put the activity in the future.
	return max(s.now().Sub(latest), 0), nil
}
