package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/idlehook/pkg/protocol"
	"github.com/Veraticus/idlehook/pkg/socket"
)

// fakeDaemon answers every request with reply and records the messages.
func fakeDaemon(t *testing.T, reply protocol.Reply) (string, <-chan protocol.Message) {
	t.Helper()

	dir, err := os.MkdirTemp("", "ihc")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	path := filepath.Join(dir, "c.sock")

	srv := socket.NewServer(path, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	seen := make(chan protocol.Message, 4)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case req := <-srv.Requests():
				seen <- req.Message
				req.Reply <- reply
			}
		}
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	return path, seen
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAdd(t *testing.T) {
	path, seen := fakeDaemon(t, protocol.Empty())

	out, err := execute(t, "--socket", path, "add",
		"--time", "90",
		"--index", "0",
		"--activation", `notify-send "Locking soon"`,
		"--abortion", "",
	)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	msg := <-seen
	add, ok := msg.(*protocol.Add)
	require.True(t, ok, "got %T", msg)
	assert.Equal(t, protocol.Duration(90*time.Second), add.Duration)
	require.NotNil(t, add.Index)
	assert.Equal(t, protocol.TimerID(0), *add.Index)
	assert.Equal(t, []string{"notify-send", "Locking soon"}, add.Activation)
	assert.Empty(t, add.Abortion)
	assert.Empty(t, add.Deactivation)
}

func TestAdd_AppendsWithoutIndex(t *testing.T) {
	path, seen := fakeDaemon(t, protocol.Empty())

	_, err := execute(t, "--socket", path, "add", "--time", "5m", "--activation", "true")
	require.NoError(t, err)

	add := (<-seen).(*protocol.Add)
	assert.Nil(t, add.Index)
	assert.Equal(t, protocol.Duration(5*time.Minute), add.Duration)
}

func TestControl(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantFilter protocol.Filter
		wantAction protocol.Action
	}{
		{
			name:       "all timers",
			args:       []string{"--action", "disable"},
			wantFilter: protocol.All(),
			wantAction: protocol.Disable,
		},
		{
			name:       "selected timers",
			args:       []string{"--action", "Trigger", "--timer", "0", "--timer", "2"},
			wantFilter: protocol.Selected(0, 2),
			wantAction: protocol.Trigger,
		},
		{
			name:       "comma separated",
			args:       []string{"--action", "delete", "--timer", "1,3"},
			wantFilter: protocol.Selected(1, 3),
			wantAction: protocol.Delete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, seen := fakeDaemon(t, protocol.Empty())

			_, err := execute(t, append([]string{"--socket", path, "control"}, tt.args...)...)
			require.NoError(t, err)

			ctl, ok := (<-seen).(*protocol.Control)
			require.True(t, ok)
			assert.Equal(t, tt.wantFilter, ctl.Timer)
			assert.Equal(t, tt.wantAction, ctl.Action)
		})
	}
}

func TestQuery_PrintsTable(t *testing.T) {
	path, _ := fakeDaemon(t, protocol.Results([]protocol.Snapshot{
		{
			Timer:      0,
			Duration:   protocol.Duration(5 * time.Minute),
			Activation: []string{"/bin/sh", "-c", "xset dpms force off"},
		},
		{
			Timer:      1,
			Duration:   protocol.Duration(time.Hour),
			Activation: []string{"systemctl", "suspend"},
			Disabled:   true,
		},
	}))

	out, err := execute(t, "--socket", path, "query")
	require.NoError(t, err)

	assert.Contains(t, out, "TIMER")
	assert.Contains(t, out, `/bin/sh -c "xset dpms force off"`)
	assert.Contains(t, out, "5m0s")
	assert.Contains(t, out, "disabled")
	assert.Contains(t, out, "systemctl suspend")
}

func TestQuery_JSON(t *testing.T) {
	path, _ := fakeDaemon(t, protocol.Results(nil))

	out, err := execute(t, "--socket", path, "--json", "query", "--timer", "4")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestErrorReplyFails(t *testing.T) {
	path, _ := fakeDaemon(t, protocol.Errorf("index > length"))

	_, err := execute(t, "--socket", path, "add", "--time", "1", "--index", "9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index > length")
}

func TestInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown action", []string{"control", "--action", "explode"}},
		{"missing action", []string{"control"}},
		{"missing time", []string{"add"}},
		{"bad time", []string{"add", "--time", "soon"}},
		{"negative index", []string{"add", "--time", "1", "--index", "-1"}},
		{"unbalanced quote", []string{"add", "--time", "1", "--activation", `echo "hi`}},
		{"timer id too large", []string{"query", "--timer", "70000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Nothing listens here; input errors must surface before dialing.
			args := append([]string{"--socket", filepath.Join(t.TempDir(), "none.sock")}, tt.args...)
			_, err := execute(t, args...)
			require.Error(t, err)
			assert.NotContains(t, err.Error(), "failed to connect")
		})
	}
}

func TestPrintReply_Color(t *testing.T) {
	reply := protocol.Results([]protocol.Snapshot{{Timer: 0, Duration: protocol.Duration(time.Minute), Disabled: true}})

	var plain, colored bytes.Buffer
	require.NoError(t, printReply(&plain, reply, false))
	require.NoError(t, printReply(&colored, reply, true))

	assert.NotContains(t, plain.String(), "\033[")
	assert.Contains(t, colored.String(), "\033[31mdisabled\033[0m")
	assert.False(t, colorEnabled(&plain), "buffers are not terminals")
}
