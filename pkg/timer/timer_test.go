package timer_test

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/idlehook/pkg/testutil"
	"github.com/Veraticus/idlehook/pkg/timer"
)

func TestUntil(t *testing.T) {
	tests := []struct {
		name      string
		threshold time.Duration
		idle      time.Duration
		wantLeft  time.Duration
		wantDue   bool
	}{
		{"nothing elapsed", 5 * time.Second, 0, 5 * time.Second, false},
		{"partially elapsed", 5 * time.Second, 2 * time.Second, 3 * time.Second, false},
		{"one tick left", 5 * time.Second, 5*time.Second - time.Nanosecond, time.Nanosecond, false},
		{"exactly elapsed", 5 * time.Second, 5 * time.Second, 0, true},
		{"overshoot", 5 * time.Second, time.Minute, 0, true},
		{"zero threshold", 0, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := timer.Until(tt.threshold, tt.idle)
			assert.Equal(t, tt.wantDue, r.IsDue())

			left, pending := r.Left()
			assert.Equal(t, !tt.wantDue, pending)
			assert.Equal(t, tt.wantLeft, left)
		})
	}
}

func TestCallbackTimer(t *testing.T) {
	calls := 0
	cb := timer.NewCallbackTimer(time.Minute, func() { calls++ })

	require.NoError(t, cb.Activate())
	require.NoError(t, cb.Abort())
	require.NoError(t, cb.Deactivate())
	assert.Equal(t, 1, calls)

	_, urgent := cb.AbortUrgency()
	assert.False(t, urgent)

	assert.False(t, cb.Disabled())
	cb.SetDisabled(true)
	assert.True(t, cb.Disabled())
	assert.Equal(t, time.Minute, cb.Duration())
}

func TestCmdTimer_ActivationExportsPid(t *testing.T) {
	spawner := testutil.NewMockSpawner()
	ct := timer.NewCmdTimer(spawner, time.Minute, []string{"slock"}, []string{"pkill", "slock"}, []string{"echo", "done"})

	require.NoError(t, ct.Activate())
	require.NoError(t, ct.Abort())
	require.NoError(t, ct.Deactivate())

	spawns := spawner.Spawns()
	require.Len(t, spawns, 3)
	pid := spawner.Children()[0].Pid()

	assert.Equal(t, []string{"slock"}, spawns[0].Argv)
	assert.Empty(t, spawns[0].Env)
	assert.Equal(t, []string{"pkill", "slock"}, spawns[1].Argv)
	assert.Equal(t, []string{timer.EnvPID + "=" + strconv.Itoa(pid)}, spawns[1].Env)
	assert.Equal(t, []string{"echo", "done"}, spawns[2].Argv)
	assert.Equal(t, spawns[1].Env, spawns[2].Env)
}

func TestCmdTimer_DisabledWhileChildRuns(t *testing.T) {
	spawner := testutil.NewMockSpawner()
	ct := timer.NewCmdTimer(spawner, time.Minute, []string{"slock"}, nil, nil)

	assert.False(t, ct.Disabled())
	require.NoError(t, ct.Activate())
	assert.True(t, ct.Disabled(), "running activation must count as disabled")

	spawner.Children()[0].Exit()
	assert.False(t, ct.Disabled())

	ct.SetDisabled(true)
	assert.True(t, ct.Disabled())
	assert.True(t, ct.Definition().Disabled)
}

func TestCmdTimer_EmptyCommandsAreNoops(t *testing.T) {
	spawner := testutil.NewMockSpawner()
	ct := timer.NewCmdTimer(spawner, time.Second, nil, nil, nil)

	require.NoError(t, ct.Activate())
	require.NoError(t, ct.Abort())
	require.NoError(t, ct.Deactivate())
	assert.Empty(t, spawner.Spawns())

	_, urgent := ct.AbortUrgency()
	assert.False(t, urgent)
}

func TestCmdTimer_AbortUrgency(t *testing.T) {
	ct := timer.NewShellTimer(testutil.NewMockSpawner(), time.Second, "slock", "pkill slock", "")

	urgency, urgent := ct.AbortUrgency()
	assert.True(t, urgent)
	assert.Equal(t, time.Second, urgency)
}

func TestCmdTimer_SpawnErrorPropagates(t *testing.T) {
	spawner := testutil.NewMockSpawner()
	spawner.SetError(errors.New("no such file"))
	ct := timer.NewShellTimer(spawner, time.Second, "missing", "", "")

	err := ct.Activate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "activation")
}

func TestNewShellTimer(t *testing.T) {
	ct := timer.NewShellTimer(testutil.NewMockSpawner(), 5*time.Minute, "xset dpms force off", "", "notify-send back")

	def := ct.Definition()
	assert.Equal(t, 5*time.Minute, def.Duration)
	assert.Equal(t, []string{"/bin/sh", "-c", "xset dpms force off"}, def.Activation)
	assert.Nil(t, def.Abortion)
	assert.Equal(t, []string{"/bin/sh", "-c", "notify-send back"}, def.Deactivation)
	assert.False(t, def.Disabled)
}

func TestCmdTimer_DefinitionIsACopy(t *testing.T) {
	argv := []string{"slock"}
	ct := timer.NewCmdTimer(testutil.NewMockSpawner(), time.Second, argv, nil, nil)
	argv[0] = "changed"

	def := ct.Definition()
	def.Activation[0] = "mutated"
	assert.Equal(t, []string{"slock"}, ct.Definition().Activation)
}
