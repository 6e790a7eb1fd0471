package module_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/idlehook/pkg/module"
	"github.com/Veraticus/idlehook/pkg/testutil"
)

func TestList_PreTimerShortCircuits(t *testing.T) {
	first := &testutil.MockModule{Pre: testutil.Always(module.Continue)}
	second := &testutil.MockModule{Pre: testutil.Always(module.Abort)}
	third := &testutil.MockModule{Pre: testutil.Always(module.Stop)}

	p, err := module.List{first, second, third}.PreTimer(module.TimerInfo{Index: 0, Length: 1})
	require.NoError(t, err)
	assert.Equal(t, module.Abort, p)

	pre, _, _ := third.Calls()
	assert.Zero(t, pre, "members after the first non-continue answer must not run")
}

func TestList_PostTimerStopsOnError(t *testing.T) {
	failing := &testutil.MockModule{Post: func(module.TimerInfo) (module.Progress, error) {
		return module.Continue, testutil.ErrMockModule
	}}
	after := &testutil.MockModule{}

	_, err := module.List{failing, after}.PostTimer(module.TimerInfo{})
	require.ErrorIs(t, err, testutil.ErrMockModule)

	_, post, _ := after.Calls()
	assert.Zero(t, post)
}

func TestList_EmptyContinues(t *testing.T) {
	p, err := module.List{}.PreTimer(module.TimerInfo{})
	require.NoError(t, err)
	assert.Equal(t, module.Continue, p)

	p, err = module.List(nil).PostTimer(module.TimerInfo{})
	require.NoError(t, err)
	assert.Equal(t, module.Continue, p)
}

func TestList_WarningAndResetRunAll(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	a := &testutil.MockModule{WarnErr: errA, ResetErr: errA}
	b := &testutil.MockModule{WarnErr: errB, ResetErr: errB}
	c := &testutil.MockModule{}
	list := module.List{a, b, c}

	cause := errors.New("cause")
	require.ErrorIs(t, list.Warning(cause), errA)
	require.ErrorIs(t, list.Reset(), errA)

	for _, m := range []*testutil.MockModule{a, b, c} {
		assert.Equal(t, []error{cause}, m.Warnings())
		_, _, resets := m.Calls()
		assert.Equal(t, 1, resets)
	}
}

func TestDefault_WarningSwallows(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	m := module.Default(logger)
	require.NoError(t, m.Warning(errors.New("spawn failed")))
	assert.Contains(t, buf.String(), "spawn failed")

	p, err := m.PreTimer(module.TimerInfo{})
	require.NoError(t, err)
	assert.Equal(t, module.Continue, p)
	require.NoError(t, m.Reset())
}

func TestStopAt(t *testing.T) {
	tests := []struct {
		name   string
		module *module.StopAt
		info   module.TimerInfo
		want   module.Progress
	}{
		{"before index", module.StopAtIndex(2), module.TimerInfo{Index: 1, Length: 4}, module.Continue},
		{"at index", module.StopAtIndex(2), module.TimerInfo{Index: 2, Length: 4}, module.Stop},
		{"past index", module.StopAtIndex(2), module.TimerInfo{Index: 3, Length: 4}, module.Stop},
		{"completion not reached", module.StopAtCompletion(), module.TimerInfo{Index: 2, Length: 4}, module.Continue},
		{"completion reached", module.StopAtCompletion(), module.TimerInfo{Index: 3, Length: 4}, module.Stop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.module.PostTimer(tt.info)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			pre, err := tt.module.PreTimer(tt.info)
			require.NoError(t, err)
			assert.Equal(t, module.Continue, pre)
		})
	}
}

func TestProgressString(t *testing.T) {
	assert.Equal(t, "continue", module.Continue.String())
	assert.Equal(t, "abort", module.Abort.String())
	assert.Equal(t, "reset", module.Reset.String())
	assert.Equal(t, "stop", module.Stop.String())
	assert.Equal(t, "unknown", module.Progress(42).String())
}
