package protocol_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/idlehook/pkg/protocol"
)

func TestDecodeMessage(t *testing.T) {
	zero := protocol.TimerID(0)

	tests := []struct {
		name    string
		input   string
		want    protocol.Message
		wantErr string
	}{
		{
			name:  "add with duration string",
			input: `{"type":"add","index":0,"duration":"5m","activation":["slock"],"abortion":[],"deactivation":[]}`,
			want: &protocol.Add{
				Index:        &zero,
				Duration:     protocol.Duration(5 * time.Minute),
				Activation:   []string{"slock"},
				Abortion:     []string{},
				Deactivation: []string{},
			},
		},
		{
			name:  "add with seconds",
			input: `{"type":"add","duration":1.5,"activation":[]}`,
			want: &protocol.Add{
				Duration:   protocol.Duration(1500 * time.Millisecond),
				Activation: []string{},
			},
		},
		{
			name:  "control with selected timers",
			input: `{"type":"control","timer":[0,2],"action":"disable"}`,
			want:  &protocol.Control{Timer: protocol.Selected(0, 2), Action: protocol.Disable},
		},
		{
			name:  "control with one timer",
			input: `{"type":"control","timer":1,"action":"trigger"}`,
			want:  &protocol.Control{Timer: protocol.One(1), Action: protocol.Trigger},
		},
		{
			name:  "control with null filter",
			input: `{"type":"control","timer":null,"action":"enable"}`,
			want:  &protocol.Control{Timer: protocol.All(), Action: protocol.Enable},
		},
		{
			name:  "query without filter",
			input: `{"type":"query"}`,
			want:  &protocol.Query{Timer: protocol.All()},
		},
		{name: "unknown action", input: `{"type":"control","action":"explode"}`, wantErr: "unknown action"},
		{name: "missing action", input: `{"type":"control","timer":1}`, wantErr: "missing action"},
		{name: "unknown type", input: `{"type":"restart"}`, wantErr: "unknown type"},
		{name: "missing type", input: `{"timer":1}`, wantErr: "missing type"},
		{name: "negative duration", input: `{"type":"add","duration":-1}`, wantErr: "negative duration"},
		{name: "bad duration", input: `{"type":"add","duration":"soon"}`, wantErr: "invalid duration"},
		{name: "bad filter", input: `{"type":"query","timer":"all"}`, wantErr: "invalid timer filter"},
		{name: "id out of uint16", input: `{"type":"query","timer":70000}`, wantErr: "invalid timer id"},
		{name: "not json", input: `hello`, wantErr: "invalid message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := protocol.DecodeMessage([]byte(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  protocol.Message
		want string
	}{
		{
			name: "add fills empty lists",
			msg:  &protocol.Add{Duration: protocol.Duration(time.Minute), Activation: []string{"slock"}},
			want: `{"type":"add","duration":"1m0s","activation":["slock"],"abortion":[],"deactivation":[]}`,
		},
		{
			name: "control all",
			msg:  &protocol.Control{Action: protocol.Delete},
			want: `{"type":"control","timer":null,"action":"delete"}`,
		},
		{
			name: "query one",
			msg:  &protocol.Query{Timer: protocol.One(3)},
			want: `{"type":"query","timer":3}`,
		},
		{
			name: "query selected",
			msg:  &protocol.Query{Timer: protocol.Selected(1, 4)},
			want: `{"type":"query","timer":[1,4]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := protocol.EncodeMessage(tt.msg)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))

			back, err := protocol.DecodeMessage(data)
			require.NoError(t, err)
			again, err := protocol.EncodeMessage(back)
			require.NoError(t, err)
			assert.JSONEq(t, string(data), string(again))
		})
	}
}

func TestReplyJSON(t *testing.T) {
	tests := []struct {
		name  string
		reply protocol.Reply
		want  string
	}{
		{"empty", protocol.Empty(), `null`},
		{"error", protocol.Errorf("index > length"), `"index > length"`},
		{"no results", protocol.Results(nil), `[]`},
		{
			name: "results",
			reply: protocol.Results([]protocol.Snapshot{{
				Timer:      2,
				Duration:   protocol.Duration(90 * time.Second),
				Activation: []string{"slock"},
				Disabled:   true,
			}}),
			want: `[{"timer":2,"duration":"1m30s","activation":["slock"],"abortion":[],"deactivation":[],"disabled":true}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.reply)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))

			var back protocol.Reply
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, tt.reply.Kind, back.Kind)
			assert.Equal(t, tt.reply.Error, back.Error)
			assert.Len(t, back.Results, len(tt.reply.Results))
		})
	}
}

func TestFilterResolve(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, protocol.All().Resolve(3))
	assert.Empty(t, protocol.All().Resolve(0))
	assert.Equal(t, []int{4, 1}, protocol.Selected(4, 1).Resolve(3))
	assert.Equal(t, []int{7}, protocol.One(7).Resolve(3))
}
