// Package protocol defines the messages exchanged over the control socket
// and applies them to a running scheduler.
//
// Every request and every reply is a single line of JSON. Timers are
// addressed by their current position in the chain, so ids shift when
// timers are added or deleted.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// TimerID is the position of a timer in the chain.
type TimerID = uint16

// ErrIndexOutOfRange is the reason an Add at an index past the end fails.
var ErrIndexOutOfRange = errors.New("index > length")

// Duration is a time.Duration that travels as a duration string. On input
// it also accepts a number of seconds.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	var parsed time.Duration
	switch value := v.(type) {
	case string:
		p, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		parsed = p
	case float64:
		parsed = time.Duration(value * float64(time.Second))
	default:
		return fmt.Errorf("invalid duration %s", data)
	}

	if parsed < 0 {
		return fmt.Errorf("negative duration %s", data)
	}
	*d = Duration(parsed)
	return nil
}

// Action is what a Control message does to each selected timer.
type Action string

// Control actions.
const (
	Disable Action = "disable"
	Enable  Action = "enable"
	Trigger Action = "trigger"
	Delete  Action = "delete"
)

// UnmarshalJSON rejects unknown actions.
func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	act, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = act
	return nil
}

// ParseAction validates the name of an action.
func ParseAction(s string) (Action, error) {
	switch act := Action(s); act {
	case Disable, Enable, Trigger, Delete:
		return act, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// FilterKind is the kind of a Filter.
type FilterKind int

// Filter kinds.
const (
	FilterAll FilterKind = iota
	FilterSelected
	FilterOne
)

// Filter selects timers: all of them, a list of ids, or a single id. The
// zero Filter selects all timers.
type Filter struct {
	Kind FilterKind
	IDs  []TimerID
}

// All selects every timer.
func All() Filter { return Filter{} }

// Selected selects the given ids in order.
func Selected(ids ...TimerID) Filter { return Filter{Kind: FilterSelected, IDs: ids} }

// One selects a single id.
func One(id TimerID) Filter { return Filter{Kind: FilterOne, IDs: []TimerID{id}} }

// Resolve lists the ids the filter selects in a chain of the given length.
// Explicit ids are returned as given, even when they are out of range.
func (f Filter) Resolve(length int) []int {
	switch f.Kind {
	case FilterSelected, FilterOne:
		ids := make([]int, len(f.IDs))
		for i, id := range f.IDs {
			ids[i] = int(id)
		}
		return ids
	default:
		ids := make([]int, length)
		for i := range ids {
			ids[i] = i
		}
		return ids
	}
}

// MarshalJSON implements json.Marshaler.
func (f Filter) MarshalJSON() ([]byte, error) {
	switch f.Kind {
	case FilterSelected:
		ids := f.IDs
		if ids == nil {
			ids = []TimerID{}
		}
		return json.Marshal(ids)
	case FilterOne:
		if len(f.IDs) != 1 {
			return nil, fmt.Errorf("filter of one timer holds %d ids", len(f.IDs))
		}
		return json.Marshal(f.IDs[0])
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Filter) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch v.(type) {
	case nil:
		*f = All()
		return nil
	case []any:
		var ids []TimerID
		if err := json.Unmarshal(data, &ids); err != nil {
			return fmt.Errorf("invalid timer ids: %w", err)
		}
		*f = Selected(ids...)
		return nil
	case float64:
		var id TimerID
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("invalid timer id: %w", err)
		}
		*f = One(id)
		return nil
	default:
		return fmt.Errorf("invalid timer filter %s", data)
	}
}

// Message is a request: *Add, *Control or *Query.
type Message interface {
	messageType() string
}

// Add inserts a new timer at Index, or at the end when Index is nil.
type Add struct {
	Index        *TimerID `json:"index,omitempty"`
	Duration     Duration `json:"duration"`
	Activation   []string `json:"activation"`
	Abortion     []string `json:"abortion"`
	Deactivation []string `json:"deactivation"`
}

// Control applies Action to every timer the filter selects.
type Control struct {
	Timer  Filter `json:"timer"`
	Action Action `json:"action"`
}

// Query asks for snapshots of the timers the filter selects.
type Query struct {
	Timer Filter `json:"timer"`
}

func (*Add) messageType() string     { return "add" }
func (*Control) messageType() string { return "control" }
func (*Query) messageType() string   { return "query" }

// EncodeMessage marshals msg with its type tag.
func EncodeMessage(msg Message) ([]byte, error) {
	var body any
	switch m := msg.(type) {
	case *Add:
		// Send empty lists rather than null.
		add := *m
		add.Activation = orEmpty(add.Activation)
		add.Abortion = orEmpty(add.Abortion)
		add.Deactivation = orEmpty(add.Deactivation)
		body = struct {
			Type string `json:"type"`
			Add
		}{m.messageType(), add}
	case *Control:
		body = struct {
			Type string `json:"type"`
			*Control
		}{m.messageType(), m}
	case *Query:
		body = struct {
			Type string `json:"type"`
			*Query
		}{m.messageType(), m}
	default:
		return nil, fmt.Errorf("unknown message %T", msg)
	}
	return json.Marshal(body)
}

// DecodeMessage parses one request line.
func DecodeMessage(data []byte) (Message, error) {
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	var msg Message
	switch header.Type {
	case "add":
		msg = &Add{}
	case "control":
		msg = &Control{}
	case "query":
		msg = &Query{}
	case "":
		return nil, errors.New("invalid message: missing type")
	default:
		return nil, fmt.Errorf("invalid message: unknown type %q", header.Type)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("invalid %s message: %w", header.Type, err)
	}
	if c, ok := msg.(*Control); ok && c.Action == "" {
		return nil, errors.New("invalid control message: missing action")
	}
	return msg, nil
}

// Snapshot describes one timer in a query result.
type Snapshot struct {
	Timer        TimerID  `json:"timer"`
	Duration     Duration `json:"duration"`
	Activation   []string `json:"activation"`
	Abortion     []string `json:"abortion"`
	Deactivation []string `json:"deactivation"`
	Disabled     bool     `json:"disabled"`
}

// ReplyKind is the kind of a Reply.
type ReplyKind int

// Reply kinds.
const (
	ReplyEmpty ReplyKind = iota
	ReplyError
	ReplyResults
)

// Reply answers one request. On the wire an empty reply is null, an
// error is a string and query results are an array.
type Reply struct {
	Kind    ReplyKind
	Error   string
	Results []Snapshot
}

// Empty is the reply to a successful Add or Control.
func Empty() Reply { return Reply{} }

// Errorf is a reply carrying a message for the client.
func Errorf(format string, args ...any) Reply {
	return Reply{Kind: ReplyError, Error: fmt.Sprintf(format, args...)}
}

// Results is the reply to a Query.
func Results(s []Snapshot) Reply { return Reply{Kind: ReplyResults, Results: s} }

// String renders the reply for humans.
func (r Reply) String() string {
	switch r.Kind {
	case ReplyError:
		return "error: " + r.Error
	case ReplyResults:
		return strconv.Itoa(len(r.Results)) + " timers"
	default:
		return "ok"
	}
}

// MarshalJSON implements json.Marshaler.
func (r Reply) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case ReplyError:
		return json.Marshal(r.Error)
	case ReplyResults:
		results := make([]Snapshot, len(r.Results))
		for i, s := range r.Results {
			s.Activation = orEmpty(s.Activation)
			s.Abortion = orEmpty(s.Abortion)
			s.Deactivation = orEmpty(s.Deactivation)
			results[i] = s
		}
		return json.Marshal(results)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Reply) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case nil:
		*r = Empty()
	case string:
		*r = Reply{Kind: ReplyError, Error: value}
	case []any:
		var results []Snapshot
		if err := json.Unmarshal(data, &results); err != nil {
			return fmt.Errorf("invalid query result: %w", err)
		}
		*r = Results(results)
	default:
		return fmt.Errorf("invalid reply %s", data)
	}
	return nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
