package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/shlex"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Veraticus/idlehook/pkg/client"
	"github.com/Veraticus/idlehook/pkg/config"
	"github.com/Veraticus/idlehook/pkg/protocol"
	"github.com/Veraticus/idlehook/pkg/socket"
)

type rootOptions struct {
	socket  string
	jsonOut bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "idlehook-client",
		Short: "Control a running idlehook daemon",
		Long: `idlehook-client sends one request to the control socket of a running
idlehook daemon and prints the reply.

Timer ids are positions in the chain. They shift when timers are added
or deleted, so query before acting on a specific timer.`,
		SilenceUsage: true,
	}

	defaultSocket := os.Getenv("IDLEHOOK_SOCKET")
	if defaultSocket == "" {
		defaultSocket = socket.DefaultPath()
	}
	cmd.PersistentFlags().StringVar(&opts.socket, "socket", defaultSocket, "Path of the daemon's control socket")
	cmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Print the raw JSON reply")

	cmd.AddCommand(newAddCmd(opts), newControlCmd(opts), newQueryCmd(opts))
	return cmd
}

func newAddCmd(root *rootOptions) *cobra.Command {
	var (
		duration     string
		index        int
		activation   string
		abortion     string
		deactivation string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a timer to the chain",
		Example: `  idlehook-client add --time 5m --activation "xset dpms force off" --abortion "xset dpms force on"
  idlehook-client add --time 30 --index 0 --activation "notify-send 'Locking soon'"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := config.ParseDuration(duration)
			if err != nil {
				return fmt.Errorf("--time: %w", err)
			}

			msg := &protocol.Add{Duration: protocol.Duration(d)}
			if cmd.Flags().Changed("index") {
				if index < 0 || index > math.MaxUint16 {
					return fmt.Errorf("--index must be between 0 and %d", math.MaxUint16)
				}
				id := protocol.TimerID(index)
				msg.Index = &id
			}

			for _, c := range []struct {
				flag string
				src  string
				dst  *[]string
			}{
				{"activation", activation, &msg.Activation},
				{"abortion", abortion, &msg.Abortion},
				{"deactivation", deactivation, &msg.Deactivation},
			} {
				argv, err := shlex.Split(c.src)
				if err != nil {
					return fmt.Errorf("--%s: %w", c.flag, err)
				}
				*c.dst = argv
			}

			return send(cmd.OutOrStdout(), root, msg)
		},
	}

	cmd.Flags().StringVar(&duration, "time", "", "Idle time after which the timer fires (seconds or a duration such as 5m)")
	cmd.Flags().IntVar(&index, "index", 0, "Position to insert the timer at (default: end of the chain)")
	cmd.Flags().StringVar(&activation, "activation", "", "Command to run when the timer fires, split like a shell would but not run by one")
	cmd.Flags().StringVar(&abortion, "abortion", "", "Command to run when the user comes back after the timer fired")
	cmd.Flags().StringVar(&deactivation, "deactivation", "", "Command to run when the next timer fires instead")
	_ = cmd.MarkFlagRequired("time")

	return cmd
}

func newControlCmd(root *rootOptions) *cobra.Command {
	var (
		action string
		timers []uint
	)

	cmd := &cobra.Command{
		Use:   "control",
		Short: "Enable, disable, trigger or delete timers",
		Example: `  idlehook-client control --action disable
  idlehook-client control --action trigger --timer 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := protocol.ParseAction(strings.ToLower(action))
			if err != nil {
				return err
			}
			f, err := filter(timers)
			if err != nil {
				return err
			}
			return send(cmd.OutOrStdout(), root, &protocol.Control{Timer: f, Action: act})
		},
	}

	cmd.Flags().StringVar(&action, "action", "", "One of enable, disable, trigger or delete")
	cmd.Flags().UintSliceVar(&timers, "timer", nil, "Timer ids to act on (default: all timers)")
	_ = cmd.MarkFlagRequired("action")

	return cmd
}

func newQueryCmd(root *rootOptions) *cobra.Command {
	var timers []uint

	cmd := &cobra.Command{
		Use:   "query",
		Short: "List timers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filter(timers)
			if err != nil {
				return err
			}
			return send(cmd.OutOrStdout(), root, &protocol.Query{Timer: f})
		},
	}

	cmd.Flags().UintSliceVar(&timers, "timer", nil, "Timer ids to show (default: all timers)")
	return cmd
}

// filter selects all timers for an empty list.
func filter(ids []uint) (protocol.Filter, error) {
	if len(ids) == 0 {
		return protocol.All(), nil
	}
	out := make([]protocol.TimerID, len(ids))
	for i, id := range ids {
		if id > math.MaxUint16 {
			return protocol.Filter{}, fmt.Errorf("timer id %d out of range", id)
		}
		out[i] = protocol.TimerID(id)
	}
	return protocol.Selected(out...), nil
}

func send(w io.Writer, root *rootOptions, msg protocol.Message) error {
	c, err := client.Dial(root.socket)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	reply, err := c.Send(msg)
	if err != nil {
		return err
	}

	if root.jsonOut {
		data, err := json.Marshal(reply)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	return printReply(w, reply, colorEnabled(w))
}

// colorEnabled reports whether w is a terminal that wants ANSI colors.
func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// printReply renders a reply for humans. An error reply is returned as an
// error so the exit status reflects it.
func printReply(w io.Writer, reply protocol.Reply, color bool) error {
	switch reply.Kind {
	case protocol.ReplyError:
		return fmt.Errorf("daemon: %s", reply.Error)
	case protocol.ReplyResults:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIMER\tDURATION\tSTATE\tACTIVATION\tABORTION\tDEACTIVATION")
		for _, s := range reply.Results {
			state := paint(color, "32", "enabled")
			if s.Disabled {
				state = paint(color, "31", "disabled")
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
				s.Timer, time.Duration(s.Duration), state, argv(s.Activation), argv(s.Abortion), argv(s.Deactivation))
		}
		return tw.Flush()
	default:
		_, err := fmt.Fprintln(w, "ok")
		return err
	}
}

func paint(color bool, code, s string) string {
	if !color {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// argv quotes arguments that need it, or prints "-" for no command.
func argv(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	parts := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\"'\\") {
			parts[i] = strconv.Quote(a)
		} else {
			parts[i] = a
		}
	}
	return strings.Join(parts, " ")
}
