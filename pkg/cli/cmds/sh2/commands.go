// Package sh2 provides bench shell commands for the sensor hub adapter.
package sh2

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/sh2bridge/pkg/cli/sh"
	"github.com/robotalks/sh2bridge/pkg/sh2/hal"
)

// FrameResult is the output of read and fetch.
type FrameResult struct {
	Length      int    `json:"length"`
	TimestampUs uint32 `json:"timestamp_us"`
	Payload     string `json:"payload,omitempty"`
}

// ParseHex parses bytes given as hex arguments, either one byte per
// argument or concatenated.
func ParseHex(args []string) ([]byte, error) {
	s := strings.Join(args, "")
	s = strings.Replace(s, "0x", "", -1)
	s = strings.Replace(s, ",", "", -1)
	return hex.DecodeString(s)
}

var (
	// ReadCmd reads one frame.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "[MAX]",
		Func: sh.MustBeOpen(func(c *ishell.Context, a *hal.Adapter) {
			size := hal.MaxTransferIn
			if len(c.Args) > 0 {
				val, err := strconv.Atoi(c.Args[0])
				if err != nil || val < 0 {
					c.Err(fmt.Errorf("Invalid MAX: %q", c.Args[0]))
					return
				}
				size = val
			}
			buf := make([]byte, size)
			n, ts := a.Read(buf)
			res := FrameResult{Length: n, TimestampUs: ts, Payload: hex.EncodeToString(buf[:n])}
			if n == 0 {
				sh.Output(c, &res, fmt.Sprintf("no frame @%d", ts))
				return
			}
			sh.Output(c, &res, fmt.Sprintf("%d bytes @%d\n%s", n, ts, hex.Dump(buf[:n])))
		}),
	}

	// FetchCmd pulls a signaled frame without delivering it.
	FetchCmd = ishell.Cmd{
		Name:    "fetch",
		Aliases: []string{"f"},
		Help:    "",
		Func: sh.MustBeOpen(func(c *ishell.Context, a *hal.Adapter) {
			n := a.Fetch()
			sh.Output(c, &FrameResult{Length: n, TimestampUs: a.TimeUs()}, fmt.Sprintf("%d bytes held", n))
		}),
	}

	// WriteCmd writes bytes to the hub.
	WriteCmd = ishell.Cmd{
		Name:    "write",
		Aliases: []string{"w"},
		Help:    "HEX...",
		Func: sh.MustBeOpen(func(c *ishell.Context, a *hal.Adapter) {
			data, err := ParseHex(c.Args)
			if err != nil {
				c.Err(fmt.Errorf("Invalid HEX: %v", err))
				return
			}
			n, err := a.Write(data)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Output(c, map[string]int{"written": n}, fmt.Sprintf("%d of %d bytes written", n, len(data)))
		}),
	}

	// StatsCmd prints the adapter counters.
	StatsCmd = ishell.Cmd{
		Name:    "stats",
		Aliases: []string{"s"},
		Help:    "",
		Func: sh.MustBeOpen(func(c *ishell.Context, a *hal.Adapter) {
			st := a.Stats()
			sh.Output(c, &st, fmt.Sprintf(
				"frames=%d bytes=%d discards=%d truncations=%d too-large=%d read-failures=%d write-failures=%d",
				st.Frames, st.Bytes, st.Discards, st.Truncations, st.TooLarge, st.ReadFailures, st.WriteFailures))
		}),
	}

	// StateCmd prints the bus state.
	StateCmd = ishell.Cmd{
		Name: "state",
		Help: "",
		Func: func(c *ishell.Context) {
			state := hal.StateUninitialized
			if a := sh.ShellFrom(c).Adapter; a != nil {
				state = a.State()
			}
			sh.Output(c, map[string]string{"state": state.String()}, state.String())
		},
	}

	// TimeCmd prints the microsecond timestamp.
	TimeCmd = ishell.Cmd{
		Name:    "time",
		Aliases: []string{"t"},
		Help:    "",
		Func: sh.MustBeOpen(func(c *ishell.Context, a *hal.Adapter) {
			ts := a.TimeUs()
			sh.Output(c, map[string]uint32{"timestamp_us": ts}, strconv.FormatUint(uint64(ts), 10))
		}),
	}
)

func init() {
	sh.AddCmds(
		&ReadCmd,
		&FetchCmd,
		&WriteCmd,
		&StatsCmd,
		&StateCmd,
		&TimeCmd,
	)
}
