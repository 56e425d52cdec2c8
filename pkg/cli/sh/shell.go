package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/sh2bridge/pkg/env"
	fx "github.com/robotalks/sh2bridge/pkg/framework"
	"github.com/robotalks/sh2bridge/pkg/sh2/hal"
)

// Shell provides ishell backed interactive shell on a sensor hub adapter.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoOpen    bool

	Shell   *ishell.Shell
	Config  *env.Config
	Adapter *hal.Adapter

	runner *fx.Runner
}

const (
	shellKey       = "$shell"
	closedPrompt   = "[closed] > "
	openPromptTmpl = "[%s 0x%02x] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&OpenCmd,
		&CloseCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeOpen wraps command func requiring an open adapter.
func MustBeOpen(fn func(c *ishell.Context, a *hal.Adapter)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		a := ShellFrom(c).Adapter
		if a == nil || !a.IsOpen() {
			c.Err(fmt.Errorf("not open"))
			return
		}
		fn(c, a)
	}
}

// Output prints v as JSON in JSON mode, or text otherwise.
func Output(c *ishell.Context, v interface{}, text string) {
	if !ShellFrom(c).OutputJSON {
		c.Println(text)
		return
	}
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// WithAutoOpen sets AutoOpen.
func (s *Shell) WithAutoOpen(en bool) *Shell {
	s.AutoOpen = en
	return s
}

// Open creates the adapter if needed, starts the backend and opens the
// adapter.
func (s *Shell) Open() error {
	if s.Adapter == nil {
		adapter, runnables, err := s.Config.NewAdapter()
		if err != nil {
			return err
		}
		s.Adapter = adapter
		s.runner = fx.NewRunnerWith(context.Background()).Go(runnables...)
	}
	if err := s.Adapter.Open(); err != nil {
		return err
	}
	s.Shell.SetPrompt(fmt.Sprintf(openPromptTmpl, s.Config.Backend, s.Config.Addr))
	return nil
}

// Close closes the adapter and stops the backend.
func (s *Shell) Close() {
	if s.Adapter == nil {
		return
	}
	s.Adapter.Close()
	s.runner.Stop()
	s.runner.Wait()
	s.Adapter, s.runner = nil, nil
	s.Shell.SetPrompt(closedPrompt)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoOpen {
		if s.Interactive {
			s.Shell.Printf("Opening %s backend ...\n", s.Config.Backend)
		}
		if err := s.Open(); err != nil {
			log.Fatalf("open failed: %v", err)
		}
	}
	defer s.Close()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// OpenCmd opens the adapter.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "",
		Func: func(c *ishell.Context) {
			if err := ShellFrom(c).Open(); err != nil {
				c.Err(err)
				return
			}
			Output(c, map[string]bool{"open": true}, "OK")
		},
	}

	// CloseCmd closes the adapter.
	CloseCmd = ishell.Cmd{
		Name:    "close",
		Aliases: []string{"c"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Close()
			Output(c, map[string]bool{"open": false}, "OK")
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoOpen(true).Run(flag.Args()...)
}
