package player

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/desertthunder/moodtunes/internal/shared"
)

// Output is a single audio sink. Loading a new source replaces the previous one.
type Output interface {
	Load(src string) error
	Play(ctx context.Context) error
	Stop() error
	Source() string
}

// NewOutput builds the output named by cfg. The command "browser" selects [BrowserOutput].
func NewOutput(cfg shared.PlayerConfig) Output {
	if cfg.Command == "browser" {
		return &BrowserOutput{}
	}
	return NewExecOutput(cfg.Command, cfg.Args...)
}

var newCommand = exec.Command

type process struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error // valid once done is closed
}

// ExecOutput plays sources with an external program, appending the source as the last argument.
type ExecOutput struct {
	mu      sync.Mutex
	command string
	args    []string
	source  string
	proc    *process
}

// NewExecOutput creates an [ExecOutput]. An empty command defaults to ffplay.
func NewExecOutput(command string, args ...string) *ExecOutput {
	if command == "" {
		command = "ffplay"
		args = []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}
	}
	return &ExecOutput{command: command, args: args}
}

func (o *ExecOutput) Load(src string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.stopLocked(); err != nil {
		return err
	}
	o.source = src
	return nil
}

// Play starts the player process for the loaded source, stopping any running one first.
func (o *ExecOutput) Play(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.source == "" {
		return fmt.Errorf("%w: no source loaded", shared.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := o.stopLocked(); err != nil {
		return err
	}

	args := append(append([]string{}, o.args...), o.source)
	cmd := newCommand(o.command, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", o.command, err)
	}

	p := &process{cmd: cmd, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()

	o.proc = p
	return nil
}

func (o *ExecOutput) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stopLocked()
}

func (o *ExecOutput) Source() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.source
}

// Wait blocks until the running process exits or ctx is done. It returns nil when nothing is playing.
func (o *ExecOutput) Wait(ctx context.Context) error {
	o.mu.Lock()
	p := o.proc
	o.mu.Unlock()

	if p == nil {
		return nil
	}

	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *ExecOutput) stopLocked() error {
	p := o.proc
	if p == nil {
		return nil
	}
	o.proc = nil

	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to stop player: %w", err)
	}
	<-p.done
	return nil
}

var openBrowser = shared.OpenBrowser

// BrowserOutput opens previews in the system browser.
// Stop cannot close the page, so it is a no-op and the loaded source is kept.
type BrowserOutput struct {
	mu     sync.Mutex
	source string
}

func (b *BrowserOutput) Load(src string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.source = src
	return nil
}

func (b *BrowserOutput) Play(ctx context.Context) error {
	src := b.Source()
	if src == "" {
		return fmt.Errorf("%w: no source loaded", shared.ErrInvalidInput)
	}
	return openBrowser(src)
}

func (b *BrowserOutput) Stop() error { return nil }

func (b *BrowserOutput) Source() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.source
}
