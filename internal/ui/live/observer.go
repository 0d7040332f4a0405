package live

import (
	"io"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"promptopt/internal/loop"
	"promptopt/internal/runner"
)

// Controller runs the live UI and implements runner.Observer and loop.PhaseObserver.
type Controller struct {
	events    chan Event
	program   *tea.Program
	done      chan struct{}
	closeOnce sync.Once
}

// Start launches a live UI controller that writes to stdout.
func Start(stdout io.Writer, opts Options) *Controller {
	if stdout == nil {
		stdout = os.Stdout
	}
	events := make(chan Event, 256)
	model := NewModel(events, opts)
	program := tea.NewProgram(model, tea.WithOutput(stdout), tea.WithAltScreen())
	controller := &Controller{
		events:  events,
		program: program,
		done:    make(chan struct{}),
	}
	go func() {
		_, _ = program.Run()
		close(controller.done)
	}()
	return controller
}

// Close signals the UI to stop.
func (c *Controller) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		close(c.events)
	})
}

// Wait blocks until the UI has exited.
func (c *Controller) Wait() {
	if c == nil {
		return
	}
	<-c.done
}

func (c *Controller) OnBenchmarkStart(total int) {
	c.send(Event{Kind: EventBenchmarkStart, Total: total})
}

func (c *Controller) OnItemEvent(event runner.ItemEvent) {
	c.send(Event{Kind: EventItem, Item: event})
}

func (c *Controller) OnBenchmarkEnd(report runner.EvaluationReport) {
	c.send(Event{Kind: EventBenchmarkEnd, Report: report})
}

func (c *Controller) OnPhaseStart(event loop.PhaseEvent) {
	c.send(Event{Kind: EventPhaseStart, Phase: event})
}

func (c *Controller) OnPhaseEnd(event loop.PhaseEvent) {
	c.send(Event{Kind: EventPhaseEnd, Phase: event})
}

// send enqueues an event without blocking the caller. Sends after Close are dropped.
func (c *Controller) send(event Event) {
	if c == nil {
		return
	}
	defer func() { _ = recover() }()
	select {
	case c.events <- event:
	default:
	}
}

var (
	_ runner.Observer    = (*Controller)(nil)
	_ loop.PhaseObserver = (*Controller)(nil)
)
