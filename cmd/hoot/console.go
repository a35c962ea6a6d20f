package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/casualjim/hoot/events"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
)

// consoleHook prints tool activity as it happens.
type consoleHook struct {
	events.NopHook
	mu sync.Mutex
	w  io.Writer
}

func newConsoleHook(w io.Writer) *consoleHook {
	return &consoleHook{w: w}
}

func (c *consoleHook) OnToolDispatched(_ context.Context, e events.ToolDispatched) {
	c.mu.Lock()
	defer c.mu.Unlock()
	args := strings.ReplaceAll(e.Arguments, ":", "=")
	name := color.YellowString(e.Tool)
	if e.Failed {
		name = color.RedString(e.Tool)
	}
	fmt.Fprintf(c.w, "%s%s %s %s\n", name, args, color.HiBlackString("→"), e.Result)
}

func (c *consoleHook) OnLoopDetected(_ context.Context, e events.LoopDetected) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s %s\n", color.RedString("loop:"), e.Clarification)
}

// renderer renders replies as markdown, falling back to plain text.
type renderer struct {
	glam *glamour.TermRenderer
}

func newRenderer(plain bool) *renderer {
	if plain {
		return &renderer{}
	}
	glam, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return &renderer{}
	}
	return &renderer{glam: glam}
}

func (r *renderer) Render(text string) string {
	if r.glam == nil {
		return text + "\n"
	}
	out, err := r.glam.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}
