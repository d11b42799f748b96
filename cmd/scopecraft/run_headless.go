package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/ShayCichocki/scopecraft/internal/coordinator"
	"github.com/ShayCichocki/scopecraft/pkg/models"
)

// eventSource is the part of coordinator.Service the runners use.
type eventSource interface {
	Events() <-chan coordinator.Event
	AnswerQuestion(projectID, answer string) error
}

// runHeadless runs fn while printing coordinator events to out. Questions
// are answered from lines read on in.
func runHeadless(ctx context.Context, src eventSource, in io.Reader, out io.Writer, fn runFunc) (*models.Result, error) {
	var (
		result *models.Result
		err    error
	)
	done := make(chan struct{})
	go func() {
		result, err = fn(ctx)
		close(done)
	}()

	lines := &lineReader{r: in}
	events := src.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				<-done
				return result, err
			}
			printEvent(out, ev)
			if ev.Type == coordinator.EventQuestion {
				answerQuestion(ctx, src, out, lines, ev, done)
			}

		case <-done:
			drainEvents(out, events)
			return result, err
		}
	}
}

// drainEvents prints events already buffered when the run returned.
func drainEvents(out io.Writer, events <-chan coordinator.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			printEvent(out, ev)
		default:
			return
		}
	}
}

// answerQuestion prompts until a non-empty answer is delivered, input
// ends, or the run stops.
func answerQuestion(ctx context.Context, src eventSource, out io.Writer, lines *lineReader, ev coordinator.Event, done <-chan struct{}) {
	for {
		fmt.Fprint(out, color.YellowString("  answer> "))
		select {
		case line, ok := <-lines.Lines():
			if !ok {
				fmt.Fprintln(out)
				fmt.Fprintf(out, "  no input; the project stays paused (resume with: scopecraft resume %s)\n", ev.ProjectID)
				return
			}
			answer := strings.TrimSpace(line)
			if answer == "" {
				continue
			}
			if err := src.AnswerQuestion(ev.ProjectID, answer); err != nil {
				fmt.Fprintf(out, "  %s %v\n", color.RedString("answer not delivered:"), err)
				continue
			}
			return
		case <-done:
			fmt.Fprintln(out)
			return
		case <-ctx.Done():
			fmt.Fprintln(out)
			return
		}
	}
}

// lineReader scans lines from r on first use.
type lineReader struct {
	r     io.Reader
	once  sync.Once
	lines chan string
}

func (l *lineReader) Lines() <-chan string {
	l.once.Do(func() {
		l.lines = make(chan string)
		go func() {
			defer close(l.lines)
			scanner := bufio.NewScanner(l.r)
			for scanner.Scan() {
				l.lines <- scanner.Text()
			}
		}()
	})
	return l.lines
}

// formatEvent renders an event as one uncolored line.
func formatEvent(ev coordinator.Event) string {
	switch ev.Type {
	case coordinator.EventProjectStarted:
		return fmt.Sprintf("project %s started", ev.ProjectID)
	case coordinator.EventPhaseStarted:
		return fmt.Sprintf("%s started", ev.Phase)
	case coordinator.EventPhaseCompleted:
		return fmt.Sprintf("%s completed: %s", ev.Phase, ev.Message)
	case coordinator.EventPhaseFailed:
		return fmt.Sprintf("%s failed: %s", ev.Phase, ev.Message)
	case coordinator.EventQuestion:
		return fmt.Sprintf("%s asks: %s", ev.Phase, ev.Question)
	case coordinator.EventAnswered:
		return fmt.Sprintf("%s answer recorded", ev.Phase)
	case coordinator.EventProjectCompleted:
		return fmt.Sprintf("project %s completed: %s", ev.ProjectID, ev.Message)
	case coordinator.EventProjectFailed:
		return fmt.Sprintf("project %s stopped: %s", ev.ProjectID, ev.Message)
	default:
		return string(ev.Type)
	}
}

func printEvent(out io.Writer, ev coordinator.Event) {
	var symbol string
	switch ev.Type {
	case coordinator.EventPhaseStarted, coordinator.EventProjectStarted:
		symbol = color.CyanString("▶")
	case coordinator.EventPhaseCompleted, coordinator.EventProjectCompleted:
		symbol = color.GreenString("✓")
	case coordinator.EventPhaseFailed, coordinator.EventProjectFailed:
		symbol = color.RedString("✗")
	case coordinator.EventQuestion:
		symbol = color.YellowString("?")
	default:
		symbol = " "
	}
	ts := color.New(color.Faint).Sprint(ev.Timestamp.Format("15:04:05"))
	fmt.Fprintf(out, "%s %s %s\n", ts, symbol, formatEvent(ev))
}
