package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/ShayCichocki/scopecraft/internal/tui"
	"github.com/ShayCichocki/scopecraft/pkg/models"
)

var errInterrupted = errors.New("interrupted before the plan finished")

// runWithTUI runs fn behind the progress view. Closing the view early
// returns errInterrupted; the session shutdown then stops the project.
func runWithTUI(ctx context.Context, src eventSource, projectID string, order []string, fn runFunc) (_ *models.Result, retErr error) {
	// Log output corrupts the display.
	originalOutput := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(originalOutput)

	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("PANIC in runWithTUI: %v", r)
		}
	}()

	program, app := tui.NewPlanProgram(projectID, order)
	app.SetAnswerHandler(src.AnswerQuestion)

	go func() {
		for ev := range src.Events() {
			program.Send(tui.EventMsg{Event: ev})
		}
	}()

	var (
		result *models.Result
		runErr error
	)
	runDone := make(chan struct{})
	go func() {
		res, err := fn(ctx)
		result, runErr = res, err
		close(runDone)
		program.Send(tui.DoneMsg{Result: res, Err: err})
	}()

	tuiDone := make(chan error, 1)
	go func() {
		_, err := program.Run()
		tuiDone <- err
	}()

	select {
	case <-runDone:
		// Keep the final view until the user quits.
		if err := <-tuiDone; err != nil {
			return result, err
		}
		return result, runErr
	case err := <-tuiDone:
		if err != nil {
			return nil, err
		}
		select {
		case <-runDone:
			return result, runErr
		default:
			return nil, errInterrupted
		}
	}
}
