// Package tui provides the terminal user interface for scopecraft runs.
//
// The TUI shows one project's progress while its coordinator works through
// the phases:
//   - each phase with its status and duration
//   - overall phase completion
//   - an activity log of recent coordinator events
//   - a prompt for clarification questions
//
// Usage:
//
//	program, app := tui.NewPlanProgram(project.ID, project.PhaseOrder)
//	app.SetAnswerHandler(svc.AnswerQuestion)
//	go func() {
//	    for ev := range svc.Events() {
//	        program.Send(tui.EventMsg{Event: ev})
//	    }
//	}()
//	go func() {
//	    result, err := run()
//	    program.Send(tui.DoneMsg{Result: result, Err: err})
//	}()
//	program.Run()
package tui
