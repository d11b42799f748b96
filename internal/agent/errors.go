package agent

import (
	"errors"
	"fmt"
)

// AgentError describes a failed investigation.
type AgentError struct {
	Agent  string
	Phase  string
	Reason string
	Err    error
}

func (e *AgentError) Error() string {
	if e.Agent != "" {
		return fmt.Sprintf("agent %s (%s): %s", e.Agent, e.Phase, e.Reason)
	}
	return fmt.Sprintf("phase %s: %s", e.Phase, e.Reason)
}

func (e *AgentError) Unwrap() error { return e.Err }

// QuestionError is returned by an Investigator that cannot continue without
// an answer from the user.
type QuestionError struct {
	Question string
}

func (e *QuestionError) Error() string {
	return "clarification needed: " + e.Question
}

// Ask returns a QuestionError for the given question.
func Ask(question string) error {
	return &QuestionError{Question: question}
}

// failureReason extracts the reason to report for err.
func failureReason(err error) string {
	var ae *AgentError
	if errors.As(err, &ae) && ae.Reason != "" {
		return ae.Reason
	}
	return err.Error()
}
