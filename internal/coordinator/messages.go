package coordinator

// Requests served by a live coordinator through its registry inbox.
// Agent outcomes arrive on the same inbox as agent.Message values.

type getStateRequest struct{}

type answerRequest struct {
	Answer string
}
