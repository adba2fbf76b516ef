package llm

import "context"

// StubClient is the testing interface §8 calls for: a canned-response
// Client so Decision Layer idempotence and contract synthesis can be
// asserted deterministically, without a live provider or network access.
type StubClient struct {
	// Responses is consulted in order, one per call; the last entry
	// repeats once exhausted so tests don't need an exact call count.
	Responses []Response
	// Err, if set, is returned instead of consuming a response.
	Err error

	calls []Request
}

func NewStubClient(responses ...Response) *StubClient {
	return &StubClient{Responses: responses}
}

func (s *StubClient) Complete(_ context.Context, req Request) (Response, error) {
	s.calls = append(s.calls, req)
	if s.Err != nil {
		return Response{}, s.Err
	}
	if len(s.Responses) == 0 {
		return Response{}, nil
	}
	idx := len(s.calls) - 1
	if idx >= len(s.Responses) {
		idx = len(s.Responses) - 1
	}
	return s.Responses[idx], nil
}

// Calls returns every request this stub has received so far, for test
// assertions about what was asked of the model.
func (s *StubClient) Calls() []Request {
	return s.calls
}
