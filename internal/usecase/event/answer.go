package event

import (
	"github.com/google/uuid"
)

// AnswerRequest is the payload sent to the answer service.
type AnswerRequest struct {
	Message             string
	ThreadCorrelationID string
	FileHandles         []string
}

// AnswerResult is a successful (HTTP 200) answer service response.
type AnswerResult struct {
	// Text is the answer, or the service's status text when HasAnswer is false.
	Text string

	// HasAnswer is true when the service returned an answer to render.
	HasAnswer bool
}

// ThreadCorrelationID derives a stable conversation id from a thread anchor.
// Repeated calls within one thread map to the same downstream conversation.
func ThreadCorrelationID(threadAnchor string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(threadAnchor)).String()
}
