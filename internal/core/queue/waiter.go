package queue

import "github.com/oznakn/enhanced-embedded-queue/internal/core/domain"

// waiterRequest is a parked worker's request for the next job of a
// type. It lives for at most one dispatch cycle: either a handoff
// resolves resultCh with a Job, or the caller gives up polling
// stillInterested and the request is later discarded, unresolved,
// the next time a handoff walks the waiter list.
type waiterRequest struct {
	resultCh        chan *domain.Job
	stillInterested func() bool
}

func newWaiterRequest(stillInterested func() bool) *waiterRequest {
	return &waiterRequest{
		resultCh:        make(chan *domain.Job, 1),
		stillInterested: stillInterested,
	}
}
