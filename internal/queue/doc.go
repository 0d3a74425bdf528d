// Package queue provides the unbounded blocking FIFO used to pass work
// between the crawl orchestrator and its workers.
//
// Design decision: Push never blocks and Pop blocks until an item arrives.
// The queue also counts the goroutines blocked in Pop, because the
// orchestrator decides that a crawl has finished by observing that every
// worker is waiting for work while no results are in flight.
package queue
