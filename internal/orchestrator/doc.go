// Package orchestrator executes scenario transitions against the real
// world.
//
// It is the write path of the engine: the diff engine plans, the
// orchestrator dispatches. All transitions are serialised through a
// single worker goroutine fed by a bounded request queue, making it the
// sole mutator of shadow state and the lock manager while a plan runs.
//
// Per step the pipeline is: condition gate (against live shadow state),
// debounce gate (pulse cells only), sink dispatch under a bounded
// timeout, then write-through shadow update. A failed step is recorded
// and the plan continues; partial activation is a reported outcome, not
// an abort. The active-scenario switch persists only when no
// state-defining step failed.
package orchestrator
