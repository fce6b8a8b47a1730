package feed

// StopReason tags the terminal state of a run. Early exits out of nested
// pass loops are modeled as values inspected by the driving loop, never as
// panics or sentinel errors.
type StopReason string

const (
	// StopMaxItems: the configured item budget was filled.
	StopMaxItems StopReason = "maxItemsReached"

	// StopNoNewItems: repeated passes produced nothing new.
	StopNoNewItems StopReason = "noNewItemsExhausted"

	// StopDateCutoff: an item older than the cutoff was reached.
	StopDateCutoff StopReason = "dateCutoffReached"

	// StopRateLimit: sustained rate limiting; the run aborts rather than
	// keep hammering the host.
	StopRateLimit StopReason = "rateLimitAborted"

	// StopSeenURL: a seen URL was hit with ContinueOnSeen disabled.
	StopSeenURL StopReason = "seenUrlHalt"

	// StopConsumer: the consumer stopped pulling from the sequence.
	StopConsumer StopReason = "consumerStopped"
)

// Result summarizes a completed run.
type Result struct {
	Reason  StopReason
	Yielded int
	Skipped int
}

// runState is the engine's memory across passes. It is owned exclusively
// by the engine, created at run start and discarded at run end; no other
// component retains state across calls.
type runState struct {
	// seen grows monotonically within the run; it starts as a copy of
	// the externally supplied ledger.
	seen map[string]struct{}

	yielded      int
	skipped      int
	noNewItems   int
	sameHeight   int
	allSeen      int
	timeouts     int // consecutive content-wait timeouts, spans items
	turbo        bool
	cutoff       bool
	lastScroll   float64
	lastHeight   float64
	lastCount    int // container count, drives turbo probing
	nextPauseAt  int // item count at which the next long pause fires
	turboStalled int // turbo passes without container growth
	escalations  int // stagnation escalations, alternates jump/fast
}

func newRunState(seed map[string]struct{}) *runState {
	seen := make(map[string]struct{}, len(seed))
	for u := range seed {
		seen[u] = struct{}{}
	}
	return &runState{seen: seen}
}

func (st *runState) markSeen(url string) {
	st.seen[url] = struct{}{}
}

func (st *runState) isSeen(url string) bool {
	_, ok := st.seen[url]
	return ok
}

// budgetLeft reports whether another item may be yielded under max.
// max <= 0 means unbounded.
func (st *runState) budgetLeft(max int) bool {
	return max <= 0 || st.yielded < max
}
