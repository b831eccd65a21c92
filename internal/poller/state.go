package poller

// Phase names the variant of a State.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseFailed  Phase = "failed"
)

// State is the lifecycle of one endpoint: Idle, Loading, Ready or Failed.
// It is sealed; no other type implements it.
type State interface {
	Phase() Phase
	isState()
}

// Idle means no poll has been issued yet.
type Idle struct{}

// Loading means a request is in flight.
type Loading struct{}

// Ready carries the value decoded by the most recent successful poll.
type Ready[T any] struct {
	Value T
}

// Failed carries the reason the most recent poll did not produce a value.
type Failed struct {
	Message string
	Err     error
}

func (Idle) Phase() Phase     { return PhaseIdle }
func (Loading) Phase() Phase  { return PhaseLoading }
func (Ready[T]) Phase() Phase { return PhaseReady }
func (Failed) Phase() Phase   { return PhaseFailed }

func (Idle) isState()     {}
func (Loading) isState()  {}
func (Ready[T]) isState() {}
func (Failed) isState()   {}
