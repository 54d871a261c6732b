package domain

import "sync"

// Status is the phase of an OperationState.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// OperationState is what a screen renders for one operation stream.
// Data is meaningful only on success; Error and Kind only on error.
type OperationState[T any] struct {
	Status Status `json:"status"`
	Data   *T     `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
	Kind   Kind   `json:"kind,omitempty"`
}

func Idle[T any]() OperationState[T] {
	return OperationState[T]{Status: StatusIdle}
}

func Loading[T any]() OperationState[T] {
	return OperationState[T]{Status: StatusLoading}
}

func Success[T any](data T) OperationState[T] {
	return OperationState[T]{Status: StatusSuccess, Data: &data}
}

// Failure classifies err into an error state.
func Failure[T any](err error) OperationState[T] {
	return OperationState[T]{Status: StatusError, Error: Message(err), Kind: KindOf(err)}
}

// Result picks Success or Failure depending on err.
func Result[T any](data T, err error) OperationState[T] {
	if err != nil {
		return Failure[T](err)
	}
	return Success(data)
}

// Terminal reports whether the state is Success or Error.
func (s OperationState[T]) Terminal() bool {
	return s.Status == StatusSuccess || s.Status == StatusError
}

// Ticket identifies one request started on a Stream.
type Ticket struct {
	Key string
	seq uint64
}

const subscriberBuffer = 16

// Stream holds the current OperationState of one logical operation and
// fans transitions out to subscribers. Every transition replaces the whole
// state.
//
// A superseding stream only accepts the result of the most recently started
// request; older results are dropped. A non-superseding stream applies every
// result in completion order.
type Stream[T any] struct {
	name      string
	supersede bool

	mu      sync.Mutex
	state   OperationState[T]
	seq     uint64
	floor   uint64 // tickets at or below floor were reset away
	key     string
	subs    map[int]chan OperationState[T]
	nextSub int
}

// NewStream creates a stream in Idle.
func NewStream[T any](name string, supersede bool) *Stream[T] {
	return &Stream[T]{
		name:      name,
		supersede: supersede,
		state:     Idle[T](),
		subs:      make(map[int]chan OperationState[T]),
	}
}

func (s *Stream[T]) Name() string {
	return s.name
}

// Current returns the state as of now.
func (s *Stream[T]) Current() OperationState[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Key returns the key of the most recently started request.
func (s *Stream[T]) Key() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

// Begin moves the stream to Loading for a request on key.
func (s *Stream[T]) Begin(key string) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.key = key
	s.setLocked(Loading[T]())
	return Ticket{Key: key, seq: s.seq}
}

// Finish applies the result of the request identified by t. It reports
// false when the result was dropped because a newer request superseded it
// or the stream was reset after the request began.
func (s *Stream[T]) Finish(t Ticket, next OperationState[T]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.seq <= s.floor || (s.supersede && t.seq != s.seq) {
		return false
	}
	s.setLocked(next)
	return true
}

// Reset returns a terminal stream to Idle. Idle and Loading streams are left
// alone; the return value reports whether anything changed.
func (s *Stream[T]) Reset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Terminal() {
		return false
	}
	s.floor = s.seq
	s.setLocked(Idle[T]())
	return true
}

// Clear forces the stream back to Idle whatever its state and drops the
// result of any request still in flight. Used on logout.
func (s *Stream[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.floor = s.seq
	s.key = ""
	if s.state.Status != StatusIdle {
		s.setLocked(Idle[T]())
	}
}

// Subscribe returns a channel receiving every later transition and a
// function that stops delivery. Slow subscribers miss transitions rather
// than block the stream.
func (s *Stream[T]) Subscribe() (<-chan OperationState[T], func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan OperationState[T], subscriberBuffer)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Stream[T]) setLocked(next OperationState[T]) {
	s.state = next
	for _, ch := range s.subs {
		select {
		case ch <- next:
		default:
		}
	}
}
