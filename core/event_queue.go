package core

import "sync"

// AsyncSink forwards packets to an inner sink from a single goroutine, in
// the order Publish was called. Publish never blocks, so components may
// publish while holding their own locks.
type AsyncSink struct {
	inner EventSink

	mu      sync.Mutex
	queue   []*EventPacket
	closed  bool
	wake    chan struct{}
	drained chan struct{}
}

func NewAsyncSink(inner EventSink) *AsyncSink {
	if inner == nil {
		inner = NopSink
	}
	s := &AsyncSink{
		inner:   inner,
		wake:    make(chan struct{}, 1),
		drained: make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *AsyncSink) Publish(packet *EventPacket) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, packet)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Close delivers what is already queued, then stops the forwarding goroutine.
func (s *AsyncSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.drained
		return
	}
	s.closed = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	<-s.drained
}

func (s *AsyncSink) loop() {
	defer close(s.drained)
	for range s.wake {
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				closed := s.closed
				s.mu.Unlock()
				if closed {
					return
				}
				break
			}
			batch := s.queue
			s.queue = nil
			s.mu.Unlock()

			for _, p := range batch {
				s.inner.Publish(p)
			}
		}
	}
}
