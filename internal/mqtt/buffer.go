package mqtt

import "log"

// bufferedMsg holds one outbound message while the broker is unreachable.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer queues messages during a broker outage for replay on
// reconnect, dropping the oldest once full so a long outage cannot grow
// memory without bound. Callers must synchronize access.
type ringBuffer struct {
	buf     []bufferedMsg
	tail    int // oldest queued message
	count   int
	dropped int // messages lost to overflow since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{buf: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	if r.count == len(r.buf) {
		if r.dropped == 0 {
			log.Printf("mqtt: replay buffer full (%d messages), dropping oldest", len(r.buf))
		}
		r.dropped++
		r.tail = (r.tail + 1) % len(r.buf)
		r.count--
	}
	r.buf[(r.tail+r.count)%len(r.buf)] = msg
	r.count++
}

// drainAll removes and returns the queued messages, oldest first.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}
	out := make([]bufferedMsg, r.count)
	for i := range out {
		out[i] = r.buf[(r.tail+i)%len(r.buf)]
	}
	r.tail = 0
	r.count = 0
	r.dropped = 0
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}
