package sim

import (
	"log"

	"westiny/metrics"
	"westiny/world"
)

// Outbox is the bounded queue between the broadcasters and the transport.
type Outbox struct {
	messages chan world.Outbound
	metrics  *metrics.Metrics
}

func NewOutbox(size int, m *metrics.Metrics) *Outbox {
	return &Outbox{
		messages: make(chan world.Outbound, size),
		metrics:  m,
	}
}

// Push enqueues without blocking. A full queue drops the message.
func (o *Outbox) Push(out world.Outbound) bool {
	select {
	case o.messages <- out:
		return true
	default:
		log.Printf("outbox full, dropping %T for %s", out.Message, out.To)
		o.metrics.OutboundDropped.Inc()
		return false
	}
}

// Drain empties the queue without blocking.
func (o *Outbox) Drain() []world.Outbound {
	var out []world.Outbound
	for {
		select {
		case msg := <-o.messages:
			out = append(out, msg)
		default:
			return out
		}
	}
}

// C exposes the queue to a transport that wants to block on it.
func (o *Outbox) C() <-chan world.Outbound {
	return o.messages
}
