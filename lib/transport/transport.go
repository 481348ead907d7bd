/*package transport provides the non-blocking point-to-point fabric that the
halo exchanges and the block communicator are built on. The interface mirrors
the envelope model of message passing: a message is addressed by (source,
destination, tag) and matched in FIFO order per envelope.

The package ships an in-process implementation, Network, that runs every
rank of a job inside one process. Sends are buffered, so a send never blocks
and never deadlocks against its matching receive.*/
package transport

import (
	"fmt"
	"sync"
)

// ProcNull is the rank sentinel for "no neighbor": a physical boundary in
// the process topology.
const ProcNull = -1

// Request is a handle on an in-flight send or receive.
type Request interface {
	// Wait blocks until the operation completes and returns the number of
	// float64 values transferred. A cancelled request completes with a
	// count of zero.
	Wait() (int, error)
	// Test reports whether the operation has completed without blocking.
	// When done is true the count is valid.
	Test() (done bool, count int, err error)
	// Cancel withdraws a pending operation. Cancelling a completed request
	// is a no-op.
	Cancel() error
	// Free releases the request. The request must not be used afterwards.
	Free()
}

// Transport is one rank's endpoint on the fabric.
type Transport interface {
	Rank() int
	Size() int
	// Isend starts a buffered send of buf to rank dst. The caller may
	// reuse buf as soon as Isend returns.
	Isend(dst, tag int, buf []float64) (Request, error)
	// Irecv posts a receive from rank src into buf. The number of values
	// actually received is reported by the request and may be smaller than
	// len(buf). A message longer than buf is an error.
	Irecv(src, tag int, buf []float64) (Request, error)
}

type envelope struct {
	src, dst, tag int
}

type parcel struct {
	data []float64
}

// memRequest implements Request for the in-process Network. Completion
// state is published by closing done; the network's lock serializes the
// writers.
type memRequest struct {
	done      chan struct{}
	completed bool
	cancelled bool
	count     int
	err       error

	// receive-side state, nil for sends
	net *Network
	env envelope
	buf []float64
}

func completedRequest(count int) *memRequest {
	r := &memRequest{done: make(chan struct{}), completed: true, count: count}
	close(r.done)
	return r
}

func (r *memRequest) complete(count int, err error) {
	r.count, r.err = count, err
	r.completed = true
	close(r.done)
}

func (r *memRequest) Wait() (int, error) {
	<-r.done
	return r.count, r.err
}

func (r *memRequest) Test() (bool, int, error) {
	select {
	case <-r.done:
		return true, r.count, r.err
	default:
		return false, 0, nil
	}
}

func (r *memRequest) Cancel() error {
	if r.net != nil {
		r.net.cancelRecv(r)
	}
	return nil
}

func (r *memRequest) Free() {}

// Network is an in-process fabric connecting size ranks. It is safe for
// concurrent use by every endpoint.
type Network struct {
	mu      sync.Mutex
	size    int
	inbox   map[envelope][]*parcel
	waiting map[envelope][]*memRequest
}

// NewNetwork creates a fabric with the given number of ranks.
func NewNetwork(size int) *Network {
	return &Network{
		size:    size,
		inbox:   map[envelope][]*parcel{},
		waiting: map[envelope][]*memRequest{},
	}
}

// Endpoint returns rank's Transport on the network.
func (net *Network) Endpoint(rank int) Transport {
	return &endpoint{net, rank}
}

type endpoint struct {
	net  *Network
	rank int
}

func (e *endpoint) Rank() int { return e.rank }
func (e *endpoint) Size() int { return e.net.size }

func (e *endpoint) Isend(dst, tag int, buf []float64) (Request, error) {
	if dst < 0 || dst >= e.net.size {
		return nil, fmt.Errorf("Rank %d attempted to send to rank %d, but "+
			"the network only has %d ranks.", e.rank, dst, e.net.size)
	}

	env := envelope{e.rank, dst, tag}
	data := make([]float64, len(buf))
	copy(data, buf)

	net := e.net
	net.mu.Lock()
	defer net.mu.Unlock()

	// Hand the message to a waiting receive if one is posted; otherwise
	// queue it. Either way the send itself completes immediately.
	if q := net.waiting[env]; len(q) > 0 {
		r := q[0]
		net.waiting[env] = q[1:]
		net.deliver(r, data)
	} else {
		net.inbox[env] = append(net.inbox[env], &parcel{data})
	}
	return completedRequest(len(buf)), nil
}

func (e *endpoint) Irecv(src, tag int, buf []float64) (Request, error) {
	if src < 0 || src >= e.net.size {
		return nil, fmt.Errorf("Rank %d attempted to receive from rank %d, "+
			"but the network only has %d ranks.", e.rank, src, e.net.size)
	}

	env := envelope{src, e.rank, tag}
	net := e.net
	net.mu.Lock()
	defer net.mu.Unlock()

	if q := net.inbox[env]; len(q) > 0 {
		p := q[0]
		net.inbox[env] = q[1:]
		r := &memRequest{done: make(chan struct{}), net: net, env: env, buf: buf}
		net.deliver(r, p.data)
		return r, nil
	}

	r := &memRequest{done: make(chan struct{}), net: net, env: env, buf: buf}
	net.waiting[env] = append(net.waiting[env], r)
	return r, nil
}

// deliver completes a posted receive with the given payload. Callers hold
// net.mu.
func (net *Network) deliver(r *memRequest, data []float64) {
	if len(data) > len(r.buf) {
		r.complete(0, fmt.Errorf("A %d-value message arrived for a "+
			"receive buffer that only holds %d values.",
			len(data), len(r.buf)))
		return
	}
	copy(r.buf, data)
	r.complete(len(data), nil)
}

// cancelRecv withdraws a pending receive.
func (net *Network) cancelRecv(r *memRequest) {
	net.mu.Lock()
	defer net.mu.Unlock()

	if r.completed { return }
	q := net.waiting[r.env]
	for i := range q {
		if q[i] == r {
			net.waiting[r.env] = append(q[:i], q[i+1:]...)
			break
		}
	}
	r.cancelled = true
	r.complete(0, nil)
}
