/*package blockcomm implements the block-pipelined neighbor channels used
for particle migration. Each channel is one direction of traffic between a
pair of ranks: the sender pushes elements one at a time, a block is shipped
as soon as it fills, and a short (possibly empty) block marks the end of the
stream. Senders never need to know how many blocks a receiver will consume,
and receivers can insert extra buffers on demand.

The element type must be a struct composed entirely of float64 fields (the
wire unit of the transport layer). Migration uses the 64-byte particle
record, which satisfies this.*/
package blockcomm

import (
	"fmt"
	"unsafe"

	"github.com/phil-mansfield/gopic/lib/transport"
)

// Direction distinguishes the two possible messages between a pair of
// processes that share two opposite faces, e.g. in a two-process-thick
// periodic topology.
type Direction int

const (
	Default Direction = iota
	ParticleDn
	ParticleUp
	XDn
	XUp
	YDn
	YUp
	ZDn
	ZUp
	numDirections
)

// Channel tags live above the halo exchange's tag range, and self-channel
// tags above those, so a null neighbor rewritten to a self-loop can never
// collide with real neighbor traffic.
const (
	tagBase     = 16
	selfTagBase = tagBase + int(numDirections)
)

// Connection is the envelope of a channel: the peer rank and the message
// tag derived from the channel's direction.
type Connection struct {
	Rank, Tag int
}

// NewConnection creates the envelope for traffic with rank in the given
// direction.
func NewConnection(rank int, dir Direction) Connection {
	return Connection{rank, tagBase + int(dir)}
}

// Null2Self rewrites a null connection into a self-loop with a reserved
// tag, so that periodic wrapping onto the same rank behaves identically to
// ordinary neighbor traffic without conditionals in the caller.
func Null2Self(rank int, dir Direction, self int) Connection {
	if rank == transport.ProcNull {
		return Connection{self, selfTagBase + int(dir)}
	}
	return NewConnection(rank, dir)
}

// signal bits piggy-backed on a block when Options.SignalElement is set.
const (
	insertFlag   = 1
	finishedFlag = 2
)

// Block is one fixed-capacity buffer of a channel's ring.
type Block[T any] struct {
	elems    []T
	capacity int
	listID   int
	req      transport.Request
	signal   int
}

func newBlock[T any](capacity, listID int) *Block[T] {
	return &Block[T]{
		elems:    make([]T, 0, capacity+1),
		capacity: capacity,
		listID:   listID,
	}
}

// Elems returns the elements held by the block. After FetchReceived this
// is the received payload.
func (b *Block[T]) Elems() []T { return b.elems }

// Finished reports whether this block closed its channel's stream.
func (b *Block[T]) Finished() bool { return b.signal&finishedFlag != 0 }

func (b *Block[T]) active() bool { return b.req != nil }
func (b *Block[T]) full() bool   { return len(b.elems) >= b.capacity }

func (b *Block[T]) clear() {
	b.elems = b.elems[:0]
	b.req = nil
	b.signal = 0
}

// doublesPer is the number of float64 values per element.
func doublesPer[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero)) / 8
}

// floatView reinterprets the first n elements of s as a flat []float64.
func floatView[T any](s []T, n int) []float64 {
	per := doublesPer[T]()
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&s[0])), n*per)
}

// commState tracks a channel's progress through one step.
type commState int

const (
	stateNone commState = iota
	stateInitial
	stateFinished
)

// Options configures a channel.
type Options struct {
	// BlockSize is the element capacity of each block; NumBlocks is the
	// initial ring size.
	BlockSize, NumBlocks int
	// InsertOnFull inserts a fresh block instead of waiting when the next
	// ring slot is still sending. The canonical policy is to wait.
	InsertOnFull bool
	// SignalElement appends a header element to every block carrying the
	// end-of-stream flag and message ID, instead of signalling the final
	// block by its short length alone.
	SignalElement bool
}

// BlockCommunicator is one directed channel. A channel is either the send
// or the receive half of a pairing; the same type serves both roles.
type BlockCommunicator[T any] struct {
	conn   Connection
	tr     transport.Transport
	opts   Options
	blocks []*Block[T]
	curr   int

	nextListID, nextCommID int
	state                  commState
}

// New creates a channel over conn with the given options.
func New[T any](
	conn Connection, tr transport.Transport, opts Options,
) (*BlockCommunicator[T], error) {
	if opts.BlockSize <= 0 || opts.NumBlocks <= 0 {
		return nil, fmt.Errorf("A channel needs a positive block size and "+
			"block count, but was given (%d, %d).",
			opts.BlockSize, opts.NumBlocks)
	}
	if doublesPer[T]()*8 != int(unsafe.Sizeof(*new(T))) ||
		doublesPer[T]() < 2 {
		return nil, fmt.Errorf("The channel element type must be a struct "+
			"of at least two float64 fields.")
	}

	bc := &BlockCommunicator[T]{conn: conn, tr: tr, opts: opts,
		state: stateInitial}
	for i := 0; i < opts.NumBlocks; i++ {
		bc.blocks = append(bc.blocks, newBlock[T](opts.BlockSize, i))
		bc.nextListID++
	}
	return bc, nil
}

// Connection returns the channel's envelope.
func (bc *BlockCommunicator[T]) Connection() Connection { return bc.conn }

func (bc *BlockCommunicator[T]) currBlock() *Block[T] {
	return bc.blocks[bc.curr]
}

func (bc *BlockCommunicator[T]) advance() {
	bc.curr = (bc.curr + 1) % len(bc.blocks)
}

// insertBlock places a fresh block immediately before the current one and
// returns it. The ring order of the existing blocks is preserved.
func (bc *BlockCommunicator[T]) insertBlock() *Block[T] {
	nb := newBlock[T](bc.opts.BlockSize, bc.nextListID)
	bc.nextListID++

	bc.blocks = append(bc.blocks, nil)
	copy(bc.blocks[bc.curr+1:], bc.blocks[bc.curr:])
	bc.blocks[bc.curr] = nb
	return nb
}

// Send appends one element to the channel. It returns true iff a network
// send was initiated during the call, which the caller may use as a hint
// to poll its receive channels.
func (bc *BlockCommunicator[T]) Send(in T) (bool, error) {
	bc.currBlock().elems = append(bc.currBlock().elems, in)
	if bc.currBlock().full() {
		return true, bc.sendCurrBlock()
	}
	return false, nil
}

// SendComplete flushes the remaining elements of the current block. It
// must be called exactly once per step and always produces a message,
// possibly empty, so the receiver can detect end-of-stream.
func (bc *BlockCommunicator[T]) SendComplete() error {
	b := bc.currBlock()
	if b.full() {
		return fmt.Errorf("Internal error: SendComplete on a full block; " +
			"Send should have flushed it.")
	}
	b.signal |= finishedFlag
	return bc.sendCurrBlock()
}

func (bc *BlockCommunicator[T]) sendCurrBlock() error {
	b := bc.currBlock()
	n := len(b.elems)
	if bc.opts.SignalElement {
		// Header element: (signal, commID) as doubles, then padding.
		hdr := make([]T, 1)
		view := floatView(hdr, 1)
		view[0] = float64(b.signal)
		view[1] = float64(bc.nextCommID)
		b.elems = append(b.elems, hdr[0])
		n++
	}
	bc.nextCommID++

	req, err := bc.tr.Isend(bc.conn.Rank, bc.conn.Tag, floatView(b.elems, n))
	if err != nil { return err }
	b.req = req

	bc.advance()
	return bc.sendStart()
}

// sendStart makes sure the current block is free to fill: either by
// waiting out its previous send, or, under the insert-on-full policy, by
// inserting a fresh block in its place and flagging the receiver to grow
// its ring too.
func (bc *BlockCommunicator[T]) sendStart() error {
	b := bc.currBlock()
	if b.active() {
		done, _, err := b.req.Test()
		if err != nil { return err }
		if !done {
			if bc.opts.InsertOnFull {
				nb := bc.insertBlock()
				nb.signal |= insertFlag
				bc.state = stateInitial
				return nil
			}
			if _, err := b.req.Wait(); err != nil { return err }
		}
		b.req.Free()
	}
	b.clear()
	bc.state = stateInitial
	return nil
}

// PostRecvs posts a receive on every block of the ring and rewinds the
// channel to its first block.
func (bc *BlockCommunicator[T]) PostRecvs() error {
	for _, b := range bc.blocks {
		if b.active() {
			return fmt.Errorf("Internal error: receive posted on an " +
				"already-active block.")
		}
		if err := bc.recvBlock(b); err != nil { return err }
	}
	bc.curr = 0
	bc.state = stateInitial
	return nil
}

func (bc *BlockCommunicator[T]) recvBlock(b *Block[T]) error {
	b.signal = 0
	n := b.capacity
	if bc.opts.SignalElement { n++ }
	b.elems = b.elems[:0]
	b.elems = append(b.elems, make([]T, n)...)

	req, err := bc.tr.Irecv(bc.conn.Rank, bc.conn.Tag, floatView(b.elems, n))
	if err != nil { return err }
	b.req = req
	return nil
}

// TestRecv reports whether the current block has arrived.
func (bc *BlockCommunicator[T]) TestRecv() (bool, error) {
	done, _, err := bc.currBlock().req.Test()
	return done, err
}

// FetchReceived waits for the current block, shrinks it to the element
// count actually received, and returns it. The caller must process the
// block and then call ReleaseReceived. A short block (or a flagged header
// element) marks the channel FINISHED.
func (bc *BlockCommunicator[T]) FetchReceived() (*Block[T], error) {
	b := bc.currBlock()
	count, err := b.req.Wait()
	if err != nil { return nil, err }
	b.req.Free()
	b.req = nil

	per := doublesPer[T]()
	if count%per != 0 {
		return nil, fmt.Errorf("A %d-value message arrived on a channel "+
			"whose elements are %d values long.", count, per)
	}
	n := count / per

	if bc.opts.SignalElement {
		n--
		if n < 0 {
			return nil, fmt.Errorf("An empty message arrived on a channel " +
				"that expects a header element in every block.")
		}
		view := floatView(b.elems, n+1)
		b.signal = int(view[n*per])
		if b.signal&insertFlag != 0 {
			// grow the ring as the sender asked; the fetched block slides
			// one slot up and stays current
			nb := bc.insertBlock()
			bc.curr++
			if err := bc.recvBlock(nb); err != nil { return nil, err }
		}
	} else if n < b.capacity {
		b.signal |= finishedFlag
	}

	b.elems = b.elems[:n]
	if b.Finished() { bc.state = stateFinished }
	return b, nil
}

// ReleaseReceived reposts a receive on the block handed out by
// FetchReceived and advances to the next block of the ring.
func (bc *BlockCommunicator[T]) ReleaseReceived() error {
	if err := bc.recvBlock(bc.currBlock()); err != nil { return err }
	bc.advance()
	return nil
}

// Finished reports whether the channel's stream ended this step.
func (bc *BlockCommunicator[T]) Finished() bool {
	return bc.state == stateFinished
}

// CancelRecvs cancels and frees every pending receive. It is called on
// teardown.
func (bc *BlockCommunicator[T]) CancelRecvs() {
	for _, b := range bc.blocks {
		if b.active() {
			b.req.Cancel()
			b.req.Free()
			b.req = nil
		}
	}
}
