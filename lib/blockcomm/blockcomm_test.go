package blockcomm

import (
	"testing"

	"github.com/phil-mansfield/gopic/lib/particles"
	"github.com/phil-mansfield/gopic/lib/transport"
)

func pcl(i int) particles.Particle {
	f := float64(i)
	return particles.Particle{U: f, V: f + 1, W: f + 2, Q: f + 3,
		X: f + 4, Y: f + 5, Z: f + 6, Tag: f}
}

// drain pulls every element out of a receive channel until it reports
// FINISHED.
func drain(
	t *testing.T, rc *BlockCommunicator[particles.Particle],
) []particles.Particle {
	out := []particles.Particle{}
	finished := 0
	for !rc.Finished() {
		b, err := rc.FetchReceived()
		if err != nil {
			t.Fatalf("Expected FetchReceived to succeed, got: %s",
				err.Error())
		}
		out = append(out, b.Elems()...)
		if b.Finished() { finished++ }
		if err := rc.ReleaseReceived(); err != nil {
			t.Fatalf("Expected ReleaseReceived to succeed, got: %s",
				err.Error())
		}
	}
	if finished != 1 {
		t.Errorf("Expected exactly one FINISHED signal, got %d.", finished)
	}
	return out
}

// TestSelfLoopLossless pushes ten blocks' worth of particles through a
// null-neighbor channel and checks every element comes back identical
// and in order, with one end-of-stream signal.
func TestSelfLoopLossless(t *testing.T) {
	tr := transport.NewNetwork(1).Endpoint(0)
	conn := Null2Self(transport.ProcNull, ParticleUp, tr.Rank())
	opts := Options{BlockSize: 16, NumBlocks: 4}

	sc, err := New[particles.Particle](conn, tr, opts)
	if err != nil {
		t.Fatalf("Expected New to succeed, got: %s", err.Error())
	}
	rc, err := New[particles.Particle](conn, tr, opts)
	if err != nil {
		t.Fatalf("Expected New to succeed, got: %s", err.Error())
	}
	if err := rc.PostRecvs(); err != nil {
		t.Fatalf("Expected PostRecvs to succeed, got: %s", err.Error())
	}

	n := 10 * opts.BlockSize
	sent := 0
	for i := 0; i < n; i++ {
		flushed, err := sc.Send(pcl(i))
		if err != nil {
			t.Fatalf("Expected Send to succeed, got: %s", err.Error())
		}
		if flushed { sent++ }
	}
	if sent != 10 {
		t.Errorf("Expected 10 full-block flushes, got %d.", sent)
	}
	if err := sc.SendComplete(); err != nil {
		t.Fatalf("Expected SendComplete to succeed, got: %s", err.Error())
	}

	out := drain(t, rc)
	if len(out) != n {
		t.Fatalf("Expected %d particles back, got %d.", n, len(out))
	}
	for i := range out {
		if out[i] != pcl(i) {
			t.Errorf("Expected particle %d back in order, got %+v.",
				i, out[i])
			return
		}
	}
	rc.CancelRecvs()
}

// TestShortStream sends fewer elements than one block.
func TestShortStream(t *testing.T) {
	tr := transport.NewNetwork(1).Endpoint(0)
	conn := Null2Self(transport.ProcNull, ParticleDn, tr.Rank())
	opts := Options{BlockSize: 8, NumBlocks: 2}

	sc, _ := New[particles.Particle](conn, tr, opts)
	rc, _ := New[particles.Particle](conn, tr, opts)
	rc.PostRecvs()

	for i := 0; i < 3; i++ {
		if _, err := sc.Send(pcl(i)); err != nil {
			t.Fatalf("Expected Send to succeed, got: %s", err.Error())
		}
	}
	sc.SendComplete()

	out := drain(t, rc)
	if len(out) != 3 {
		t.Fatalf("Expected 3 particles, got %d.", len(out))
	}
	rc.CancelRecvs()
}

// TestEmptyStream checks that SendComplete alone still produces the
// end-of-stream message.
func TestEmptyStream(t *testing.T) {
	tr := transport.NewNetwork(1).Endpoint(0)
	conn := Null2Self(transport.ProcNull, ParticleUp, tr.Rank())
	opts := Options{BlockSize: 8, NumBlocks: 2}

	sc, _ := New[particles.Particle](conn, tr, opts)
	rc, _ := New[particles.Particle](conn, tr, opts)
	rc.PostRecvs()

	if err := sc.SendComplete(); err != nil {
		t.Fatalf("Expected SendComplete to succeed, got: %s", err.Error())
	}
	out := drain(t, rc)
	if len(out) != 0 {
		t.Errorf("Expected an empty stream, got %d particles.", len(out))
	}
	rc.CancelRecvs()
}

// TestExactBlockMultiple exercises the case where the stream length is an
// exact multiple of the block size, so the final message is empty.
func TestExactBlockMultiple(t *testing.T) {
	tr := transport.NewNetwork(1).Endpoint(0)
	conn := Null2Self(transport.ProcNull, ParticleUp, tr.Rank())
	opts := Options{BlockSize: 4, NumBlocks: 3}

	sc, _ := New[particles.Particle](conn, tr, opts)
	rc, _ := New[particles.Particle](conn, tr, opts)
	rc.PostRecvs()

	for i := 0; i < 8; i++ {
		sc.Send(pcl(i))
	}
	sc.SendComplete()

	out := drain(t, rc)
	if len(out) != 8 {
		t.Fatalf("Expected 8 particles, got %d.", len(out))
	}
	rc.CancelRecvs()
}

// TestSignalElement runs the piggy-backed header variant, where the final
// block is flagged explicitly rather than by a short length.
func TestSignalElement(t *testing.T) {
	tr := transport.NewNetwork(1).Endpoint(0)
	conn := Null2Self(transport.ProcNull, ParticleUp, tr.Rank())
	opts := Options{BlockSize: 4, NumBlocks: 3, SignalElement: true}

	sc, _ := New[particles.Particle](conn, tr, opts)
	rc, _ := New[particles.Particle](conn, tr, opts)
	rc.PostRecvs()

	for i := 0; i < 10; i++ {
		sc.Send(pcl(i))
	}
	sc.SendComplete()

	out := drain(t, rc)
	if len(out) != 10 {
		t.Fatalf("Expected 10 particles, got %d.", len(out))
	}
	for i := range out {
		if out[i] != pcl(i) {
			t.Errorf("Expected particle %d in order, got %+v.", i, out[i])
			return
		}
	}
	rc.CancelRecvs()
}

// TestTwoRankChannels runs a directed channel between two ranks in both
// directions at once.
func TestTwoRankChannels(t *testing.T) {
	net := transport.NewNetwork(2)
	opts := Options{BlockSize: 8, NumBlocks: 2}

	// Both directions share the ParticleUp tag; the (source, destination)
	// halves of the envelope keep the two streams apart.
	type rank struct {
		send, recv *BlockCommunicator[particles.Particle]
	}
	ranks := [2]rank{}
	for r := 0; r < 2; r++ {
		tr := net.Endpoint(r)
		conn := NewConnection(1-r, ParticleUp)
		send, err := New[particles.Particle](conn, tr, opts)
		if err != nil {
			t.Fatalf("Expected New to succeed, got: %s", err.Error())
		}
		recv, err := New[particles.Particle](conn, tr, opts)
		if err != nil {
			t.Fatalf("Expected New to succeed, got: %s", err.Error())
		}
		if err := recv.PostRecvs(); err != nil {
			t.Fatalf("Expected PostRecvs to succeed, got: %s", err.Error())
		}
		ranks[r] = rank{send, recv}
	}

	for r := 0; r < 2; r++ {
		for i := 0; i < 20; i++ {
			ranks[r].send.Send(pcl(100*r + i))
		}
		ranks[r].send.SendComplete()
	}

	for r := 0; r < 2; r++ {
		out := drain(t, ranks[r].recv)
		if len(out) != 20 {
			t.Fatalf("Expected rank %d to receive 20 particles, got %d.",
				r, len(out))
		}
		for i := range out {
			if out[i] != pcl(100*(1-r)+i) {
				t.Errorf("Rank %d expected particle %d in order, got %+v.",
					r, i, out[i])
				return
			}
		}
	}
}
