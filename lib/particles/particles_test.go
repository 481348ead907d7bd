package particles

import (
	"testing"
	"unsafe"
)

func TestRecordSize(t *testing.T) {
	if s := unsafe.Sizeof(Particle{}); s != 64 {
		t.Errorf("Expected a 64-byte particle record, got %d bytes.", s)
	}
}

func TestAddGetBothLayouts(t *testing.T) {
	for _, layout := range []Layout{SoA, AoS} {
		sp := NewSpecies(layout)
		for i := 0; i < 10; i++ {
			f := float64(i)
			sp.Add(Particle{U: f, V: f + 1, W: f + 2, Q: f + 3,
				X: f + 4, Y: f + 5, Z: f + 6, Tag: f})
		}
		if sp.Len() != 10 {
			t.Fatalf("Layout %d: expected 10 particles, got %d.",
				layout, sp.Len())
		}
		for i := 0; i < 10; i++ {
			f := float64(i)
			want := Particle{U: f, V: f + 1, W: f + 2, Q: f + 3,
				X: f + 4, Y: f + 5, Z: f + 6, Tag: f}
			if sp.Get(i) != want {
				t.Fatalf("Layout %d: particle %d came back as %+v.",
					layout, i, sp.Get(i))
			}
		}
	}
}

func TestConvertPreservesOrder(t *testing.T) {
	sp := NewSpecies(SoA)
	for i := 0; i < 25; i++ {
		sp.Add(Particle{Q: float64(i), X: float64(i) * 0.01})
	}

	sp.Convert(AoS)
	if sp.Layout() != AoS {
		t.Fatalf("Expected an AoS species after Convert.")
	}
	for i := 0; i < 25; i++ {
		if sp.Get(i).Q != float64(i) {
			t.Fatalf("Expected particle %d in order after Convert, got "+
				"q = %g.", i, sp.Get(i).Q)
		}
	}

	sp.Convert(SoA)
	if sp.Layout() != SoA || sp.Len() != 25 {
		t.Fatalf("Expected a 25-particle SoA species after the round trip.")
	}
	if sp.Get(7).X != 0.07 {
		t.Errorf("Expected x = 0.07 for particle 7, got %g.", sp.Get(7).X)
	}
}

func TestLayoutAccessors(t *testing.T) {
	soa := NewSpecies(SoA)
	soa.Add(Particle{U: 1, Q: 2, X: 3})

	if _, err := soa.Records(); err == nil {
		t.Errorf("Expected Records to fail on an SoA species.")
	}
	u, _, _, q, x, _, _, err := soa.Arrays()
	if err != nil {
		t.Fatalf("Expected Arrays to succeed, got: %s", err.Error())
	}
	if u[0] != 1 || q[0] != 2 || x[0] != 3 {
		t.Errorf("Expected (u, q, x) = (1, 2, 3), got (%g, %g, %g).",
			u[0], q[0], x[0])
	}

	aos := NewSpecies(AoS)
	aos.Add(Particle{U: 1})
	if _, _, _, _, _, _, _, err := aos.Arrays(); err == nil {
		t.Errorf("Expected Arrays to fail on an AoS species.")
	}
	if _, err := aos.Records(); err != nil {
		t.Errorf("Expected Records to succeed on an AoS species, got: %s",
			err.Error())
	}
}
