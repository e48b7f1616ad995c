package system

import (
	"testing"
	"time"
)

type probe struct {
	phase Phase
	mark  string
	log   *[]string
}

func (p *probe) Phase() Phase { return p.phase }
func (p *probe) Update(time.Duration) {
	*p.log = append(*p.log, p.mark)
}

func TestTickRunsPhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner()
	// Registered out of order on purpose.
	r.Register(&probe{PhaseOutput, "out", &log})
	r.Register(&probe{PhaseInput, "in", &log})
	r.Register(&probe{PhaseUpdate, "upd-a", &log})
	r.Register(&probe{PhaseUpdate, "upd-b", &log})
	r.Register(&probe{PhaseCleanup, "clean", &log})

	r.Tick(time.Millisecond)

	want := []string{"in", "upd-a", "upd-b", "out", "clean"}
	if len(log) != len(want) {
		t.Fatalf("ran %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("ran %v, want %v", log, want)
		}
	}
}

func TestTickPhaseRunsOnlyThatPhase(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&probe{PhaseInput, "in", &log})
	r.Register(&probe{PhaseUpdate, "upd", &log})

	r.TickPhase(PhaseInput, time.Millisecond)

	if len(log) != 1 || log[0] != "in" {
		t.Fatalf("ran %v, want just the input system", log)
	}
}
