package sim

import (
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"westiny/metrics"
	"westiny/world"
)

type fakeSystem struct {
	name   string
	access Access
	run    func(*Context)
}

func (f *fakeSystem) Name() string   { return f.name }
func (f *fakeSystem) Access() Access { return f.access }
func (f *fakeSystem) Run(ctx *Context) {
	if f.run != nil {
		f.run(ctx)
	}
}

func batchNames(s *Scheduler) [][]string {
	var out [][]string
	for _, batch := range s.Batches() {
		var names []string
		for _, sys := range batch {
			names = append(names, sys.Name())
		}
		out = append(out, names)
	}
	return out
}

func TestCompileGroupsIndependentSystems(t *testing.T) {
	s := NewScheduler(nil)
	s.Add(
		&fakeSystem{name: "a", access: Access{Writes: KindTransform}},
		&fakeSystem{name: "b", access: Access{Reads: KindInput, Writes: KindVelocity}},
		&fakeSystem{name: "c", access: Access{Reads: KindTransform}},
		&fakeSystem{name: "d", access: Access{Writes: KindInput}},
	)
	want := [][]string{{"a", "b"}, {"c", "d"}}
	if diff := cmp.Diff(want, batchNames(s)); diff != "" {
		t.Fatalf(`batches mismatch (-want +got):\n%s`, diff)
	}
}

func TestCompileNeverOvertakes(t *testing.T) {
	s := NewScheduler(nil)
	s.Add(
		&fakeSystem{name: "x", access: Access{Writes: KindTransform}},
		&fakeSystem{name: "y", access: Access{Reads: KindTransform, Writes: KindHealth}},
		&fakeSystem{name: "z", access: Access{Reads: KindHealth}},
	)
	want := [][]string{{"x"}, {"y"}, {"z"}}
	if diff := cmp.Diff(want, batchNames(s)); diff != "" {
		t.Fatalf(`batches mismatch (-want +got):\n%s`, diff)
	}
}

func TestPipelineBatches(t *testing.T) {
	h := newHarness(t, testConfig(), openMap)
	want := [][]string{
		{"introduction"},
		{"commands"},
		{"movement"},
		{"physics"},
		{"shooter"},
		{"collision"},
		{"health"},
		{"respawn", "lifespan"},
		{"state-broadcaster"},
		{"delete-broadcaster"},
	}
	if diff := cmp.Diff(want, batchNames(h.sim.Scheduler())); diff != "" {
		t.Fatalf(`pipeline batches mismatch (-want +got):\n%s`, diff)
	}
}

func TestRunRecoversPanic(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s := NewScheduler(m)
	var ran atomic.Int32
	s.Add(
		&fakeSystem{name: "boom", access: Access{Writes: KindTransform}, run: func(*Context) { panic("boom") }},
		&fakeSystem{name: "after", access: Access{Reads: KindTransform}, run: func(*Context) { ran.Add(1) }},
	)
	err := s.Run(&Context{Tick: 1, Store: world.NewStore(0)})
	if err == nil {
		t.Fatalf(`Run() err = nil, want the recovered panic`)
	}
	if ran.Load() != 1 {
		t.Fatalf(`system after the panic ran %d times, want 1`, ran.Load())
	}
	if n := testutil.ToFloat64(m.SystemPanics.WithLabelValues("boom")); n != 1 {
		t.Fatalf(`panics = %v, want 1`, n)
	}
}

func TestAccessConflicts(t *testing.T) {
	cases := []struct {
		a, b Access
		want bool
	}{
		{a: Access{Reads: KindTransform}, b: Access{Reads: KindTransform}, want: false},
		{a: Access{Writes: KindTransform}, b: Access{Reads: KindTransform}, want: true},
		{a: Access{Reads: KindTransform}, b: Access{Writes: KindTransform}, want: true},
		{a: Access{Writes: KindVelocity}, b: Access{Writes: KindVelocity}, want: true},
		{a: Access{Writes: KindVelocity}, b: Access{Writes: KindHealth}, want: false},
	}
	for _, c := range cases {
		if got := c.a.conflicts(c.b); got != c.want {
			t.Errorf(`%+v conflicts %+v = %v, want %v`, c.a, c.b, got, c.want)
		}
	}
}
