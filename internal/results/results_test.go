package results

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/san-kum/spinsim/internal/spectrum"
	"github.com/san-kum/spinsim/internal/vecmath"
)

func record(i int) *Record {
	return &Record{
		Index:      i,
		Value:      float64(i) * 10,
		Layers:     []vecmath.Vec3{vecmath.New(0, 0, 1)},
		PIMM:       spectrum.Spectrum{Freqs: []float64{1e9}, Amplitude: []float64{float64(i)}},
		Diode:      []spectrum.Diode{{Freq: 1e9, DC: float64(i)}},
		Trajectory: [][]vecmath.Vec3{{vecmath.New(1, 0, 0)}},
	}
}

func TestRecord_CloneIsDeep(t *testing.T) {
	r := record(1)
	c := r.Clone()
	c.Layers[0] = vecmath.New(1, 1, 1)
	c.PIMM.Amplitude[0] = 99
	c.Diode[0].DC = 99
	c.Trajectory[0][0] = vecmath.Vec3{}

	if r.Layers[0] != vecmath.New(0, 0, 1) || r.PIMM.Amplitude[0] != 1 || r.Diode[0].DC != 1 || r.Trajectory[0][0] != vecmath.New(1, 0, 0) {
		t.Errorf("clone shares memory with original: %+v", r)
	}
}

func TestSeries_Merge(t *testing.T) {
	s := NewSeries("job", "H", nil)
	for i := 0; i < 3; i++ {
		if err := s.Merge(record(i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Merge(record(5)); err == nil {
		t.Error("out-of-order merge should fail")
	}
	if s.Len() != 3 {
		t.Errorf("len = %d", s.Len())
	}
	if v := s.Values(); v[2] != 20 {
		t.Errorf("values = %v", v)
	}

	failed := record(3)
	failed.Failed = true
	s.Merge(failed)
	if s.Completed() != 3 {
		t.Errorf("completed = %d, want 3", s.Completed())
	}
}

func TestStatus_String(t *testing.T) {
	if StatusAllDone.String() != "ALL_DONE" || StatusKilled.String() != "KILLED" {
		t.Error("unexpected status names")
	}
	if Status(42).String() != "Status(42)" {
		t.Error("unknown status formatting")
	}
	if !StatusKilled.Terminal() || StatusDone.Terminal() {
		t.Error("Terminal misclassified")
	}
}

func TestUpdate_Terminal(t *testing.T) {
	tests := []struct {
		u    Update
		want bool
	}{
		{Update{Index: -1, Status: StatusAllDone}, true},
		{Update{Job: "a", Index: -1, Status: StatusKilled}, true},
		{Update{Job: "a", Index: -1, Status: StatusFailed, Err: "diverged"}, true},
		{Update{Job: "a", Index: 3, Status: StatusFailed}, false},
		{Update{Job: "a", Index: 3, Status: StatusPointFailed}, false},
		{Update{Job: "a", Index: 3, Status: StatusDone}, false},
	}
	for _, tt := range tests {
		if got := tt.u.Terminal(); got != tt.want {
			t.Errorf("%v index %d: Terminal() = %v, want %v", tt.u.Status, tt.u.Index, got, tt.want)
		}
	}
}

func TestRecord_JSONCarriesNaNResistance(t *testing.T) {
	r := record(4)
	r.Rx, r.Ry, r.Rz = math.NaN(), math.NaN(), math.NaN()
	r.Failed, r.Err = true, "diverged"

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal failed record: %v", err)
	}
	if !strings.Contains(string(data), `"rx":null`) {
		t.Errorf("NaN should encode as null: %s", data)
	}

	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(back.Rx) || !math.IsNaN(back.Ry) || !math.IsNaN(back.Rz) {
		t.Errorf("resistances = %g %g %g, want NaN", back.Rx, back.Ry, back.Rz)
	}
	if back.Index != 4 || !back.Failed || back.Err != "diverged" || back.Diode[0].DC != 4 {
		t.Errorf("record = %+v", back)
	}

	ok := record(5)
	ok.Rx = 101.5
	data, _ = json.Marshal(ok)
	back = Record{}
	if err := json.Unmarshal(data, &back); err != nil || back.Rx != 101.5 {
		t.Errorf("finite rx = %g, %v", back.Rx, err)
	}
}

func TestAggregator_Batches(t *testing.T) {
	q := NewQueue()
	agg := NewAggregator(NewSeries("job", "H", nil), 5, 2, q, nil)

	for i := 0; i < 5; i++ {
		if err := agg.Add(record(i)); err != nil {
			t.Fatal(err)
		}
	}
	agg.Finish(StatusDone, nil)

	updates := q.Drain()
	if len(updates) != 4 {
		t.Fatalf("expected 3 batches + DONE, got %d", len(updates))
	}
	sizes := []int{2, 2, 1}
	last := 0.0
	for i, u := range updates[:3] {
		if u.Status != StatusInProgress || len(u.Records) != sizes[i] {
			t.Errorf("update %d: %v with %d records", i, u.Status, len(u.Records))
		}
		if u.Progress < last {
			t.Errorf("progress went backwards: %g after %g", u.Progress, last)
		}
		last = u.Progress
	}
	if updates[3].Status != StatusDone || updates[3].Progress != 100 || updates[3].Index != 4 {
		t.Errorf("final update = %+v", updates[3])
	}
}

func TestAggregator_StreamedCopiesAreIndependent(t *testing.T) {
	q := NewQueue()
	agg := NewAggregator(NewSeries("job", "H", nil), 1, 1, q, nil)
	agg.Add(record(0))

	u := q.Drain()[0]
	u.Records[0].PIMM.Amplitude[0] = -1

	snap := agg.Snapshot()
	if snap.Records[0].PIMM.Amplitude[0] != 0 {
		t.Error("consumer mutation leaked into the series")
	}
	snap.Records[0].Value = -1
	if agg.Snapshot().Records[0].Value != 0 {
		t.Error("snapshot shares memory with the series")
	}
}

func TestAggregator_PointFailed(t *testing.T) {
	q := NewQueue()
	agg := NewAggregator(NewSeries("job", "H", nil), 2, 10, q, nil)
	r := record(0)
	r.Failed, r.Err = true, "diverged"
	agg.Add(r)

	updates := q.Drain()
	if len(updates) != 1 || updates[0].Status != StatusPointFailed || updates[0].Err != "diverged" {
		t.Fatalf("updates = %+v", updates)
	}
	agg.Flush()
	if u := q.Drain(); len(u) != 1 || len(u[0].Records) != 1 {
		t.Errorf("flush = %+v", u)
	}
}

func TestProgress(t *testing.T) {
	p := NewProgress(4)
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Advance()
		}()
	}
	wg.Wait()
	if p.Percent() != 100 {
		t.Errorf("percent = %g, want clamp at 100", p.Percent())
	}
	if NewProgress(0).Percent() != 100 {
		t.Error("empty run is complete")
	}
}

func TestQueue_NextAndClose(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	go func() {
		for i := 0; i < 3; i++ {
			q.Push(Update{Index: i})
			time.Sleep(time.Millisecond)
		}
		q.Close()
		q.Push(Update{Index: 99})
	}()

	var got []int
	for {
		u, err := q.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, u.Index)
	}
	if len(got) != 3 || got[0] != 0 || got[2] != 2 {
		t.Errorf("received %v", got)
	}
}

func TestQueue_NextHonoursContext(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := q.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline, got %v", err)
	}
}
