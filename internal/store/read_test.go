package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/parkerwray/PDielec/internal/query"
)

func TestGetCalculation_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	want := testCalculation()
	hash, err := s.WriteCalculation(ctx, want)
	if err != nil {
		t.Fatalf("WriteCalculation() failed: %v", err)
	}
	want.Hash = hash

	got, err := s.GetCalculation(ctx, hash)
	if err != nil {
		t.Fatalf("GetCalculation() failed: %v", err)
	}

	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}

	// Compare the rest with timestamps zeroed; time.Time doesn't
	// DeepEqual across a parse round-trip.
	got.CreatedAt = time.Time{}
	rest := *want
	rest.CreatedAt = time.Time{}
	if !reflect.DeepEqual(got, rest) {
		t.Errorf("GetCalculation() = %+v, want %+v", got, rest)
	}
}

func TestGetCalculation_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetCalculation(context.Background(), "no-such-hash")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListCalculations_Empty(t *testing.T) {
	s := createTestStore(t)

	calcs, err := s.ListCalculations(context.Background())
	if err != nil {
		t.Fatalf("ListCalculations() failed: %v", err)
	}
	if calcs == nil {
		t.Error("ListCalculations() returned nil, want empty slice")
	}
	if len(calcs) != 0 {
		t.Errorf("ListCalculations() returned %d entries, want 0", len(calcs))
	}
}

func TestListCalculations_OrderedByCreation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	// Insert out of chronological order, with distinct content
	for _, tc := range []struct {
		natom   int
		created time.Time
	}{
		{natom: 4, created: base.Add(2 * time.Hour)},
		{natom: 2, created: base},
		{natom: 3, created: base.Add(time.Hour)},
	} {
		c := testCalculation()
		c.NAtom = tc.natom
		c.CreatedAt = tc.created
		if _, err := s.WriteCalculation(ctx, c); err != nil {
			t.Fatalf("WriteCalculation(natom=%d) failed: %v", tc.natom, err)
		}
	}

	calcs, err := s.ListCalculations(ctx)
	if err != nil {
		t.Fatalf("ListCalculations() failed: %v", err)
	}
	if len(calcs) != 3 {
		t.Fatalf("ListCalculations() returned %d entries, want 3", len(calcs))
	}

	wantOrder := []int{2, 3, 4}
	for i, c := range calcs {
		if c.NAtom != wantOrder[i] {
			t.Errorf("calcs[%d].NAtom = %d, want %d", i, c.NAtom, wantOrder[i])
		}
	}
}

func TestListCalculations_TiesBreakOnHash(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Two distinct calculations archived at the same instant
	for _, natom := range []int{2, 3} {
		c := testCalculation()
		c.NAtom = natom
		if _, err := s.WriteCalculation(ctx, c); err != nil {
			t.Fatalf("WriteCalculation(natom=%d) failed: %v", natom, err)
		}
	}

	calcs, err := s.ListCalculations(ctx)
	if err != nil {
		t.Fatalf("ListCalculations() failed: %v", err)
	}
	if len(calcs) != 2 {
		t.Fatalf("ListCalculations() returned %d entries, want 2", len(calcs))
	}
	if calcs[0].Hash >= calcs[1].Hash {
		t.Errorf("ties not ordered by hash: %q before %q", calcs[0].Hash, calcs[1].Hash)
	}
}

func TestGetModes_Ordered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Modes deliberately out of index order
	c := testCalculation()
	c.Modes = []Mode{
		{Index: 5, Frequency: 620, Intensity: 0.85, Sigma: 5},
		{Index: 3, Frequency: 351.5, Intensity: 2.35, Sigma: 5},
	}
	c.Strengths = nil
	hash, err := s.WriteCalculation(ctx, c)
	if err != nil {
		t.Fatalf("WriteCalculation() failed: %v", err)
	}

	modes, err := s.GetModes(ctx, hash)
	if err != nil {
		t.Fatalf("GetModes() failed: %v", err)
	}
	if len(modes) != 2 {
		t.Fatalf("GetModes() returned %d modes, want 2", len(modes))
	}
	if modes[0].Index != 3 || modes[1].Index != 5 {
		t.Errorf("modes out of index order: got %d, %d", modes[0].Index, modes[1].Index)
	}
	if modes[0].Frequency != 351.5 {
		t.Errorf("modes[0].Frequency = %v, want 351.5", modes[0].Frequency)
	}
}

func TestGetModes_MissingCalculation(t *testing.T) {
	s := createTestStore(t)

	modes, err := s.GetModes(context.Background(), "no-such-hash")
	if err != nil {
		t.Fatalf("GetModes() failed: %v", err)
	}
	if modes == nil {
		t.Error("GetModes() returned nil, want empty slice")
	}
	if len(modes) != 0 {
		t.Errorf("GetModes() returned %d modes, want 0", len(modes))
	}
}

func TestGetRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c := testCalculation()
	hash, err := s.WriteCalculation(ctx, c)
	if err != nil {
		t.Fatalf("WriteCalculation() failed: %v", err)
	}

	want := testRun("run1", hash, c.CreatedAt.Add(time.Hour))
	if err := s.WriteRun(ctx, want, nil); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	got, err := s.GetRun(ctx, "run1")
	if err != nil {
		t.Fatalf("GetRun() failed: %v", err)
	}

	if got.ID != want.ID || got.CalcHash != want.CalcHash {
		t.Errorf("GetRun() = (%q, %q), want (%q, %q)", got.ID, got.CalcHash, want.ID, want.CalcHash)
	}
	if !bytes.Equal(got.Scenario, want.Scenario) {
		t.Errorf("Scenario = %s, want %s", got.Scenario, want.Scenario)
	}
	if got.Method != want.Method || got.Shape != want.Shape {
		t.Errorf("(method, shape) = (%q, %q), want (%q, %q)", got.Method, got.Shape, want.Method, want.Shape)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetRun(context.Background(), "no-such-run")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListRuns_ZeroFilterMatchesAll(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c := testCalculation()
	hash, err := s.WriteCalculation(ctx, c)
	if err != nil {
		t.Fatalf("WriteCalculation() failed: %v", err)
	}

	base := c.CreatedAt
	// Insert newest first to prove ordering comes from the query
	for _, run := range []Run{
		testRun("run3", hash, base.Add(2*time.Hour)),
		testRun("run1", hash, base),
		testRun("run2", hash, base.Add(time.Hour)),
	} {
		if err := s.WriteRun(ctx, run, nil); err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", run.ID, err)
		}
	}

	runs, err := s.ListRuns(ctx, query.Filter{})
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("ListRuns() returned %d runs, want 3", len(runs))
	}
	for i, wantID := range []string{"run1", "run2", "run3"} {
		if runs[i].ID != wantID {
			t.Errorf("runs[%d].ID = %q, want %q", i, runs[i].ID, wantID)
		}
	}
}

func TestListRuns_TiesBreakOnID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c := testCalculation()
	hash, err := s.WriteCalculation(ctx, c)
	if err != nil {
		t.Fatalf("WriteCalculation() failed: %v", err)
	}

	// Same timestamp, IDs inserted in reverse order
	for _, id := range []string{"run-b", "run-a"} {
		if err := s.WriteRun(ctx, testRun(id, hash, c.CreatedAt), nil); err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", id, err)
		}
	}

	runs, err := s.ListRuns(ctx, query.Filter{})
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns() returned %d runs, want 2", len(runs))
	}
	if runs[0].ID != "run-a" || runs[1].ID != "run-b" {
		t.Errorf("ties not ordered by ID: got %q, %q", runs[0].ID, runs[1].ID)
	}
}

func TestListRuns_FilterByMethod(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c := testCalculation()
	hash, err := s.WriteCalculation(ctx, c)
	if err != nil {
		t.Fatalf("WriteCalculation() failed: %v", err)
	}

	maxwell := testRun("run1", hash, c.CreatedAt)
	bruggeman := testRun("run2", hash, c.CreatedAt.Add(time.Hour))
	bruggeman.Method = "bruggeman"
	for _, run := range []Run{maxwell, bruggeman} {
		if err := s.WriteRun(ctx, run, nil); err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", run.ID, err)
		}
	}

	f, err := query.Parse("method = bruggeman")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	runs, err := s.ListRuns(ctx, f)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run2" {
		t.Errorf("ListRuns(method = bruggeman) = %+v, want just run2", runs)
	}
}

func TestListRuns_FilterOnCalculationColumns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	small := testCalculation()
	big := testCalculation()
	big.NAtom = 8

	smallHash, err := s.WriteCalculation(ctx, small)
	if err != nil {
		t.Fatalf("WriteCalculation(small) failed: %v", err)
	}
	bigHash, err := s.WriteCalculation(ctx, big)
	if err != nil {
		t.Fatalf("WriteCalculation(big) failed: %v", err)
	}

	if err := s.WriteRun(ctx, testRun("run-small", smallHash, small.CreatedAt), nil); err != nil {
		t.Fatalf("WriteRun(run-small) failed: %v", err)
	}
	if err := s.WriteRun(ctx, testRun("run-big", bigHash, big.CreatedAt), nil); err != nil {
		t.Fatalf("WriteRun(run-big) failed: %v", err)
	}

	// natom lives on the joined calculations table
	f, err := query.Parse("natom >= 5")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	runs, err := s.ListRuns(ctx, f)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-big" {
		t.Errorf("ListRuns(natom >= 5) = %+v, want just run-big", runs)
	}
}

func TestListRuns_FilterByCreatedPrefix(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c := testCalculation()
	hash, err := s.WriteCalculation(ctx, c)
	if err != nil {
		t.Fatalf("WriteCalculation() failed: %v", err)
	}

	july := testRun("run-july", hash, time.Date(2026, 7, 3, 9, 0, 0, 0, time.UTC))
	august := testRun("run-august", hash, time.Date(2026, 8, 14, 9, 0, 0, 0, time.UTC))
	for _, run := range []Run{july, august} {
		if err := s.WriteRun(ctx, run, nil); err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", run.ID, err)
		}
	}

	f, err := query.Parse("created = 2026-08")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	runs, err := s.ListRuns(ctx, f)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-august" {
		t.Errorf("ListRuns(created = 2026-08) = %+v, want just run-august", runs)
	}
}

func TestListRuns_RejectsInvalidFilter(t *testing.T) {
	s := createTestStore(t)

	f, err := query.Parse("speed = fast")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if _, err := s.ListRuns(context.Background(), f); err == nil {
		t.Error("expected validation error for unknown field, got nil")
	}
}

func TestGetSpectrum_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c := testCalculation()
	hash, err := s.WriteCalculation(ctx, c)
	if err != nil {
		t.Fatalf("WriteCalculation() failed: %v", err)
	}

	want := testPoints()
	if err := s.WriteRun(ctx, testRun("run1", hash, c.CreatedAt), want); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	got, err := s.GetSpectrum(ctx, "run1")
	if err != nil {
		t.Fatalf("GetSpectrum() failed: %v", err)
	}

	// REAL columns hold IEEE doubles, so the round-trip is exact
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetSpectrum() = %+v, want %+v", got, want)
	}
}

func TestGetSpectrum_MissingRun(t *testing.T) {
	s := createTestStore(t)

	points, err := s.GetSpectrum(context.Background(), "no-such-run")
	if err != nil {
		t.Fatalf("GetSpectrum() failed: %v", err)
	}
	if points == nil {
		t.Error("GetSpectrum() returned nil, want empty slice")
	}
	if len(points) != 0 {
		t.Errorf("GetSpectrum() returned %d points, want 0", len(points))
	}
}
