package store

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// Helper function to create an in-memory store for testing
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	if err := store.CreateSchema(); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return store
}

func sampleRecord() *RunRecord {
	return &RunRecord{
		Run: &Run{
			CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Source:      "/data/survey.csv",
			Respondents: 3,
			Dropped:     1,
			Questions:   []string{"Q1", "Q2"},
			MinClusters: 2,
			MaxClusters: 3,
			Selected:    2,
			Seed:        123,
		},
		Candidates: []*Candidate{
			{Clusters: 3, BIC: 812.5, LogLikelihood: -390.1, Params: 11, Iterations: 40, Converged: true, Duration: 12 * time.Millisecond},
			{Clusters: 2, BIC: 801.25, LogLikelihood: -392.7, Params: 7, Iterations: 25, Converged: true, Duration: 8 * time.Millisecond},
		},
		Components: []*Component{
			{Cluster: 0, Weight: 0.6, Size: 2},
			{Cluster: 1, Weight: 0.4, Size: 1},
		},
		Profiles: []*Profile{
			{Cluster: 0, Question: 0, Code: 1, Probability: 0.9},
			{Cluster: 0, Question: 0, Code: 2, Probability: 0.1},
			{Cluster: 1, Question: 0, Code: 1, Probability: 0.2},
			{Cluster: 1, Question: 0, Code: 2, Probability: 0.8},
		},
		Assignments: []*Assignment{
			{Serial: 30, Cluster: 1, Area: 3, Age: 1, Sex: 2, Answers: []int{2, 2}},
			{Serial: 10, Cluster: 0, Area: 1, Age: 2, Sex: 1, Answers: []int{1, 1}},
			{Serial: 20, Cluster: 0, Area: 2, Age: 3, Sex: 1, Answers: []int{1, 2}},
		},
	}
}

func TestNew(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer store.Close()

	if store.db == nil {
		t.Error("Store.db should not be nil")
	}
}

func TestCreateSchema(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	tables := []string{"runs", "candidates", "components", "profiles", "assignments"}
	for _, table := range tables {
		var name string
		err := store.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	indexes := []string{"idx_runs_created", "idx_assignments_cluster"}
	for _, index := range indexes {
		var name string
		err := store.db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", index).Scan(&name)
		if err != nil {
			t.Errorf("Index %s not found: %v", index, err)
		}
	}
}

func TestCreateSchema_Idempotent(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	if err := store.CreateSchema(); err != nil {
		t.Fatalf("second CreateSchema() failed: %v", err)
	}
}

// TestListRuns_NoSchema_ReturnsErrNotInitialized verifies that querying a
// fresh DB (no CreateSchema) reports ErrNotInitialized.
func TestListRuns_NoSchema_ReturnsErrNotInitialized(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	_, err = s.ListRuns()
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("ListRuns() error = %v; want ErrNotInitialized", err)
	}

	_, err = s.GetRun("abc")
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("GetRun() error = %v; want ErrNotInitialized", err)
	}
}

func TestErrNotInitialized_ErrorMessage(t *testing.T) {
	if !strings.Contains(ErrNotInitialized.Error(), "surveylca analyze") {
		t.Errorf("ErrNotInitialized message %q should mention 'surveylca analyze'", ErrNotInitialized.Error())
	}
}

func TestSaveAndGetRun(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	rec := sampleRecord()
	id, err := store.SaveRun(rec)
	if err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}
	if id == "" {
		t.Fatal("SaveRun() returned empty ID")
	}
	if rec.Run.ID != id {
		t.Errorf("Run.ID = %q, want %q", rec.Run.ID, id)
	}

	got, err := store.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun() failed: %v", err)
	}

	if got.Source != rec.Run.Source {
		t.Errorf("Source = %s, want %s", got.Source, rec.Run.Source)
	}
	if !got.CreatedAt.Equal(rec.Run.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, rec.Run.CreatedAt)
	}
	if got.Respondents != 3 || got.Dropped != 1 {
		t.Errorf("Respondents/Dropped = %d/%d, want 3/1", got.Respondents, got.Dropped)
	}
	if got.Selected != 2 || got.MinClusters != 2 || got.MaxClusters != 3 {
		t.Errorf("Selected/Min/Max = %d/%d/%d, want 2/2/3", got.Selected, got.MinClusters, got.MaxClusters)
	}
	if got.Seed != 123 {
		t.Errorf("Seed = %d, want 123", got.Seed)
	}
	if len(got.Questions) != 2 || got.Questions[1] != "Q2" {
		t.Errorf("Questions = %v, want [Q1 Q2]", got.Questions)
	}
}

func TestSaveRun_ChildRows(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	id, err := store.SaveRun(sampleRecord())
	if err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}

	candidates, err := store.ListCandidates(id)
	if err != nil {
		t.Fatalf("ListCandidates() failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}
	if candidates[0].Clusters != 2 || candidates[1].Clusters != 3 {
		t.Errorf("candidates not ordered by clusters: %d, %d", candidates[0].Clusters, candidates[1].Clusters)
	}
	if candidates[0].BIC != 801.25 || !candidates[0].Converged || candidates[0].Duration != 8*time.Millisecond {
		t.Errorf("candidate 2 = %+v", candidates[0])
	}

	components, err := store.ListComponents(id)
	if err != nil {
		t.Fatalf("ListComponents() failed: %v", err)
	}
	if len(components) != 2 || components[1].Weight != 0.4 || components[1].Size != 1 {
		t.Errorf("components = %+v", components)
	}

	profiles, err := store.ListProfiles(id)
	if err != nil {
		t.Fatalf("ListProfiles() failed: %v", err)
	}
	if len(profiles) != 4 {
		t.Fatalf("got %d profiles, want 4", len(profiles))
	}
	if profiles[3].Cluster != 1 || profiles[3].Code != 2 || profiles[3].Probability != 0.8 {
		t.Errorf("profiles[3] = %+v", profiles[3])
	}

	assignments, err := store.ListAssignments(id)
	if err != nil {
		t.Fatalf("ListAssignments() failed: %v", err)
	}
	if len(assignments) != 3 {
		t.Fatalf("got %d assignments, want 3", len(assignments))
	}
	wantSerials := []int{10, 20, 30}
	for i, a := range assignments {
		if a.Serial != wantSerials[i] {
			t.Errorf("assignments[%d].Serial = %d, want %d", i, a.Serial, wantSerials[i])
		}
	}
	if assignments[2].Cluster != 1 || assignments[2].Area != 3 || len(assignments[2].Answers) != 2 {
		t.Errorf("assignments[2] = %+v", assignments[2])
	}
}

func TestSaveRun_KeepsGivenID(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	rec := sampleRecord()
	rec.Run.ID = "fixed-id"
	id, err := store.SaveRun(rec)
	if err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}
	if id != "fixed-id" {
		t.Errorf("SaveRun() id = %q, want fixed-id", id)
	}

	// Saving the same ID twice violates the primary key and must roll back.
	if _, err := store.SaveRun(sampleRecordWithID("fixed-id")); err == nil {
		t.Error("SaveRun() with duplicate ID should fail")
	}
	candidates, err := store.ListCandidates("fixed-id")
	if err != nil {
		t.Fatalf("ListCandidates() failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Errorf("got %d candidates after failed save, want 2", len(candidates))
	}
}

func sampleRecordWithID(id string) *RunRecord {
	rec := sampleRecord()
	rec.Run.ID = id
	return rec
}

func TestSaveRun_NilRecord(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	if _, err := store.SaveRun(nil); err == nil {
		t.Error("SaveRun(nil) should fail")
	}
	if _, err := store.SaveRun(&RunRecord{}); err == nil {
		t.Error("SaveRun() without run should fail")
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	older := sampleRecord()
	older.Run.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := sampleRecord()
	newer.Run.CreatedAt = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	olderID, err := store.SaveRun(older)
	if err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}
	newerID, err := store.SaveRun(newer)
	if err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}

	runs, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != newerID || runs[1].ID != olderID {
		t.Errorf("runs order = [%s %s], want [%s %s]", runs[0].ID, runs[1].ID, newerID, olderID)
	}
}

func TestDeleteRun(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	id, err := store.SaveRun(sampleRecord())
	if err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}

	if err := store.DeleteRun(id); err != nil {
		t.Fatalf("DeleteRun() failed: %v", err)
	}

	if _, err := store.GetRun(id); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() after delete error = %v, want ErrRunNotFound", err)
	}

	assignments, err := store.ListAssignments(id)
	if err != nil {
		t.Fatalf("ListAssignments() failed: %v", err)
	}
	if len(assignments) != 0 {
		t.Errorf("got %d assignments after delete, want 0 (cascade)", len(assignments))
	}

	if err := store.DeleteRun(id); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("second DeleteRun() error = %v, want ErrRunNotFound", err)
	}
}
