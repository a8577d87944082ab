package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/polyrisk/polyrisk-api/entities"
	"github.com/polyrisk/polyrisk-api/logging"
)

func TestMain(m *testing.M) {
	logging.InitLogger("")
	m.Run()
}

func openTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(context.Background(), filepath.Join(t.TempDir(), "db", "polyrisk.db"), false)
	if err != nil {
		t.Fatalf("Failed to open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testPatient(name string, age, meds int) *entities.Patient {
	p := &entities.Patient{Name: name, Age: age, KidneyFunction: "normal", LiverFunction: "mild"}
	for i := 0; i < meds; i++ {
		p.Medications = append(p.Medications, entities.Medication{Name: "drug", Dose: "1mg"})
	}
	return p
}

func TestSaveAndGetPatient(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	p := testPatient("Alice", 72, 3)
	if err := repo.SavePatient(ctx, p); err != nil {
		t.Fatalf("SavePatient failed: %v", err)
	}
	if p.ID == "" || p.CreatedAt.IsZero() {
		t.Fatalf("Expected id and creation time to be assigned, got %+v", p)
	}

	got, err := repo.GetPatient(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPatient failed: %v", err)
	}
	if got.Name != "Alice" || got.Age != 72 || got.LiverFunction != "mild" {
		t.Errorf("Unexpected patient %+v", got)
	}
	if len(got.Medications) != 3 || got.Medications[0].Dose != "1mg" {
		t.Errorf("Expected medications to round-trip, got %+v", got.Medications)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	if _, err := repo.GetPatient(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetAnalysis(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSavePatientUpserts(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	p := testPatient("Bob", 65, 1)
	repo.SavePatient(ctx, p)

	p.Age = 66
	p.Medications = append(p.Medications, entities.Medication{Name: "second"})
	if err := repo.SavePatient(ctx, p); err != nil {
		t.Fatalf("SavePatient failed: %v", err)
	}

	patients, err := repo.ListPatients(ctx)
	if err != nil {
		t.Fatalf("ListPatients failed: %v", err)
	}
	if len(patients) != 1 {
		t.Fatalf("Expected 1 patient after upsert, got %d", len(patients))
	}
	if patients[0].Age != 66 || len(patients[0].Medications) != 2 {
		t.Errorf("Expected last write to win, got %+v", patients[0])
	}
}

func TestListPatientsInInsertionOrder(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		p := testPatient(name, 60+i, 1)
		p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		repo.SavePatient(ctx, p)
	}

	patients, _ := repo.ListPatients(ctx)
	if len(patients) != 3 {
		t.Fatalf("Expected 3 patients, got %d", len(patients))
	}
	for i, name := range []string{"first", "second", "third"} {
		if patients[i].Name != name {
			t.Errorf("Position %d: expected %s, got %s", i, name, patients[i].Name)
		}
	}
}

func TestAnalysesNewestFirst(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		a := &entities.Analysis{
			PatientID:   "p1",
			PatientName: "Alice",
			Age:         70,
			Breakdown:   entities.RiskBreakdown{Policy: "policy-a", Total: float64(i), Level: entities.RiskLow},
			Report:      entities.AIReport{Status: entities.ReportParsed, Content: []byte(`{"ok":true}`), Interactions: i},
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}
		if err := repo.SaveAnalysis(ctx, a); err != nil {
			t.Fatalf("SaveAnalysis failed: %v", err)
		}
	}

	analyses, err := repo.ListAnalyses(ctx, 2)
	if err != nil {
		t.Fatalf("ListAnalyses failed: %v", err)
	}
	if len(analyses) != 2 {
		t.Fatalf("Expected 2 analyses, got %d", len(analyses))
	}
	if analyses[0].Breakdown.Total != 2 || analyses[1].Breakdown.Total != 1 {
		t.Errorf("Expected newest first, got %v then %v", analyses[0].Breakdown.Total, analyses[1].Breakdown.Total)
	}
	if string(analyses[0].Report.Content) != `{"ok":true}` || analyses[0].Report.Interactions != 2 {
		t.Errorf("Expected report to round-trip, got %+v", analyses[0].Report)
	}

	got, err := repo.GetAnalysis(ctx, analyses[1].ID)
	if err != nil {
		t.Fatalf("GetAnalysis failed: %v", err)
	}
	if got.Breakdown.Policy != "policy-a" {
		t.Errorf("Expected policy-a, got %s", got.Breakdown.Policy)
	}
}

func TestStats(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	empty, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if empty.TotalPatients != 0 || empty.LastAnalysisAt != nil {
		t.Errorf("Expected empty stats, got %+v", empty)
	}

	repo.SavePatient(ctx, testPatient("a", 70, 5))
	repo.SavePatient(ctx, testPatient("b", 81, 2))
	repo.SavePatient(ctx, testPatient("c", 64, 7))
	when := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	repo.SaveAnalysis(ctx, &entities.Analysis{PatientID: "x", CreatedAt: when})

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalPatients != 3 {
		t.Errorf("Expected 3 patients, got %d", stats.TotalPatients)
	}
	if stats.PolypharmacyCases != 2 {
		t.Errorf("Expected 2 polypharmacy cases, got %d", stats.PolypharmacyCases)
	}
	if stats.AverageAge != 71.7 {
		t.Errorf("Expected average age 71.7, got %v", stats.AverageAge)
	}
	if stats.TotalAnalyses != 1 {
		t.Errorf("Expected 1 analysis, got %d", stats.TotalAnalyses)
	}
	if stats.LastAnalysisAt == nil || !stats.LastAnalysisAt.Equal(when) {
		t.Errorf("Expected last analysis at %v, got %v", when, stats.LastAnalysisAt)
	}
}

func TestClear(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	repo.SavePatient(ctx, testPatient("a", 70, 1))
	repo.SaveAnalysis(ctx, &entities.Analysis{PatientID: "a"})

	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	stats, _ := repo.Stats(ctx)
	if stats.TotalPatients != 0 || stats.TotalAnalyses != 0 {
		t.Errorf("Expected empty repository, got %+v", stats)
	}
}

func TestConcurrentWrites(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.SavePatient(ctx, testPatient("p", 60+i, i%6)); err != nil {
				t.Errorf("SavePatient failed: %v", err)
			}
		}()
	}
	wg.Wait()

	patients, _ := repo.ListPatients(ctx)
	if len(patients) != 20 {
		t.Errorf("Expected 20 patients, got %d", len(patients))
	}
}
