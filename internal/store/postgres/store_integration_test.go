package postgres

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"clinic/frontdesk-service/internal/models"
	"clinic/frontdesk-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

func TestCreateVisitConcurrentTokens(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	const workers = 12

	var wg sync.WaitGroup
	results := make(chan createResult, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			visit, _, err := st.CreateVisit(ctx, validVisitInput())
			results <- createResult{token: visit.TokenNumber, err: err}
		}()
	}
	wg.Wait()
	close(results)

	var sequences []int
	var prefix string
	for result := range results {
		if result.err != nil {
			t.Fatalf("create visit: %v", result.err)
		}
		datePart, seq := splitToken(t, result.token)
		if prefix == "" {
			prefix = datePart
		} else if prefix != datePart {
			t.Fatalf("mixed date prefixes: %q vs %q", prefix, datePart)
		}
		sequences = append(sequences, seq)
	}

	sort.Ints(sequences)
	for i, seq := range sequences {
		if seq != i+1 {
			t.Fatalf("expected dense sequence 1..%d, got %v", workers, sequences)
		}
	}
}

func TestCreateVisitOpensConsultationCharge(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	visit, charge, err := st.CreateVisit(ctx, validVisitInput())
	if err != nil {
		t.Fatalf("create visit: %v", err)
	}
	if charge.VisitID != visit.VisitID {
		t.Fatalf("charge belongs to %s, visit is %s", charge.VisitID, visit.VisitID)
	}
	if charge.Amount != 500 || charge.Status != models.ChargeStatusPending || charge.PaymentMethod != models.DefaultPaymentMethod {
		t.Fatalf("unexpected consultation charge: %+v", charge)
	}
	if charge.Description != models.DefaultChargeDescription {
		t.Fatalf("unexpected description: %q", charge.Description)
	}

	charges, err := st.ListCharges(ctx, visit.VisitID)
	if err != nil {
		t.Fatalf("list charges: %v", err)
	}
	if len(charges) != 1 || charges[0].ChargeID != charge.ChargeID {
		t.Fatalf("expected persisted consultation charge, got %+v", charges)
	}
	if charges[0].PaidAt != nil {
		t.Fatalf("new charge must not be stamped paid")
	}
}

func TestGetVisitAttachesHistory(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	visit, _, err := st.CreateVisit(ctx, validVisitInput())
	if err != nil {
		t.Fatalf("create visit: %v", err)
	}

	older := time.Now().UTC().Add(-48 * time.Hour)
	newer := time.Now().UTC()
	first, err := st.AddTreatment(ctx, store.AddTreatmentInput{
		VisitID: visit.VisitID, Medication: "Amoxicillin", Date: older,
	})
	if err != nil {
		t.Fatalf("add treatment: %v", err)
	}
	second, err := st.AddTreatment(ctx, store.AddTreatmentInput{
		VisitID: visit.VisitID, TestGiven: "CBC", TestResults: "normal", Date: newer,
	})
	if err != nil {
		t.Fatalf("add treatment: %v", err)
	}

	got, err := st.GetVisit(ctx, visit.VisitID)
	if err != nil {
		t.Fatalf("get visit: %v", err)
	}
	if len(got.Treatments) != 2 {
		t.Fatalf("expected 2 treatments, got %d", len(got.Treatments))
	}
	if got.Treatments[0].TreatmentID != second.TreatmentID || got.Treatments[1].TreatmentID != first.TreatmentID {
		t.Fatalf("expected newest-first ordering, got %+v", got.Treatments)
	}
	if len(got.Charges) != 1 {
		t.Fatalf("expected consultation charge attached, got %d", len(got.Charges))
	}
}

func TestDeleteVisitRemovesHistory(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	visit, _, err := st.CreateVisit(ctx, validVisitInput())
	if err != nil {
		t.Fatalf("create visit: %v", err)
	}
	if _, err := st.AddTreatment(ctx, store.AddTreatmentInput{VisitID: visit.VisitID, Medication: "Ibuprofen"}); err != nil {
		t.Fatalf("add treatment: %v", err)
	}
	if _, err := st.OpenCharge(ctx, store.OpenChargeInput{VisitID: visit.VisitID, Amount: 250, Description: "X-Ray"}); err != nil {
		t.Fatalf("open charge: %v", err)
	}

	if err := st.DeleteVisit(ctx, visit.VisitID); err != nil {
		t.Fatalf("delete visit: %v", err)
	}

	if _, err := st.GetVisit(ctx, visit.VisitID); err != store.ErrVisitNotFound {
		t.Fatalf("expected ErrVisitNotFound, got %v", err)
	}
	charges, err := st.ListCharges(ctx, visit.VisitID)
	if err != nil {
		t.Fatalf("list charges: %v", err)
	}
	if len(charges) != 0 {
		t.Fatalf("expected no orphaned charges, got %d", len(charges))
	}
	notes, err := st.ListTreatments(ctx, visit.VisitID)
	if err != nil {
		t.Fatalf("list treatments: %v", err)
	}
	if len(notes) != 0 {
		t.Fatalf("expected no orphaned treatments, got %d", len(notes))
	}

	if err := st.DeleteVisit(ctx, visit.VisitID); err != store.ErrVisitNotFound {
		t.Fatalf("expected ErrVisitNotFound on second delete, got %v", err)
	}
}

func TestAppointmentFlagFiltering(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	active, _, err := st.CreateVisit(ctx, validVisitInput())
	if err != nil {
		t.Fatalf("create visit: %v", err)
	}
	archived, _, err := st.CreateVisit(ctx, validVisitInput())
	if err != nil {
		t.Fatalf("create visit: %v", err)
	}

	if err := st.SetAppointmentFlag(ctx, archived.VisitID, false); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	recent := true
	visits, err := st.ListVisits(ctx, &recent)
	if err != nil {
		t.Fatalf("list visits: %v", err)
	}
	if len(visits) != 1 || visits[0].VisitID != active.VisitID {
		t.Fatalf("expected only the active visit, got %+v", visits)
	}

	recent = false
	visits, err = st.ListVisits(ctx, &recent)
	if err != nil {
		t.Fatalf("list visits: %v", err)
	}
	if len(visits) != 1 || visits[0].VisitID != archived.VisitID {
		t.Fatalf("expected only the archived visit, got %+v", visits)
	}

	visits, err = st.ListVisits(ctx, nil)
	if err != nil {
		t.Fatalf("list visits: %v", err)
	}
	if len(visits) != 2 {
		t.Fatalf("expected both visits without filter, got %d", len(visits))
	}

	if err := st.SetAppointmentFlag(ctx, uuid.NewString(), true); err != store.ErrVisitNotFound {
		t.Fatalf("expected ErrVisitNotFound for unknown visit, got %v", err)
	}
}

func TestUpdateChargePaidStampsPaidAt(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	_, charge, err := st.CreateVisit(ctx, validVisitInput())
	if err != nil {
		t.Fatalf("create visit: %v", err)
	}

	paid := models.ChargeStatusPaid
	method := "cash"
	updated, err := st.UpdateCharge(ctx, store.UpdateChargeInput{
		ChargeID:      charge.ChargeID,
		Status:        &paid,
		PaymentMethod: &method,
	})
	if err != nil {
		t.Fatalf("update charge: %v", err)
	}
	if updated.Status != models.ChargeStatusPaid || updated.PaymentMethod != "cash" {
		t.Fatalf("unexpected charge after update: %+v", updated)
	}
	if updated.PaidAt == nil {
		t.Fatalf("expected paid_at to be stamped")
	}

	missing := models.ChargeStatusPending
	if _, err := st.UpdateCharge(ctx, store.UpdateChargeInput{ChargeID: uuid.NewString(), Status: &missing}); err != store.ErrChargeNotFound {
		t.Fatalf("expected ErrChargeNotFound, got %v", err)
	}
}

func TestOpenChargeRequiresVisit(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	_, err := st.OpenCharge(ctx, store.OpenChargeInput{VisitID: uuid.NewString(), Amount: 100, Description: "ECG"})
	if err != store.ErrVisitNotFound {
		t.Fatalf("expected ErrVisitNotFound, got %v", err)
	}

	_, err = st.AddTreatment(ctx, store.AddTreatmentInput{VisitID: uuid.NewString(), Medication: "Aspirin"})
	if err != store.ErrVisitNotFound {
		t.Fatalf("expected ErrVisitNotFound, got %v", err)
	}
}

type createResult struct {
	token string
	err   error
}

func validVisitInput() store.CreateVisitInput {
	return store.CreateVisitInput{
		Name:        "A. Sharma",
		Description: "Fever and headache since yesterday",
		Gender:      models.GenderMale,
		Age:         34,
		PhoneNumber: "9876543210",
		Speciality:  "General Medicine",
		CreatedAt:   time.Now().UTC(),
	}
}

func splitToken(t *testing.T, tokenNumber string) (string, int) {
	t.Helper()
	parts := strings.SplitN(tokenNumber, "_", 2)
	if len(parts) != 2 {
		t.Fatalf("malformed token: %q", tokenNumber)
	}
	seq, err := strconv.Atoi(parts[1])
	if err != nil {
		t.Fatalf("malformed sequence in token %q: %v", tokenNumber, err)
	}
	return parts[0], seq
}

func setupTestStore(t *testing.T, ctx context.Context) (*Store, *pgxpool.Pool, func()) {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = os.Getenv("DB_DSN")
	}
	if dsn == "" {
		t.Skip("TEST_DB_DSN or DB_DSN is required for integration tests")
	}

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := createSchema(ctx, dsn, schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	pool, err := newPoolWithSchema(ctx, dsn, schema)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("apply migrations: %v", err)
	}

	st := NewStore(pool, Options{Logger: zerolog.Nop()})
	cleanup := func() {
		pool.Close()
		_ = dropSchema(context.Background(), dsn, schema)
	}
	return st, pool, cleanup
}

func createSchema(ctx context.Context, dsn, schema string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "CREATE SCHEMA "+schema)
	return err
}

func dropSchema(ctx context.Context, dsn, schema string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "DROP SCHEMA "+schema+" CASCADE")
	return err
}

func newPoolWithSchema(ctx context.Context, dsn, schema string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	return pgxpool.NewWithConfig(ctx, cfg)
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	dir := filepath.Join("..", "..", "..", "migrations")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(content)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(content)); err != nil {
			return err
		}
	}
	return nil
}
