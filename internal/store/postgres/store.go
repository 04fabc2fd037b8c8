package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"clinic/frontdesk-service/internal/models"
	"clinic/frontdesk-service/internal/store"
	"clinic/frontdesk-service/internal/token"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const uniqueViolation = "23505"

type Store struct {
	pool            *pgxpool.Pool
	logger          zerolog.Logger
	consultationFee float64
}

type Options struct {
	Logger          zerolog.Logger
	ConsultationFee float64
}

func NewStore(pool *pgxpool.Pool, options Options) *Store {
	fee := options.ConsultationFee
	if fee <= 0 {
		fee = 500
	}
	return &Store{
		pool:            pool,
		logger:          options.Logger,
		consultationFee: fee,
	}
}

// CreateVisit mints the next daily token and persists the visit together
// with its consultation charge in one transaction. The counter increment
// is a single atomic upsert, so concurrent registrations on the same day
// each observe a distinct sequence value.
func (s *Store) CreateVisit(ctx context.Context, input store.CreateVisitInput) (models.Visit, models.Charge, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Visit{}, models.Charge{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	appointmentDate := time.Date(createdAt.Year(), createdAt.Month(), createdAt.Day(), 0, 0, 0, 0, time.UTC)

	seq, err := nextDailySequence(ctx, tx, token.DayKey(appointmentDate))
	if err != nil {
		return models.Visit{}, models.Charge{}, err
	}
	tokenNumber := token.Format(appointmentDate, seq)

	visit := models.Visit{
		VisitID:           uuid.NewString(),
		Name:              input.Name,
		Description:       input.Description,
		Gender:            input.Gender,
		Age:               input.Age,
		Email:             input.Email,
		PhoneNumber:       input.PhoneNumber,
		Speciality:        input.Speciality,
		TokenNumber:       tokenNumber,
		AppointmentDate:   appointmentDate,
		RecentAppointment: true,
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO visits (
			visit_id, name, description, gender, age, email, phone_number, speciality,
			token_number, appointment_date, recent_appointment, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at
	`, visit.VisitID, visit.Name, visit.Description, visit.Gender, visit.Age, nullIfEmpty(visit.Email),
		visit.PhoneNumber, visit.Speciality, visit.TokenNumber, visit.AppointmentDate, visit.RecentAppointment, createdAt)
	if err = row.Scan(&visit.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// The allocator hands out each sequence exactly once, so a
			// duplicate token means the counter was tampered with or
			// reset. Surface it loudly instead of retrying.
			s.logger.Error().Str("token", tokenNumber).Msg("duplicate token for day, allocator anomaly")
			err = store.ErrTokenConflict
		}
		return models.Visit{}, models.Charge{}, err
	}

	charge := models.Charge{
		ChargeID:      uuid.NewString(),
		VisitID:       visit.VisitID,
		Amount:        s.consultationFee,
		Description:   models.DefaultChargeDescription,
		Status:        models.ChargeStatusPending,
		PaymentMethod: models.DefaultPaymentMethod,
	}
	row = tx.QueryRow(ctx, `
		INSERT INTO charges (charge_id, visit_id, amount, description, status, payment_method, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, charge.ChargeID, charge.VisitID, charge.Amount, charge.Description, charge.Status, charge.PaymentMethod, createdAt)
	if err = row.Scan(&charge.CreatedAt); err != nil {
		return models.Visit{}, models.Charge{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Visit{}, models.Charge{}, err
	}

	return visit, charge, nil
}

// GetVisit returns the visit with its treatment history and charges
// attached. Ownership composition is explicit query-by-visit-id; there
// are no schema-level joins or cascades.
func (s *Store) GetVisit(ctx context.Context, visitID string) (models.Visit, error) {
	visit, err := s.getVisitRow(ctx, visitID)
	if err != nil {
		return models.Visit{}, err
	}

	treatments, err := s.ListTreatments(ctx, visitID)
	if err != nil {
		return models.Visit{}, err
	}
	visit.Treatments = treatments

	charges, err := s.ListCharges(ctx, visitID)
	if err != nil {
		return models.Visit{}, err
	}
	visit.Charges = charges

	return visit, nil
}

func (s *Store) ListVisits(ctx context.Context, recentAppointment *bool) ([]models.Visit, error) {
	query := `
		SELECT visit_id, name, description, gender, age, email, phone_number, speciality,
			token_number, appointment_date, recent_appointment, created_at
		FROM visits
	`
	args := []interface{}{}
	if recentAppointment != nil {
		query += " WHERE recent_appointment = $1"
		args = append(args, *recentAppointment)
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []models.Visit
	for rows.Next() {
		visit, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, visit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return visits, nil
}

func (s *Store) SetAppointmentFlag(ctx context.Context, visitID string, recentAppointment bool) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE visits
		SET recent_appointment = $1
		WHERE visit_id = $2
	`, recentAppointment, visitID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrVisitNotFound
	}
	return nil
}

// DeleteVisit removes the visit and then its charges and treatments as
// separate best-effort steps. If a child delete fails after the primary
// row is gone the orphans are logged and the delete still succeeds.
func (s *Store) DeleteVisit(ctx context.Context, visitID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM visits WHERE visit_id = $1`, visitID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrVisitNotFound
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM charges WHERE visit_id = $1`, visitID); err != nil {
		s.logger.Warn().Err(err).Str("visit_id", visitID).Msg("cascade delete left orphaned charges")
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM treatments WHERE visit_id = $1`, visitID); err != nil {
		s.logger.Warn().Err(err).Str("visit_id", visitID).Msg("cascade delete left orphaned treatments")
	}
	return nil
}

func (s *Store) OpenCharge(ctx context.Context, input store.OpenChargeInput) (models.Charge, error) {
	if err := s.ensureVisitExists(ctx, input.VisitID); err != nil {
		return models.Charge{}, err
	}

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	status := input.Status
	if status == "" {
		status = models.ChargeStatusPending
	}
	method := input.PaymentMethod
	if method == "" {
		method = models.DefaultPaymentMethod
	}

	charge := models.Charge{
		ChargeID:      uuid.NewString(),
		VisitID:       input.VisitID,
		Amount:        input.Amount,
		Description:   input.Description,
		Status:        status,
		PaymentMethod: method,
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO charges (charge_id, visit_id, amount, description, status, payment_method, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, charge.ChargeID, charge.VisitID, charge.Amount, charge.Description, charge.Status, charge.PaymentMethod, createdAt)
	if err := row.Scan(&charge.CreatedAt); err != nil {
		return models.Charge{}, err
	}
	return charge, nil
}

func (s *Store) ListCharges(ctx context.Context, visitID string) ([]models.Charge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT charge_id, visit_id, amount, description, status, payment_method, paid_at, created_at
		FROM charges
		WHERE visit_id = $1
		ORDER BY created_at ASC
	`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var charges []models.Charge
	for rows.Next() {
		var charge models.Charge
		var paidAtNull sql.NullTime
		if err := rows.Scan(&charge.ChargeID, &charge.VisitID, &charge.Amount, &charge.Description,
			&charge.Status, &charge.PaymentMethod, &paidAtNull, &charge.CreatedAt); err != nil {
			return nil, err
		}
		charge.PaidAt = nullTimePtr(paidAtNull)
		charges = append(charges, charge)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return charges, nil
}

func (s *Store) UpdateCharge(ctx context.Context, input store.UpdateChargeInput) (models.Charge, error) {
	var sets []string
	args := []interface{}{}
	if input.Status != nil {
		args = append(args, *input.Status)
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
		if *input.Status == models.ChargeStatusPaid {
			sets = append(sets, "paid_at = NOW()")
		}
	}
	if input.PaymentMethod != nil {
		args = append(args, *input.PaymentMethod)
		sets = append(sets, fmt.Sprintf("payment_method = $%d", len(args)))
	}
	args = append(args, input.ChargeID)
	query := fmt.Sprintf(`
		UPDATE charges
		SET %s
		WHERE charge_id = $%d
		RETURNING charge_id, visit_id, amount, description, status, payment_method, paid_at, created_at
	`, strings.Join(sets, ", "), len(args))

	var charge models.Charge
	var paidAtNull sql.NullTime
	row := s.pool.QueryRow(ctx, query, args...)
	if err := row.Scan(&charge.ChargeID, &charge.VisitID, &charge.Amount, &charge.Description,
		&charge.Status, &charge.PaymentMethod, &paidAtNull, &charge.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Charge{}, store.ErrChargeNotFound
		}
		return models.Charge{}, err
	}
	charge.PaidAt = nullTimePtr(paidAtNull)
	return charge, nil
}

func (s *Store) AddTreatment(ctx context.Context, input store.AddTreatmentInput) (models.TreatmentNote, error) {
	if err := s.ensureVisitExists(ctx, input.VisitID); err != nil {
		return models.TreatmentNote{}, err
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	note := models.TreatmentNote{
		TreatmentID: uuid.NewString(),
		VisitID:     input.VisitID,
		TestGiven:   input.TestGiven,
		TestResults: input.TestResults,
		Medication:  input.Medication,
		Date:        date,
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO treatments (treatment_id, visit_id, test_given, test_results, medication, date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$6)
		RETURNING created_at
	`, note.TreatmentID, note.VisitID, note.TestGiven, note.TestResults, note.Medication, note.Date)
	if err := row.Scan(&note.CreatedAt); err != nil {
		return models.TreatmentNote{}, err
	}
	return note, nil
}

func (s *Store) ListTreatments(ctx context.Context, visitID string) ([]models.TreatmentNote, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT treatment_id, visit_id, test_given, test_results, medication, date, created_at
		FROM treatments
		WHERE visit_id = $1
		ORDER BY date DESC
	`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []models.TreatmentNote
	for rows.Next() {
		var note models.TreatmentNote
		if err := rows.Scan(&note.TreatmentID, &note.VisitID, &note.TestGiven, &note.TestResults,
			&note.Medication, &note.Date, &note.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}

func (s *Store) getVisitRow(ctx context.Context, visitID string) (models.Visit, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT visit_id, name, description, gender, age, email, phone_number, speciality,
			token_number, appointment_date, recent_appointment, created_at
		FROM visits
		WHERE visit_id = $1
	`, visitID)
	visit, err := scanVisit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Visit{}, store.ErrVisitNotFound
		}
		return models.Visit{}, err
	}
	return visit, nil
}

func (s *Store) ensureVisitExists(ctx context.Context, visitID string) error {
	var exists bool
	row := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM visits WHERE visit_id = $1)`, visitID)
	if err := row.Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return store.ErrVisitNotFound
	}
	return nil
}

// nextDailySequence atomically increments the counter for dayKey,
// creating it on first use so the first visit of a new day gets 1. The
// increment happens inside the single INSERT statement; there is no
// read-then-write window.
func nextDailySequence(ctx context.Context, tx pgx.Tx, dayKey string) (int64, error) {
	var next int64
	row := tx.QueryRow(ctx, `
		INSERT INTO daily_counters (day_key, sequence_value)
		VALUES ($1, 1)
		ON CONFLICT (day_key)
		DO UPDATE SET sequence_value = daily_counters.sequence_value + 1
		RETURNING sequence_value
	`, dayKey)
	if err := row.Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

func scanVisit(row pgx.Row) (models.Visit, error) {
	var visit models.Visit
	var emailNull sql.NullString
	if err := row.Scan(&visit.VisitID, &visit.Name, &visit.Description, &visit.Gender, &visit.Age,
		&emailNull, &visit.PhoneNumber, &visit.Speciality, &visit.TokenNumber,
		&visit.AppointmentDate, &visit.RecentAppointment, &visit.CreatedAt); err != nil {
		return models.Visit{}, err
	}
	if emailNull.Valid {
		visit.Email = emailNull.String
	}
	return visit, nil
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
