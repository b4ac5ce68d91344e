package attendance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	cryptoutil "staffhub/internal/platform/crypto"
	"staffhub/internal/platform/db"
)

type Store struct {
	DB     db.Queryer
	sealer *cryptoutil.Sealer
}

func NewStore(q db.Queryer, sealer *cryptoutil.Sealer) *Store {
	return &Store{DB: q, sealer: sealer}
}

func (s *Store) q(ctx context.Context) db.Queryer {
	return db.QueryerFromContext(ctx, s.DB)
}

type rowScanner interface {
	Scan(dest ...any) error
}

const shiftColumns = `id, merchant_id, employee_id, shift_date, planned_start, planned_end, planned_break_minutes, status`

func (s *Store) GetShift(ctx context.Context, shiftID string) (Shift, error) {
	if !validID(shiftID) {
		return Shift{}, ErrShiftNotFound
	}
	row := s.q(ctx).QueryRow(ctx, `
    SELECT `+shiftColumns+`
    FROM shifts
    WHERE id = $1
  `, shiftID)
	shift, err := scanShift(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Shift{}, ErrShiftNotFound
	}
	return shift, err
}

func scanShift(row rowScanner) (Shift, error) {
	var (
		shift        Shift
		status       string
		plannedStart sql.NullTime
		plannedEnd   sql.NullTime
	)
	if err := row.Scan(&shift.ID, &shift.MerchantID, &shift.EmployeeID, &shift.Date, &plannedStart, &plannedEnd, &shift.PlannedBreakMinutes, &status); err != nil {
		return Shift{}, err
	}
	if plannedStart.Valid {
		shift.PlannedStart = plannedStart.Time
	}
	if plannedEnd.Valid {
		shift.PlannedEnd = plannedEnd.Time
	}
	shift.Status = ShiftStatus(status)
	return shift, nil
}

func (s *Store) UpdateShiftStatus(ctx context.Context, shiftID string, status ShiftStatus) error {
	tag, err := s.q(ctx).Exec(ctx, `
    UPDATE shifts SET status = $2, updated_at = now()
    WHERE id = $1
  `, shiftID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrShiftNotFound
	}
	return nil
}

func (s *Store) GetMerchant(ctx context.Context, merchantID string) (Merchant, error) {
	if !validID(merchantID) {
		return Merchant{}, ErrMerchantNotFound
	}
	var (
		m           Merchant
		lat, lon    sql.NullFloat64
		tolerance   sql.NullInt32
		autoApprove sql.NullInt32
	)
	err := s.q(ctx).QueryRow(ctx, `
    SELECT id, name, latitude, longitude, geofence_radius_meters, timezone, tolerance_minutes, auto_approve_tolerance_minutes
    FROM merchants
    WHERE id = $1
  `, merchantID).Scan(&m.ID, &m.Name, &lat, &lon, &m.GeofenceRadiusMeters, &m.Timezone, &tolerance, &autoApprove)
	if errors.Is(err, pgx.ErrNoRows) {
		return Merchant{}, ErrMerchantNotFound
	}
	if err != nil {
		return Merchant{}, err
	}
	if lat.Valid && lon.Valid {
		m.Location = &GeoPoint{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	if tolerance.Valid {
		v := int(tolerance.Int32)
		m.ToleranceMinutes = &v
	}
	if autoApprove.Valid {
		v := int(autoApprove.Int32)
		m.AutoApproveToleranceMinutes = &v
	}
	return m, nil
}

func (s *Store) ListMerchantIDs(ctx context.Context) ([]string, error) {
	rows, err := s.q(ctx).Query(ctx, `SELECT id FROM merchants ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (Employee, error) {
	if !validID(employeeID) {
		return Employee{}, ErrEmployeeNotFound
	}
	var (
		e        Employee
		maxHours sql.NullFloat64
	)
	err := s.q(ctx).QueryRow(ctx, `
    SELECT id, merchant_id, COALESCE(user_id, ''), max_weekly_hours
    FROM employees
    WHERE id = $1
  `, employeeID).Scan(&e.ID, &e.MerchantID, &e.UserID, &maxHours)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeNotFound
	}
	if err != nil {
		return Employee{}, err
	}
	if maxHours.Valid {
		e.MaxWeeklyHours = &maxHours.Float64
	}
	return e, nil
}

func (s *Store) InsertClockEvent(ctx context.Context, event ClockEvent) (string, error) {
	sealed, err := s.sealLocation(event.ShiftID, event.Kind, event.Location)
	if err != nil {
		return "", err
	}
	var id string
	err = s.q(ctx).QueryRow(ctx, `
    INSERT INTO clock_events (shift_id, kind, occurred_at, location_ciphertext, created_at)
    VALUES ($1,$2,$3,$4,$5)
    ON CONFLICT (shift_id, kind) DO NOTHING
    RETURNING id
  `, event.ShiftID, string(event.Kind), event.OccurredAt, sealed, event.CreatedAt).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		if event.Kind == KindCheckOut {
			return "", ErrAlreadyCheckedOut
		}
		return "", ErrAlreadyCheckedIn
	}
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return "", ErrShiftNotFound
		}
		return "", err
	}
	return id, nil
}

func (s *Store) GetClockEvent(ctx context.Context, shiftID string, kind ClockEventKind) (ClockEvent, error) {
	var (
		event  ClockEvent
		k      string
		sealed []byte
	)
	err := s.q(ctx).QueryRow(ctx, `
    SELECT id, shift_id, kind, occurred_at, location_ciphertext, created_at
    FROM clock_events
    WHERE shift_id = $1 AND kind = $2
  `, shiftID, string(kind)).Scan(&event.ID, &event.ShiftID, &k, &event.OccurredAt, &sealed, &event.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ClockEvent{}, ErrClockEventNotFound
	}
	if err != nil {
		return ClockEvent{}, err
	}
	event.Kind = ClockEventKind(k)
	if event.Location, err = s.openLocation(event.ShiftID, event.Kind, sealed); err != nil {
		return ClockEvent{}, err
	}
	return event, nil
}

func (s *Store) InsertAnomaly(ctx context.Context, a Anomaly) (string, bool, error) {
	var delta any
	if a.DeltaSeconds != nil {
		delta = *a.DeltaSeconds
	}
	var id string
	err := s.q(ctx).QueryRow(ctx, `
    INSERT INTO anomalies (shift_id, merchant_id, employee_id, type, phase, status, delta_seconds, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    ON CONFLICT (shift_id, phase) DO NOTHING
    RETURNING id
  `, a.ShiftID, a.MerchantID, a.EmployeeID, string(a.Type), string(a.Phase), string(a.Status), delta, a.CreatedAt).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

const anomalyColumns = `id, shift_id, merchant_id, employee_id, type, phase, status, resolution_reason, delta_seconds, created_at, resolved_at, resolved_by`

func scanAnomaly(row rowScanner) (Anomaly, error) {
	var (
		a          Anomaly
		typ        string
		phase      string
		status     string
		reason     sql.NullString
		delta      sql.NullInt32
		resolvedAt sql.NullTime
		resolvedBy sql.NullString
	)
	if err := row.Scan(&a.ID, &a.ShiftID, &a.MerchantID, &a.EmployeeID, &typ, &phase, &status, &reason, &delta, &a.CreatedAt, &resolvedAt, &resolvedBy); err != nil {
		return Anomaly{}, err
	}
	a.Type = AnomalyType(typ)
	a.Phase = Phase(phase)
	a.Status = AnomalyStatus(status)
	if reason.Valid {
		r := ResolutionReason(reason.String)
		a.ResolutionReason = &r
	}
	if delta.Valid {
		d := int(delta.Int32)
		a.DeltaSeconds = &d
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	a.ResolvedBy = resolvedBy.String
	return a, nil
}

func (s *Store) GetAnomaly(ctx context.Context, anomalyID string) (Anomaly, error) {
	if !validID(anomalyID) {
		return Anomaly{}, ErrAnomalyNotFound
	}
	row := s.q(ctx).QueryRow(ctx, `
    SELECT `+anomalyColumns+`
    FROM anomalies
    WHERE id = $1
  `, anomalyID)
	a, err := scanAnomaly(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Anomaly{}, ErrAnomalyNotFound
	}
	return a, err
}

// TransitionAnomaly is a compare-and-set on the status column. Terminal
// targets stamp resolved_at/resolved_by; the reason is kept when none is given.
func (s *Store) TransitionAnomaly(ctx context.Context, anomalyID string, from []AnomalyStatus, to AnomalyStatus, reason *ResolutionReason, actorUserID string, at time.Time) (bool, error) {
	var reasonArg, resolvedAt, resolvedBy any
	if reason != nil {
		reasonArg = string(*reason)
	}
	if to.Terminal() {
		resolvedAt = at
		resolvedBy = actorUserID
	}
	tag, err := s.q(ctx).Exec(ctx, `
    UPDATE anomalies
    SET status = $2,
        resolution_reason = COALESCE($3, resolution_reason),
        resolved_at = $4,
        resolved_by = $5,
        updated_at = now()
    WHERE id = $1 AND status = ANY($6)
  `, anomalyID, string(to), reasonArg, resolvedAt, resolvedBy, statusStrings(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) ListAnomaliesByStatus(ctx context.Context, merchantID string, statuses []AnomalyStatus) ([]Anomaly, error) {
	rows, err := s.q(ctx).Query(ctx, `
    SELECT `+anomalyColumns+`
    FROM anomalies
    WHERE merchant_id = $1 AND status = ANY($2)
    ORDER BY created_at
  `, merchantID, statusStrings(statuses))
	if err != nil {
		return nil, err
	}
	return collectAnomalies(rows)
}

func (s *Store) ListAnomaliesForShifts(ctx context.Context, shiftIDs []string, statuses []AnomalyStatus) ([]Anomaly, error) {
	ids := make([]string, 0, len(shiftIDs))
	for _, id := range shiftIDs {
		if validID(id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.q(ctx).Query(ctx, `
    SELECT `+anomalyColumns+`
    FROM anomalies
    WHERE shift_id = ANY($1::uuid[]) AND status = ANY($2)
    ORDER BY created_at
  `, ids, statusStrings(statuses))
	if err != nil {
		return nil, err
	}
	return collectAnomalies(rows)
}

func collectAnomalies(rows pgx.Rows) ([]Anomaly, error) {
	defer rows.Close()
	var out []Anomaly
	for rows.Next() {
		a, err := scanAnomaly(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const attendanceQuery = `
    SELECT s.id, s.merchant_id, s.employee_id, s.shift_date, s.planned_start, s.planned_end, s.planned_break_minutes, s.status,
           ci.id, ci.occurred_at, ci.location_ciphertext, ci.created_at,
           co.id, co.occurred_at, co.location_ciphertext, co.created_at
    FROM shifts s
    LEFT JOIN clock_events ci ON ci.shift_id = s.id AND ci.kind = 'check_in'
    LEFT JOIN clock_events co ON co.shift_id = s.id AND co.kind = 'check_out'
  `

// ListAttendance returns the employee's shifts planned to start in [from, to).
func (s *Store) ListAttendance(ctx context.Context, employeeID string, from, to time.Time) ([]ShiftAttendance, error) {
	rows, err := s.q(ctx).Query(ctx, attendanceQuery+`
    WHERE s.employee_id = $1 AND s.planned_start >= $2 AND s.planned_start < $3
    ORDER BY s.planned_start
  `, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	return s.collectAttendance(rows)
}

// ListUnpunchedShifts returns shifts ended before the cutoff that miss a punch
// and have no missing-punch anomaly yet.
func (s *Store) ListUnpunchedShifts(ctx context.Context, merchantID string, endedBefore time.Time) ([]ShiftAttendance, error) {
	rows, err := s.q(ctx).Query(ctx, attendanceQuery+`
    WHERE s.merchant_id = $1
      AND s.planned_end < $2
      AND (ci.id IS NULL OR co.id IS NULL)
      AND NOT EXISTS (SELECT 1 FROM anomalies a WHERE a.shift_id = s.id AND a.phase = 'missing')
    ORDER BY s.planned_end
  `, merchantID, endedBefore)
	if err != nil {
		return nil, err
	}
	return s.collectAttendance(rows)
}

func (s *Store) collectAttendance(rows pgx.Rows) ([]ShiftAttendance, error) {
	defer rows.Close()
	var out []ShiftAttendance
	for rows.Next() {
		var (
			sa           ShiftAttendance
			status       string
			plannedStart sql.NullTime
			plannedEnd   sql.NullTime
			in, outEv    nullableEvent
		)
		if err := rows.Scan(
			&sa.Shift.ID, &sa.Shift.MerchantID, &sa.Shift.EmployeeID, &sa.Shift.Date, &plannedStart, &plannedEnd, &sa.Shift.PlannedBreakMinutes, &status,
			&in.id, &in.occurredAt, &in.location, &in.createdAt,
			&outEv.id, &outEv.occurredAt, &outEv.location, &outEv.createdAt,
		); err != nil {
			return nil, err
		}
		sa.Shift.Status = ShiftStatus(status)
		if plannedStart.Valid {
			sa.Shift.PlannedStart = plannedStart.Time
		}
		if plannedEnd.Valid {
			sa.Shift.PlannedEnd = plannedEnd.Time
		}
		var err error
		if sa.CheckIn, err = s.toEvent(sa.Shift.ID, KindCheckIn, in); err != nil {
			return nil, err
		}
		if sa.CheckOut, err = s.toEvent(sa.Shift.ID, KindCheckOut, outEv); err != nil {
			return nil, err
		}
		out = append(out, sa)
	}
	return out, rows.Err()
}

type nullableEvent struct {
	id         sql.NullString
	occurredAt sql.NullTime
	location   []byte
	createdAt  sql.NullTime
}

func (s *Store) toEvent(shiftID string, kind ClockEventKind, ev nullableEvent) (*ClockEvent, error) {
	if !ev.id.Valid {
		return nil, nil
	}
	loc, err := s.openLocation(shiftID, kind, ev.location)
	if err != nil {
		return nil, err
	}
	return &ClockEvent{
		ID:         ev.id.String,
		ShiftID:    shiftID,
		Kind:       kind,
		OccurredAt: ev.occurredAt.Time,
		Location:   loc,
		CreatedAt:  ev.createdAt.Time,
	}, nil
}

func (s *Store) sealLocation(shiftID string, kind ClockEventKind, loc *GeoPoint) ([]byte, error) {
	if loc == nil {
		return nil, nil
	}
	plain, err := json.Marshal(loc)
	if err != nil {
		return nil, err
	}
	sealed, err := s.sealer.Seal(plain, locationAAD(shiftID, kind))
	if err != nil {
		return nil, fmt.Errorf("seal location: %w", err)
	}
	return sealed, nil
}

func (s *Store) openLocation(shiftID string, kind ClockEventKind, sealed []byte) (*GeoPoint, error) {
	if len(sealed) == 0 {
		return nil, nil
	}
	plain, err := s.sealer.Open(sealed, locationAAD(shiftID, kind))
	if err != nil {
		return nil, fmt.Errorf("open location: %w", err)
	}
	var loc GeoPoint
	if err := json.Unmarshal(plain, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

func locationAAD(shiftID string, kind ClockEventKind) []byte {
	return []byte(shiftID + "/" + string(kind))
}

func statusStrings(statuses []AnomalyStatus) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
