package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/kalaburagitech/face-recognition-sub000/internal/config"
	"github.com/kalaburagitech/face-recognition-sub000/internal/gallery"
	"github.com/kalaburagitech/face-recognition-sub000/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// LockRegion takes a session-scoped advisory lock keyed by region on a
// dedicated connection. It spans the duplicate check through the face
// record insert so two instances cannot interleave check-then-write.
func (s *PostgresStore) LockRegion(ctx context.Context, region string) (func(), error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire conn: %w", err)
	}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtext($1))`, region); err != nil {
		conn.Release()
		return nil, fmt.Errorf("advisory lock: %w", err)
	}
	return func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock(hashtext($1))`, region)
		conn.Release()
	}, nil
}

// --- Identities ---

func (s *PostgresStore) CreateIdentity(ctx context.Context, id *models.Identity) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO identities (id, region, external_id, name, rank, description)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at`,
		id.ID, id.Region, id.ExternalID, id.Name, id.Rank, id.Description,
	).Scan(&id.CreatedAt, &id.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create identity: %w", err)
	}
	return nil
}

const identityColumns = `id, region, external_id, name, rank, description, created_at, updated_at`

func scanIdentity(row pgx.Row) (*models.Identity, error) {
	i := &models.Identity{}
	err := row.Scan(&i.ID, &i.Region, &i.ExternalID, &i.Name, &i.Rank, &i.Description, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return i, nil
}

func (s *PostgresStore) GetIdentity(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	identity, err := scanIdentity(s.pool.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return identity, nil
}

func (s *PostgresStore) GetIdentityByExternalID(ctx context.Context, region, externalID string) (*models.Identity, error) {
	// Identities without an external id all carry the empty string, so an
	// empty lookup can never identify one of them.
	if externalID == "" {
		return nil, nil
	}
	identity, err := scanIdentity(s.pool.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE region = $1 AND external_id = $2`,
		region, externalID))
	if err != nil {
		return nil, fmt.Errorf("get identity by external id: %w", err)
	}
	return identity, nil
}

// ResolveIdentity accepts an identity id, external employee id, or exact
// display name. Name matches are ambiguous; the earliest-created one wins.
func (s *PostgresStore) ResolveIdentity(ctx context.Context, region, ref string) (*models.Identity, error) {
	if id, err := uuid.Parse(ref); err == nil {
		identity, err := s.GetIdentity(ctx, id)
		if err != nil || identity != nil {
			return identity, err
		}
	}

	identity, err := s.GetIdentityByExternalID(ctx, region, ref)
	if err != nil || identity != nil {
		return identity, err
	}

	identity, err = scanIdentity(s.pool.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities
		 WHERE region = $1 AND name = $2 ORDER BY created_at ASC LIMIT 1`,
		region, ref))
	if err != nil {
		return nil, fmt.Errorf("resolve identity by name: %w", err)
	}
	return identity, nil
}

func (s *PostgresStore) ListIdentities(ctx context.Context, region string) ([]models.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities`
	args := []interface{}{}
	if region != "" {
		query += ` WHERE region = $1`
		args = append(args, region)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var identities []models.Identity
	for rows.Next() {
		var i models.Identity
		if err := rows.Scan(&i.ID, &i.Region, &i.ExternalID, &i.Name, &i.Rank, &i.Description, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		identities = append(identities, i)
	}
	return identities, nil
}

func (s *PostgresStore) UpdateIdentity(ctx context.Context, id *models.Identity) error {
	err := s.pool.QueryRow(ctx,
		`UPDATE identities SET name = $2, rank = $3, description = $4, updated_at = now()
		 WHERE id = $1 RETURNING updated_at`,
		id.ID, id.Name, id.Rank, id.Description,
	).Scan(&id.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("identity not found")
		}
		return fmt.Errorf("update identity: %w", err)
	}
	return nil
}

// DeleteIdentity cascades to face records and attendance via schema FKs.
func (s *PostgresStore) DeleteIdentity(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("identity not found")
	}
	return nil
}

func (s *PostgresStore) CountFaces(ctx context.Context, identityID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM face_records WHERE identity_id = $1`, identityID,
	).Scan(&count)
	return count, err
}

// --- Face records (gallery.Store) ---

// Insert persists one face record. The region is denormalized from the
// identity so the KNN query never needs a join filter.
func (s *PostgresStore) Insert(ctx context.Context, rec *models.FaceRecord) error {
	vec := pgvector.NewVector(rec.Embedding)
	bbox := []float32{rec.BBox[0], rec.BBox[1], rec.BBox[2], rec.BBox[3]}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO face_records (id, identity_id, region, embedding, confidence, quality, image_key, bbox)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at`,
		rec.ID, rec.IdentityID, rec.Region, vec, rec.Confidence, rec.Quality, rec.ImageKey, bbox,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert face record: %w", err)
	}
	return nil
}

// Nearest runs the region-scoped KNN query. Ordering is cosine distance
// ascending with quality and creation-time tie-breaks, matching the
// gallery contract.
func (s *PostgresStore) Nearest(ctx context.Context, region string, embedding []float32, k int, excluding *uuid.UUID) ([]gallery.Match, error) {
	if k <= 0 {
		k = 1
	}
	vec := pgvector.NewVector(embedding)

	query := `
		SELECT fr.id, fr.identity_id, i.name, 1 - (fr.embedding <=> $1) AS similarity, fr.quality, fr.created_at
		FROM face_records fr
		JOIN identities i ON i.id = fr.identity_id
		WHERE fr.region = $2`
	args := []interface{}{vec, region}

	if excluding != nil {
		query += ` AND fr.identity_id <> $3`
		args = append(args, *excluding)
	}
	query += fmt.Sprintf(` ORDER BY fr.embedding <=> $1, fr.quality DESC, fr.created_at ASC LIMIT %d`, k)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("nearest faces: %w", err)
	}
	defer rows.Close()

	var matches []gallery.Match
	for rows.Next() {
		var m gallery.Match
		if err := rows.Scan(&m.RecordID, &m.IdentityID, &m.Name, &m.Similarity, &m.Quality, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (s *PostgresStore) Delete(ctx context.Context, recordID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM face_records WHERE id = $1`, recordID)
	if err != nil {
		return fmt.Errorf("delete face record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListFaceRecords(ctx context.Context, identityID uuid.UUID) ([]models.FaceRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, identity_id, region, confidence, quality, image_key, created_at
		 FROM face_records WHERE identity_id = $1 ORDER BY created_at DESC`,
		identityID)
	if err != nil {
		return nil, fmt.Errorf("list face records: %w", err)
	}
	defer rows.Close()

	var faces []models.FaceRecord
	for rows.Next() {
		var fr models.FaceRecord
		if err := rows.Scan(&fr.ID, &fr.IdentityID, &fr.Region, &fr.Confidence, &fr.Quality, &fr.ImageKey, &fr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face record: %w", err)
		}
		faces = append(faces, fr)
	}
	return faces, nil
}

func (s *PostgresStore) DeleteFaceRecord(ctx context.Context, identityID, faceID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM face_records WHERE id = $1 AND identity_id = $2`, faceID, identityID)
	if err != nil {
		return fmt.Errorf("delete face record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("face record not found")
	}
	return nil
}

// --- Attendance ---

func (s *PostgresStore) GetAttendance(ctx context.Context, identityID uuid.UUID, day string) (*models.AttendanceRecord, error) {
	rec := &models.AttendanceRecord{}
	var d time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT id, identity_id, day, check_in_at, check_out_at, status, created_at
		 FROM attendance_records WHERE identity_id = $1 AND day = $2`,
		identityID, day,
	).Scan(&rec.ID, &rec.IdentityID, &d, &rec.CheckInAt, &rec.CheckOutAt, &rec.Status, &rec.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	rec.Day = d.Format("2006-01-02")
	return rec, nil
}

// InsertCheckIn creates the day's record unless one already exists.
// Returns false without error when another confirmation won the race.
func (s *PostgresStore) InsertCheckIn(ctx context.Context, rec *models.AttendanceRecord) (bool, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO attendance_records (id, identity_id, day, check_in_at, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (identity_id, day) DO NOTHING
		 RETURNING created_at`,
		rec.ID, rec.IdentityID, rec.Day, rec.CheckInAt, rec.Status,
	).Scan(&rec.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("insert check-in: %w", err)
	}
	return true, nil
}

// CompleteCheckOut closes the day with a conditional update: only a record
// that is checked in and not yet checked out matches. Returns false when
// nothing matched.
func (s *PostgresStore) CompleteCheckOut(ctx context.Context, identityID uuid.UUID, day string, at time.Time) (*models.AttendanceRecord, bool, error) {
	rec := &models.AttendanceRecord{}
	var d time.Time
	err := s.pool.QueryRow(ctx,
		`UPDATE attendance_records
		 SET check_out_at = $3, status = $4
		 WHERE identity_id = $1 AND day = $2 AND check_in_at IS NOT NULL AND check_out_at IS NULL
		 RETURNING id, identity_id, day, check_in_at, check_out_at, status, created_at`,
		identityID, day, at, models.AttendanceCheckedOut,
	).Scan(&rec.ID, &rec.IdentityID, &d, &rec.CheckInAt, &rec.CheckOutAt, &rec.Status, &rec.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("complete check-out: %w", err)
	}
	rec.Day = d.Format("2006-01-02")
	return rec, true, nil
}

func (s *PostgresStore) ListAttendanceDay(ctx context.Context, region, day string) ([]models.AttendanceWithIdentity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT a.id, a.identity_id, a.day, a.check_in_at, a.check_out_at, a.status, a.created_at,
		        i.id, i.region, i.external_id, i.name, i.rank, i.description, i.created_at, i.updated_at
		 FROM attendance_records a
		 JOIN identities i ON i.id = a.identity_id
		 WHERE i.region = $1 AND a.day = $2
		 ORDER BY a.check_in_at ASC`,
		region, day)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var entries []models.AttendanceWithIdentity
	for rows.Next() {
		var e models.AttendanceWithIdentity
		var d time.Time
		if err := rows.Scan(
			&e.Record.ID, &e.Record.IdentityID, &d, &e.Record.CheckInAt, &e.Record.CheckOutAt, &e.Record.Status, &e.Record.CreatedAt,
			&e.Identity.ID, &e.Identity.Region, &e.Identity.ExternalID, &e.Identity.Name, &e.Identity.Rank, &e.Identity.Description, &e.Identity.CreatedAt, &e.Identity.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attendance row: %w", err)
		}
		e.Record.Day = d.Format("2006-01-02")
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *PostgresStore) DeleteAttendance(ctx context.Context, identityID uuid.UUID, day string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM attendance_records WHERE identity_id = $1 AND day = $2`, identityID, day)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("attendance record not found")
	}
	return nil
}

// --- Analytics events ---

func (s *PostgresStore) InsertAnalyticsEvent(ctx context.Context, ev *models.AnalyticsEvent) error {
	if ev.Metadata == nil {
		ev.Metadata = json.RawMessage("{}")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO analytics_events (id, identity_id, region, kind, occurred_at, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.IdentityID, ev.Region, ev.Kind, ev.OccurredAt, ev.Metadata)
	if err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAnalyticsEvents(ctx context.Context, region string, from, to *time.Time, limit int) ([]models.AnalyticsEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	query := `SELECT id, identity_id, region, kind, occurred_at, metadata FROM analytics_events WHERE region = $1`
	args := []interface{}{region}
	argIdx := 2

	if from != nil {
		query += fmt.Sprintf(" AND occurred_at >= $%d", argIdx)
		args = append(args, *from)
		argIdx++
	}
	if to != nil {
		query += fmt.Sprintf(" AND occurred_at <= $%d", argIdx)
		args = append(args, *to)
		argIdx++
	}
	query += fmt.Sprintf(" ORDER BY occurred_at DESC LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list analytics events: %w", err)
	}
	defer rows.Close()

	var events []models.AnalyticsEvent
	for rows.Next() {
		var ev models.AnalyticsEvent
		if err := rows.Scan(&ev.ID, &ev.IdentityID, &ev.Region, &ev.Kind, &ev.OccurredAt, &ev.Metadata); err != nil {
			return nil, fmt.Errorf("scan analytics event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}
