package store

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel"
)

const capsuleColumns = `id, sender_name, receiver_email, message, unlock_at, category, credential_digest, status, created_at, sent_at, last_error, last_error_at, failure_count`

type PostgresRepository struct {
	db *sql.DB // using database/sql
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (p *PostgresRepository) Create(ctx context.Context, capsule *Capsule) error {
	tracer := otel.Tracer("time-capsule")
	ctx, span := tracer.Start(ctx, "Create")
	defer span.End()

	startTime := time.Now()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO capsules (id, sender_name, receiver_email, message, unlock_at, category, credential_digest, status, created_at, failure_count, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		capsule.ID, capsule.SenderName, capsule.ReceiverEmail, capsule.Message,
		capsule.UnlockAt, nullString(capsule.Category), nullString(capsule.CredentialDigest),
		capsule.Status, capsule.CreatedAt, capsule.FailureCount, capsule.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return err
	}

	addDBStatsToSpan(span, "postgresql", "Create", 1, time.Since(startTime))

	return nil
}

func (p *PostgresRepository) List(ctx context.Context) ([]Capsule, error) {
	tracer := otel.Tracer("time-capsule")
	ctx, span := tracer.Start(ctx, "List")
	defer span.End()

	startTime := time.Now()
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+capsuleColumns+` FROM capsules ORDER BY created_at DESC`)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer rows.Close()

	capsules, err := scanCapsules(rows)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	addDBStatsToSpan(span, "postgresql", "List", len(capsules), time.Since(startTime))

	return capsules, nil
}

func (p *PostgresRepository) FetchDue(ctx context.Context, now time.Time, batchSize int) ([]Capsule, error) {
	tracer := otel.Tracer("time-capsule")
	ctx, span := tracer.Start(ctx, "FetchDue")
	defer span.End()

	startTime := time.Now()
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+capsuleColumns+` FROM capsules
         WHERE unlock_at <= $1
           AND (status = 'pending' OR (status = 'processing' AND updated_at < $2))
         ORDER BY created_at
         LIMIT $3`, now, now.Add(-lockExpiration), batchSize)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer rows.Close()

	capsules, err := scanCapsules(rows)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	addDBStatsToSpan(span, "postgresql", "FetchDue", len(capsules), time.Since(startTime))

	return capsules, nil
}

func (p *PostgresRepository) Claim(ctx context.Context, capsuleID string) (bool, error) {
	tracer := otel.Tracer("time-capsule")
	ctx, span := tracer.Start(ctx, "Claim")
	defer span.End()

	startTime := time.Now()
	res, err := p.db.ExecContext(ctx,
		`UPDATE capsules SET status = 'processing', updated_at = $1
         WHERE id = $2 AND (status = 'pending' OR (status = 'processing' AND updated_at < $3))`,
		time.Now(), capsuleID, time.Now().Add(-lockExpiration))
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return false, err
	}

	addDBStatsToSpan(span, "postgresql", "Claim", int(affected), time.Since(startTime))

	return affected == 1, nil
}

func (p *PostgresRepository) Update(ctx context.Context, capsule *Capsule) error {
	tracer := otel.Tracer("time-capsule")
	ctx, span := tracer.Start(ctx, "Update")
	defer span.End()

	startTime := time.Now()
	_, err := p.db.ExecContext(ctx,
		`UPDATE capsules SET status = $1, sent_at = $2, last_error = $3, last_error_at = $4, failure_count = $5, updated_at = $6
         WHERE id = $7`,
		capsule.Status, capsule.SentAt, nullString(capsule.LastError),
		capsule.LastErrorAt, capsule.FailureCount, time.Now(), capsule.ID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	addDBStatsToSpan(span, "postgresql", "Update", 1, time.Since(startTime))

	return nil
}

func scanCapsules(rows *sql.Rows) ([]Capsule, error) {
	var capsules []Capsule
	for rows.Next() {
		var (
			capsule     Capsule
			category    sql.NullString
			digest      sql.NullString
			sentAt      sql.NullTime
			lastError   sql.NullString
			lastErrorAt sql.NullTime
		)
		if err := rows.Scan(&capsule.ID, &capsule.SenderName, &capsule.ReceiverEmail,
			&capsule.Message, &capsule.UnlockAt, &category, &digest, &capsule.Status,
			&capsule.CreatedAt, &sentAt, &lastError, &lastErrorAt, &capsule.FailureCount); err != nil {
			return nil, err
		}
		capsule.Category = category.String
		capsule.CredentialDigest = digest.String
		capsule.LastError = lastError.String
		if sentAt.Valid {
			t := sentAt.Time
			capsule.SentAt = &t
		}
		if lastErrorAt.Valid {
			t := lastErrorAt.Time
			capsule.LastErrorAt = &t
		}
		capsules = append(capsules, capsule)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return capsules, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
