package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shivcommunication/storefront/internal/model"
)

// OtpRepo defines the interface for OTP record repository operations
type OtpRepo interface {
	// Create persists a new record. Earlier records for the same phone are left untouched.
	Create(ctx context.Context, phone, otpHash string, expiresAt time.Time) (model.OtpRecord, error)
	// ConsumeMatching atomically marks the newest record with the given phone and hash that is
	// unconsumed and unexpired at now as consumed. Returns ErrNotFound when nothing matches.
	ConsumeMatching(ctx context.Context, phone, otpHash string, now time.Time) (model.OtpRecord, error)
	CountRecentRequests(ctx context.Context, phone string, since time.Time) (int, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type otpRepo struct {
	db *sql.DB
}

// NewOtpRepo creates a Postgres-backed OtpRepo
func NewOtpRepo(db *sql.DB) OtpRepo {
	return &otpRepo{db: db}
}

// Create inserts a new OTP record
func (r *otpRepo) Create(ctx context.Context, phone, otpHash string, expiresAt time.Time) (model.OtpRecord, error) {
	rec := model.OtpRecord{
		ID:        uuid.New(),
		Phone:     phone,
		OTPHash:   otpHash,
		ExpiresAt: expiresAt,
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO otp_records (id, phone, otp, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, rec.ID, phone, otpHash, expiresAt).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return model.OtpRecord{}, fmt.Errorf("insert otp record: %w", err)
	}
	return rec, nil
}

// ConsumeMatching locks the newest matching record and sets consumed_at in a single statement.
// SKIP LOCKED makes a concurrent submission of the same code see no match instead of waiting.
func (r *otpRepo) ConsumeMatching(ctx context.Context, phone, otpHash string, now time.Time) (model.OtpRecord, error) {
	var rec model.OtpRecord
	err := r.db.QueryRowContext(ctx, `
		UPDATE otp_records
		SET consumed_at = $3, updated_at = $3
		WHERE id = (
			SELECT id FROM otp_records
			WHERE phone = $1
			  AND otp = $2
			  AND expires_at > $3
			  AND consumed_at IS NULL
			ORDER BY created_at DESC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		AND consumed_at IS NULL
		RETURNING id, phone, otp, expires_at, consumed_at, created_at, updated_at
	`, phone, otpHash, now).Scan(
		&rec.ID,
		&rec.Phone,
		&rec.OTPHash,
		&rec.ExpiresAt,
		&rec.ConsumedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.OtpRecord{}, ErrNotFound
		}
		return model.OtpRecord{}, fmt.Errorf("consume otp record: %w", err)
	}
	return rec, nil
}

// CountRecentRequests returns the number of records created for the phone since the given time
func (r *otpRepo) CountRecentRequests(ctx context.Context, phone string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM otp_records
		WHERE phone = $1 AND created_at >= $2
	`, phone, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recent requests: %w", err)
	}
	return count, nil
}

// DeleteExpired removes records that expired before the given time
func (r *otpRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM otp_records WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired otp records: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
