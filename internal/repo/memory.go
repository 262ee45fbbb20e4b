package repo

import (
	"context"
	"crypto/subtle"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shivcommunication/storefront/internal/model"
)

// NewMemoryStores returns process-local repositories for development and tests
func NewMemoryStores() Stores {
	return Stores{
		Otp:      NewMemoryOtpRepo(),
		Users:    NewMemoryUserRepo(),
		Products: NewMemoryProductRepo(),
	}
}

// MemoryOtpRepo is an in-process OtpRepo guarded by a single mutex
type MemoryOtpRepo struct {
	mu      sync.Mutex
	records []model.OtpRecord
	now     func() time.Time
}

// NewMemoryOtpRepo creates an empty MemoryOtpRepo
func NewMemoryOtpRepo() *MemoryOtpRepo {
	return &MemoryOtpRepo{now: time.Now}
}

// SetClock overrides the clock used for created_at/updated_at
func (r *MemoryOtpRepo) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

func (r *MemoryOtpRepo) Create(_ context.Context, phone, otpHash string, expiresAt time.Time) (model.OtpRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	rec := model.OtpRecord{
		ID:        uuid.New(),
		Phone:     phone,
		OTPHash:   otpHash,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.records = append(r.records, rec)
	return rec, nil
}

// ConsumeMatching scans newest first; every candidate for the phone is compared in constant time
func (r *MemoryOtpRepo) ConsumeMatching(_ context.Context, phone, otpHash string, now time.Time) (model.OtpRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	match := -1
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if rec.Phone != phone {
			continue
		}
		equal := subtle.ConstantTimeCompare([]byte(rec.OTPHash), []byte(otpHash)) == 1
		if equal && rec.ValidAt(now) && match < 0 {
			match = i
		}
	}
	if match < 0 {
		return model.OtpRecord{}, ErrNotFound
	}

	consumed := now
	r.records[match].ConsumedAt = &consumed
	r.records[match].UpdatedAt = now
	return r.records[match], nil
}

func (r *MemoryOtpRepo) CountRecentRequests(_ context.Context, phone string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, rec := range r.records {
		if rec.Phone == phone && !rec.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *MemoryOtpRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.records[:0]
	var deleted int64
	for _, rec := range r.records {
		if rec.ExpiresAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return deleted, nil
}

// Len returns the number of stored records
func (r *MemoryOtpRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type memoryUserRepo struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]model.User
	byPhone map[string]uuid.UUID
}

// NewMemoryUserRepo creates an empty in-process UserRepo
func NewMemoryUserRepo() UserRepo {
	return &memoryUserRepo{
		byID:    make(map[uuid.UUID]model.User),
		byPhone: make(map[string]uuid.UUID),
	}
}

func (r *memoryUserRepo) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (r *memoryUserRepo) GetByPhone(_ context.Context, phone string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPhone[phone]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *memoryUserRepo) GetOrCreateByPhone(_ context.Context, phone string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byPhone[phone]; ok {
		return r.byID[id], nil
	}
	u := model.User{ID: uuid.New(), PhoneNumber: phone, CreatedAt: time.Now()}
	r.byID[u.ID] = u
	r.byPhone[phone] = u.ID
	return u, nil
}

type memoryProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]model.Product
}

// NewMemoryProductRepo creates an empty in-process ProductRepo
func NewMemoryProductRepo() ProductRepo {
	return &memoryProductRepo{products: make(map[uuid.UUID]model.Product)}
}

func (r *memoryProductRepo) List(_ context.Context) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryProductRepo) Get(_ context.Context, id uuid.UUID) (model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return model.Product{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryProductRepo) Create(_ context.Context, p model.Product) (model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	p.ID = uuid.New()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.products[p.ID] = p
	return p, nil
}

func (r *memoryProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *memoryProductRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.products)), nil
}
