package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/claims"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("credential not found")

// Store resolves credential subjects by credential id.
type Store interface {
	GetCredentialSubject(ctx context.Context, credentialID string) (claims.Subject, error)
	Put(ctx context.Context, credentialID string, subject claims.Subject) error
}

type MemoryStore struct {
	mu       sync.RWMutex
	subjects map[string]claims.Subject
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subjects: map[string]claims.Subject{}}
}

func (m *MemoryStore) GetCredentialSubject(_ context.Context, credentialID string) (claims.Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subject, ok := m.subjects[credentialID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, credentialID)
	}
	return maps.Clone(subject), nil
}

func (m *MemoryStore) Put(_ context.Context, credentialID string, subject claims.Subject) error {
	if credentialID == "" {
		return errors.New("credential id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects[credentialID] = maps.Clone(subject)
	return nil
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (g *GormStore) GetCredentialSubject(ctx context.Context, credentialID string) (claims.Subject, error) {
	var record model.CredentialRecord
	err := g.db.WithContext(ctx).Where("credential_id = ?", credentialID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, credentialID)
	}
	if err != nil {
		return nil, fmt.Errorf("load credential %s: %w", credentialID, err)
	}

	var subject claims.Subject
	if err := json.Unmarshal([]byte(record.Subject), &subject); err != nil {
		return nil, fmt.Errorf("decode credential %s: %w", credentialID, err)
	}
	return subject, nil
}

func (g *GormStore) Put(ctx context.Context, credentialID string, subject claims.Subject) error {
	if credentialID == "" {
		return errors.New("credential id is required")
	}
	encoded, err := json.Marshal(subject)
	if err != nil {
		return fmt.Errorf("encode credential %s: %w", credentialID, err)
	}

	record := model.CredentialRecord{CredentialId: credentialID, Subject: string(encoded)}
	return g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "credential_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"subject", "updated_at"}),
		}).
		Create(&record).Error
}
