package nullifier

import (
	"context"
	"fmt"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLedger relies on the unique (nullifier_hash, verifier_did) index; a
// conflicting insert affects no rows.
type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (g *GormLedger) Contains(ctx context.Context, nullifierHash, verifierDID string) (bool, error) {
	var count int64
	err := g.db.WithContext(ctx).
		Model(&model.NullifierRecord{}).
		Where("nullifier_hash = ? AND verifier_did = ?", nullifierHash, verifierDID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("lookup nullifier: %w", err)
	}
	return count > 0, nil
}

func (g *GormLedger) InsertIfAbsent(ctx context.Context, nullifierHash, verifierDID, proofID string) (bool, error) {
	record := model.NullifierRecord{
		NullifierHash: nullifierHash,
		VerifierDid:   verifierDID,
		ProofId:       proofID,
	}

	result := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record)
	if result.Error != nil {
		return false, fmt.Errorf("insert nullifier: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}
