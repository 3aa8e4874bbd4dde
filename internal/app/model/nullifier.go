package model

import "time"

// NullifierRecord marks a nullifier as spent for one verifier. Rows are never
// updated or deleted.
type NullifierRecord struct {
	Id            int    `gorm:"primaryKey;autoIncrement"`
	NullifierHash string `gorm:"size:128;not null;uniqueIndex:idx_nullifier_verifier"`
	VerifierDid   string `gorm:"size:512;not null;uniqueIndex:idx_nullifier_verifier"`
	ProofId       string `gorm:"size:64"`
	CreatedAt     time.Time
}
