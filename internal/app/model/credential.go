package model

import "time"

type CredentialRecord struct {
	CredentialId string `gorm:"primaryKey;size:256"`
	Subject      string `gorm:"type:text;not null"` // JSON encoded credential subject
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
