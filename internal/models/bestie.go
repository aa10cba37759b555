package models

import "time"

// BestieStatus defines the state of a bestie edge.
type BestieStatus string

const (
	// StatusPending means a bestie request has been sent but not yet accepted.
	StatusPending BestieStatus = "pending"

	// StatusAccepted means the request was accepted. Accepted edges are mirrored,
	// so both users own one accepted edge pointing at the other.
	StatusAccepted BestieStatus = "accepted"
)

// Bestie is a directed edge from UserID (the owner) to BestieID.
// The primary key is a composite of (UserID, BestieID) to ensure uniqueness.
type Bestie struct {
	UserID    uint         `gorm:"primaryKey"`
	BestieID  uint         `gorm:"primaryKey;index"`
	Status    BestieStatus `gorm:"type:varchar(20);not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	User   User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Bestie User `gorm:"foreignKey:BestieID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
