// internal/domain/models/institution.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sector classifies an institution.
type Sector string

const (
	SectorGovernment    Sector = "government"
	SectorHealth        Sector = "health"
	SectorEducation     Sector = "education"
	SectorPolice        Sector = "police"
	SectorJustice       Sector = "justice"
	SectorSocialWelfare Sector = "social_welfare"
	SectorNGO           Sector = "ngo"
	SectorPrivate       Sector = "private"
	SectorCommunity     Sector = "community"
	SectorOther         Sector = "other"
)

// AllSectors is every valid sector in display order.
var AllSectors = []Sector{
	SectorGovernment, SectorHealth, SectorEducation, SectorPolice, SectorJustice,
	SectorSocialWelfare, SectorNGO, SectorPrivate, SectorCommunity, SectorOther,
}

// Valid reports whether s is a known sector.
func (s Sector) Valid() bool {
	for _, v := range AllSectors {
		if v == s {
			return true
		}
	}
	return false
}

// Institution is an organization whose readiness is assessed. Institutions are
// identified by (NameCI, RegionCode).
type Institution struct {
	ID            primitive.ObjectID `bson:"_id"`
	Name          string             `bson:"name"`
	NameCI        string             `bson:"name_ci"` // ← always stored
	Sector        Sector             `bson:"sector"`
	RegionCode    string             `bson:"region_code"`
	Address       string             `bson:"address,omitempty"`
	ContactPerson string             `bson:"contact_person,omitempty"`
	ContactEmail  string             `bson:"contact_email,omitempty"`
	ContactPhone  string             `bson:"contact_phone,omitempty"`
	Latitude      *float64           `bson:"latitude,omitempty"`
	Longitude     *float64           `bson:"longitude,omitempty"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}
