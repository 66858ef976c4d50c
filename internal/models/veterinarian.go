package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Veterinarian holds role specific attributes of a staff identity with role veterinarian.
type Veterinarian struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StaffID       primitive.ObjectID `bson:"staffId" json:"staffId"`
	Specialty     string             `bson:"specialty,omitempty" json:"specialty,omitempty"`
	LicenseNumber string             `bson:"licenseNumber,omitempty" json:"licenseNumber,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// VeterinarianProfile is a veterinarian joined with its staff identity.
type VeterinarianProfile struct {
	Veterinarian `bson:",inline"`
	Staff        *StaffIdentity `bson:"staff,omitempty" json:"staff,omitempty"`
}
