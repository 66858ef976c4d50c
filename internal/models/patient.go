package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Species string

const (
	SpeciesCanine  Species = "Canine"
	SpeciesFeline  Species = "Feline"
	SpeciesBird    Species = "Bird"
	SpeciesReptile Species = "Reptile"
	SpeciesRodent  Species = "Rodent"
	SpeciesOther   Species = "Other"
)

type Sex string

const (
	SexMale   Sex = "Male"
	SexFemale Sex = "Female"
)

type Patient struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                 string             `bson:"name" json:"name"`
	ClinicalRecordNumber string             `bson:"clinicalRecordNumber" json:"clinicalRecordNumber"`
	Species              Species            `bson:"species" json:"species"`
	Breed                string             `bson:"breed,omitempty" json:"breed,omitempty"`
	BirthDate            *time.Time         `bson:"birthDate,omitempty" json:"birthDate,omitempty"`
	Sex                  Sex                `bson:"sex,omitempty" json:"sex,omitempty"`
	Color                string             `bson:"color,omitempty" json:"color,omitempty"`
	Weight               float64            `bson:"weight,omitempty" json:"weight,omitempty"`
	OwnerID              primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	Microchip            string             `bson:"microchip,omitempty" json:"microchip,omitempty"`
	Sterilized           bool               `bson:"sterilized" json:"sterilized"`
	Allergies            []string           `bson:"allergies" json:"allergies"`
	Conditions           []string           `bson:"conditions" json:"conditions"`
	PhotoURL             string             `bson:"photoUrl,omitempty" json:"photoUrl,omitempty"`
	Active               bool               `bson:"active" json:"active"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ClinicalRecordNumber formats the n-th record number, e.g. HC-000042.
func ClinicalRecordNumber(n int64) string {
	return fmt.Sprintf("HC-%06d", n)
}
