package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	staffCollection         = "staff"
	clientCollection        = "clients"
	veterinarianCollection  = "veterinarians"
	patientCollection       = "patients"
	appointmentCollection   = "appointments"
	consultationCollection  = "consultations"
	counterCollection       = "counters"
	emailUniqueIndex        = "email_unique"
	tokenUniqueIndex        = "oneTimeToken_unique"
	nationalIDUniqueIndex   = "nationalId_unique"
	staffIDUniqueIndex      = "staffId_unique"
	licenseUniqueIndex      = "licenseNumber_unique"
	recordNumberUniqueIndex = "clinicalRecordNumber_unique"
)

var (
	staffUniques        = map[string]string{emailUniqueIndex: "email", tokenUniqueIndex: "oneTimeToken"}
	clientUniques       = map[string]string{emailUniqueIndex: "email", nationalIDUniqueIndex: "nationalId", tokenUniqueIndex: "oneTimeToken"}
	veterinarianUniques = map[string]string{staffIDUniqueIndex: "staffId", licenseUniqueIndex: "licenseNumber"}
	patientUniques      = map[string]string{recordNumberUniqueIndex: "clinicalRecordNumber"}
)

func unique(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetUnique(true)}
}

// partialUnique only indexes documents where the first key exists.
func partialUnique(name string, keys bson.D) mongo.IndexModel {
	filter := bson.M{keys[0].Key: bson.M{"$exists": true}}
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetUnique(true).SetPartialFilterExpression(filter)}
}

func plain(keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys}
}

func indexPlan() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		staffCollection: {
			unique(emailUniqueIndex, bson.D{{Key: "email", Value: 1}}),
			partialUnique(tokenUniqueIndex, bson.D{{Key: "oneTimeToken.value", Value: 1}}),
			plain(bson.D{{Key: "role", Value: 1}, {Key: "active", Value: 1}}),
		},
		clientCollection: {
			unique(emailUniqueIndex, bson.D{{Key: "email", Value: 1}}),
			unique(nationalIDUniqueIndex, bson.D{{Key: "nationalId", Value: 1}}),
			partialUnique(tokenUniqueIndex, bson.D{{Key: "oneTimeToken.value", Value: 1}}),
		},
		veterinarianCollection: {
			unique(staffIDUniqueIndex, bson.D{{Key: "staffId", Value: 1}}),
			partialUnique(licenseUniqueIndex, bson.D{{Key: "licenseNumber", Value: 1}}),
		},
		patientCollection: {
			unique(recordNumberUniqueIndex, bson.D{{Key: "clinicalRecordNumber", Value: 1}}),
			plain(bson.D{{Key: "ownerId", Value: 1}, {Key: "active", Value: 1}}),
		},
		appointmentCollection: {
			plain(bson.D{{Key: "scheduledDate", Value: 1}, {Key: "veterinarianId", Value: 1}}),
			plain(bson.D{{Key: "patientId", Value: 1}, {Key: "scheduledDate", Value: -1}}),
			plain(bson.D{{Key: "clientId", Value: 1}, {Key: "scheduledDate", Value: -1}}),
			plain(bson.D{{Key: "status", Value: 1}, {Key: "scheduledDate", Value: 1}}),
		},
		consultationCollection: {
			plain(bson.D{{Key: "patientId", Value: 1}, {Key: "date", Value: -1}}),
			plain(bson.D{{Key: "veterinarianId", Value: 1}, {Key: "date", Value: -1}}),
			plain(bson.D{{Key: "clientId", Value: 1}, {Key: "date", Value: -1}}),
			plain(bson.D{{Key: "date", Value: -1}}),
		},
	}
}

// EnsureIndexes creates every index the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for name, idx := range indexPlan() {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}
