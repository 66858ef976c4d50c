package mongostore

import (
	"context"

	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type patientRepository struct {
	collection[models.Patient]
}

func NewPatientRepository(db *mongo.Database) repository.PatientRepository {
	return &patientRepository{collection[models.Patient]{
		coll:    db.Collection(patientCollection),
		uniques: patientUniques,
	}}
}

func (r *patientRepository) Insert(ctx context.Context, patient *models.Patient) error {
	return r.insert(ctx, patient)
}

func (r *patientRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Patient, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *patientRepository) FindByRecordNumber(ctx context.Context, number string) (*models.Patient, error) {
	return r.findOne(ctx, bson.M{"clinicalRecordNumber": number})
}

func (r *patientRepository) Replace(ctx context.Context, patient *models.Patient) error {
	return r.replace(ctx, patient.ID, patient)
}

func (r *patientRepository) List(ctx context.Context, filter repository.PatientFilter) ([]*models.Patient, error) {
	q := bson.M{}
	if filter.OwnerID != nil {
		q["ownerId"] = *filter.OwnerID
	}
	if filter.Species != "" {
		q["species"] = filter.Species
	}
	if filter.Active != nil {
		q["active"] = *filter.Active
	}
	if filter.Query != "" {
		re := containsPattern(filter.Query)
		q["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"clinicalRecordNumber": re},
			bson.M{"microchip": re},
		}
	}
	return r.find(ctx, q, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}
