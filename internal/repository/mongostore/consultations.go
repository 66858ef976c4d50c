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

type consultationRepository struct {
	collection[models.Consultation]
}

func NewConsultationRepository(db *mongo.Database) repository.ConsultationRepository {
	return &consultationRepository{collection[models.Consultation]{coll: db.Collection(consultationCollection)}}
}

func (r *consultationRepository) Insert(ctx context.Context, consultation *models.Consultation) error {
	return r.insert(ctx, consultation)
}

func (r *consultationRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Consultation, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *consultationRepository) Replace(ctx context.Context, consultation *models.Consultation) error {
	return r.replace(ctx, consultation.ID, consultation)
}

func (r *consultationRepository) List(ctx context.Context, filter repository.ConsultationFilter) ([]*models.Consultation, error) {
	q := bson.M{}
	if filter.PatientID != nil {
		q["patientId"] = *filter.PatientID
	}
	if filter.ClientID != nil {
		q["clientId"] = *filter.ClientID
	}
	if filter.VeterinarianID != nil {
		q["veterinarianId"] = *filter.VeterinarianID
	}
	return r.find(ctx, q, options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
}

// Statistics counts consultations overall, by the type of the linked appointment
// and by patient species.
func (r *consultationRepository) Statistics(ctx context.Context) (*models.ConsultationStats, error) {
	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	byType, err := r.groupCount(ctx, appointmentCollection, "appointmentId", "type", true)
	if err != nil {
		return nil, err
	}
	bySpecies, err := r.groupCount(ctx, patientCollection, "patientId", "species", false)
	if err != nil {
		return nil, err
	}
	return &models.ConsultationStats{Total: total, ByType: byType, BySpecies: bySpecies}, nil
}

// groupCount joins from on localField and counts consultations per value of field.
// With keepUnmatched, consultations without a match are counted under an empty key.
func (r *consultationRepository) groupCount(ctx context.Context, from, localField, field string, keepUnmatched bool) ([]models.CountByKey, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         from,
			"localField":   localField,
			"foreignField": "_id",
			"as":           "joined",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$joined", "preserveNullAndEmptyArrays": keepUnmatched}}},
		{{Key: "$group", Value: bson.M{"_id": "$joined." + field, "total": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "total", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	counts := make([]models.CountByKey, 0)
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}
