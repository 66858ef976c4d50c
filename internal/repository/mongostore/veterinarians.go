package mongostore

import (
	"context"

	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type veterinarianRepository struct {
	collection[models.Veterinarian]
}

func NewVeterinarianRepository(db *mongo.Database) repository.VeterinarianRepository {
	return &veterinarianRepository{collection[models.Veterinarian]{
		coll:    db.Collection(veterinarianCollection),
		uniques: veterinarianUniques,
	}}
}

func (r *veterinarianRepository) Insert(ctx context.Context, vet *models.Veterinarian) error {
	return r.insert(ctx, vet)
}

func (r *veterinarianRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Veterinarian, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *veterinarianRepository) FindByStaffID(ctx context.Context, staffID primitive.ObjectID) (*models.Veterinarian, error) {
	return r.findOne(ctx, bson.M{"staffId": staffID})
}

func (r *veterinarianRepository) Replace(ctx context.Context, vet *models.Veterinarian) error {
	return r.replace(ctx, vet.ID, vet)
}

func (r *veterinarianRepository) ListProfiles(ctx context.Context) ([]*models.VeterinarianProfile, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         staffCollection,
			"localField":   "staffId",
			"foreignField": "_id",
			"as":           "staff",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$staff", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$project", Value: bson.M{"staff.passwordHash": 0, "staff.oneTimeToken": 0}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	profiles := make([]*models.VeterinarianProfile, 0)
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}
