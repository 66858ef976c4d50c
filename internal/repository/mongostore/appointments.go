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

type appointmentRepository struct {
	collection[models.Appointment]
}

func NewAppointmentRepository(db *mongo.Database) repository.AppointmentRepository {
	return &appointmentRepository{collection[models.Appointment]{coll: db.Collection(appointmentCollection)}}
}

func (r *appointmentRepository) Insert(ctx context.Context, appointment *models.Appointment) error {
	return r.insert(ctx, appointment)
}

func (r *appointmentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *appointmentRepository) Replace(ctx context.Context, appointment *models.Appointment) error {
	return r.replace(ctx, appointment.ID, appointment)
}

func (r *appointmentRepository) List(ctx context.Context, filter repository.AppointmentFilter) ([]*models.Appointment, error) {
	q := bson.M{}

	// Date range on the scheduled day, both ends inclusive.
	if filter.From != nil || filter.To != nil {
		rng := bson.M{}
		if filter.From != nil {
			rng["$gte"] = *filter.From
		}
		if filter.To != nil {
			rng["$lte"] = *filter.To
		}
		q["scheduledDate"] = rng
	}
	if len(filter.Statuses) > 0 {
		q["status"] = bson.M{"$in": filter.Statuses}
	}
	if filter.VeterinarianID != nil {
		q["veterinarianId"] = *filter.VeterinarianID
	}
	if filter.ClientID != nil {
		q["clientId"] = *filter.ClientID
	}
	if filter.PatientID != nil {
		q["patientId"] = *filter.PatientID
	}

	dir := 1
	if filter.Descending {
		dir = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: "scheduledDate", Value: dir}, {Key: "scheduledTime", Value: dir}})
	return r.find(ctx, q, opts)
}
