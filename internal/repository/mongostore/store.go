// Package mongostore implements the repositories on MongoDB.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connect opens a client and verifies the deployment answers.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

type pinger struct {
	client *mongo.Client
}

func (p pinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx, readpref.Primary())
}

// NewStore wires every repository to db.
func NewStore(db *mongo.Database) *repository.Store {
	return &repository.Store{
		Staff:         NewStaffRepository(db),
		Clients:       NewClientRepository(db),
		Veterinarians: NewVeterinarianRepository(db),
		Patients:      NewPatientRepository(db),
		Appointments:  NewAppointmentRepository(db),
		Consultations: NewConsultationRepository(db),
		Counters:      NewCounters(db),
		Pinger:        pinger{client: db.Client()},
	}
}
