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

// identityCollection implements repository.IdentityStore for a document type D
// whose pointer is the identity.
type identityCollection[D any, T interface {
	*D
	models.Identity
}] struct {
	collection[D]
}

func (c identityCollection[D, T]) FindByID(ctx context.Context, id primitive.ObjectID) (T, error) {
	return c.one(ctx, bson.M{"_id": id})
}

func (c identityCollection[D, T]) FindProfile(ctx context.Context, id primitive.ObjectID) (T, error) {
	return c.one(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(credentialsProjection))
}

func (c identityCollection[D, T]) FindByEmail(ctx context.Context, email string) (T, error) {
	return c.one(ctx, bson.M{"email": models.NormalizeEmail(email)})
}

func (c identityCollection[D, T]) FindByToken(ctx context.Context, token string) (T, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}
	return c.one(ctx, bson.M{"oneTimeToken.value": token})
}

func (c identityCollection[D, T]) Replace(ctx context.Context, identity T) error {
	return c.replace(ctx, identity.IdentityID(), identity)
}

func (c identityCollection[D, T]) Insert(ctx context.Context, identity T) error {
	return c.insert(ctx, identity)
}

func (c identityCollection[D, T]) one(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (T, error) {
	doc, err := c.findOne(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return T(doc), nil
}

type staffRepository struct {
	identityCollection[models.StaffIdentity, *models.StaffIdentity]
}

func NewStaffRepository(db *mongo.Database) repository.StaffRepository {
	return &staffRepository{identityCollection[models.StaffIdentity, *models.StaffIdentity]{
		collection[models.StaffIdentity]{coll: db.Collection(staffCollection), uniques: staffUniques},
	}}
}

func (r *staffRepository) List(ctx context.Context, filter repository.StaffFilter) ([]*models.StaffIdentity, error) {
	q := bson.M{}
	if filter.Role != "" {
		q["role"] = filter.Role
	}
	if filter.Active != nil {
		q["active"] = *filter.Active
	}
	opts := options.Find().
		SetProjection(credentialsProjection).
		SetSort(bson.D{{Key: "displayName", Value: 1}})
	return r.find(ctx, q, opts)
}

func (r *staffRepository) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"role": role})
}

type clientRepository struct {
	identityCollection[models.ClientIdentity, *models.ClientIdentity]
}

func NewClientRepository(db *mongo.Database) repository.ClientRepository {
	return &clientRepository{identityCollection[models.ClientIdentity, *models.ClientIdentity]{
		collection[models.ClientIdentity]{coll: db.Collection(clientCollection), uniques: clientUniques},
	}}
}

func (r *clientRepository) FindByNationalID(ctx context.Context, nationalID string) (*models.ClientIdentity, error) {
	return r.findOne(ctx, bson.M{"nationalId": nationalID}, options.FindOne().SetProjection(credentialsProjection))
}

func (r *clientRepository) List(ctx context.Context, filter repository.ClientFilter) ([]*models.ClientIdentity, error) {
	q := bson.M{}
	if filter.Active != nil {
		q["active"] = *filter.Active
	}
	if filter.Query != "" {
		re := containsPattern(filter.Query)
		q["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"surname": re},
			bson.M{"email": re},
			bson.M{"nationalId": re},
		}
	}
	opts := options.Find().
		SetProjection(credentialsProjection).
		SetSort(bson.D{{Key: "surname", Value: 1}, {Key: "name", Value: 1}})
	return r.find(ctx, q, opts)
}
