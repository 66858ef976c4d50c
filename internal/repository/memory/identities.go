package memory

import (
	"context"
	"strings"

	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type identityTable[D any, T interface {
	*D
	models.Identity
}] struct {
	t *table[D]
}

func (r identityTable[D, T]) FindByID(_ context.Context, id primitive.ObjectID) (T, error) {
	doc, err := r.t.get(id)
	if err != nil {
		return nil, err
	}
	return T(doc), nil
}

func (r identityTable[D, T]) FindProfile(ctx context.Context, id primitive.ObjectID) (T, error) {
	identity, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	*identity.Creds() = models.Credentials{}
	return identity, nil
}

func (r identityTable[D, T]) FindByEmail(_ context.Context, email string) (T, error) {
	email = models.NormalizeEmail(email)
	doc, err := r.t.first(func(d *D) bool { return T(d).Contact().Email == email })
	if err != nil {
		return nil, err
	}
	return T(doc), nil
}

func (r identityTable[D, T]) FindByToken(_ context.Context, token string) (T, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}
	doc, err := r.t.first(func(d *D) bool { return tokenValue(T(d).Creds()) == token })
	if err != nil {
		return nil, err
	}
	return T(doc), nil
}

func (r identityTable[D, T]) Replace(_ context.Context, identity T) error {
	return r.t.replace(identity)
}

func (r identityTable[D, T]) Insert(_ context.Context, identity T) error {
	return r.t.insert(identity)
}

func stripCredentials[D any, T interface {
	*D
	models.Identity
}](docs []*D) []T {
	out := make([]T, len(docs))
	for i, d := range docs {
		out[i] = T(d)
		*out[i].Creds() = models.Credentials{}
	}
	return out
}

type staffRepository struct {
	identityTable[models.StaffIdentity, *models.StaffIdentity]
}

func (r *staffRepository) List(_ context.Context, filter repository.StaffFilter) ([]*models.StaffIdentity, error) {
	docs, err := r.t.filter(func(s *models.StaffIdentity) bool {
		if filter.Role != "" && s.Role != filter.Role {
			return false
		}
		return filter.Active == nil || s.Active == *filter.Active
	})
	if err != nil {
		return nil, err
	}
	sortBy(docs, func(a, b *models.StaffIdentity) bool { return a.DisplayName < b.DisplayName })
	return stripCredentials[models.StaffIdentity, *models.StaffIdentity](docs), nil
}

func (r *staffRepository) CountByRole(_ context.Context, role models.Role) (int64, error) {
	docs, err := r.t.filter(func(s *models.StaffIdentity) bool { return s.Role == role })
	return int64(len(docs)), err
}

type clientRepository struct {
	identityTable[models.ClientIdentity, *models.ClientIdentity]
}

func (r *clientRepository) FindByNationalID(_ context.Context, nationalID string) (*models.ClientIdentity, error) {
	doc, err := r.t.first(func(c *models.ClientIdentity) bool { return c.NationalID == nationalID })
	if err != nil {
		return nil, err
	}
	doc.Credentials = models.Credentials{}
	return doc, nil
}

func (r *clientRepository) List(_ context.Context, filter repository.ClientFilter) ([]*models.ClientIdentity, error) {
	q := strings.TrimSpace(filter.Query)
	docs, err := r.t.filter(func(c *models.ClientIdentity) bool {
		if filter.Active != nil && c.Active != *filter.Active {
			return false
		}
		if q == "" {
			return true
		}
		return contains(c.Name, q) || contains(c.Surname, q) || contains(c.Email, q) || contains(c.NationalID, q)
	})
	if err != nil {
		return nil, err
	}
	sortBy(docs, func(a, b *models.ClientIdentity) bool {
		if a.Surname != b.Surname {
			return a.Surname < b.Surname
		}
		return a.Name < b.Name
	})
	return stripCredentials[models.ClientIdentity, *models.ClientIdentity](docs), nil
}
