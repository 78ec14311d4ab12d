package publisher

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/location"
)

var (
	ErrNotFound = errors.New("publisher not found")

	OrderingFields = map[string]string{
		"name":       "name",
		"created_at": "created_at",
	}
)

type (
	Publisher struct {
		ID             string    `json:"id"`
		Name           string    `json:"name"`
		Email          string    `json:"email"`
		PhoneNumber    string    `json:"phone_number"`
		PanNumber      string    `json:"pan_number"`
		VatNumber      string    `json:"vat_number"`
		MunicipalityID string    `json:"municipality_id"`
		WardNumber     int       `json:"ward_number"`
		LocalAddress   string    `json:"local_address"`
		CreatedAt      time.Time `json:"created_at"`
		UpdatedAt      time.Time `json:"updated_at"`
	}

	NewPublisher struct {
		Name           string `json:"name" validate:"required,notblank,max=255"`
		Email          string `json:"email" validate:"omitempty,email"`
		PhoneNumber    string `json:"phone_number" validate:"omitempty,max=20"`
		PanNumber      string `json:"pan_number" validate:"omitempty,max=50"`
		VatNumber      string `json:"vat_number" validate:"omitempty,max=50"`
		MunicipalityID string `json:"municipality_id" validate:"omitempty,uuid"`
		WardNumber     int    `json:"ward_number" validate:"gte=0"`
		LocalAddress   string `json:"local_address" validate:"omitempty,max=255"`
	}

	UpdatePublisher struct {
		Name           *string `json:"name" validate:"omitempty,notblank,max=255"`
		Email          *string `json:"email" validate:"omitempty,email"`
		PhoneNumber    *string `json:"phone_number" validate:"omitempty,max=20"`
		PanNumber      *string `json:"pan_number" validate:"omitempty,max=50"`
		VatNumber      *string `json:"vat_number" validate:"omitempty,max=50"`
		MunicipalityID *string `json:"municipality_id" validate:"omitempty,uuid"`
		WardNumber     *int    `json:"ward_number" validate:"omitempty,gte=0"`
		LocalAddress   *string `json:"local_address" validate:"omitempty,max=255"`
	}

	QueryFilter struct {
		Search string
	}

	Repository interface {
		CreatePublisher(ctx context.Context, p Publisher) (Publisher, error)
		QueryPublishers(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Publisher, error)
		GetPublisher(ctx context.Context, id string) (Publisher, error)
		GetPublisherByName(ctx context.Context, name string) (Publisher, error)
		GetPublishersByID(ctx context.Context, ids []string) ([]Publisher, error)
		UpdatePublisher(ctx context.Context, p Publisher) (Publisher, error)
		DeletePublisher(ctx context.Context, id string) error
	}

	Service struct {
		repo      Repository
		locations *location.Service
		validate  *validator.Validate
		logger    core.Logger
	}
)

func NewService(repo Repository, locations *location.Service, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{repo: repo, locations: locations, validate: validate, logger: logger}
}

func (np *NewPublisher) Clean() {
	np.Name = core.CleanString(np.Name)
	np.Email = core.CleanString(np.Email, true /* lower */)
	np.PhoneNumber = core.CleanString(np.PhoneNumber)
	np.PanNumber = core.CleanString(np.PanNumber)
	np.VatNumber = core.CleanString(np.VatNumber)
	np.LocalAddress = core.CleanString(np.LocalAddress)
}

// Match reports whether p satisfies the filter.
func (qf QueryFilter) Match(p Publisher) bool {
	return qf.Search == "" || core.ContainsFold(qf.Search, p.Name, p.Email, p.PanNumber)
}

func (svc *Service) checkMunicipality(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if _, err := svc.locations.GetMunicipality(ctx, id); err != nil {
		if errors.Cause(err) == location.ErrNotFound {
			return core.NewFieldError("municipality_id", "municipality does not exist")
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, np NewPublisher) (Publisher, error) {
	np.Clean()
	if err := svc.validate.Struct(np); err != nil {
		return Publisher{}, err
	}
	if err := svc.checkMunicipality(ctx, np.MunicipalityID); err != nil {
		return Publisher{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreatePublisher(ctx, Publisher{
		ID:             core.NewID(),
		Name:           np.Name,
		Email:          np.Email,
		PhoneNumber:    np.PhoneNumber,
		PanNumber:      np.PanNumber,
		VatNumber:      np.VatNumber,
		MunicipalityID: np.MunicipalityID,
		WardNumber:     np.WardNumber,
		LocalAddress:   np.LocalAddress,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (svc *Service) Update(ctx context.Context, id string, up UpdatePublisher) (Publisher, error) {
	pub, err := svc.Get(ctx, id)
	if err != nil {
		return Publisher{}, err
	}
	if err = svc.validate.Struct(up); err != nil {
		return Publisher{}, err
	}
	if up.MunicipalityID != nil {
		if err = svc.checkMunicipality(ctx, *up.MunicipalityID); err != nil {
			return Publisher{}, err
		}
		pub.MunicipalityID = *up.MunicipalityID
	}
	if up.Name != nil {
		pub.Name = core.CleanString(*up.Name)
	}
	if up.Email != nil {
		pub.Email = core.CleanString(*up.Email, true /* lower */)
	}
	if up.PhoneNumber != nil {
		pub.PhoneNumber = core.CleanString(*up.PhoneNumber)
	}
	if up.PanNumber != nil {
		pub.PanNumber = core.CleanString(*up.PanNumber)
	}
	if up.VatNumber != nil {
		pub.VatNumber = core.CleanString(*up.VatNumber)
	}
	if up.WardNumber != nil {
		pub.WardNumber = *up.WardNumber
	}
	if up.LocalAddress != nil {
		pub.LocalAddress = core.CleanString(*up.LocalAddress)
	}
	pub.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdatePublisher(ctx, pub)
}

func (svc *Service) Get(ctx context.Context, id string) (Publisher, error) {
	if !core.IsValidID(id) {
		return Publisher{}, ErrNotFound
	}
	return svc.repo.GetPublisher(ctx, id)
}

func (svc *Service) GetByName(ctx context.Context, name string) (Publisher, error) {
	return svc.repo.GetPublisherByName(ctx, core.CleanString(name))
}

func (svc *Service) GetMany(ctx context.Context, ids []string) ([]Publisher, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return svc.repo.GetPublishersByID(ctx, ids)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Publisher, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryPublishers(ctx, filter, ordering)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.Get(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeletePublisher(ctx, id)
}
