// Package school manages the schools and institutions buying books.
// Both share the same shape; Institution only lacks a school code.
package school

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/location"
)

// Kinds
const (
	KindSchool      = "school"
	KindInstitution = "institution"
)

var (
	ErrNotFound = errors.New("school not found")

	OrderingFields = map[string]string{
		"name":        "name",
		"school_code": "school_code",
		"created_at":  "created_at",
	}
)

type (
	// School is either a school or an institution, depending on Kind.
	School struct {
		ID             string    `json:"id"`
		Kind           string    `json:"kind"`
		Name           string    `json:"name"`
		SchoolCode     string    `json:"school_code,omitempty"`
		PanNumber      string    `json:"pan_number"`
		MunicipalityID string    `json:"municipality_id"`
		WardNumber     int       `json:"ward_number"`
		LocalAddress   string    `json:"local_address"`
		IsVerified     bool      `json:"is_verified"`
		CreatedAt      time.Time `json:"created_at"`
		UpdatedAt      time.Time `json:"updated_at"`
	}

	NewSchool struct {
		Kind           string `json:"-"`
		Name           string `json:"name" validate:"required,notblank,max=255"`
		SchoolCode     string `json:"school_code" validate:"omitempty,max=50"`
		PanNumber      string `json:"pan_number" validate:"omitempty,max=50"`
		MunicipalityID string `json:"municipality_id" validate:"required,uuid"`
		WardNumber     int    `json:"ward_number" validate:"gte=0"`
		LocalAddress   string `json:"local_address" validate:"omitempty,max=255"`
	}

	UpdateSchool struct {
		Name           *string `json:"name" validate:"omitempty,notblank,max=255"`
		SchoolCode     *string `json:"school_code" validate:"omitempty,max=50"`
		PanNumber      *string `json:"pan_number" validate:"omitempty,max=50"`
		MunicipalityID *string `json:"municipality_id" validate:"omitempty,uuid"`
		WardNumber     *int    `json:"ward_number" validate:"omitempty,gte=0"`
		LocalAddress   *string `json:"local_address" validate:"omitempty,max=255"`
		IsVerified     *bool   `json:"is_verified"`
	}

	QueryFilter struct {
		Kind           string
		Search         string
		MunicipalityID string
		IsVerified     *bool
	}

	Repository interface {
		CreateSchool(ctx context.Context, s School) (School, error)
		QuerySchools(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]School, error)
		GetSchool(ctx context.Context, kind, id string) (School, error)
		GetSchoolsByID(ctx context.Context, ids []string) ([]School, error)
		UpdateSchool(ctx context.Context, s School) (School, error)
		DeleteSchool(ctx context.Context, kind, id string) error
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

func (qf QueryFilter) Match(s School) bool {
	if qf.Kind != "" && s.Kind != qf.Kind {
		return false
	}
	if qf.Search != "" && !core.ContainsFold(qf.Search, s.Name, s.SchoolCode, s.PanNumber) {
		return false
	}
	if qf.MunicipalityID != "" && s.MunicipalityID != qf.MunicipalityID {
		return false
	}
	if qf.IsVerified != nil && s.IsVerified != *qf.IsVerified {
		return false
	}
	return true
}

func (svc *Service) checkMunicipality(ctx context.Context, id string) error {
	if _, err := svc.locations.GetMunicipality(ctx, id); err != nil {
		if errors.Cause(err) == location.ErrNotFound {
			return core.NewFieldError("municipality_id", "municipality does not exist")
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewSchool) (School, error) {
	if ns.Kind != KindSchool && ns.Kind != KindInstitution {
		return School{}, errors.Errorf("invalid school kind %q", ns.Kind)
	}
	ns.Name = core.CleanString(ns.Name)
	ns.PanNumber = core.CleanString(ns.PanNumber)
	ns.LocalAddress = core.CleanString(ns.LocalAddress)
	if ns.Kind == KindSchool {
		ns.SchoolCode = core.CleanString(ns.SchoolCode)
	} else {
		ns.SchoolCode = ""
	}
	if err := svc.validate.Struct(ns); err != nil {
		return School{}, err
	}
	if err := svc.checkMunicipality(ctx, ns.MunicipalityID); err != nil {
		return School{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateSchool(ctx, School{
		ID:             core.NewID(),
		Kind:           ns.Kind,
		Name:           ns.Name,
		SchoolCode:     ns.SchoolCode,
		PanNumber:      ns.PanNumber,
		MunicipalityID: ns.MunicipalityID,
		WardNumber:     ns.WardNumber,
		LocalAddress:   ns.LocalAddress,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (svc *Service) Update(ctx context.Context, kind, id string, us UpdateSchool) (School, error) {
	sch, err := svc.Get(ctx, kind, id)
	if err != nil {
		return School{}, err
	}
	if err = svc.validate.Struct(us); err != nil {
		return School{}, err
	}
	if us.MunicipalityID != nil {
		if err = svc.checkMunicipality(ctx, *us.MunicipalityID); err != nil {
			return School{}, err
		}
		sch.MunicipalityID = *us.MunicipalityID
	}
	if us.Name != nil {
		sch.Name = core.CleanString(*us.Name)
	}
	if us.SchoolCode != nil && sch.Kind == KindSchool {
		sch.SchoolCode = core.CleanString(*us.SchoolCode)
	}
	if us.PanNumber != nil {
		sch.PanNumber = core.CleanString(*us.PanNumber)
	}
	if us.WardNumber != nil {
		sch.WardNumber = *us.WardNumber
	}
	if us.LocalAddress != nil {
		sch.LocalAddress = core.CleanString(*us.LocalAddress)
	}
	if us.IsVerified != nil {
		sch.IsVerified = *us.IsVerified
	}
	return svc.Save(ctx, sch)
}

// Save persists s as is.
func (svc *Service) Save(ctx context.Context, s School) (School, error) {
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSchool(ctx, s)
}

func (svc *Service) Get(ctx context.Context, kind, id string) (School, error) {
	if !core.IsValidID(id) {
		return School{}, ErrNotFound
	}
	return svc.repo.GetSchool(ctx, kind, id)
}

// GetMany returns schools and institutions matching ids.
func (svc *Service) GetMany(ctx context.Context, ids []string) ([]School, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return svc.repo.GetSchoolsByID(ctx, ids)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]School, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QuerySchools(ctx, filter, ordering)
}

func (svc *Service) Delete(ctx context.Context, kind, id string) error {
	if _, err := svc.Get(ctx, kind, id); err != nil {
		return err
	}
	return svc.repo.DeleteSchool(ctx, kind, id)
}
