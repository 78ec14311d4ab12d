package location

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/core"
)

var ErrNotFound = errors.New("location not found")

type (
	Province struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	District struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		ProvinceID string `json:"province_id"`
	}

	Municipality struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		DistrictID string `json:"district_id"`
	}

	NewProvince struct {
		Name string `json:"name" validate:"required,notblank,max=255"`
	}

	NewDistrict struct {
		Name       string `json:"name" validate:"required,notblank,max=255"`
		ProvinceID string `json:"province_id" validate:"required,uuid"`
	}

	NewMunicipality struct {
		Name       string `json:"name" validate:"required,notblank,max=255"`
		DistrictID string `json:"district_id" validate:"required,uuid"`
	}

	// QueryFilter filters districts by province or municipalities by district.
	QueryFilter struct {
		Search   string
		ParentID string
	}

	Repository interface {
		CreateProvince(ctx context.Context, p Province) (Province, error)
		QueryProvinces(ctx context.Context, filter QueryFilter) ([]Province, error)
		GetProvince(ctx context.Context, id string) (Province, error)
		GetProvinceByName(ctx context.Context, name string) (Province, error)

		CreateDistrict(ctx context.Context, d District) (District, error)
		QueryDistricts(ctx context.Context, filter QueryFilter) ([]District, error)
		GetDistrict(ctx context.Context, id string) (District, error)
		GetDistrictByName(ctx context.Context, provinceID, name string) (District, error)

		CreateMunicipality(ctx context.Context, m Municipality) (Municipality, error)
		QueryMunicipalities(ctx context.Context, filter QueryFilter) ([]Municipality, error)
		GetMunicipality(ctx context.Context, id string) (Municipality, error)
		GetMunicipalitiesByID(ctx context.Context, ids []string) ([]Municipality, error)
		GetMunicipalityByName(ctx context.Context, districtID, name string) (Municipality, error)
	}

	Service struct {
		repo     Repository
		tx       core.TxRunner
		validate *validator.Validate
		logger   core.Logger
	}

	// ImportResult summarizes a locations CSV import.
	ImportResult struct {
		Provinces      int
		Districts      int
		Municipalities int
		Errors         []string
	}
)

func NewService(repo Repository, tx core.TxRunner, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{repo: repo, tx: tx, validate: validate, logger: logger}
}

// Matches reports whether name contains the filter's search, ignoring case.
func (qf QueryFilter) Matches(name string) bool {
	return qf.Search == "" || core.ContainsFold(qf.Search, name)
}

func (svc *Service) CreateProvince(ctx context.Context, np NewProvince) (Province, error) {
	np.Name = core.CleanString(np.Name)
	if err := svc.validate.Struct(np); err != nil {
		return Province{}, err
	}
	return svc.repo.CreateProvince(ctx, Province{ID: core.NewID(), Name: np.Name})
}

func (svc *Service) CreateDistrict(ctx context.Context, nd NewDistrict) (District, error) {
	nd.Name = core.CleanString(nd.Name)
	if err := svc.validate.Struct(nd); err != nil {
		return District{}, err
	}
	if _, err := svc.repo.GetProvince(ctx, nd.ProvinceID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return District{}, core.NewFieldError("province_id", "province does not exist")
		}
		return District{}, err
	}
	return svc.repo.CreateDistrict(ctx, District{ID: core.NewID(), Name: nd.Name, ProvinceID: nd.ProvinceID})
}

func (svc *Service) CreateMunicipality(ctx context.Context, nm NewMunicipality) (Municipality, error) {
	nm.Name = core.CleanString(nm.Name)
	if err := svc.validate.Struct(nm); err != nil {
		return Municipality{}, err
	}
	if _, err := svc.repo.GetDistrict(ctx, nm.DistrictID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Municipality{}, core.NewFieldError("district_id", "district does not exist")
		}
		return Municipality{}, err
	}
	return svc.repo.CreateMunicipality(ctx, Municipality{ID: core.NewID(), Name: nm.Name, DistrictID: nm.DistrictID})
}

func (svc *Service) Provinces(ctx context.Context, search string) ([]Province, error) {
	return svc.repo.QueryProvinces(ctx, QueryFilter{Search: core.CleanString(search)})
}

func (svc *Service) Districts(ctx context.Context, provinceID, search string) ([]District, error) {
	return svc.repo.QueryDistricts(ctx, QueryFilter{Search: core.CleanString(search), ParentID: provinceID})
}

func (svc *Service) Municipalities(ctx context.Context, districtID, search string) ([]Municipality, error) {
	return svc.repo.QueryMunicipalities(ctx, QueryFilter{Search: core.CleanString(search), ParentID: districtID})
}

func (svc *Service) GetMunicipality(ctx context.Context, id string) (Municipality, error) {
	if !core.IsValidID(id) {
		return Municipality{}, ErrNotFound
	}
	return svc.repo.GetMunicipality(ctx, id)
}

func (svc *Service) GetMunicipalities(ctx context.Context, ids []string) ([]Municipality, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return svc.repo.GetMunicipalitiesByID(ctx, ids)
}

func (svc *Service) GetDistrict(ctx context.Context, id string) (District, error) {
	return svc.repo.GetDistrict(ctx, id)
}

func (svc *Service) GetProvince(ctx context.Context, id string) (Province, error) {
	return svc.repo.GetProvince(ctx, id)
}

// Import reads `province,district,municipality` rows and creates the missing locations.
// Existing locations are matched by name so importing the same file twice is a no-op.
func (svc *Service) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	var res ImportResult

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return res, errors.Wrap(err, "reading csv")
	}
	if len(rows) == 0 {
		return res, nil
	}
	if strings.EqualFold(strings.TrimSpace(rows[0][0]), "province") {
		rows = rows[1:] // header
	}

	err = svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		for i, row := range rows {
			line := i + 2
			if len(row) < 3 {
				res.Errors = append(res.Errors, fmt.Sprintf("line %d: expected 3 columns, got %d", line, len(row)))
				continue
			}
			if err := svc.importRow(ctx, row, &res); err != nil {
				if core.IsValidationError(err) {
					res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", line, err))
					continue
				}
				return errors.Wrapf(err, "line %d", line)
			}
		}
		return nil
	})
	return res, err
}

func (svc *Service) importRow(ctx context.Context, row []string, res *ImportResult) error {
	provName, distName, muniName := core.CleanString(row[0]), core.CleanString(row[1]), core.CleanString(row[2])
	if provName == "" || distName == "" || muniName == "" {
		return core.NewValidationError(errors.New("province, district and municipality are required"))
	}

	prov, err := svc.repo.GetProvinceByName(ctx, provName)
	if errors.Cause(err) == ErrNotFound {
		if prov, err = svc.CreateProvince(ctx, NewProvince{Name: provName}); err == nil {
			res.Provinces++
		}
	}
	if err != nil {
		return err
	}

	dist, err := svc.repo.GetDistrictByName(ctx, prov.ID, distName)
	if errors.Cause(err) == ErrNotFound {
		if dist, err = svc.CreateDistrict(ctx, NewDistrict{Name: distName, ProvinceID: prov.ID}); err == nil {
			res.Districts++
		}
	}
	if err != nil {
		return err
	}

	_, err = svc.repo.GetMunicipalityByName(ctx, dist.ID, muniName)
	if errors.Cause(err) == ErrNotFound {
		if _, err = svc.CreateMunicipality(ctx, NewMunicipality{Name: muniName, DistrictID: dist.ID}); err == nil {
			res.Municipalities++
		}
	}
	return err
}
