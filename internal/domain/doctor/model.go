package doctor

import (
	"time"

	"github.com/shopspring/decimal"
)

const Table = "doctors"

type Doctor struct {
	ID           string          `json:"id,omitempty"`
	Name         string          `json:"name"`
	Specialty    string          `json:"specialty"`
	Hospital     string          `json:"hospital"`
	Languages    []string        `json:"languages"`
	ProfileImage *string         `json:"profile_image"`
	Rating       decimal.Decimal `json:"rating"`
	CreatedAt    *time.Time      `json:"created_at,omitempty"`
}

type CreateRequest struct {
	Name         string           `json:"name" validate:"required"`
	Specialty    string           `json:"specialty" validate:"required"`
	Hospital     string           `json:"hospital" validate:"required"`
	Languages    []string         `json:"languages"`
	ProfileImage *string          `json:"profile_image"`
	Rating       *decimal.Decimal `json:"rating"`
}

type UpdateRequest struct {
	Name         *string          `json:"name"`
	Specialty    *string          `json:"specialty"`
	Hospital     *string          `json:"hospital"`
	Languages    *[]string        `json:"languages"`
	ProfileImage *string          `json:"profile_image"`
	Rating       *decimal.Decimal `json:"rating"`
}

func (r UpdateRequest) values() map[string]any {
	v := map[string]any{}
	if r.Name != nil {
		v["name"] = *r.Name
	}
	if r.Specialty != nil {
		v["specialty"] = *r.Specialty
	}
	if r.Hospital != nil {
		v["hospital"] = *r.Hospital
	}
	if r.Languages != nil {
		langs := *r.Languages
		if langs == nil {
			langs = []string{}
		}
		v["languages"] = langs
	}
	if r.ProfileImage != nil {
		v["profile_image"] = *r.ProfileImage
	}
	if r.Rating != nil {
		v["rating"] = *r.Rating
	}
	return v
}

// SearchParams are case-insensitive substring filters.
type SearchParams struct {
	Specialty string
	Hospital  string
}
