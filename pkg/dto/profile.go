package dto

import "github.com/livingvectors/lv-api/internal/models"

type ProfileEnvelope struct {
	Body   *models.Profile `json:"body"`
	Status int             `json:"status"`
}

// UpdateProfileRequest fields are optional; omitted and empty values clear the column.
type UpdateProfileRequest struct {
	Name      *string `json:"name"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Bio       *string `json:"bio"`
}

func (r UpdateProfileRequest) ToModel() models.ProfileUpdate {
	return models.ProfileUpdate{
		Name:      r.Name,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
		Bio:       r.Bio,
	}
}
