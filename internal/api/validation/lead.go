package validation

import (
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"lead-hunter/pkg/models"
)

// ValidateLeadStatus accepts only the known lead lifecycle statuses
func ValidateLeadStatus(fl validator.FieldLevel) bool {
	return models.LeadStatus(fl.Field().String()).Valid()
}

// ValidateHTTPURL requires an absolute http(s) URL with a host
func ValidateHTTPURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(strings.TrimSpace(fl.Field().String()))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// RegisterLeadValidators registers the custom validators used by the lead and hunter requests
func RegisterLeadValidators(v *validator.Validate) {
	v.RegisterValidation("lead_status", ValidateLeadStatus)
	v.RegisterValidation("http_url", ValidateHTTPURL)
}

// New returns a validator with the custom rules registered
func New() *validator.Validate {
	v := validator.New()
	RegisterLeadValidators(v)
	return v
}
