package listings

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"wheelhub-backend/internal/domain"
)

// Form field names. These match the persisted record where one exists.
const (
	FieldType            = "type"
	FieldName            = "name"
	FieldManufacturer    = "manufacturer"
	FieldModel           = "model"
	FieldYear            = "year"
	FieldMileage         = "mileage"
	FieldFuelType        = "fuelType"
	FieldTransmission    = "transmission"
	FieldDescription     = "description"
	FieldRegularPrice    = "regularPrice"
	FieldDiscountedPrice = "discountedPrice"
	FieldImages          = "images"
)

var formFields = []string{
	FieldType, FieldName, FieldManufacturer, FieldModel, FieldYear, FieldMileage,
	FieldFuelType, FieldTransmission, FieldDescription, FieldRegularPrice,
	FieldDiscountedPrice, FieldImages,
}

const (
	MinYear             = 1886
	DefaultMaxImages    = 6
	DefaultMaxImageSize = 2 * 1024 * 1024
	nameMinLen          = 2
	nameMaxLen          = 32
)

// PendingImage is a file selected for upload that has no URL yet.
type PendingImage struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// ImageRef is one slot of the listing image sequence: either an already stored URL or a pending file.
type ImageRef struct {
	URL  string
	File *PendingImage
}

func (r ImageRef) Pending() bool { return r.File != nil }

// Form is the raw listing input. Numeric fields stay as typed until the pipeline coerces them.
type Form struct {
	Type            string
	Name            string
	Manufacturer    string
	Model           string
	Year            string
	Mileage         string
	FuelType        string
	Transmission    string
	Description     string
	Offer           bool
	RegularPrice    string
	DiscountedPrice string
	Images          []ImageRef
}

// ValidationError maps each failing field to its message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "Validation failed"
}

// Validator holds the listing rules that vary between flows.
type Validator struct {
	MinImages    int
	MaxImages    int
	MaxImageSize int64
	Now          func() time.Time
}

// NewValidator returns the default rule set with the given minimum image count (0 or 1).
func NewValidator(minImages int) Validator {
	return Validator{
		MinImages:    minImages,
		MaxImages:    DefaultMaxImages,
		MaxImageSize: DefaultMaxImageSize,
		Now:          time.Now,
	}
}

// Field checks a single field against the form. Returns "" when valid.
func (v Validator) Field(field string, f Form) string {
	switch field {
	case FieldType:
		if strings.TrimSpace(f.Type) == "" {
			return "Listing type is required."
		}
		if !domain.Category(f.Type).Valid() {
			return "Listing type must be rent or sale."
		}
	case FieldName:
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return "Vehicle name is required."
		}
		if n := utf8.RuneCountInString(name); n < nameMinLen || n > nameMaxLen {
			return fmt.Sprintf("Vehicle name must be between %d and %d characters.", nameMinLen, nameMaxLen)
		}
	case FieldManufacturer:
		if strings.TrimSpace(f.Manufacturer) == "" {
			return "Manufacturer is required."
		}
	case FieldModel:
		if strings.TrimSpace(f.Model) == "" {
			return "Model is required."
		}
	case FieldYear:
		y, err := strconv.Atoi(strings.TrimSpace(f.Year))
		if err != nil || y < MinYear || y > v.now().Year() {
			return "Invalid year."
		}
	case FieldMileage:
		m, ok := parseNumber(f.Mileage)
		if !ok || m < 0 {
			return "Invalid mileage."
		}
	case FieldFuelType:
		if strings.TrimSpace(f.FuelType) == "" {
			return "Fuel type is required."
		}
		if !domain.FuelType(f.FuelType).Valid() {
			return "Invalid fuel type."
		}
	case FieldTransmission:
		if strings.TrimSpace(f.Transmission) == "" {
			return "Transmission is required."
		}
		if !domain.Transmission(f.Transmission).Valid() {
			return "Invalid transmission."
		}
	case FieldDescription:
		if strings.TrimSpace(f.Description) == "" {
			return "Description is required."
		}
	case FieldRegularPrice:
		p, ok := parseNumber(f.RegularPrice)
		if !ok || p <= 0 {
			return "Price must be greater than 0."
		}
	case FieldDiscountedPrice:
		if !f.Offer {
			return ""
		}
		d, ok := parseNumber(f.DiscountedPrice)
		if !ok || d <= 0 {
			return "Invalid discounted price."
		}
		if p, ok := parseNumber(f.RegularPrice); ok && d >= p {
			return "Discounted price must be less than regular price."
		}
	case FieldImages:
		return v.images(f.Images)
	}
	return ""
}

func (v Validator) images(refs []ImageRef) string {
	if len(refs) > v.MaxImages {
		return fmt.Sprintf("You can upload a maximum of %d images.", v.MaxImages)
	}
	for _, r := range refs {
		if r.File == nil {
			if strings.TrimSpace(r.URL) == "" {
				return "Invalid image reference."
			}
			continue
		}
		if r.File.Size > v.MaxImageSize {
			return fmt.Sprintf("Each image must be less than %dMB.", v.MaxImageSize/(1024*1024))
		}
	}
	if len(refs) < v.MinImages {
		if v.MinImages == 1 {
			return "Minimum 1 image is required."
		}
		return fmt.Sprintf("Minimum %d images are required.", v.MinImages)
	}
	return ""
}

// Validate runs every field rule and returns a *ValidationError listing all failures, or nil.
func (v Validator) Validate(f Form) error {
	errs := make(map[string]string)
	for _, field := range formFields {
		if msg := v.Field(field, f); msg != "" {
			errs[field] = msg
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Fields: errs}
}

func (v Validator) now() time.Time {
	if v.Now == nil {
		return time.Now()
	}
	return v.Now()
}

func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
