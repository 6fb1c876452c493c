package service

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"unicode/utf8"

	cerrors "github.com/abgdnv/productcatalog/internal/catalog/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	imageField        = "imageFile"
	fallbackImageName = "image"

	// maxPriceDigits and maxPriceScale match the NUMERIC(16,4) price column.
	maxPriceDigits = 12
	maxPriceScale  = 4
	maxPriceLength = 32

	// maxStorageNameBytes keeps {millis}_{name} within a 255 byte file name.
	maxStorageNameBytes = 200
	maxExtensionBytes   = 16
)

var maxPrice = decimal.New(1, maxPriceDigits)

// ProductInput is a submitted product form. Image is the raw upload and
// ImageName the client-side filename. Price is kept as submitted text.
type ProductInput struct {
	Name        string `form:"name"        validate:"required,max=255"`
	Brand       string `form:"brand"       validate:"required,max=255"`
	Category    string `form:"category"    validate:"required,max=255"`
	Price       string `form:"price"       validate:"required,max=32,nonneg_decimal,price_bounds"`
	Description string `form:"description" validate:"max=2000"`
	Image       []byte `form:"-"`
	ImageName   string `form:"-"`
}

// HasImage reports whether an image was uploaded.
func (in ProductInput) HasImage() bool {
	return len(in.Image) > 0
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("nonneg_decimal", func(fl validator.FieldLevel) bool {
		_, err := parseNonNegative(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("price_bounds", func(fl validator.FieldLevel) bool {
		_, err := parsePrice(fl.Field().String())
		return err == nil
	})
	return v
}

var (
	errNegativePrice    = errors.New("price must not be negative")
	errPriceNotation    = errors.New("price must be written in plain decimal notation")
	errPriceOutOfBounds = errors.New("price is out of bounds")
)

// parseNonNegative accepts plain decimal notation only. Exponents are refused
// because a short input like 1e50000000 expands to millions of digits.
func parseNonNegative(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if len(s) > maxPriceLength || strings.ContainsAny(s, "eE") {
		return decimal.Decimal{}, errPriceNotation
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if d.IsNegative() {
		return decimal.Decimal{}, errNegativePrice
	}
	return d, nil
}

// parsePrice parses a non-negative price below 10^12 with at most four decimal places.
func parsePrice(s string) (decimal.Decimal, error) {
	d, err := parseNonNegative(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !d.LessThan(maxPrice) || (d.Exponent() < -maxPriceScale && !d.Equal(d.Round(maxPriceScale))) {
		return decimal.Decimal{}, errPriceOutOfBounds
	}
	return d, nil
}

// validateInput checks every field and returns a ValidationError listing all failures.
func validateInput(v *validator.Validate, in ProductInput, imageRequired bool) error {
	var fields []cerrors.FieldError
	if err := v.Struct(in); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return err
		}
		for _, fe := range ve {
			fields = append(fields, cerrors.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
	}
	if imageRequired && !in.HasImage() {
		fields = append(fields, cerrors.FieldError{Field: imageField, Message: "The image is required"})
	}
	if len(fields) > 0 {
		return &cerrors.ValidationError{Fields: fields}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "The " + fe.Field() + " is required"
	case "nonneg_decimal":
		return "The " + fe.Field() + " must be a non-negative number"
	case "price_bounds":
		return "The " + fe.Field() + " must be less than 1000000000000 with at most 4 decimal places"
	case "max":
		return "The " + fe.Field() + " cannot exceed " + fe.Param() + " characters"
	default:
		return "failed on rule: " + fe.Tag()
	}
}

// storageName reduces a client filename to a single safe path element.
func storageName(original string) string {
	name := strings.ReplaceAll(original, `\`, "/")
	name = filepath.Base(filepath.Clean("/" + name))
	name = strings.ReplaceAll(name, "\x00", "")
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", ".")
	}
	if name == "" || name == "." || name == "/" {
		return fallbackImageName
	}
	return truncateName(name)
}

// truncateName shortens name to maxStorageNameBytes, keeping a short extension
// and never splitting a UTF-8 sequence.
func truncateName(name string) string {
	if len(name) <= maxStorageNameBytes {
		return name
	}
	ext := filepath.Ext(name)
	if len(ext) > maxExtensionBytes {
		ext = ""
	}
	cut := maxStorageNameBytes - len(ext)
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut] + ext
}
