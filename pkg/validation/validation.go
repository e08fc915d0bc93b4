// Package validation holds the field rules shared by the API and the portal
// controller so both sides reject the same input.
package validation

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// OTPLength is the number of digits in an edit verification code.
const OTPLength = 6

var (
	mobilePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)
	aadharPattern = regexp.MustCompile(`^[0-9]{12}$`)
	otpPattern    = regexp.MustCompile(`^[0-9]{6}$`)
)

// Field is a named value checked for presence.
type Field struct {
	Name  string
	Value string
}

// Missing returns the names of fields whose value is blank, in input order.
func Missing(fields ...Field) []string {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.Value) == "" {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// NormalizeMobile strips separators and the +91 / 0 trunk prefixes.
func NormalizeMobile(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		return digits[2:]
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		return digits[1:]
	}
	return digits
}

// IsMobile reports whether raw normalizes to a 10 digit mobile number.
func IsMobile(raw string) bool {
	return mobilePattern.MatchString(NormalizeMobile(raw))
}

// NormalizeAadhar drops the spaces and dashes people type into ID numbers.
func NormalizeAadhar(raw string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(raw))
}

// IsAadhar reports whether raw is a 12 digit national ID.
func IsAadhar(raw string) bool {
	return aadharPattern.MatchString(NormalizeAadhar(raw))
}

// IsOTP reports whether code is exactly six ASCII digits.
func IsOTP(code string) bool {
	return otpPattern.MatchString(code)
}

// New returns a validator with the portal rules registered and JSON field
// names used in error messages.
func New() *validator.Validate {
	v := validator.New()
	Register(v)
	return v
}

// Register adds the mobile, aadhar and otp tags to v.
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return IsMobile(fl.Field().String())
	})
	_ = v.RegisterValidation("aadhar", func(fl validator.FieldLevel) bool {
		return IsAadhar(fl.Field().String())
	})
	_ = v.RegisterValidation("otp", func(fl validator.FieldLevel) bool {
		return IsOTP(fl.Field().String())
	})
}

// Describe flattens validator errors into "field: rule" strings.
func Describe(err error) []string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		if err == nil {
			return nil
		}
		return []string{err.Error()}
	}
	out := make([]string, 0, len(errs))
	for _, fe := range errs {
		out = append(out, fe.Field()+": "+fe.Tag())
	}
	return out
}
