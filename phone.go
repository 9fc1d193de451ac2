package auth

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used to parse numbers written without a country code
const DefaultPhoneRegion = "KR"

// NormalizePhone parses phone for region and returns it in E.164 form. An
// empty input is returned unchanged.
func NormalizePhone(phone, region string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", nil
	}

	if region == "" {
		region = DefaultPhoneRegion
	}

	num, err := phonenumbers.Parse(phone, strings.ToUpper(region))
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryValidation, "phone number could not be parsed").
			WithCode(errors.CodeBadRequest).
			WithTextCode("INVALID_PHONE")
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", errors.New("phone number is not valid", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest).
			WithTextCode("INVALID_PHONE")
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// FormatPhone returns phone in E.164 form when it is a valid number for
// region, otherwise the trimmed input unchanged.
func FormatPhone(phone, region string) string {
	if normalized, err := NormalizePhone(phone, region); err == nil {
		return normalized
	}
	return strings.TrimSpace(phone)
}

func resolvePhone(phone, region string, strict bool) (string, error) {
	if strict {
		return NormalizePhone(phone, region)
	}
	return FormatPhone(phone, region), nil
}

// PhoneRule is an ozzo-validation rule that accepts numbers NormalizePhone
// can handle
func PhoneRule(region string) validation.RuleFunc {
	return func(value interface{}) error {
		value, _ = validation.Indirect(value)
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		_, err := NormalizePhone(s, region)
		if err != nil {
			return errors.New("must be a valid phone number", errors.CategoryValidation)
		}
		return nil
	}
}
