package dto

import (
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"
)

var (
	courseCodePattern   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]{4,6}$`)
	academicYearPattern = regexp.MustCompile(`^(\d{4})-(\d{4})$`)
)

// NewValidator returns a validator with the timetable-specific tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("coursecode", func(fl validator.FieldLevel) bool {
		return courseCodePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("academicyear", func(fl validator.FieldLevel) bool {
		return ValidAcademicYear(fl.Field().String())
	})
	return v
}

// ValidAcademicYear accepts consecutive years such as 2024-2025.
func ValidAcademicYear(raw string) bool {
	m := academicYearPattern.FindStringSubmatch(raw)
	if m == nil {
		return false
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	return end == start+1
}
