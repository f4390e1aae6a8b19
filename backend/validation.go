package main

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const minimumAge = 18

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names so error codes match the request body
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("adult", func(fl validator.FieldLevel) bool {
		dob, err := time.Parse("2006-01-02", fl.Field().String())
		if err != nil {
			return false
		}
		return ageOn(dob, time.Now()) >= minimumAge
	})
	return v
}

// ageOn returns full years between dob and now.
func ageOn(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

// validationCode turns the first validation failure into a snake_case error code.
func validationCode(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid_request"
	}
	fe := verrs[0]
	if fe.Tag() == "adult" {
		return "underage"
	}
	field := fe.Field()
	if field == "" {
		field = strings.ToLower(fe.StructField())
	}
	return "invalid_" + field
}

// profileUpdate is the body of PUT /me/profile. It replaces every editable field.
type profileUpdate struct {
	DisplayName      string  `json:"display_name" validate:"required,max=80"`
	DateOfBirth      string  `json:"date_of_birth" validate:"required,datetime=2006-01-02,adult"`
	Gender           string  `json:"gender" validate:"required,oneof=male female"`
	MaritalStatus    string  `json:"marital_status" validate:"omitempty,oneof=never_married divorced widowed separated"`
	DivorceFinalized bool    `json:"divorce_finalized"`
	Children         []Child `json:"children" validate:"max=12,dive"`
	ChildrenCount    *int    `json:"children_count"`
	Education        string  `json:"education" validate:"omitempty,oneof=none primary secondary higher_secondary diploma graduate postgraduate doctorate"`
	Profession       string  `json:"profession" validate:"max=100"`
	Caste            string  `json:"caste" validate:"max=60"`
	Religion         string  `json:"religion" validate:"omitempty,oneof=hindu muslim christian sikh buddhist jain parsi other"`
	Location         struct {
		Village  string `json:"village" validate:"max=80"`
		Tehsil   string `json:"tehsil" validate:"max=80"`
		District string `json:"district" validate:"max=80"`
		State    string `json:"state" validate:"max=80"`
	} `json:"location"`
	Guardian struct {
		Name    string `json:"name" validate:"max=80"`
		Contact string `json:"contact" validate:"max=20"`
	} `json:"guardian"`
	Interests string `json:"interests" validate:"max=500"`
	About     string `json:"about" validate:"max=2000"`
}

// check runs tag validation plus the rules tags cannot express.
func (p *profileUpdate) check() string {
	if err := validate.Struct(p); err != nil {
		return validationCode(err)
	}
	if p.ChildrenCount != nil && *p.ChildrenCount != len(p.Children) {
		return "invalid_children_count"
	}
	if p.MaritalStatus == "never_married" && len(p.Children) > 0 {
		return "invalid_children"
	}
	return ""
}

// normalize trims free text and clears flags that do not apply.
func (p *profileUpdate) normalize() {
	trim := func(s *string) { *s = strings.TrimSpace(*s) }
	for _, s := range []*string{
		&p.DisplayName, &p.Profession, &p.Caste, &p.Interests, &p.About,
		&p.Location.Village, &p.Location.Tehsil, &p.Location.District, &p.Location.State,
		&p.Guardian.Name, &p.Guardian.Contact,
	} {
		trim(s)
	}
	if p.MaritalStatus != "divorced" {
		p.DivorceFinalized = false
	}
	if p.Children == nil {
		p.Children = []Child{}
	}
}
