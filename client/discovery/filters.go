// Package discovery turns a viewer's filters into profile queries and walks
// the paginated results.
package discovery

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"gitea.kood.tech/saathi/matchmaking/client/api"
)

const (
	MinAge = 18
	MaxAge = 100
)

// Filters is the viewer-local filter set. Search never leaves the client.
type Filters struct {
	Name       string `json:"name" validate:"max=100"`
	Location   string `json:"location" validate:"max=100"`
	Profession string `json:"profession" validate:"max=100"`
	AgeFrom    int    `json:"ageFrom" validate:"omitempty,min=18,max=100"`
	AgeTo      int    `json:"ageTo" validate:"omitempty,min=18,max=100"`
	Caste      string `json:"caste" validate:"max=60"`
	Religion   string `json:"religion" validate:"omitempty,oneof=hindu muslim christian sikh buddhist jain parsi other"`
	Education  string `json:"education" validate:"omitempty,oneof=none primary secondary higher_secondary diploma graduate postgraduate doctorate"`
	Search     string `json:"search"`
}

// ValidationError names the first filter that failed.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid filter %s (%s)", e.Field, e.Rule)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		f := sl.Current().Interface().(Filters)
		if f.AgeFrom > 0 && f.AgeTo > 0 && f.AgeFrom > f.AgeTo {
			sl.ReportError(f.AgeTo, "ageTo", "AgeTo", "gtefield", "ageFrom")
		}
	}, Filters{})
	return v
}

// Validate checks the filters before any request is made.
func (f Filters) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &ValidationError{Field: verrs[0].Field(), Rule: verrs[0].Tag()}
	}
	return err
}

// IsZero reports whether no filter and no search is set.
func (f Filters) IsZero() bool {
	return f == Filters{}
}

// ToQuery converts the filters into a store query. The age range becomes a
// birth-year range using the calendar year of now: the lower age bounds the
// latest birth year.
func (f Filters) ToQuery(now time.Time, page int) api.ProfileQuery {
	q := api.ProfileQuery{
		Name:       strings.TrimSpace(f.Name),
		Location:   strings.TrimSpace(f.Location),
		Profession: strings.TrimSpace(f.Profession),
		Caste:      strings.TrimSpace(f.Caste),
		Religion:   f.Religion,
		Education:  f.Education,
		Page:       page,
	}
	year := now.Year()
	if f.AgeFrom > 0 {
		q.YearOfBirthTo = year - f.AgeFrom
	}
	if f.AgeTo > 0 {
		q.YearOfBirthFrom = year - f.AgeTo
	}
	return q
}

// ApplySearch narrows profiles to those whose name, profession or full
// location contains query, ignoring case. An empty query keeps everything.
func ApplySearch(profiles []api.Profile, query string) []api.Profile {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return append([]api.Profile(nil), profiles...)
	}
	out := make([]api.Profile, 0, len(profiles))
	for _, p := range profiles {
		if matches(p, needle) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p api.Profile, needle string) bool {
	loc := strings.Join([]string{p.Location.Village, p.Location.Tehsil, p.Location.District, p.Location.State}, " ")
	for _, hay := range []string{p.DisplayName, p.Profession, loc} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}
