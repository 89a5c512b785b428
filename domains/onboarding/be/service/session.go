package service

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/monynha/botecopro/platform/go/persistence"
)

// DefaultCountry is used whenever a country field is left blank.
const DefaultCountry = "Brasil"

// Wizard steps.
const (
	StepPersonal = 1
	StepBusiness = 2
	StepPlan     = 3
	StepPayment  = 4
)

// PersonalInfo holds the owner's details collected on step 1.
type PersonalInfo struct {
	FirstName   string `json:"firstName" validate:"required"`
	LastName    string `json:"lastName" validate:"required"`
	Email       string `json:"email" validate:"required"`
	TaxNumber   string `json:"taxNumber" validate:"required,taxid"`
	BirthDate   string `json:"birthDate" validate:"required"`
	Country     string `json:"country" validate:"required"`
	PostalCode  string `json:"postalCode" validate:"required,postalcode"`
	HouseNumber string `json:"houseNumber" validate:"required"`
}

// BusinessInfo holds the establishment details collected on step 2.
// VibeTags keeps the raw comma separated text as entered.
type BusinessInfo struct {
	PublicName      string `json:"publicName" validate:"required"`
	Username        string `json:"username" validate:"required,handle"`
	TaxNumber       string `json:"taxNumber" validate:"required,taxid"`
	ServiceCategory string `json:"serviceCategory" validate:"required"`
	Country         string `json:"country" validate:"required"`
	PostalCode      string `json:"postalCode" validate:"required,postalcode"`
	VibeTags        string `json:"vibeTags"`
}

// Tags splits VibeTags on commas, trimming each tag and dropping empties.
func (b BusinessInfo) Tags() []string {
	tags := []string{}
	for _, raw := range strings.Split(b.VibeTags, ",") {
		if tag := strings.TrimSpace(raw); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Session is the state of one wizard run. It is owned by a single interaction and is
// passed explicitly to every controller operation.
type Session struct {
	ID           string       `json:"id"`
	CurrentStep  int          `json:"currentStep"`
	IsLoading    bool         `json:"isLoading"`
	Personal     PersonalInfo `json:"personal"`
	Business     BusinessInfo `json:"business"`
	SelectedPlan string       `json:"selectedPlan"`
	UserID       *uuid.UUID   `json:"userId,omitempty"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// NewSession returns a session positioned on step 1 with the country defaults applied.
func NewSession(id string) *Session {
	return &Session{
		ID:          id,
		CurrentStep: StepPersonal,
		Personal:    PersonalInfo{Country: DefaultCountry},
		Business:    BusinessInfo{Country: DefaultCountry},
	}
}

// Prefill copies a stored user into the personal fields and rewinds the wizard to step 1.
func (s *Session) Prefill(u persistence.User) {
	id := u.ID
	s.UserID = &id
	s.Personal = PersonalInfo{
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		TaxNumber:   u.TaxNumber,
		BirthDate:   u.BirthDate,
		Country:     orDefaultCountry(u.Country),
		PostalCode:  u.PostalCode,
		HouseNumber: u.HouseNumber,
	}
	s.CurrentStep = StepPersonal
}

func (s *Session) advanceTo(step int) {
	if step > s.CurrentStep {
		s.CurrentStep = step
	}
}

// UsernameHint derives the internal username: "first.last" plus the first four characters
// of the tax number, lower-cased.
func UsernameHint(firstName, lastName, taxNumber string) string {
	hint := strings.ToLower(firstName) + "." + strings.ToLower(lastName)
	runes := []rune(taxNumber)
	if len(runes) > 4 {
		runes = runes[:4]
	}
	return hint + strings.ToLower(string(runes))
}

func orDefaultCountry(country string) string {
	if country = strings.TrimSpace(country); country != "" {
		return country
	}
	return DefaultCountry
}
