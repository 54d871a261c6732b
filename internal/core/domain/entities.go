package domain

import (
	"encoding/json"
	"regexp"
	"time"
)

// Credentials is the token triple issued by the identity provider.
// It is stored whole or not at all.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
}

// Complete reports whether all three tokens are present.
func (c Credentials) Complete() bool {
	return c.AccessToken != "" && c.RefreshToken != "" && c.IDToken != ""
}

// Profile is what the UI shows about the logged-in lecturer.
type Profile struct {
	DisplayName string    `json:"display_name"`
	Username    string    `json:"username,omitempty"`
	Email       string    `json:"email,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Lecturer identifies an advisor or a validating lecturer.
type Lecturer struct {
	NIP   string `json:"nip"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DepositProgress summarises how far a student is through the required components.
type DepositProgress struct {
	Required        int     `json:"required"`
	Done            int     `json:"done"`
	Remaining       int     `json:"remaining"`
	Percent         float64 `json:"percent"`
	LastDepositDate *string `json:"last_deposit_date,omitempty"`
	LastDeposit     string  `json:"last_deposit"`
}

// StudentRecord is one row of an advisor's roster.
type StudentRecord struct {
	NIM           string          `json:"nim"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	CohortYear    string          `json:"cohort_year"`
	Semester      int             `json:"semester"`
	SupervisorRef string          `json:"supervisor_ref"`
	Progress      DepositProgress `json:"deposit_progress"`
}

// CohortSummary counts supervised students per cohort year.
type CohortSummary struct {
	Year  string `json:"year"`
	Total int    `json:"total"`
}

// Roster is the advisor's list of supervised students.
type Roster struct {
	Advisor  Lecturer        `json:"advisor"`
	Summary  []CohortSummary `json:"summary"`
	Students []StudentRecord `json:"students"`
}

// StudentInfo is the header block of a student's detail view.
type StudentInfo struct {
	NIM        string   `json:"nim"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	CohortYear string   `json:"cohort_year"`
	Semester   int      `json:"semester"`
	Advisor    Lecturer `json:"advisor"`
}

// CategorySummary is progress within one component category.
type CategorySummary struct {
	Label     string  `json:"label"`
	Required  int     `json:"required"`
	Done      int     `json:"done"`
	Remaining int     `json:"remaining"`
	Percent   float64 `json:"percent"`
}

// ValidationInfo records who confirmed a deposit and when.
type ValidationInfo struct {
	DepositID   string   `json:"deposit_id"`
	DepositedAt string   `json:"deposited_at"`
	ValidatedAt string   `json:"validated_at"`
	Validator   Lecturer `json:"validator"`
}

// DepositComponent is a memorizable unit. ParentDepositID and Validation are
// set iff Validated.
type DepositComponent struct {
	ID              string          `json:"id"`
	ParentDepositID *string         `json:"parent_deposit_id"`
	ComponentID     string          `json:"component_id"`
	Name            string          `json:"name"`
	ArabicName      string          `json:"arabic_name"`
	Category        string          `json:"category"`
	Validated       bool            `json:"validated"`
	Validation      *ValidationInfo `json:"validation_info"`
}

// StudentDetail is the per-student deposit view.
type StudentDetail struct {
	Info       StudentInfo        `json:"info"`
	Progress   DepositProgress    `json:"progress"`
	Summary    []CategorySummary  `json:"summary"`
	Components []DepositComponent `json:"components"`
	Log        []json.RawMessage  `json:"log"`
}

// Component finds a component by its component id.
func (d StudentDetail) Component(componentID string) (DepositComponent, bool) {
	for _, c := range d.Components {
		if c.ComponentID == componentID {
			return c, true
		}
	}
	return DepositComponent{}, false
}

// Deposit finds the component validated by depositID.
func (d StudentDetail) Deposit(depositID string) (DepositComponent, bool) {
	for _, c := range d.Components {
		if c.ParentDepositID != nil && *c.ParentDepositID == depositID {
			return c, true
		}
	}
	return DepositComponent{}, false
}

// SubmitItem is one component sent for validation.
type SubmitItem struct {
	ComponentID string `json:"component_id"`
	Name        string `json:"name"`
}

// CancelItem identifies a validation to delete.
type CancelItem struct {
	DepositID   string `json:"deposit_id"`
	ComponentID string `json:"component_id"`
	Name        string `json:"name"`
}

// Ack is the backend's reply to a mutation.
type Ack struct {
	Message string `json:"message"`
}

var nimPattern = regexp.MustCompile(`^[0-9]{11}$`)

// ValidateNIM checks the 11-digit student identifier.
func ValidateNIM(nim string) error {
	if !nimPattern.MatchString(nim) {
		return Validationf("invalid NIM %q: must be 11 digits", nim)
	}
	return nil
}
