package domain

// Priority of a health goal
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Weight is the scoring multiplier for the priority (3/2/1)
func (p Priority) Weight() float64 {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// Sex of the user
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
	SexOther  Sex = "other"
)

// HealthGoal is something the user wants to improve
type HealthGoal struct {
	Goal          string   `json:"goal" validate:"required"`
	LocalizedGoal string   `json:"localizedGoal,omitempty"`
	Priority      Priority `json:"priority" validate:"required,oneof=low medium high"`
	Timeframe     string   `json:"timeframe,omitempty"`
}

// Medication the user currently takes
type Medication struct {
	Name             string `json:"name" validate:"required"`
	ActiveIngredient string `json:"activeIngredient,omitempty"`
}

// Lifestyle facts that shape reasoning
type Lifestyle struct {
	ActivityLevel      string  `json:"activityLevel,omitempty" validate:"omitempty,oneof=sedentary light moderate active very_active"`
	Diet               string  `json:"diet,omitempty"`
	SleepHours         float64 `json:"sleepHours,omitempty" validate:"gte=0,lte=24"`
	StressLevel        int     `json:"stressLevel,omitempty" validate:"omitempty,min=1,max=5"`
	SmokingStatus      string  `json:"smokingStatus,omitempty" validate:"omitempty,oneof=never former current"`
	AlcoholConsumption string  `json:"alcoholConsumption,omitempty" validate:"omitempty,oneof=none light moderate heavy"`
}

// BudgetRange is the monthly spend the user accepts. Max of zero means no ceiling.
type BudgetRange struct {
	Min      float64 `json:"min" validate:"gte=0"`
	Max      float64 `json:"max" validate:"gte=0"`
	Currency string  `json:"currency,omitempty"`
}

// Preferences capture form, diet, and budget wishes
type Preferences struct {
	Budget         BudgetRange `json:"budget"`
	PreferredForms []string    `json:"preferredForms,omitempty"`
	Vegan          bool        `json:"vegan,omitempty"`
	Organic        bool        `json:"organic,omitempty"`
}

// RatingOverride replaces the effectiveness rating of one clinical application during scoring
type RatingOverride struct {
	ItemID    string  `json:"itemId" validate:"required"`
	Condition string  `json:"condition" validate:"required"`
	Rating    float64 `json:"rating" validate:"gte=0,lte=10"`
}

// UserProfile is supplied per request and never stored
type UserProfile struct {
	Age              int              `json:"age" validate:"gte=0,lte=130"`
	Sex              Sex              `json:"sex,omitempty" validate:"omitempty,oneof=male female other"`
	WeightKg         float64          `json:"weightKg,omitempty" validate:"gte=0"`
	HeightCm         float64          `json:"heightCm,omitempty" validate:"gte=0"`
	HealthConditions []string         `json:"healthConditions,omitempty"`
	HealthGoals      []HealthGoal     `json:"healthGoals,omitempty" validate:"dive"`
	Medications      []Medication     `json:"medications,omitempty" validate:"dive"`
	Allergies        []string         `json:"allergies,omitempty"`
	Lifestyle        Lifestyle        `json:"lifestyle"`
	Preferences      Preferences      `json:"preferences"`
	CurrentItems     []string         `json:"currentItems,omitempty"`
	Pregnant         *bool            `json:"pregnant,omitempty"`
	Breastfeeding    *bool            `json:"breastfeeding,omitempty"`
	RatingOverrides  []RatingOverride `json:"ratingOverrides,omitempty" validate:"dive"`
}
