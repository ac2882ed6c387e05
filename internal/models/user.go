// internal/models/user.go
package models

import (
	"time"
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

type ActivityLevel string

const (
	ActivityLow    ActivityLevel = "low"
	ActivityMedium ActivityLevel = "medium"
	ActivityHigh   ActivityLevel = "high"
)

// Factor returns the TDEE multiplier for the activity level. Unknown levels
// fall back to the medium multiplier.
func (a ActivityLevel) Factor() float64 {
	switch a {
	case ActivityLow:
		return 1.2
	case ActivityHigh:
		return 1.6
	default:
		return 1.35
	}
}

type Locale string

const (
	LocaleRU Locale = "ru"
	LocaleEN Locale = "en"
	LocaleSR Locale = "sr"
)

// Locales lists the supported locales in language-menu order.
var Locales = []Locale{LocaleRU, LocaleEN, LocaleSR}

func (l Locale) Valid() bool {
	switch l {
	case LocaleRU, LocaleEN, LocaleSR:
		return true
	}
	return false
}

// Profile is a complete set of biometrics. A profile is either fully
// populated or not stored at all.
type Profile struct {
	UserID       string        `json:"user_id"`
	Age          int           `json:"age"`
	HeightCM     float64       `json:"height_cm"`
	WeightKG     float64       `json:"weight_kg"`
	GoalWeightKG float64       `json:"goal_weight_kg"`
	Sex          Sex           `json:"sex"`
	Activity     ActivityLevel `json:"activity"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Fields converts the profile into an update that sets every field.
func (p Profile) Fields() ProfileUpdate {
	return ProfileUpdate{
		Age:          &p.Age,
		HeightCM:     &p.HeightCM,
		WeightKG:     &p.WeightKG,
		GoalWeightKG: &p.GoalWeightKG,
		Sex:          &p.Sex,
		Activity:     &p.Activity,
	}
}

// ProfileUpdate carries the fields to overwrite in an upsert. Nil fields keep
// the stored value.
type ProfileUpdate struct {
	Age          *int
	HeightCM     *float64
	WeightKG     *float64
	GoalWeightKG *float64
	Sex          *Sex
	Activity     *ActivityLevel
}

// Complete reports whether the update can create a profile on its own.
func (u ProfileUpdate) Complete() bool {
	return u.Age != nil && u.HeightCM != nil && u.WeightKG != nil &&
		u.GoalWeightKG != nil && u.Sex != nil && u.Activity != nil
}

// Apply merges the update into p.
func (u ProfileUpdate) Apply(p *Profile) {
	if u.Age != nil {
		p.Age = *u.Age
	}
	if u.HeightCM != nil {
		p.HeightCM = *u.HeightCM
	}
	if u.WeightKG != nil {
		p.WeightKG = *u.WeightKG
	}
	if u.GoalWeightKG != nil {
		p.GoalWeightKG = *u.GoalWeightKG
	}
	if u.Sex != nil {
		p.Sex = *u.Sex
	}
	if u.Activity != nil {
		p.Activity = *u.Activity
	}
}

type ConversationState string

const (
	StateAwaitingLanguage ConversationState = "awaiting_language"
	StateAwaitingProfile  ConversationState = "awaiting_profile"
	StateActive           ConversationState = "active"
)

type UserState struct {
	UserID          string            `json:"user_id"`
	ChatID          int64             `json:"chat_id"`
	Username        string            `json:"username"`
	Locale          Locale            `json:"locale"`
	State           ConversationState `json:"state"`
	Premium         bool              `json:"premium"`
	StripeSessionID string            `json:"stripe_session_id"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}
