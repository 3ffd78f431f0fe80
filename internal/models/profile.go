package models

import "strings"

// DefaultFirstPerson is the pronoun used when a profile has none configured.
const DefaultFirstPerson = "僕"

// Profile is one user profile row, including the eligibility flags the
// scheduler filters on.
type Profile struct {
	ID               string `bson:"_id" json:"id"`
	Name             string `bson:"name,omitempty" json:"name,omitempty"`
	FirstPerson      string `bson:"firstPerson,omitempty" json:"firstPerson,omitempty"`
	Occupation       string `bson:"occupation,omitempty" json:"occupation,omitempty"`
	FreeContext      string `bson:"freeContext,omitempty" json:"freeContext,omitempty"`
	IsPremium        bool   `bson:"isPremium" json:"isPremium"`
	AutoWeeklyNovel  bool   `bson:"autoWeeklyNovel" json:"autoWeeklyNovel"`
	AutoMonthlyNovel bool   `bson:"autoMonthlyNovel" json:"autoMonthlyNovel"`
}

// Persona carries the narrative voice parameters applied to generation. The
// pronoun is always present; everything else is an optional hint.
type Persona struct {
	FirstPerson string `json:"firstPerson"`
	Name        string `json:"name,omitempty"`
	Occupation  string `json:"occupation,omitempty"`
	FreeContext string `json:"freeContext,omitempty"`
}

// DefaultPersona returns the persona used when no profile is available.
func DefaultPersona() Persona {
	return Persona{FirstPerson: DefaultFirstPerson}
}

// Persona derives the narrative persona from a profile, trimming every field
// and falling back to the default pronoun.
func (p *Profile) Persona() Persona {
	persona := Persona{
		FirstPerson: strings.TrimSpace(p.FirstPerson),
		Name:        strings.TrimSpace(p.Name),
		Occupation:  strings.TrimSpace(p.Occupation),
		FreeContext: strings.TrimSpace(p.FreeContext),
	}
	if persona.FirstPerson == "" {
		persona.FirstPerson = DefaultFirstPerson
	}
	return persona
}
