package models

import "fmt"

// Pillar is one of the three ESG scoring pillars.
type Pillar string

const (
	PillarEnvironment Pillar = "E"
	PillarSocial      Pillar = "S"
	PillarGovernance  Pillar = "G"
)

// Polarity states which direction of a numeric indicator is good.
type Polarity string

const (
	HigherIsBetter Polarity = "higher"
	LowerIsBetter  Polarity = "lower"
)

// ValueKind states how an extracted value is interpreted for scoring.
type ValueKind string

const (
	ValueNumeric ValueKind = "numeric"
	ValueText    ValueKind = "text" // recorded but never normalized
)

// Indicator is one BRSR disclosure parameter the extractor hunts for.
// Attribute is the BRSR principle number (1..9); the pillar is derived from
// it and never stored independently.
type Indicator struct {
	Code          string    `json:"code"` // stable identifier, e.g. "E1_GHG_SCOPE1"
	Attribute     int       `json:"attribute"`
	ParameterName string    `json:"parameter_name"`
	Unit          string    `json:"unit,omitempty"`
	Keywords      string    `json:"keywords,omitempty"` // space-separated retrieval hints
	Kind          ValueKind `json:"kind"`
	Polarity      Polarity  `json:"polarity"`
	Weight        float64   `json:"weight"`
	Min           float64   `json:"min"` // normalization floor
	Max           float64   `json:"max"` // normalization ceiling
}

// PillarForAttribute maps a BRSR principle to its pillar:
// principles 1-4 are Environment, 5-7 Social, 8-9 Governance.
func PillarForAttribute(attribute int) (Pillar, error) {
	switch {
	case attribute >= 1 && attribute <= 4:
		return PillarEnvironment, nil
	case attribute >= 5 && attribute <= 7:
		return PillarSocial, nil
	case attribute == 8 || attribute == 9:
		return PillarGovernance, nil
	default:
		return "", fmt.Errorf("attribute %d outside 1..9", attribute)
	}
}

// Pillar returns the pillar this indicator contributes to.
func (i Indicator) Pillar() Pillar {
	p, _ := PillarForAttribute(i.Attribute)
	return p
}

// QueryText renders the retrieval query used to find supporting chunks.
func (i Indicator) QueryText() string {
	q := i.ParameterName
	if i.Unit != "" {
		q += " " + i.Unit
	}
	if i.Keywords != "" {
		q += " " + i.Keywords
	}
	return q
}

// Validate rejects indicators that would corrupt scoring.
func (i Indicator) Validate() error {
	if i.Code == "" {
		return fmt.Errorf("indicator has empty code")
	}
	if _, err := PillarForAttribute(i.Attribute); err != nil {
		return fmt.Errorf("indicator %s: %w", i.Code, err)
	}
	if i.ParameterName == "" {
		return fmt.Errorf("indicator %s has empty parameter name", i.Code)
	}
	if i.Weight <= 0 {
		return fmt.Errorf("indicator %s has non-positive weight %v", i.Code, i.Weight)
	}
	if i.Polarity != HigherIsBetter && i.Polarity != LowerIsBetter {
		return fmt.Errorf("indicator %s has invalid polarity %q", i.Code, i.Polarity)
	}
	if i.Kind == ValueNumeric && i.Max <= i.Min {
		return fmt.Errorf("indicator %s has empty normalization range [%v, %v]", i.Code, i.Min, i.Max)
	}
	return nil
}
