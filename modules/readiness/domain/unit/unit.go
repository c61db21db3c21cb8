package unit

import "strings"

// Echelon is the organizational tier of a unit. Ordering is by Rank:
// a CORPS outranks a DIVISION, which outranks a BRIGADE, and so on.
type Echelon string

const (
	EchelonUnknown   Echelon = "UNKNOWN"
	EchelonCorps     Echelon = "CORPS"
	EchelonDivision  Echelon = "DIVISION"
	EchelonBrigade   Echelon = "BRIGADE"
	EchelonBattalion Echelon = "BATTALION"
	EchelonCompany   Echelon = "COMPANY"
	EchelonPlatoon   Echelon = "PLATOON"
)

var echelonRanks = map[Echelon]int{
	EchelonCorps:     6,
	EchelonDivision:  5,
	EchelonBrigade:   4,
	EchelonBattalion: 3,
	EchelonCompany:   2,
	EchelonPlatoon:   1,
	EchelonUnknown:   0,
}

func (e Echelon) Rank() int { return echelonRanks[e] }

func (e Echelon) IsValid() bool {
	_, ok := echelonRanks[e]
	return ok
}

func ParseEchelon(v string) Echelon {
	e := Echelon(strings.ToUpper(strings.TrimSpace(v)))
	if !e.IsValid() {
		return EchelonUnknown
	}
	return e
}

// Unit is a node in the organizational forest. The derived hierarchy lists
// (ancestors, children, descendants) are materialized by the hierarchy
// service and never stored on the record itself.
type Unit struct {
	code       string
	name       string
	shortName  string
	echelon    Echelon
	parentCode string
}

func New(code, name, shortName string, echelon Echelon, parentCode string) Unit {
	if !echelon.IsValid() {
		echelon = EchelonUnknown
	}
	return Unit{
		code:       strings.TrimSpace(code),
		name:       strings.TrimSpace(name),
		shortName:  strings.TrimSpace(shortName),
		echelon:    echelon,
		parentCode: strings.TrimSpace(parentCode),
	}
}

func (u Unit) Code() string       { return u.code }
func (u Unit) Name() string       { return u.name }
func (u Unit) ShortName() string  { return u.shortName }
func (u Unit) Echelon() Echelon   { return u.echelon }
func (u Unit) ParentCode() string { return u.parentCode }
func (u Unit) IsRoot() bool       { return u.parentCode == "" }
func (u Unit) IsZero() bool       { return u.code == "" }

// WithParent returns a copy pointing at a new parent ("" makes it a root).
func (u Unit) WithParent(parentCode string) Unit {
	u.parentCode = strings.TrimSpace(parentCode)
	return u
}
