package person

import "strings"

// Person carries only what the readiness core needs: an identity and the
// single unit the person currently belongs to.
type Person struct {
	code        string
	displayName string
	unitCode    string
}

func New(code, displayName, unitCode string) Person {
	return Person{
		code:        strings.TrimSpace(code),
		displayName: strings.TrimSpace(displayName),
		unitCode:    strings.TrimSpace(unitCode),
	}
}

func (p Person) Code() string        { return p.code }
func (p Person) DisplayName() string { return p.displayName }
func (p Person) UnitCode() string    { return p.unitCode }
func (p Person) IsZero() bool        { return p.code == "" }

func (p Person) WithUnit(unitCode string) Person {
	p.unitCode = strings.TrimSpace(unitCode)
	return p
}
