package loansvc

import "github.com/FanProject516/perpus-app/model"

// Policy holds the lending rules. Caps are keyed by role name; anything
// unknown falls back to DefaultCap so a new role never gets an unlimited
// shelf.
type Policy struct {
	LoanPeriodDays int
	MinExtendDays  int
	MaxExtendDays  int
	DailyFineRate  float64
	Caps           map[string]int
	DefaultCap     int
}

func DefaultPolicy() Policy {
	return Policy{
		LoanPeriodDays: 14,
		MinExtendDays:  1,
		MaxExtendDays:  14,
		DailyFineRate:  1000,
		Caps: map[string]int{
			model.RoleMember:    3,
			model.RoleLibrarian: 10,
			model.RoleAdmin:     10,
		},
		DefaultCap: 3,
	}
}

func (p Policy) CapFor(role string) int {
	if cap, ok := p.Caps[role]; ok {
		return cap
	}
	return p.DefaultCap
}
