package views

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mind-engage/classquiz/internal/apiclient"
)

// Fixed choices on the registration form.
var (
	ClassOptions      = []string{"1st year", "2nd year", "3rd year", "4th year"}
	SectionOptions    = []string{"A", "B", "C", "D"}
	DepartmentOptions = []string{"CSE", "ECE", "EEE", "AI&DS", "CSBS", "IT", "MEC", "CIVIL"}
)

// CheckRegistration trims r and validates it against the form choices.
func CheckRegistration(r apiclient.Registration) (apiclient.Registration, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.RegisterNumber = strings.TrimSpace(r.RegisterNumber)
	if r.Name == "" || r.RegisterNumber == "" {
		return r, errors.New("name and register number are required")
	}
	if !oneOf(r.ClassName, ClassOptions) {
		return r, fmt.Errorf("class must be one of %s", strings.Join(ClassOptions, ", "))
	}
	if !oneOf(r.Section, SectionOptions) {
		return r, fmt.Errorf("section must be one of %s", strings.Join(SectionOptions, ", "))
	}
	if !oneOf(r.Department, DepartmentOptions) {
		return r, fmt.Errorf("department must be one of %s", strings.Join(DepartmentOptions, ", "))
	}
	return r, nil
}

func oneOf(v string, opts []string) bool {
	for _, o := range opts {
		if v == o {
			return true
		}
	}
	return false
}
