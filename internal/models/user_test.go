package models

import "testing"

func TestRoleIsOrganization(t *testing.T) {
	orgs := []Role{RoleHospital, RoleBloodBank, RoleFireDepartment, RoleSocialOrganization}
	for _, r := range orgs {
		if !r.IsOrganization() {
			t.Errorf("%s must be an organization role", r)
		}
	}
	people := []Role{RoleAdmin, RoleIndividual, RoleVolunteer}
	for _, r := range people {
		if r.IsOrganization() {
			t.Errorf("%s must not be an organization role", r)
		}
	}
}

func TestRequestStatusTerminal(t *testing.T) {
	terminal := []RequestStatus{RequestRejected, RequestCancelled, RequestCompleted}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
	open := []RequestStatus{RequestPending, RequestAccepted}
	for _, s := range open {
		if s.Terminal() {
			t.Errorf("%s must not be terminal", s)
		}
	}
}

func TestCrisisStatusTerminal(t *testing.T) {
	if CrisisActive.Terminal() {
		t.Error("active crisis must not be terminal")
	}
	if !CrisisClosed.Terminal() || !CrisisCancelled.Terminal() {
		t.Error("closed and cancelled crises must be terminal")
	}
}
