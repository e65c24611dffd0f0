// Package permissions maps a user's permission flags to the station
// actions the presentation layer may enable. Everything here is a pure
// function of the PermissionSet.
package permissions

import "github.com/dmitrijs2005/chiplogic/internal/models"

type Action string

const (
	ScanIn          Action = "scan-in"
	ScanOut         Action = "scan-out"
	Assign          Action = "assign"
	ViewReports     Action = "view-reports"
	ManageItems     Action = "manage-items"
	ManageReaders   Action = "manage-readers"
	ManageCustomers Action = "manage-customers"
	ManageUsers     Action = "manage-users"
	Settings        Action = "settings"
)

// AllActions lists every action in menu order.
func AllActions() []Action {
	return []Action{
		ScanIn, ScanOut, Assign, ViewReports,
		ManageItems, ManageReaders, ManageCustomers, ManageUsers, Settings,
	}
}

// Allows reports whether p enables a. Admins get everything; management
// and settings actions are admin-only. Unknown actions are denied.
func Allows(p models.PermissionSet, a Action) bool {
	if p.IsAdmin {
		return a.Valid()
	}

	switch a {
	case ScanIn:
		return p.CanScanIn
	case ScanOut:
		return p.CanScanOut
	case Assign:
		return p.CanAssign
	case ViewReports:
		return p.CanViewReports
	default:
		return false
	}
}

// EnabledActions returns the actions p enables, in AllActions order.
func EnabledActions(p models.PermissionSet) []Action {
	out := make([]Action, 0, len(AllActions()))
	for _, a := range AllActions() {
		if Allows(p, a) {
			out = append(out, a)
		}
	}
	return out
}

func (a Action) Valid() bool {
	for _, known := range AllActions() {
		if a == known {
			return true
		}
	}
	return false
}
