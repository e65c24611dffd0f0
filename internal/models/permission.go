package models

// PermissionSet is the five capability flags stored per user.
type PermissionSet struct {
	IsAdmin        bool
	CanScanIn      bool
	CanScanOut     bool
	CanAssign      bool
	CanViewReports bool
}

// FullPermissions is granted to the seeded administrator and to users
// provisioned through the support tool.
func FullPermissions() PermissionSet {
	return PermissionSet{
		IsAdmin:        true,
		CanScanIn:      true,
		CanScanOut:     true,
		CanAssign:      true,
		CanViewReports: true,
	}
}
