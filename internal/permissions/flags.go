package permissions

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/chiplogic/internal/common"
	"github.com/dmitrijs2005/chiplogic/internal/models"
)

// Flag names as typed by an operator.
const (
	FlagAdmin       = "admin"
	FlagScanIn      = "scan-in"
	FlagScanOut     = "scan-out"
	FlagAssign      = "assign"
	FlagViewReports = "view-reports"
	FlagNone        = "none"
)

// ParseFlags reads a comma or space separated list of flag names, for
// example "scan-in,scan-out". "none" yields the empty set.
func ParseFlags(s string) (models.PermissionSet, error) {
	var p models.PermissionSet
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return p, fmt.Errorf("%w: no permissions given", common.ErrValidation)
	}

	for _, f := range fields {
		switch strings.ToLower(f) {
		case FlagAdmin:
			p.IsAdmin = true
		case FlagScanIn:
			p.CanScanIn = true
		case FlagScanOut:
			p.CanScanOut = true
		case FlagAssign:
			p.CanAssign = true
		case FlagViewReports:
			p.CanViewReports = true
		case FlagNone:
		default:
			return models.PermissionSet{}, fmt.Errorf("%w: unknown permission %q", common.ErrValidation, f)
		}
	}
	return p, nil
}

// FormatFlags is the inverse of ParseFlags.
func FormatFlags(p models.PermissionSet) string {
	var out []string
	if p.IsAdmin {
		out = append(out, FlagAdmin)
	}
	if p.CanScanIn {
		out = append(out, FlagScanIn)
	}
	if p.CanScanOut {
		out = append(out, FlagScanOut)
	}
	if p.CanAssign {
		out = append(out, FlagAssign)
	}
	if p.CanViewReports {
		out = append(out, FlagViewReports)
	}
	if len(out) == 0 {
		return FlagNone
	}
	return strings.Join(out, ",")
}
