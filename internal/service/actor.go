package service

import "github.com/infotcjeff2-droid/properties2/internal/model"

// Actor is the caller of a request, built from verified session claims or the guest cookie
type Actor struct {
	UserID    string
	Email     string
	Role      model.Role
	CompanyID string
	Guest     bool
	// ReadOnly marks a signed-in session that may not write, such as the shared guest account
	ReadOnly bool
}

func (a Actor) IsSuperAdmin() bool { return a.Role == model.RoleSuperAdmin }

// CanWrite reports whether the caller may change data
func (a Actor) CanWrite() bool { return !a.Guest && !a.ReadOnly }

// Scope returns the company reads are limited to, "" meaning no limit.
// A caller bound to a company is always held to it; anyone else may narrow to requested.
func (a Actor) Scope(requested string) string {
	if !a.IsSuperAdmin() && a.CompanyID != "" {
		return a.CompanyID
	}
	return requested
}

// CanAccess reports whether a record owned by companyID is visible to the caller
func (a Actor) CanAccess(companyID string) bool {
	scope := a.Scope("")
	return scope == "" || scope == companyID
}
