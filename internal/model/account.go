package model

type Role string

const (
	RoleSuperAdmin   Role = "SUPER_ADMIN"
	RoleCompanyAdmin Role = "COMPANY_ADMIN"
	RoleStaff        Role = "STAFF"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleCompanyAdmin, RoleStaff:
		return true
	}
	return false
}

// User is an account. Password holds the bcrypt hash and never leaves the service; use Public.
type User struct {
	Base
	Email    string `json:"email" gorm:"type:varchar(191);uniqueIndex"`
	Password string `json:"password,omitempty" gorm:"type:varchar(255)"`
	Name     string `json:"name" gorm:"type:varchar(191)"`
	Role     Role   `json:"role" gorm:"type:varchar(32);not null"`
}

// PublicUser is the client-facing view of a user
type PublicUser struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Role      Role     `json:"role"`
	CompanyID *string  `json:"companyId"`
	Company   *Company `json:"company,omitempty"`
}

// Public strips the password hash
func (u User) Public() PublicUser {
	p := PublicUser{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
	if u.CompanyID != "" {
		id := u.CompanyID
		p.CompanyID = &id
	}
	return p
}

type CompanyStatus string

const (
	CompanyActive    CompanyStatus = "ACTIVE"
	CompanySuspended CompanyStatus = "SUSPENDED"
)

type Company struct {
	Base
	Name             string        `json:"name" gorm:"type:varchar(191);not null"`
	Domain           string        `json:"domain,omitempty" gorm:"type:varchar(191);index"`
	SubscriptionPlan string        `json:"subscriptionPlan,omitempty" gorm:"type:varchar(64)"`
	Status           CompanyStatus `json:"status" gorm:"type:varchar(32)"`
}
