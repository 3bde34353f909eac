package model

type ContractStatus string

const (
	ContractActive     ContractStatus = "ACTIVE"
	ContractExpired    ContractStatus = "EXPIRED"
	ContractTerminated ContractStatus = "TERMINATED"
)

type Tenant struct {
	Base
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Contract binds a tenant to a property for a date range
type Contract struct {
	Base
	PropertyID string         `json:"propertyId"`
	TenantID   string         `json:"tenantId"`
	StartDate  string         `json:"startDate"`
	EndDate    string         `json:"endDate"`
	RentAmount Number         `json:"rentAmount"`
	Deposit    Number         `json:"deposit"`
	Status     ContractStatus `json:"status"`
}

// RentingRecord tracks a property rented in from its proprietor
type RentingRecord struct {
	Base
	PropertyID string `json:"propertyId"`
	Landlord   string `json:"landlord,omitempty"`
	Amount     Number `json:"amount"`
	StartDate  string `json:"startDate,omitempty"`
	EndDate    string `json:"endDate,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// RentOutRecord tracks a property let out to a tenant
type RentOutRecord struct {
	Base
	PropertyID string `json:"propertyId"`
	TenantName string `json:"tenantName,omitempty"`
	Amount     Number `json:"amount"`
	StartDate  string `json:"startDate,omitempty"`
	EndDate    string `json:"endDate,omitempty"`
	Notes      string `json:"notes,omitempty"`
}
