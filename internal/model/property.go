package model

type PropertyStatus string

const (
	PropertyHolding      PropertyStatus = "HOLDING"
	PropertySold         PropertyStatus = "SOLD"
	PropertyLeaseStopped PropertyStatus = "LEASE_STOPPED"
)

// Property is a managed unit. Images and GeoMap hold either plain URLs or {url} objects.
type Property struct {
	Base
	PropertyNumber  string         `json:"propertyNumber"`
	Name            string         `json:"name"`
	Address         string         `json:"address"`
	Status          PropertyStatus `json:"status"`
	Category        string         `json:"category,omitempty"`
	Area            Number         `json:"area"`
	Images          []any          `json:"images,omitempty"`
	GeoMap          any            `json:"geoMap,omitempty"`
	ProprietorID    string         `json:"proprietorId,omitempty"`
	TenantID        string         `json:"tenantId,omitempty"`
	RentingRecordID string         `json:"rentingRecordId,omitempty"`
	RentOutRecordID string         `json:"rentOutRecordId,omitempty"`
}

// Proprietor owns one or more properties
type Proprietor struct {
	Base
	Code        string `json:"code"`
	EnglishName string `json:"englishName"`
	ShortName   string `json:"shortName,omitempty"`
	Type        string `json:"type,omitempty"`
	Property    string `json:"property,omitempty"`
}
