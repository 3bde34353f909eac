package model

type MaintenancePriority string

const (
	PriorityLow    MaintenancePriority = "LOW"
	PriorityMedium MaintenancePriority = "MEDIUM"
	PriorityHigh   MaintenancePriority = "HIGH"
	PriorityUrgent MaintenancePriority = "URGENT"
)

type MaintenanceStatus string

const (
	MaintenancePending    MaintenanceStatus = "PENDING"
	MaintenanceInProgress MaintenanceStatus = "IN_PROGRESS"
	MaintenanceCompleted  MaintenanceStatus = "COMPLETED"
	MaintenanceCancelled  MaintenanceStatus = "CANCELLED"
)

type MaintenanceOrder struct {
	Base
	PropertyID  string              `json:"propertyId"`
	TenantID    string              `json:"tenantId,omitempty"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Priority    MaintenancePriority `json:"priority"`
	Status      MaintenanceStatus   `json:"status"`
	Cost        Number              `json:"cost"`
}

type TransactionType string

const (
	TransactionIncome  TransactionType = "INCOME"
	TransactionExpense TransactionType = "EXPENSE"
)

type TransactionStatus string

const (
	TransactionPending TransactionStatus = "PENDING"
	TransactionPaid    TransactionStatus = "PAID"
	TransactionOverdue TransactionStatus = "OVERDUE"
)

type Transaction struct {
	Base
	Type        TransactionType   `json:"type"`
	Status      TransactionStatus `json:"status"`
	Amount      Number            `json:"amount"`
	PaidDate    string            `json:"paidDate,omitempty"`
	DueDate     string            `json:"dueDate,omitempty"`
	PropertyID  string            `json:"propertyId,omitempty"`
	Description string            `json:"description,omitempty"`
}

type Notification struct {
	Base
	Title      string `json:"title"`
	Message    string `json:"message,omitempty"`
	PropertyID string `json:"propertyId,omitempty"`
	Read       bool   `json:"read"`
}
