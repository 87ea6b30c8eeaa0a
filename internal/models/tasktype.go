package models

// TaskType is a company-level task template (e.g. "inspection", "repair").
type TaskType struct {
	SyncMeta

	Name  string
	Color string

	// IsDefault marks types provisioned with the company. Default types
	// are protected: deletion reconciliation never soft-deletes them.
	IsDefault bool

	CompanyID string
}
