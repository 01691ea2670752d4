package models

import "time"

// MachineType is the hardware family of a test machine.
type MachineType string

const (
	MachineTypeBryck     MachineType = "Bryck"
	MachineTypeBryckMini MachineType = "BryckMini"
	MachineTypeOther     MachineType = "Other"
)

// MachineTypes lists every machine type in display order.
var MachineTypes = []MachineType{MachineTypeBryck, MachineTypeBryckMini, MachineTypeOther}

// Status is the lifecycle state of a machine.
type Status string

const (
	StatusActive         Status = "Active"
	StatusReady          Status = "Ready"
	StatusDown           Status = "Down"
	StatusShipped        Status = "Shipped"
	StatusDecommissioned Status = "Decommissioned"
)

// Statuses lists every status in the fixed display order used by the stats
// bar and the inline status select.
var Statuses = []Status{StatusActive, StatusReady, StatusDown, StatusShipped, StatusDecommissioned}

// HealthStatus is the last reported liveness of a machine.
type HealthStatus string

const (
	HealthHealthy     HealthStatus = "Healthy"
	HealthDegraded    HealthStatus = "Degraded"
	HealthUnreachable HealthStatus = "Unreachable"
	HealthUnknown     HealthStatus = "Unknown"
)

// HealthStatuses lists every health status in display order.
var HealthStatuses = []HealthStatus{HealthHealthy, HealthDegraded, HealthUnreachable, HealthUnknown}

// UsageType describes what a machine is currently used for.
type UsageType string

const (
	UsageTesting     UsageType = "Testing"
	UsageDevelopment UsageType = "Development"
	UsageCustomer    UsageType = "Customer"
	UsageIdle        UsageType = "Idle"
)

// UsageTypes lists every usage type in display order.
var UsageTypes = []UsageType{UsageTesting, UsageDevelopment, UsageCustomer, UsageIdle}

// Machine is the backend's representation of a tracked test machine.
// Nullable backend fields are pointers.
type Machine struct {
	ID             string       `json:"id" yaml:"id"`
	MachineIP      string       `json:"machine_ip" yaml:"machine_ip"`
	MachineType    MachineType  `json:"machine_type" yaml:"machine_type"`
	Status         Status       `json:"status" yaml:"status"`
	HealthStatus   HealthStatus `json:"health_status" yaml:"health_status"`
	UsedFor        UsageType    `json:"used_for" yaml:"used_for"`
	AllottedTo     *string      `json:"allotted_to" yaml:"allotted_to"`
	CurrentBuild   *string      `json:"current_build" yaml:"current_build"`
	CustomerName   *string      `json:"customer_name" yaml:"customer_name"`
	ActiveIssues   *string      `json:"active_issues" yaml:"active_issues"`
	Notes          *string      `json:"notes" yaml:"notes"`
	CanRunParallel bool         `json:"can_run_parallel" yaml:"can_run_parallel"`
	IsReachable    bool         `json:"is_reachable" yaml:"is_reachable"`
	ShippingDate   *time.Time   `json:"shipping_date" yaml:"shipping_date"`
	TestsCompleted int          `json:"tests_completed" yaml:"tests_completed"`
	LastCheckedAt  *time.Time   `json:"last_checked_at" yaml:"last_checked_at"`
	CreatedAt      *time.Time   `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt      *time.Time   `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// MachineList is one page of machines as returned by the list endpoint.
type MachineList struct {
	Items    []Machine `json:"items" yaml:"items"`
	Total    int       `json:"total" yaml:"total"`
	Page     int       `json:"page,omitempty" yaml:"page,omitempty"`
	PageSize int       `json:"page_size,omitempty" yaml:"page_size,omitempty"`
	Pages    int       `json:"pages" yaml:"pages"`
}

// HealthCheckResult is the snapshot returned after a live health probe.
type HealthCheckResult struct {
	MachineID    string       `json:"machine_id,omitempty" yaml:"machine_id,omitempty"`
	MachineIP    string       `json:"machine_ip" yaml:"machine_ip"`
	IsReachable  bool         `json:"is_reachable" yaml:"is_reachable"`
	HealthStatus HealthStatus `json:"health_status" yaml:"health_status"`
	CurrentBuild *string      `json:"current_build" yaml:"current_build"`
	CheckedAt    *time.Time   `json:"checked_at,omitempty" yaml:"checked_at,omitempty"`
}

// MachineCreate is the payload for registering a machine. Nil pointers are
// sent as explicit nulls.
type MachineCreate struct {
	MachineIP      string      `json:"machine_ip"`
	MachineType    MachineType `json:"machine_type"`
	Status         Status      `json:"status"`
	UsedFor        UsageType   `json:"used_for"`
	AllottedTo     *string     `json:"allotted_to"`
	CurrentBuild   *string     `json:"current_build"`
	CustomerName   *string     `json:"customer_name"`
	ActiveIssues   *string     `json:"active_issues"`
	Notes          *string     `json:"notes"`
	CanRunParallel bool        `json:"can_run_parallel"`
	ShippingDate   *time.Time  `json:"shipping_date"`
}

// MachineUpdate is a partial update. Only fields that were set are sent;
// a field set to nil is sent as null.
type MachineUpdate struct {
	MachineType    Opt[MachineType] `json:"machine_type,omitzero"`
	Status         Opt[Status]      `json:"status,omitzero"`
	UsedFor        Opt[UsageType]   `json:"used_for,omitzero"`
	AllottedTo     Opt[string]      `json:"allotted_to,omitzero"`
	CurrentBuild   Opt[string]      `json:"current_build,omitzero"`
	CustomerName   Opt[string]      `json:"customer_name,omitzero"`
	ActiveIssues   Opt[string]      `json:"active_issues,omitzero"`
	Notes          Opt[string]      `json:"notes,omitzero"`
	CanRunParallel Opt[bool]        `json:"can_run_parallel,omitzero"`
	ShippingDate   Opt[time.Time]   `json:"shipping_date,omitzero"`
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Valid reports whether u is a known usage type.
func (u UsageType) Valid() bool {
	for _, v := range UsageTypes {
		if v == u {
			return true
		}
	}
	return false
}

// Valid reports whether t is a known machine type.
func (t MachineType) Valid() bool {
	for _, v := range MachineTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Deref returns the pointed-to string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
