package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/labtrack/pkg/models"
)

// NewMachine returns a Machine with sensible defaults, suitable for test
// fixtures. Override individual fields with options.
func NewMachine(opts ...func(*models.Machine)) models.Machine {
	now := time.Now().UTC()
	m := models.Machine{
		ID:           uuid.New().String(),
		MachineIP:    "192.168.1.100",
		MachineType:  models.MachineTypeBryck,
		Status:       models.StatusReady,
		HealthStatus: models.HealthUnknown,
		UsedFor:      models.UsageIdle,
		CreatedAt:    &now,
		UpdatedAt:    &now,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// WithID sets the machine id.
func WithID(id string) func(*models.Machine) {
	return func(m *models.Machine) { m.ID = id }
}

// WithIP sets the machine IP.
func WithIP(ip string) func(*models.Machine) {
	return func(m *models.Machine) { m.MachineIP = ip }
}

// WithStatus sets the machine status.
func WithStatus(s models.Status) func(*models.Machine) {
	return func(m *models.Machine) { m.Status = s }
}

// WithUsage sets what the machine is used for.
func WithUsage(u models.UsageType) func(*models.Machine) {
	return func(m *models.Machine) { m.UsedFor = u }
}

// WithAllottedTo sets the allotted-to text.
func WithAllottedTo(who string) func(*models.Machine) {
	return func(m *models.Machine) { m.AllottedTo = &who }
}

// WithBuild sets the current build.
func WithBuild(build string) func(*models.Machine) {
	return func(m *models.Machine) { m.CurrentBuild = &build }
}

// WithLastChecked sets the last health-check time.
func WithLastChecked(t time.Time) func(*models.Machine) {
	return func(m *models.Machine) { m.LastCheckedAt = &t }
}
