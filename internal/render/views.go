package render

import (
	"strconv"
	"strings"

	"github.com/HerbHall/labtrack/pkg/models"
)

// Form field names, shared by the modal template and the submit intent.
const (
	FieldMachineIP      = "machine_ip"
	FieldMachineType    = "machine_type"
	FieldStatus         = "status"
	FieldUsedFor        = "used_for"
	FieldAllottedTo     = "allotted_to"
	FieldCurrentBuild   = "current_build"
	FieldCustomerName   = "customer_name"
	FieldActiveIssues   = "active_issues"
	FieldNotes          = "notes"
	FieldCanRunParallel = "can_run_parallel"
	FieldShippingDate   = "shipping_date"
)

// InputID returns the element id of a modal form control.
func InputID(field string) string {
	return "f-" + strings.ReplaceAll(field, "_", "-")
}

// FormValues are the raw string values of the machine form.
type FormValues struct {
	MachineIP      string
	MachineType    string
	Status         string
	UsedFor        string
	AllottedTo     string
	CurrentBuild   string
	CustomerName   string
	ActiveIssues   string
	Notes          string
	CanRunParallel bool
	ShippingDate   string
}

// BlankForm returns the values of a freshly reset create form.
func BlankForm() FormValues {
	return FormValues{
		MachineType: string(models.MachineTypeBryck),
		Status:      string(models.StatusReady),
		UsedFor:     string(models.UsageIdle),
	}
}

// FormFromMachine populates the form from m. Nullable fields become "".
func FormFromMachine(m models.Machine) FormValues {
	return FormValues{
		MachineIP:      m.MachineIP,
		MachineType:    string(m.MachineType),
		Status:         string(m.Status),
		UsedFor:        string(m.UsedFor),
		AllottedTo:     models.Deref(m.AllottedTo),
		CurrentBuild:   models.Deref(m.CurrentBuild),
		CustomerName:   models.Deref(m.CustomerName),
		ActiveIssues:   models.Deref(m.ActiveIssues),
		Notes:          models.Deref(m.Notes),
		CanRunParallel: m.CanRunParallel,
		ShippingDate:   LocalInput(m.ShippingDate),
	}
}

// FormFromMap reads submitted form values keyed by field name. A checkbox
// counts as checked for "on", "true" or "1".
func FormFromMap(v map[string]string) FormValues {
	checked, _ := strconv.ParseBool(v[FieldCanRunParallel])
	if v[FieldCanRunParallel] == "on" {
		checked = true
	}
	return FormValues{
		MachineIP:      v[FieldMachineIP],
		MachineType:    v[FieldMachineType],
		Status:         v[FieldStatus],
		UsedFor:        v[FieldUsedFor],
		AllottedTo:     v[FieldAllottedTo],
		CurrentBuild:   v[FieldCurrentBuild],
		CustomerName:   v[FieldCustomerName],
		ActiveIssues:   v[FieldActiveIssues],
		Notes:          v[FieldNotes],
		CanRunParallel: checked,
		ShippingDate:   v[FieldShippingDate],
	}
}

// ModalView is everything the machine modal shows.
type ModalView struct {
	Open bool
	// EditID is empty in create mode.
	EditID     string
	Values     FormValues
	Errors     map[string]string
	Submitting bool
}

// Editing reports whether the modal edits an existing machine.
func (v ModalView) Editing() bool { return v.EditID != "" }

// ConfirmView is the confirm dialog. Token identifies the invocation the
// controls resolve.
type ConfirmView struct {
	Open    bool
	Message string
	Token   string
}

// ToastKind selects the toast style.
type ToastKind string

const (
	ToastInfo    ToastKind = "info"
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Toast is a transient notification.
type Toast struct {
	ID      string
	Message string
	Kind    ToastKind
}

// ElementID is the id of the toast node.
func (t Toast) ElementID() string { return "toast-" + t.ID }
