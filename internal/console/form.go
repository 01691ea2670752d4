package console

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/HerbHall/labtrack/internal/apiclient"
	"github.com/HerbHall/labtrack/internal/render"
	"github.com/HerbHall/labtrack/pkg/models"
)

func (s *Session) handleOpenCreate(Intent) {
	s.openModal("", render.BlankForm())
}

func (s *Session) openModal(editID string, values render.FormValues) {
	s.modalSeq++
	s.modal = render.ModalView{Open: true, EditID: editID, Values: values}
	s.apply(s.r.Modal(s.modal)...)
	s.apply(render.Focus(render.ModalFocusID))
}

func (s *Session) handleModalClose(Intent) {
	s.closeModal()
}

func (s *Session) closeModal() {
	s.modalSeq++
	s.modal = render.ModalView{}
	s.apply(s.r.Modal(s.modal)...)
}

// msgInvalidDate is shown on the shipping date field when it cannot be
// parsed.
const msgInvalidDate = "Invalid date."

// handleSubmit saves the modal form. Edits never send machine_ip. The
// submit control is re-enabled whatever the outcome.
func (s *Session) handleSubmit(in Intent) {
	if !s.modal.Open || s.modal.Submitting {
		return
	}
	values := render.FormFromMap(in.Form)
	s.modal.Values = values
	s.modal.Errors = nil

	shipping, err := render.ParseLocalInput(values.ShippingDate)
	if err != nil {
		s.modal.Errors = map[string]string{render.FieldShippingDate: msgInvalidDate}
		s.apply(s.r.Modal(s.modal)...)
		return
	}

	s.modal.Submitting = true
	s.apply(s.r.Modal(s.modal)...)

	seq, editID := s.modalSeq, s.modal.EditID
	ip := strings.TrimSpace(values.MachineIP)
	topic, action := TopicMachineCreated, "create"
	if editID != "" {
		topic, action = TopicMachineUpdated, "update"
	}

	call(s, func(ctx context.Context) (*models.Machine, error) {
		if editID != "" {
			return s.api.Update(ctx, editID, updateFromForm(values, shipping))
		}
		return s.api.Create(ctx, createFromForm(values, shipping))
	}, func(m *models.Machine, err error) {
		o, detail := outcome(err)
		ev := ActionEvent{Action: action, MachineID: editID, MachineIP: ip, Outcome: o, Detail: detail}
		if m != nil {
			ev.MachineID = m.ID
		}
		s.publish(topic, ev)

		if err == nil {
			if editID != "" {
				s.toast("Machine updated.", render.ToastSuccess)
			} else {
				s.toast("Machine added.", render.ToastSuccess)
			}
			if seq == s.modalSeq {
				s.closeModal()
			}
			s.loadMachines()
			return
		}

		current := seq == s.modalSeq && s.modal.Open
		if current {
			s.modal.Submitting = false
		}
		s.reportSubmitError(err, current)
		if current {
			s.apply(s.r.Modal(s.modal)...)
		}
	})
}

// reportSubmitError maps a failed save to a field error or a toast. A
// duplicate IP lands on the IP field when the form is still showing.
func (s *Session) reportSubmitError(err error, formShowing bool) {
	ae, ok := apiclient.AsAPIError(err)
	if !ok {
		s.toast("Network error. Is the backend running?", render.ToastError)
		return
	}
	switch ae.Status {
	case http.StatusConflict:
		if formShowing {
			s.modal.Errors = map[string]string{render.FieldMachineIP: ae.Detail}
			return
		}
		s.toast(ae.Detail, render.ToastError)
	case http.StatusUnprocessableEntity:
		s.toast("Validation error. Check fields.", render.ToastError)
	default:
		s.toast(detailOr(err, "An error occurred."), render.ToastError)
	}
}

func createFromForm(v render.FormValues, shipping *time.Time) models.MachineCreate {
	return models.MachineCreate{
		MachineIP:      strings.TrimSpace(v.MachineIP),
		MachineType:    models.MachineType(v.MachineType),
		Status:         models.Status(v.Status),
		UsedFor:        models.UsageType(v.UsedFor),
		AllottedTo:     nullable(v.AllottedTo),
		CurrentBuild:   nullable(v.CurrentBuild),
		CustomerName:   nullable(v.CustomerName),
		ActiveIssues:   nullable(v.ActiveIssues),
		Notes:          nullable(v.Notes),
		CanRunParallel: v.CanRunParallel,
		ShippingDate:   shipping,
	}
}

func updateFromForm(v render.FormValues, shipping *time.Time) models.MachineUpdate {
	return models.MachineUpdate{
		MachineType:    models.Set(models.MachineType(v.MachineType)),
		Status:         models.Set(models.Status(v.Status)),
		UsedFor:        models.Set(models.UsageType(v.UsedFor)),
		AllottedTo:     models.SetPtr(nullable(v.AllottedTo)),
		CurrentBuild:   models.SetPtr(nullable(v.CurrentBuild)),
		CustomerName:   models.SetPtr(nullable(v.CustomerName)),
		ActiveIssues:   models.SetPtr(nullable(v.ActiveIssues)),
		Notes:          models.SetPtr(nullable(v.Notes)),
		CanRunParallel: models.Set(v.CanRunParallel),
		ShippingDate:   models.SetPtr(shipping),
	}
}
