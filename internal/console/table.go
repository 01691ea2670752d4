package console

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/HerbHall/labtrack/internal/render"
	"github.com/HerbHall/labtrack/internal/state"
	"github.com/HerbHall/labtrack/pkg/models"
)

func (s *Session) handleEdit(in Intent) {
	call(s, func(ctx context.Context) (*models.Machine, error) {
		return s.api.Get(ctx, in.ID)
	}, func(m *models.Machine, err error) {
		if err != nil {
			s.toast(detailOr(err, "Failed to load machine."), render.ToastError)
			return
		}
		s.openModal(m.ID, render.FormFromMachine(*m))
	})
}

func (s *Session) handleDelete(in Intent) {
	id := in.ID
	ip := s.machineLabel(id)
	msg := fmt.Sprintf("Decommission machine %s? This cannot be undone easily.", ip)
	s.ask(msg, func(ok bool) {
		if !ok {
			return
		}
		call(s, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.api.Delete(ctx, id)
		}, func(_ struct{}, err error) {
			o, detail := outcome(err)
			s.publish(TopicMachineDeleted, ActionEvent{
				Action: string(ActionDelete), MachineID: id, MachineIP: ip, Outcome: o, Detail: detail,
			})
			if err != nil {
				s.toast(detailOr(err, "Failed to decommission."), render.ToastError)
				return
			}
			s.toast("Machine decommissioned.", render.ToastSuccess)
			s.loadMachines()
		})
	})
}

func (s *Session) handleHealthCheck(in Intent) {
	id := in.ID
	ip := s.machineLabel(id)
	s.toast(fmt.Sprintf("Running health check on %s…", ip), render.ToastInfo)
	call(s, func(ctx context.Context) (*models.HealthCheckResult, error) {
		return s.api.HealthCheck(ctx, id)
	}, func(res *models.HealthCheckResult, err error) {
		o, detail := outcome(err)
		ev := ActionEvent{Action: string(ActionHealthCheck), MachineID: id, MachineIP: ip, Outcome: o, Detail: detail}
		if err != nil {
			s.publish(TopicMachineHealthChecked, ev)
			s.toast(detailOr(err, "Health check failed."), render.ToastError)
			return
		}
		build := models.Deref(res.CurrentBuild)
		if build == "" {
			build = "N/A"
		}
		ev.Detail = string(res.HealthStatus)
		s.publish(TopicMachineHealthChecked, ev)

		kind := render.ToastError
		if res.IsReachable {
			kind = render.ToastSuccess
		}
		s.toast(fmt.Sprintf("%s: %s — Build: %s", res.MachineIP, res.HealthStatus, build), kind)
		s.loadMachines()
	})
}

// handleInlineEdit puts a cell into edit mode. The edit buffer starts at the
// machine's current value.
func (s *Session) handleInlineEdit(in Intent) {
	field := state.EditField(in.Field)
	if !field.Inline() {
		s.logger.Debug("inline edit of unsupported field", zap.String("field", in.Field))
		return
	}
	m, ok := s.store.Get().Machine(in.ID)
	if !ok {
		return
	}
	buffer := string(m.Status)
	if field == state.EditAllottedTo {
		buffer = models.Deref(m.AllottedTo)
	}
	s.store.Set(state.EditCell(m.ID, field, buffer))
	s.apply(s.r.Table(s.store.Get()), render.Focus(render.ControlID(m.ID, field)))
}

func (s *Session) handleInlineInput(in Intent) {
	st := s.store.Get()
	if st.EditingCellID == "" || in.ID != st.EditingCellID {
		return
	}
	if in.Field != "" && state.EditField(in.Field) != st.EditingField {
		return
	}
	s.store.Set(state.EditBuffer(in.Value))
}

// handleInlineSave sends only the edited field. The allotted-to value is
// trimmed and sent as null when blank.
func (s *Session) handleInlineSave(in Intent) {
	st := s.store.Get()
	if st.EditingCellID == "" || in.ID != st.EditingCellID {
		return
	}
	id, field, value := st.EditingCellID, st.EditingField, st.EditBuffer

	var patch models.MachineUpdate
	switch field {
	case state.EditStatus:
		patch.Status = models.Set(models.Status(value))
	case state.EditAllottedTo:
		patch.AllottedTo = models.SetPtr(nullable(value))
	default:
		return
	}

	call(s, func(ctx context.Context) (*models.Machine, error) {
		return s.api.Update(ctx, id, patch)
	}, func(m *models.Machine, err error) {
		o, detail := outcome(err)
		s.publish(TopicMachineUpdated, ActionEvent{
			Action: string(ActionInlineSave) + ":" + string(field), MachineID: id,
			MachineIP: s.machineLabel(id), Outcome: o, Detail: detail,
		})
		if err != nil {
			s.toast(detailOr(err, "Save failed."), render.ToastError)
			return
		}
		s.store.Set(state.ClearEditing(), state.ReplaceMachine(*m))
		st := s.store.Get()
		s.apply(s.r.Table(st), s.r.Stats(st))
		s.toast("Saved.", render.ToastSuccess)
	})
}

func (s *Session) handleInlineCancel(Intent) {
	s.store.Set(state.ClearEditing())
	s.apply(s.r.Table(s.store.Get()))
}

// nullable trims v and returns nil when nothing is left.
func nullable(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
