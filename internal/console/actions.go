package console

import "go.uber.org/zap"

// ActionKind names a user intent sent by the page.
type ActionKind string

// Table actions.
const (
	ActionEdit         ActionKind = "edit"
	ActionDelete       ActionKind = "delete"
	ActionHealthCheck  ActionKind = "health-check"
	ActionInlineEdit   ActionKind = "inline-edit"
	ActionInlineInput  ActionKind = "inline-input"
	ActionInlineSave   ActionKind = "inline-save"
	ActionInlineCancel ActionKind = "inline-cancel"
)

// Filter and pagination actions.
const (
	ActionFilterSearch  ActionKind = "filter-search"
	ActionFilterStatus  ActionKind = "filter-status"
	ActionFilterUsedFor ActionKind = "filter-used-for"
	ActionFilterType    ActionKind = "filter-type"
	ActionClearFilters  ActionKind = "clear-filters"
	ActionPage          ActionKind = "page"
)

// Modal, toolbar and confirm dialog actions.
const (
	ActionOpenCreate    ActionKind = "open-create"
	ActionModalClose    ActionKind = "modal-close"
	ActionModalCancel   ActionKind = "modal-cancel"
	ActionModalOverlay  ActionKind = "modal-overlay"
	ActionSubmit        ActionKind = "submit"
	ActionRefresh       ActionKind = "refresh"
	ActionAutoRefresh   ActionKind = "auto-refresh"
	ActionConfirmOK     ActionKind = "confirm-ok"
	ActionConfirmCancel ActionKind = "confirm-cancel"
	ActionConfirmClose  ActionKind = "confirm-close"
)

// Intent is one user action as sent by the page shim.
type Intent struct {
	Action ActionKind `json:"action"`
	ID     string     `json:"id,omitempty"`
	Field  string     `json:"field,omitempty"`
	Value  string     `json:"value,omitempty"`
	Page   string     `json:"page,omitempty"`
	Token  string     `json:"token,omitempty"`
	// Checked is the state of a checkbox control.
	Checked bool `json:"checked,omitempty"`
	// Form carries named form values on submit.
	Form map[string]string `json:"form,omitempty"`
}

type handler func(*Session, Intent)

var handlers = map[ActionKind]handler{
	ActionEdit:         (*Session).handleEdit,
	ActionDelete:       (*Session).handleDelete,
	ActionHealthCheck:  (*Session).handleHealthCheck,
	ActionInlineEdit:   (*Session).handleInlineEdit,
	ActionInlineInput:  (*Session).handleInlineInput,
	ActionInlineSave:   (*Session).handleInlineSave,
	ActionInlineCancel: (*Session).handleInlineCancel,

	ActionFilterSearch:  (*Session).handleFilterSearch,
	ActionFilterStatus:  (*Session).handleFilterSelect,
	ActionFilterUsedFor: (*Session).handleFilterSelect,
	ActionFilterType:    (*Session).handleFilterSelect,
	ActionClearFilters:  (*Session).handleClearFilters,
	ActionPage:          (*Session).handlePage,

	ActionOpenCreate:   (*Session).handleOpenCreate,
	ActionModalClose:   (*Session).handleModalClose,
	ActionModalCancel:  (*Session).handleModalClose,
	ActionModalOverlay: (*Session).handleModalClose,
	ActionSubmit:       (*Session).handleSubmit,
	ActionRefresh:      (*Session).handleRefresh,
	ActionAutoRefresh:  (*Session).handleAutoRefresh,

	ActionConfirmOK:     (*Session).handleConfirm,
	ActionConfirmCancel: (*Session).handleConfirm,
	ActionConfirmClose:  (*Session).handleConfirm,
}

// Known reports whether k has a handler.
func (k ActionKind) Known() bool {
	_, ok := handlers[k]
	return ok
}

// Dispatch runs the handler for in on the session loop. Unknown actions are
// logged and dropped.
func (s *Session) Dispatch(in Intent) {
	s.exec.Post(func() {
		h, ok := handlers[in.Action]
		if !ok {
			s.logger.Warn("unknown action", zap.String("action", string(in.Action)))
			return
		}
		s.logger.Debug("dispatch",
			zap.String("action", string(in.Action)),
			zap.String("id", in.ID),
		)
		h(s, in)
	})
}
