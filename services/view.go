package services

import "sort"

type Panel string

const (
	PanelMenu   Panel = "menu"
	PanelOrders Panel = "orders"
)

type Modal string

const (
	ModalLogin    Modal = "login"
	ModalRegister Modal = "register"
	ModalProfile  Modal = "profile"
	ModalCart     Modal = "cart"
)

// FormFields lists, per dialog, the fields collected one message at a time.
var FormFields = map[Modal][]string{
	ModalLogin:    {FieldEmail, FieldPassword},
	ModalRegister: {FieldName, FieldEmail, FieldPassword, FieldPhone, FieldAddress},
}

// Dialog collects the fields of a form, one answer per step.
type Dialog struct {
	Form   Modal
	Values map[string]string
	fields []string
	step   int
}

// Field is the field awaiting input, or "" when all fields are collected.
func (d *Dialog) Field() string {
	if d.step >= len(d.fields) {
		return ""
	}
	return d.fields[d.step]
}

// Accept stores value for the current field and reports whether the form is complete.
func (d *Dialog) Accept(value string) bool {
	if f := d.Field(); f != "" {
		d.Values[f] = value
		d.step++
	}
	return d.Done()
}

func (d *Dialog) Done() bool {
	return d.step >= len(d.fields)
}

// Restart clears the collected values and asks for the first field again.
func (d *Dialog) Restart() {
	d.step = 0
	d.Values = make(map[string]string)
}

func (d *Dialog) Step() (current, total int) {
	return d.step + 1, len(d.fields)
}

// View tracks which panel is shown, which modals and dropdown are open,
// the pinned error of each form and the dialog in progress.
type View struct {
	panel      Panel
	open       map[Modal]bool
	dropdown   bool
	formErrors map[Modal]string
	dialog     *Dialog
}

func NewView() *View {
	return &View{
		panel:      PanelMenu,
		open:       make(map[Modal]bool),
		formErrors: make(map[Modal]string),
	}
}

func (v *View) Panel() Panel {
	return v.panel
}

// ShowPanel makes p the only visible panel.
func (v *View) ShowPanel(p Panel) {
	v.panel = p
}

func (v *View) Open(m Modal) {
	v.open[m] = true
}

// Close hides m and abandons its dialog if one is in progress.
func (v *View) Close(m Modal) {
	delete(v.open, m)
	if v.dialog != nil && v.dialog.Form == m {
		v.dialog = nil
	}
}

func (v *View) IsOpen(m Modal) bool {
	return v.open[m]
}

func (v *View) Switch(from, to Modal) {
	v.Close(from)
	v.Open(to)
}

// OpenModals returns the open modals sorted by name.
func (v *View) OpenModals() []Modal {
	out := make([]Modal, 0, len(v.open))
	for m := range v.open {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (v *View) ToggleDropdown() bool {
	v.dropdown = !v.dropdown
	return v.dropdown
}

func (v *View) DropdownOpen() bool {
	return v.dropdown
}

// OutsideClick closes every modal and the user dropdown.
func (v *View) OutsideClick() {
	v.CloseAll()
}

func (v *View) CloseAll() {
	for m := range v.open {
		v.Close(m)
	}
	v.dropdown = false
	v.dialog = nil
}

func (v *View) SetFormError(m Modal, msg string) {
	v.formErrors[m] = msg
}

// FormError is pinned until ClearFormError after the next successful submit.
func (v *View) FormError(m Modal) string {
	return v.formErrors[m]
}

func (v *View) ClearFormError(m Modal) {
	delete(v.formErrors, m)
}

// StartDialog opens m and begins collecting fields. A previous dialog is dropped.
func (v *View) StartDialog(m Modal, fields ...string) *Dialog {
	v.Open(m)
	v.dialog = &Dialog{Form: m, Values: make(map[string]string), fields: fields}
	return v.dialog
}

// Dialog returns the dialog in progress, or nil.
func (v *View) Dialog() *Dialog {
	return v.dialog
}

func (v *View) EndDialog() {
	v.dialog = nil
}
