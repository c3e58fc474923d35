// Package change turns the change request form into a ticketing API payload
// and submits it after the user confirms.
package change

import (
	"sync"

	"goflare.io/changedesk/pkg/serialization"
)

// Form field names.
const (
	FieldSubject             = "subject"
	FieldDescription         = "description"
	FieldChangeType          = "changeType"
	FieldRequester           = "requester"
	FieldDepartment          = "department"
	FieldPlannedStart        = "plannedStart"
	FieldPlannedEnd          = "plannedEnd"
	FieldWorkspace           = "workspace"
	FieldImplementationGroup = "implementationGroup"
	FieldMaintenanceWindow   = "maintenanceWindow"
	FieldAssociatedAssets    = "associatedAssets"
	FieldImpact              = "impact"
	FieldRolloutPlan         = "rolloutPlan"
	FieldRollbackPlan        = "rollbackPlan"
	FieldPotentialImpact     = "potentialImpact"
)

// Form holds the values of one change request form and the ordered list of
// associated services picked from item search.
type Form struct {
	mu       sync.Mutex
	fields   map[string]string
	selected []int64
}

// NewForm creates a form pre-filled with values.
func NewForm(values map[string]string) *Form {
	f := &Form{fields: make(map[string]string, len(values))}
	for name, value := range values {
		f.fields[name] = value
	}
	return f
}

// Set stores a field value.
func (f *Form) Set(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields[name] = value
}

// Get returns a field value.
func (f *Form) Get(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields[name]
}

// Values returns a copy of every field.
func (f *Form) Values() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.fields))
	for name, value := range f.fields {
		out[name] = value
	}
	return out
}

// Select adds id to the associated services, keeping first-selection order.
func (f *Form) Select(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.selected {
		if existing == id {
			return
		}
	}
	f.selected = append(f.selected, id)
	f.mirrorLocked()
}

// Deselect removes id from the associated services.
func (f *Form) Deselect(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.selected {
		if existing == id {
			f.selected = append(f.selected[:i], f.selected[i+1:]...)
			break
		}
	}
	f.mirrorLocked()
}

// Selected returns the associated service IDs in selection order.
func (f *Form) Selected() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.selected...)
}

// Reset clears every field and selection.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields = make(map[string]string)
	f.selected = nil
}

// mirrorLocked writes the selection into the associatedAssets field as a JSON array.
func (f *Form) mirrorLocked() {
	ids := f.selected
	if ids == nil {
		ids = []int64{}
	}
	raw, err := serialization.Marshal(ids)
	if err != nil {
		return
	}
	f.fields[FieldAssociatedAssets] = string(raw)
}
