package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldActor       = "actor"
	FieldHouseholdID = "household_id"
	FieldBudgetID    = "budget_id"
	FieldAccountID   = "account_id"
	FieldCounterpart = "counterparty_id"
	FieldTransferID  = "transfer_id"
	FieldAmountCents = "amount_cents"
	FieldEventID     = "event_id"
	FieldEventType   = "event_type"
	FieldSheetsRef   = "sheets_ref"
)

const (
	ComponentApp        = "app"
	ComponentBalance    = "balance"
	ComponentAllocation = "allocation"
	ComponentTransfer   = "transfer"
	ComponentWorker     = "worker"
	ComponentBackend    = "backend"
)

const (
	OpAllocate = "allocate"
	OpTransfer = "transfer"
	OpSeries   = "series"
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpExport   = "export"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeForbidden     = "forbidden_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(t string) LogFields {
	f[FieldErrorType] = t
	return f
}

// WithLedgerEntry adds the fields shared by every ledger write. Empty ids
// are left out.
func (f LogFields) WithLedgerEntry(householdID, budgetID, accountID string, amountCents int64) LogFields {
	if householdID != "" {
		f[FieldHouseholdID] = householdID
	}
	if budgetID != "" {
		f[FieldBudgetID] = budgetID
	}
	if accountID != "" {
		f[FieldAccountID] = accountID
	}
	f[FieldAmountCents] = amountCents
	return f
}

func (f LogFields) WithActor(userID string) LogFields {
	f[FieldActor] = userID
	return f
}

func (f LogFields) WithEvent(eventID, eventType string) LogFields {
	f[FieldEventID] = eventID
	f[FieldEventType] = eventType
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
