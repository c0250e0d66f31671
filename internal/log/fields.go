package log

// Field names shared by every log line.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldYear       = "year"
	FieldMonth      = "month"
	FieldUserID     = "user_id"
	FieldTxID       = "transaction_id"
	FieldTxType     = "transaction_type"
	FieldTxTitle    = "title"
	FieldAmount     = "amount"
	FieldCategory   = "category"
)

// Components
const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentAuth        = "auth"
	ComponentTransaction = "transaction"
	ComponentReceipt     = "receipt"
	ComponentWorker      = "worker"
	ComponentCache       = "cache"
	ComponentSecurity    = "security"
	ComponentRateLimit   = "rate_limit"
	ComponentTrace       = "trace"
	ComponentBackend     = "backend"
)

// Operations name the API action a log line belongs to.
const (
	OpRegister          = "register"
	OpLogin             = "login"
	OpListTransactions  = "list_transactions"
	OpCreateTransaction = "create_transaction"
	OpDeleteTransaction = "delete_transaction"
	OpLedger            = "ledger"
	OpAnalytics         = "analytics"
	OpDashboard         = "dashboard"
	OpListCategories    = "list_categories"
	OpAddCategory       = "add_category"
	OpScanReceipt       = "scan_receipt"
)

// LogFields collects attributes before they are flattened for slog.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithUser(userID string) LogFields {
	if userID != "" {
		f[FieldUserID] = userID
	}
	return f
}

// WithTransaction records the fields of a stored transaction. The amount is
// the plain decimal string.
func (f LogFields) WithTransaction(id, title, txType, category, amount string) LogFields {
	f[FieldTxID] = id
	f[FieldTxTitle] = title
	f[FieldTxType] = txType
	f[FieldCategory] = category
	f[FieldAmount] = amount
	return f
}

func (f LogFields) WithPeriod(year, month int) LogFields {
	f[FieldYear] = year
	f[FieldMonth] = month
	return f
}

// ToSlice flattens the fields into slog key/value pairs.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
