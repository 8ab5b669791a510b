package handler

// CreateLoanRequest represents a request to disburse a new loan.
// All monetary amounts are in minor units (cents).
type CreateLoanRequest struct {
	Principal     int64   `json:"principal" binding:"required,gt=0"`
	AnnualRatePct float64 `json:"annual_rate_pct" binding:"min=0"`
	TermCount     int     `json:"term_count" binding:"required,gt=0"`
	FrequencyDays int     `json:"frequency_days" binding:"required,gt=0"`
	Bullet        bool    `json:"bullet"`
	DisbursedOn   string  `json:"disbursed_on" binding:"required,datetime=2006-01-02"`
}

// LoanResponse represents a loan in API responses
type LoanResponse struct {
	ID               string  `json:"id"`
	Principal        int64   `json:"principal"`
	AnnualRatePct    float64 `json:"annual_rate_pct"`
	TermCount        int     `json:"term_count"`
	FrequencyDays    int     `json:"frequency_days"`
	Bullet           bool    `json:"bullet"`
	DisbursedOn      string  `json:"disbursed_on"`
	MaturesOn        string  `json:"matures_on"`
	CapitalBalance   int64   `json:"capital_balance"`
	InterestBalance  int64   `json:"interest_balance"`
	MoraBalance      int64   `json:"mora_balance"`
	TotalOutstanding int64   `json:"total_outstanding"`
	StatusCode       string  `json:"status_code"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

// SplitRequest is an explicit distribution of a PARCIAL payment across
// obligation kinds; the buckets must sum to the payment amount
type SplitRequest struct {
	Mora    int64 `json:"mora" binding:"min=0"`
	Interes int64 `json:"interes" binding:"min=0"`
	Capital int64 `json:"capital" binding:"min=0"`
	Otros   int64 `json:"otros" binding:"min=0"`
}

// CreatePaymentRequest represents a request to allocate a payment
type CreatePaymentRequest struct {
	Amount      int64         `json:"amount" binding:"required,gt=0"`
	Mode        string        `json:"mode" binding:"required,oneof=CUOTA PARCIAL CAPITAL MORA"`
	Installment int           `json:"installment" binding:"min=0"`
	Split       *SplitRequest `json:"split,omitempty"`
	PaidOn      string        `json:"paid_on,omitempty" binding:"omitempty,datetime=2006-01-02"`
	ChannelCode string        `json:"channel_code,omitempty"`
	Note        string        `json:"note,omitempty"`
	CreatedBy   string        `json:"created_by,omitempty"`
}

// AppliedComponentResponse reports one obligation component touched by an
// allocation
type AppliedComponentResponse struct {
	ComponentID   string `json:"component_id"`
	Kind          string `json:"kind"`
	KindLabel     string `json:"kind_label"`
	Installment   int    `json:"installment"`
	BalanceBefore int64  `json:"balance_before"`
	Applied       int64  `json:"applied"`
	NewStatus     string `json:"new_status"`
}

// AllocationResponse represents the outcome of a payment allocation
type AllocationResponse struct {
	EventID         string                     `json:"event_id"`
	PaidOn          string                     `json:"paid_on"`
	Mode            string                     `json:"mode"`
	CapitalApplied  int64                      `json:"capital_applied"`
	InterestApplied int64                      `json:"interest_applied"`
	MoraApplied     int64                      `json:"mora_applied"`
	OtherApplied    int64                      `json:"other_applied"`
	TotalApplied    int64                      `json:"total_applied"`
	Components      []AppliedComponentResponse `json:"components"`
	Message         string                     `json:"message"`
}

// PaymentResponse represents a payment event in API responses
type PaymentResponse struct {
	EventID         string `json:"event_id"`
	LoanID          string `json:"loan_id"`
	Type            string `json:"type"`
	PaidOn          string `json:"paid_on"`
	CapitalApplied  int64  `json:"capital_applied"`
	InterestApplied int64  `json:"interest_applied"`
	MoraApplied     int64  `json:"mora_applied"`
	OtherApplied    int64  `json:"other_applied"`
	TotalApplied    int64  `json:"total_applied"`
	Note            string `json:"note,omitempty"`
	CreatedBy       string `json:"created_by,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// PaymentListResponse represents a list of payment events in API responses
type PaymentListResponse struct {
	Payments []PaymentResponse `json:"payments"`
}

// AccrualRunRequest represents an admin request to trigger a mora accrual
// run. The business date defaults to the current one when omitted.
type AccrualRunRequest struct {
	BusinessDate string `json:"business_date" binding:"omitempty,datetime=2006-01-02"`
}

// AccrualRunResponse summarizes a completed accrual run
type AccrualRunResponse struct {
	BusinessDate      string `json:"business_date"`
	LoansProcessed    int    `json:"loans_processed"`
	LoansAffected     int    `json:"loans_affected"`
	ComponentsCreated int    `json:"components_created"`
	LoansFailed       int    `json:"loans_failed"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
