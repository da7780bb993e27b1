package domain

// Transaction statuses as stored in transactions.status.
const (
	TransactionStatusSuccess = "Success"
	TransactionStatusFailed  = "Failed"
)

// Session keys.
const (
	SessionCheckoutRequestID = "checkout_request_id"
)

// User-facing messages on the checkout form.
const (
	MsgPushFailed    = "Failed to send STK push. Please try again."
	MsgGenericError  = "Something went wrong while processing your payment. Please try again."
	MsgInvalidPhone  = "Invalid phone number format"
	MsgInvalidAmount = "Amount must be a positive whole number"
	MsgMissingFields = "Phone number and amount are required"
)
