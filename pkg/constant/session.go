package constant

const (
	SESSION_CREATED      = "Session started"
	SESSION_DESTROYED    = "Session destroyed"
	SESSION_RESTARTED    = "Session restarted"
	SESSION_NOT_FOUND    = "Session not found"
	SESSION_NOT_READY    = "Session is not connected"
	SESSION_CREATING     = "Session is already being created, retry shortly"
	SESSION_INIT_FAILED  = "Session could not be initialized"
	QR_NOT_AVAILABLE     = "No QR code is pending for this session"
	MESSAGE_SENT         = "Message sent successfully"
	CONTACTS_RETRIEVED   = "Contacts retrieved successfully"
	NOT_SUPPORTED        = "Operation not supported by this backend"
	WEBHOOK_NOT_FOUND    = "Webhook not found"
	WEBHOOK_TEST_SENT    = "Test delivery finished"
	INVALID_EVENTS       = "Invalid webhook events"
	REALTIME_UPGRADE_ERR = "Could not open realtime connection"
)
