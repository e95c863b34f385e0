package whatsapp

type SendMessageInput struct {
	PhoneNumber  string   // digits with country code, e.g. "919876543210"
	TemplateName string   // approved template, e.g. "webinar_registration"
	Parameters   []string // body placeholders in order
}

type SendMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Contacts []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Error *ErrorResponse `json:"error"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Type    string `json:"type"`
}
