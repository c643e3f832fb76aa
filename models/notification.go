package models

// Notification is the visible content and routing data of a push message
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// BatchMessage addresses one notification to many device tokens
type BatchMessage struct {
	Notification
	Tokens []string
}

// Message addresses one notification to a single device token
type Message struct {
	Notification
	Token string
}

// SendResponse is the provider's verdict for one token in a batch
type SendResponse struct {
	Token        string
	Success      bool
	MessageID    string
	ErrorCode    string
	ErrorMessage string
}

// BatchResult summarises a multi-token delivery
type BatchResult struct {
	SuccessCount int
	FailureCount int
	Responses    []SendResponse
}

// Failures returns the responses that were not delivered
func (r *BatchResult) Failures() []SendResponse {
	if r == nil {
		return nil
	}
	var failed []SendResponse
	for _, resp := range r.Responses {
		if !resp.Success {
			failed = append(failed, resp)
		}
	}
	return failed
}

// DeliveryError is a provider-reported failure for a single token
type DeliveryError struct {
	Code    string
	Message string
}

func (e *DeliveryError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}
