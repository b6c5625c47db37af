package models

// SendResponse is the success payload returned by an email provider.
type SendResponse struct {
	ID string `json:"id"`
}

// DeliveryError is the error payload returned by an email provider.
type DeliveryError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (e *DeliveryError) Error() string {
	if e.Name == "" {
		return e.Message
	}
	return e.Name + ": " + e.Message
}

// DeliveryResult is the outcome of one send attempt. Exactly one of Data or
// Error is set.
type DeliveryResult struct {
	Data  *SendResponse  `json:"data"`
	Error *DeliveryError `json:"error"`
}

// Sent builds a successful DeliveryResult.
func Sent(id string) DeliveryResult {
	return DeliveryResult{Data: &SendResponse{ID: id}}
}

// Failed builds a failed DeliveryResult.
func Failed(name, message string) DeliveryResult {
	return DeliveryResult{Error: &DeliveryError{Name: name, Message: message}}
}

// IsError reports whether the provider rejected the message.
func (r DeliveryResult) IsError() bool {
	return r.Error != nil
}
