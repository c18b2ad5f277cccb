package types

// DispatchEnvelope is the outbound message handed to the relay.
// Payload is the ABI call data and is base64 encoded in JSON.
type DispatchEnvelope struct {
	JobID    string   `json:"job_id"`
	Payload  []byte   `json:"payload"`
	Metadata Metadata `json:"metadata"`
}

// Attribute is a key/value annotation of a response.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response is the outcome of a successful invocation.
type Response struct {
	Messages   []DispatchEnvelope `json:"messages,omitempty"`
	Attributes []Attribute        `json:"attributes,omitempty"`
}

// NewResponse creates an empty response.
func NewResponse() *Response {
	return &Response{}
}

// AddMessage appends a dispatch envelope.
func (r *Response) AddMessage(envelope DispatchEnvelope) *Response {
	r.Messages = append(r.Messages, envelope)
	return r
}

// AddAttribute appends an attribute.
func (r *Response) AddAttribute(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

// Attribute returns the first attribute value for key.
func (r *Response) Attribute(key string) (string, bool) {
	for _, attr := range r.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}
