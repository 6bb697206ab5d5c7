package whatsapp

// WebhookPayload is the body the Cloud API posts to the webhook.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Metadata         Metadata  `json:"metadata"`
	Contacts         []Contact `json:"contacts"`
	Messages         []Message `json:"messages"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type Message struct {
	From      string    `json:"from"`
	ID        string    `json:"id"`
	Timestamp string    `json:"timestamp"`
	Type      string    `json:"type"`
	Text      *TextBody `json:"text,omitempty"`
}

// InboundMessage is the flattened first message of a payload.
type InboundMessage struct {
	From          string
	Name          string
	Text          string
	MessageID     string
	PhoneNumberID string
	DisplayPhone  string
}

// FirstMessage extracts entry[0].changes[0].value.messages[0]. Later entries,
// changes and messages are ignored.
func (p *WebhookPayload) FirstMessage() (*InboundMessage, bool) {
	if len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 {
		return nil, false
	}
	value := p.Entry[0].Changes[0].Value
	if len(value.Messages) == 0 {
		return nil, false
	}

	msg := value.Messages[0]
	inbound := &InboundMessage{
		From:          msg.From,
		MessageID:     msg.ID,
		PhoneNumberID: value.Metadata.PhoneNumberID,
		DisplayPhone:  value.Metadata.DisplayPhoneNumber,
	}
	if msg.Text != nil {
		inbound.Text = msg.Text.Body
	}
	if len(value.Contacts) > 0 {
		inbound.Name = value.Contacts[0].Profile.Name
	}
	return inbound, true
}
