package domain

// ChannelCredential is one carrier account able to send messages.
type ChannelCredential struct {
	AccountSID string `json:"accountSid"`
	AuthToken  string `json:"authToken"`
	FromNumber string `json:"fromNo"`
}

// Receipt identifies a message accepted by the carrier.
type Receipt struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}
