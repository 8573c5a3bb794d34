package bluebubbles

// Wire types for the BlueBubbles REST API. Every field the server may omit
// is a pointer or zero-tolerant; responses are never trusted beyond that.

type Chat struct {
	GUID        string   `json:"guid"`
	DisplayName string   `json:"displayName,omitempty"`
	LastMessage *Message `json:"lastMessage,omitempty"`
}

type Message struct {
	GUID          string       `json:"guid"`
	Text          string       `json:"text,omitempty"`
	DateCreated   int64        `json:"dateCreated,omitempty"`
	DateDelivered int64        `json:"dateDelivered,omitempty"`
	IsFromMe      bool         `json:"isFromMe,omitempty"`
	Attachments   []Attachment `json:"attachments,omitempty"`
}

// Timestamp returns the message's creation time in unix millis, falling
// back to the delivery time when creation is absent.
func (m *Message) Timestamp() int64 {
	if m.DateCreated != 0 {
		return m.DateCreated
	}
	return m.DateDelivered
}

type Attachment struct {
	GUID         string `json:"guid"`
	MimeType     string `json:"mimeType,omitempty"`
	TransferName string `json:"transferName,omitempty"`
	TotalBytes   int64  `json:"totalBytes,omitempty"`
}

type chatQuery struct {
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
	With   []string `json:"with"`
	Sort   string   `json:"sort"`
}

type messageQuery struct {
	ChatGUID string `json:"chatGuid"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
	Sort     string `json:"sort"`
}

type sendTextRequest struct {
	ChatGUID string `json:"chatGuid"`
	Message  string `json:"message"`
	TempGUID string `json:"tempGuid"`
}

type apiResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
