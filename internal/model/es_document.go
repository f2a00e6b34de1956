package model

// JoinField 是 Elasticsearch join 字段的值：thread 为父文档，message 为子文档。
type JoinField struct {
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
}

// MessageDocument 定义了 message 在 Elasticsearch 中的文档结构，字段名与 API 查询字段一致。
type MessageDocument struct {
	ID          string        `json:"id"`
	Object      string        `json:"object"`
	NamespaceID string        `json:"namespace_id"`
	Subject     string        `json:"subject"`
	From        []Participant `json:"from"`
	To          []Participant `json:"to"`
	Cc          []Participant `json:"cc"`
	Bcc         []Participant `json:"bcc"`
	Date        UnixTime      `json:"date"`
	ThreadID    string        `json:"thread_id"`
	Snippet     string        `json:"snippet"`
	Body        string        `json:"body"`
	Unread      bool          `json:"unread"`
	Files       []Attachment  `json:"files"`
	Version     int           `json:"version"`
	State       string        `json:"state"`
	Relation    JoinField     `json:"relation"`
}

// ThreadDocument 定义了 thread 在 Elasticsearch 中的文档结构。
type ThreadDocument struct {
	ID                    string        `json:"id"`
	Object                string        `json:"object"`
	NamespaceID           string        `json:"namespace_id"`
	Subject               string        `json:"subject"`
	Snippet               string        `json:"snippet"`
	Participants          []Participant `json:"participants"`
	Tags                  []string      `json:"tags"`
	LastMessageTimestamp  UnixTime      `json:"last_message_timestamp"`
	FirstMessageTimestamp UnixTime      `json:"first_message_timestamp"`
	Relation              JoinField     `json:"relation"`
}

// NewMessageDocument 由数据库记录与正文构建 message 文档。
func NewMessageDocument(m *Message, body string) MessageDocument {
	threadID := EncodePublicID(m.ThreadID)
	return MessageDocument{
		ID:          EncodePublicID(m.ID),
		Object:      "message",
		NamespaceID: EncodePublicID(m.NamespaceID),
		Subject:     m.Subject,
		From:        m.From,
		To:          m.To,
		Cc:          m.Cc,
		Bcc:         m.Bcc,
		Date:        UnixTime(m.ReceivedDate),
		ThreadID:    threadID,
		Snippet:     m.Snippet,
		Body:        body,
		Unread:      m.Unread,
		Files:       m.Files,
		Version:     m.Version,
		State:       m.State,
		Relation:    JoinField{Name: "message", Parent: threadID},
	}
}

// NewThreadDocument 由数据库记录与分类名构建 thread 文档。
func NewThreadDocument(t *Thread, tags []string) ThreadDocument {
	if tags == nil {
		tags = []string{}
	}
	return ThreadDocument{
		ID:                    EncodePublicID(t.ID),
		Object:                "thread",
		NamespaceID:           EncodePublicID(t.NamespaceID),
		Subject:               t.Subject,
		Snippet:               t.Snippet,
		Participants:          t.Participants,
		Tags:                  tags,
		LastMessageTimestamp:  UnixTime(t.LastMessageAt),
		FirstMessageTimestamp: UnixTime(t.FirstMessageAt),
		Relation:              JoinField{Name: "thread"},
	}
}

// MessageResponseDTO 定义了 message 在 REST API 中的返回结构。
type MessageResponseDTO struct {
	ID          string        `json:"id"`
	Object      string        `json:"object"`
	NamespaceID string        `json:"namespace_id"`
	ThreadID    string        `json:"thread_id"`
	Subject     string        `json:"subject"`
	From        []Participant `json:"from"`
	To          []Participant `json:"to"`
	Date        UnixTime      `json:"date"`
	Unread      bool          `json:"unread"`
	Starred     bool          `json:"starred"`
	Labels      []string      `json:"labels,omitempty"`
	Folder      string        `json:"folder,omitempty"`
}

// NewMessageResponse 构建 message 的 API 返回结构，Gmail 账号返回 labels，其余返回 folder。
func NewMessageResponse(m *Message, provider string) MessageResponseDTO {
	dto := MessageResponseDTO{
		ID:          EncodePublicID(m.ID),
		Object:      "message",
		NamespaceID: EncodePublicID(m.NamespaceID),
		ThreadID:    EncodePublicID(m.ThreadID),
		Subject:     m.Subject,
		From:        m.From,
		To:          m.To,
		Date:        UnixTime(m.ReceivedDate),
		Unread:      m.Unread,
		Starred:     m.Starred,
	}
	for _, c := range m.Categories {
		if provider == ProviderGmail {
			dto.Labels = append(dto.Labels, EncodePublicID(c.ID))
		} else {
			dto.Folder = EncodePublicID(c.ID)
		}
	}
	return dto
}
