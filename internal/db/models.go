package db

import "time"

// ToolInvocation is one row in the tool usage log. Tool arguments are not
// stored; they can contain portal API keys.
type ToolInvocation struct {
	ID        string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	RequestID *string   `gorm:"type:text" json:"request_id,omitempty"`
	Tool      string    `gorm:"type:text;not null" json:"tool"`
	Status    string    `gorm:"type:text;not null" json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (ToolInvocation) TableName() string { return "portalmcp.tool_invocations" }
