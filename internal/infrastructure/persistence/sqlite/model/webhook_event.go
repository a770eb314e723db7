package model

type WebhookEvent struct {
	EventID      uint64 `gorm:"column:event_id;primaryKey;autoIncrement"`
	DeliveryID   string `gorm:"column:delivery_id;type:text;not null;uniqueIndex"`
	EventType    string `gorm:"column:event_type;type:text;not null;index"`
	Repository   string `gorm:"column:repository;type:text;not null;index"`
	Action       string `gorm:"column:action;type:text;not null"`
	Status       string `gorm:"column:status;type:text;not null"`
	Sender       string `gorm:"column:sender;type:text;not null"`
	WorkflowName string `gorm:"column:workflow_name;type:text;not null"`
	RunURL       string `gorm:"column:run_url;type:text;not null"`
	RunNumber    int64  `gorm:"column:run_number;not null"`
	Branch       string `gorm:"column:branch;type:text;not null"`
	PayloadJSON  string `gorm:"column:payload_json;type:text;not null"`
	Verified     bool   `gorm:"column:verified;not null"`
	ReceivedAt   string `gorm:"column:received_at;type:text;not null;index"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
