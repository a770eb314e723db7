package model

// DispatchOutcome keeps the terminal delivery result per webhook delivery.
// One row per delivery_id; retries overwrite in place.
type DispatchOutcome struct {
	DeliveryID string `gorm:"column:delivery_id;type:text;primaryKey"`
	Delivered  bool   `gorm:"column:delivered;not null"`
	Attempts   int    `gorm:"column:attempts;not null"`
	LastError  string `gorm:"column:last_error;type:text;not null"`
	FinishedAt string `gorm:"column:finished_at;type:text;not null"`
}

func (DispatchOutcome) TableName() string {
	return "dispatch_outcomes"
}
