package model

import "time"

// 注文の編集、ステータス更新、キャンセルなど。
type AuditAction string

const (
	//明細や受け取り時刻を編集した操作。
	AuditActionUpdateOrder AuditAction = "UPDATE_ORDER"
	//注文ステータスを更新した操作。
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	//注文をキャンセルした操作。
	AuditActionCancelOrder AuditAction = "CANCEL_ORDER"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceOrder AuditResourceType = "order"
)

// 監査ログ。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement"`

	//操作したユーザー（学生または管理者）のID。
	ActorUserID UserID `gorm:"type:varchar(64);not null;index"`

	//操作したときのロール。
	ActorRole string `gorm:"type:varchar(20);not null"`

	Action AuditAction `gorm:"type:varchar(50);not null;index"`

	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index"`

	ResourceID string `gorm:"type:varchar(64);not null;index"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text"`
	AfterJSON  string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;index"`
}
