package model

import (
	"time"
)

// TaskStatus 任务进度。
type TaskStatus string

const (
	TaskStatusToDo  TaskStatus = "ToDo"
	TaskStatusDoing TaskStatus = "Doing"
	TaskStatusDone  TaskStatus = "Done"
)

// Valid 报告状态值是否属于 ToDo / Doing / Done。
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusToDo, TaskStatusDoing, TaskStatusDone:
		return true
	}
	return false
}

// Task 表示一条待办事项。
//
// Description、DueDate、Status、OwnerID 均可为空（NULL）。
// OwnerID 只是语义上指向 User.ID，数据库中不建立外键约束。
type Task struct {
	ID        uint      `gorm:"primaryKey"` // 任务唯一标识
	CreatedAt time.Time `gorm:"not null"`   // 创建时间
	UpdatedAt time.Time `gorm:"not null"`   // 更新时间（每次修改都会刷新）

	Title       string      `gorm:"type:varchar(30);not null"` // 标题（最多 30 字符）
	Description *string     `gorm:"type:varchar(255)"`         // 描述（最多 255 字符）
	DueDate     *Date       `gorm:"type:date"`                 // 截止日期
	Status      *TaskStatus `gorm:"type:varchar(10)"`          // 进度: ToDo / Doing / Done
	OwnerID     *int64      `gorm:"index"`                     // 所属用户 ID
}
