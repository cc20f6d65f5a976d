package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"todoapi/internal/model"
	"todoapi/internal/pkg/optional"
)

// TaskCreate 创建任务的输入。
type TaskCreate struct {
	Title       string            `json:"title"`
	Description *string           `json:"description"`
	DueDate     *model.Date       `json:"due_date"`
	Status      *model.TaskStatus `json:"status"`
	OwnerID     *int64            `json:"owner_id"`
}

// TaskUpdate 部分更新任务的输入，只有出现的字段会被写入。
type TaskUpdate struct {
	Title       optional.Value[string]            `json:"title"`
	Description optional.Value[*string]           `json:"description"`
	DueDate     optional.Value[*model.Date]       `json:"due_date"`
	Status      optional.Value[*model.TaskStatus] `json:"status"`
	OwnerID     optional.Value[*int64]            `json:"owner_id"`
}

// taskOrder: 未完成在前，截止日期升序（无日期排最后），创建时间倒序。
const taskOrder = "CASE WHEN status = 'Done' THEN 1 ELSE 0 END ASC, " +
	"CASE WHEN due_date IS NULL THEN 1 ELSE 0 END ASC, due_date ASC, " +
	"created_at DESC, id DESC"

// TaskService 任务记录服务。
type TaskService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewTaskService 创建任务服务。
func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db, now: time.Now}
}

// Create 写入新任务并返回回读后的记录。
func (s *TaskService) Create(ctx context.Context, in TaskCreate) (*model.Task, error) {
	now := s.now()
	task := &model.Task{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Status:      in.Status,
		OwnerID:     in.OwnerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var created model.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return err
		}
		return tx.Take(&created, task.ID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &created, nil
}

// Get 按 ID 查询任务，不存在时返回 (nil, nil)。
func (s *TaskService) Get(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	err := s.db.WithContext(ctx).Take(&task, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return &task, nil
}

// List 返回全部任务。
func (s *TaskService) List(ctx context.Context) ([]model.Task, error) {
	tasks := []model.Task{}
	if err := s.db.WithContext(ctx).Order(taskOrder).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListByOwner 返回指定用户的任务，排序与 List 相同。
func (s *TaskService) ListByOwner(ctx context.Context, ownerID int64) ([]model.Task, error) {
	tasks := []model.Task{}
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order(taskOrder).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list tasks of owner %d: %w", ownerID, err)
	}
	return tasks, nil
}

// Update 只写入 in 中出现的字段，并刷新 updated_at。task 本身不会被修改。
// 任务在此期间已被删除时返回 (nil, nil)。
func (s *TaskService) Update(ctx context.Context, task *model.Task, in TaskUpdate) (*model.Task, error) {
	updates := map[string]interface{}{
		"updated_at": s.now(),
	}
	if v, ok := in.Title.Get(); ok {
		updates["title"] = v
	}
	if v, ok := in.Description.Get(); ok {
		updates["description"] = v
	}
	if v, ok := in.DueDate.Get(); ok {
		updates["due_date"] = v
	}
	if v, ok := in.Status.Get(); ok {
		updates["status"] = v
	}
	if v, ok := in.OwnerID.Get(); ok {
		updates["owner_id"] = v
	}

	var updated model.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Task{}).Where("id = ?", task.ID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Take(&updated, task.ID).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update task %d: %w", task.ID, err)
	}
	return &updated, nil
}

// Delete 物理删除任务。
func (s *TaskService) Delete(ctx context.Context, task *model.Task) error {
	if err := s.db.WithContext(ctx).Delete(&model.Task{}, task.ID).Error; err != nil {
		return fmt.Errorf("delete task %d: %w", task.ID, err)
	}
	return nil
}
