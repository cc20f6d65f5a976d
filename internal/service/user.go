package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"todoapi/internal/model"
	"todoapi/internal/pkg/metrics"
	"todoapi/internal/pkg/optional"
	"todoapi/internal/store"
)

// UserCreate 创建用户的输入。Password 可选，保存前做 bcrypt 哈希。
type UserCreate struct {
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Password  *string `json:"password"`
}

// UserUpdate 部分更新用户的输入。
type UserUpdate struct {
	Username  optional.Value[string]  `json:"username"`
	Email     optional.Value[string]  `json:"email"`
	FirstName optional.Value[string]  `json:"first_name"`
	LastName  optional.Value[string]  `json:"last_name"`
	Password  optional.Value[*string] `json:"password"`
}

// UserService 用户记录服务。
type UserService struct {
	db         *gorm.DB
	now        func() time.Time
	bcryptCost int
}

// NewUserService 创建用户服务。
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db, now: time.Now, bcryptCost: bcrypt.DefaultCost}
}

// Create 写入新用户。用户名或邮箱重复时回滚并返回 ErrConflict。
func (s *UserService) Create(ctx context.Context, in UserCreate) (*model.User, error) {
	now := s.now()
	user := &model.User{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Password != nil {
		hashed, err := s.hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		user.Password = hashed
	}

	var created model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Take(&created, user.ID).Error
	})
	if err != nil {
		return nil, s.wrapWriteErr("create user", err)
	}
	return &created, nil
}

// Get 按 ID 查询用户，不存在时返回 (nil, nil)。
func (s *UserService) Get(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Take(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &user, nil
}

// GetByUsername 按用户名查询用户，不存在时返回 (nil, nil)。
func (s *UserService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %q: %w", username, err)
	}
	return &user, nil
}

// List 按 ID 顺序返回全部用户。
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Update 只写入 in 中出现的字段。冲突时整个更新回滚，已有记录保持不变。
// 用户在此期间已被删除时返回 (nil, nil)。
func (s *UserService) Update(ctx context.Context, user *model.User, in UserUpdate) (*model.User, error) {
	updates := map[string]interface{}{
		"updated_at": s.now(),
	}
	if v, ok := in.Username.Get(); ok {
		updates["username"] = v
	}
	if v, ok := in.Email.Get(); ok {
		updates["email"] = v
	}
	if v, ok := in.FirstName.Get(); ok {
		updates["first_name"] = v
	}
	if v, ok := in.LastName.Get(); ok {
		updates["last_name"] = v
	}
	if v, ok := in.Password.Get(); ok {
		// null 表示清除密码
		hashed := ""
		if v != nil {
			var err error
			if hashed, err = s.hashPassword(*v); err != nil {
				return nil, err
			}
		}
		updates["password"] = hashed
	}

	var updated model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Take(&updated, user.ID).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.wrapWriteErr(fmt.Sprintf("update user %d", user.ID), err)
	}
	return &updated, nil
}

// Delete 物理删除用户。该用户的任务不受影响。
func (s *UserService) Delete(ctx context.Context, user *model.User) error {
	if err := s.db.WithContext(ctx).Delete(&model.User{}, user.ID).Error; err != nil {
		return fmt.Errorf("delete user %d: %w", user.ID, err)
	}
	return nil
}

func (s *UserService) hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *UserService) wrapWriteErr(op string, err error) error {
	if store.IsUniqueViolation(err) {
		metrics.RecordConflictsTotal.WithLabelValues("user").Inc()
		return ErrConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}
