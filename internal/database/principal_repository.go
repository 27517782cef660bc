package database

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"jobboard/internal/apperror"
	"jobboard/internal/role"
)

// ErrEmailTaken 表示注册邮箱已存在。
var ErrEmailTaken = errors.New("email already registered")

// PrincipalRepository 负责身份与角色记录。
type PrincipalRepository struct {
	db *gorm.DB
}

func NewPrincipalRepository(db *gorm.DB) *PrincipalRepository {
	return &PrincipalRepository{db: db}
}

// NormalizeEmail 统一邮箱的比较形式。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LookupRole 实现 role.Store。
func (r *PrincipalRepository) LookupRole(ctx context.Context, principalID uint) (role.Role, error) {
	var assignment RoleAssignment
	err := r.db.WithContext(ctx).Where("principal_id = ?", principalID).First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", role.ErrNoRecord
	}
	if err != nil {
		return "", &apperror.TransientError{Op: "lookup role", Err: err}
	}
	parsed, ok := role.Parse(assignment.Role)
	if !ok {
		return "", role.ErrNoRecord
	}
	return parsed, nil
}

// Register 在同一事务内创建身份及其角色记录。
func (r *PrincipalRepository) Register(ctx context.Context, email, passwordHash string, assigned role.Role) (*Principal, error) {
	email = NormalizeEmail(email)
	principal := Principal{Email: email, PasswordHash: passwordHash}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&Principal{}).Where("email = ?", email).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrEmailTaken
		}
		if err := tx.Create(&principal).Error; err != nil {
			return err
		}
		return tx.Create(&RoleAssignment{PrincipalID: principal.ID, Role: assigned.String()}).Error
	})
	if errors.Is(err, ErrEmailTaken) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, classify("register principal", err)
	}
	return &principal, nil
}

func (r *PrincipalRepository) FindByEmail(ctx context.Context, email string) (*Principal, error) {
	var p Principal
	if err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&p).Error; err != nil {
		return nil, classify("find principal", err)
	}
	return &p, nil
}

func (r *PrincipalRepository) FindByID(ctx context.Context, id uint) (*Principal, error) {
	var p Principal
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, classify("find principal", err)
	}
	return &p, nil
}

// UpdatePassword 写入新密码并清除强制改密标记。
func (r *PrincipalRepository) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	res := r.db.WithContext(ctx).Model(&Principal{}).Where("id = ?", id).Updates(map[string]any{
		"password_hash":        passwordHash,
		"must_change_password": false,
	})
	if res.Error != nil {
		return classify("update password", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("principal %d not found", id)
	}
	return nil
}

func (r *PrincipalRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Principal{}).Count(&n).Error; err != nil {
		return 0, classify("count principals", err)
	}
	return n, nil
}

// EnsureAdministrator 写入管理员引导记录：邮箱不存在时以给定密码哈希创建，
// 已存在时提升为 superuser。返回是否新建。
func (r *PrincipalRepository) EnsureAdministrator(ctx context.Context, email, passwordHash string) (bool, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return false, apperror.Validation("email", "administrator email is required")
	}

	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Principal
		err := tx.Where("email = ?", email).First(&existing).Error
		switch {
		case err == nil:
			if existing.Superuser {
				return nil
			}
			return tx.Model(&existing).Update("superuser", true).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		admin := Principal{
			Email:              email,
			PasswordHash:       passwordHash,
			MustChangePassword: true,
			Superuser:          true,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}
		created = true
		return tx.Create(&RoleAssignment{PrincipalID: admin.ID, Role: role.Admin.String()}).Error
	})
	if err != nil {
		return false, classify("ensure administrator", err)
	}
	return created, nil
}
