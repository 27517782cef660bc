package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeCompanyVerify = "company:verify"
)

// CompanyVerifyPayload 描述一次批量公司认证。
// AdminID 在 worker 中重新解析角色，不信任入队时的权限判断。
type CompanyVerifyPayload struct {
	CompanyName   string `json:"company_name"`
	Approve       bool   `json:"approve"`
	AdminID       uint   `json:"admin_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewCompanyVerifyTask 构造批量认证任务。单个职位失败不会触发重试，
// 只有整体失败（例如无法列出职位）才由 asynq 重试。
func NewCompanyVerifyTask(companyName string, approve bool, adminID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(CompanyVerifyPayload{
		CompanyName:   companyName,
		Approve:       approve,
		AdminID:       adminID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCompanyVerify, payload, asynq.MaxRetry(3), asynq.Timeout(2*time.Minute)), nil
}
