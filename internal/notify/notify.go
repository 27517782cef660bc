// Package notify 通过 Redis Pub/Sub 向单个用户推送消息，WebSocket 处理器负责转发给前端。
// 注意：这里的字段名与前端解析保持一致。
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Channel 返回用户的通知频道名。
func Channel(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}

// 消息类型。
const (
	TypeApplicationStatus   = "application_status"
	TypeCompanyVerification = "company_verification"
)

// ApplicationStatusMessage 通知求职者其投递状态发生变化。
type ApplicationStatusMessage struct {
	Type          string `json:"type"`
	ApplicationID uint   `json:"application_id"`
	JobTitle      string `json:"job_title"`
	Status        string `json:"status"`
}

// CompanyVerificationMessage 通知管理员异步批量审核的结果。
type CompanyVerificationMessage struct {
	Type          string          `json:"type"`
	CompanyName   string          `json:"company_name"`
	Approve       bool            `json:"approve"`
	CorrelationID string          `json:"correlation_id"`
	ErrorCode     int             `json:"error_code"`
	ErrorMessage  string          `json:"error_message"`
	Succeeded     []uint          `json:"succeeded"`
	Failed        map[uint]string `json:"failed,omitempty"`
}

// Publisher 把消息发布到用户频道。
type Publisher struct {
	client redis.UniversalClient
}

func NewPublisher(client redis.UniversalClient) *Publisher {
	return &Publisher{client: client}
}

// NotifyUser 序列化并发布消息。
func (p *Publisher) NotifyUser(ctx context.Context, userID uint, message any) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.client.Publish(ctx, Channel(userID), payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
