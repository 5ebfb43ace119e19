// Package gateway 实现入站 webhook 的验证、归一化与回执分发
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/google/uuid"

	"github.com/opsre/chatgate/internal/provider"
	"github.com/opsre/chatgate/internal/service"
)

// sendTimeout 回执消息发送的超时时间，独立于入站请求的生命周期
const sendTimeout = 10 * time.Second

// Gateway webhook 网关
type Gateway struct {
	store *service.IntegrationService

	// sendDone 仅用于测试同步，生产路径为 nil
	sendDone chan struct{}
}

// New 创建 webhook 网关
func New(store *service.IntegrationService) *Gateway {
	return &Gateway{store: store}
}

// HandleVerify 处理 GET 挑战握手
// 校验通过时返回 200 和 challenge 原文，其余情况一律 403 空响应
func (g *Gateway) HandleVerify(providerName, workspaceID, mode, verifyToken, challenge string) (int, string) {
	p, err := provider.Get(providerName)
	if err != nil || !p.NeedsHandshake() {
		return http.StatusForbidden, ""
	}

	integration, err := g.store.Get(workspaceID, providerName)
	if err != nil {
		logx.Error("Webhook verify: failed to load integration, workspace %s, provider %s: %v",
			workspaceID, providerName, err)
		return http.StatusForbidden, ""
	}
	if integration == nil {
		return http.StatusForbidden, ""
	}

	if mode != "subscribe" {
		return http.StatusForbidden, ""
	}

	stored := integration.Credentials.GetString("verify_token")
	if stored == "" || stored != verifyToken {
		return http.StatusForbidden, ""
	}

	return http.StatusOK, challenge
}

// HandleInbound 处理 POST 消息投递
// 验证失败返回 403；验证通过后无论消息是否可提取、回执是否发送成功，一律返回 200，
// 避免触发平台侧的重试风暴
func (g *Gateway) HandleInbound(providerName, workspaceID string, req *provider.InboundRequest) int {
	p, err := provider.Get(providerName)
	if err != nil {
		return http.StatusForbidden
	}

	integration, err := g.store.Get(workspaceID, providerName)
	if err != nil {
		logx.Error("Webhook inbound: failed to load integration, workspace %s, provider %s: %v",
			workspaceID, providerName, err)
		return http.StatusForbidden
	}
	if integration == nil {
		return http.StatusForbidden
	}

	if err := p.VerifyInbound(integration.Credentials, req); err != nil {
		// 伪造请求与验证过程出错对调用方不可区分，但日志里要分开
		if err == provider.ErrSignatureMismatch {
			logx.Warn("Webhook inbound rejected: signature mismatch, workspace %s, provider %s",
				workspaceID, providerName)
		} else {
			logx.Error("Webhook inbound rejected: verification error, workspace %s, provider %s: %v",
				workspaceID, providerName, err)
		}
		return http.StatusForbidden
	}

	msg, ok := p.ExtractMessage(req)
	if !ok {
		// 无法提取发送者或文本时只确认收到，不做任何动作
		logx.Debug("Webhook inbound: no extractable message, workspace %s, provider %s",
			workspaceID, providerName)
		return http.StatusOK
	}

	// 原文原样嵌入，不做转义
	reply := fmt.Sprintf("Received via %s: \"%s\"", providerName, msg.Text)

	// 回执发送与入站确认解耦: 先应答 200，发送失败只记日志
	deliveryID := uuid.New().String()
	creds := integration.Credentials
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := p.Send(ctx, creds, msg.SenderID, reply); err != nil {
			logx.Error("Webhook reply failed, delivery %s, workspace %s, provider %s: %v",
				deliveryID, workspaceID, providerName, err)
		} else {
			logx.Info("Webhook reply sent, delivery %s, workspace %s, provider %s, recipient %s",
				deliveryID, workspaceID, providerName, msg.SenderID)
		}

		if g.sendDone != nil {
			g.sendDone <- struct{}{}
		}
	}()

	return http.StatusOK
}
