// Package gateway 封装对外部支付网关的出站调用
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/gomall/internal/infrastructure/config"
	"github.com/xiebiao/gomall/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/gomall/pkg/errors"
)

// PaymentClient 支付发起端口
// 下单后请求网关创建支付单;支付结果仍然只认回调,这里的返回值
// 只用于给前端跳转
type PaymentClient interface {
	// InitiatePayment 请求网关为订单创建支付单
	InitiatePayment(ctx context.Context, orderNo string, amount int64) (*PaymentTicket, error)
}

// PaymentTicket 网关返回的支付单
type PaymentTicket struct {
	PaymentID string `json:"payment_id"`
	PayURL    string `json:"pay_url"`
}

// HTTPPaymentClient 基于HTTP的支付网关客户端
// 所有调用走熔断器:网关持续超时/报错时快速失败,
// 不把请求堆在网关上;订单已落库,支付可稍后重新发起
type HTTPPaymentClient struct {
	baseURL string
	client  *http.Client
	breaker *circuitbreaker.Breaker
	log     *zap.Logger
}

// NewHTTPPaymentClient 创建支付网关客户端
func NewHTTPPaymentClient(cfg config.GatewayConfig, log *zap.Logger) *HTTPPaymentClient {
	breakerTimeout := cfg.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = 30 * time.Second
	}
	return &HTTPPaymentClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: circuitbreaker.New("payment-gateway", circuitbreaker.Config{
			MaxRequests: 3,
			Interval:    10 * time.Second,
			Timeout:     breakerTimeout,
		}, log),
		log: log,
	}
}

type initiateRequest struct {
	OrderNo string `json:"order_no"`
	Amount  int64  `json:"amount"`
}

// InitiatePayment 请求网关为订单创建支付单
func (c *HTTPPaymentClient) InitiatePayment(ctx context.Context, orderNo string, amount int64) (*PaymentTicket, error) {
	var ticket PaymentTicket

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		body, err := json.Marshal(initiateRequest{OrderNo: orderNo, Amount: amount})
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/api/v1/payments", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("网关返回状态码 %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&ticket)
	})

	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpenState) {
			c.log.Warn("支付网关熔断中,快速失败", zap.String("order_no", orderNo))
		} else {
			c.log.Error("发起支付失败", zap.String("order_no", orderNo), zap.Error(err))
		}
		return nil, apperrors.New(apperrors.ErrCodeGatewayError, "支付网关暂不可用,请稍后重试")
	}

	return &ticket, nil
}

var _ PaymentClient = (*HTTPPaymentClient)(nil)
