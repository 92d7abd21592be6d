// Package saga 实现带补偿的多步操作编排
//
// 核心思想：
// 1. 将跨多条记录的长操作拆分为多个短步骤
// 2. 每个步骤登记对应的补偿操作
// 3. 某一步失败时，按逆序执行已完成步骤的补偿，恢复到操作前的状态
//
// 本项目中的典型用途：结算开始时逐行转换购物车预留。
// 第N行转换失败时，前N-1行的转换必须回退，否则用户的预留会
// 停留在半转换状态（部分CART、部分CHECKOUT）。
package saga

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Step 表示Saga中的一个步骤
// Action是正向操作，Compensate是补偿操作；两者都必须幂等（允许重试）
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga 表示一次带补偿的编排执行
type Saga struct {
	steps    []Step
	executed []Step        // 已执行的步骤（用于补偿）
	timeout  time.Duration // 整体超时时间
	log      *zap.Logger
}

// NewSaga 创建一个Saga
//
// 参数：
//
//	timeout: 整体超时时间，防止长时间阻塞；0表示不限制
//	log: 补偿失败必须留痕，日志器不允许为nil时传zap.NewNop()
func NewSaga(timeout time.Duration, log *zap.Logger) *Saga {
	if log == nil {
		log = zap.NewNop()
	}
	return &Saga{
		steps:   make([]Step, 0),
		timeout: timeout,
		log:     log,
	}
}

// AddStep 添加一个步骤
// 步骤按添加顺序执行，按逆序补偿。
// Compensate可以为nil（如最后一步通常无需补偿），
// 但补偿操作不允许依赖后续步骤的结果。
func (s *Saga) AddStep(name string, action, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, Step{
		Name:       name,
		Action:     action,
		Compensate: compensate,
	})
}

// Execute 执行Saga
//
// 执行流程：
// 1. 按顺序执行每个步骤的Action
// 2. 某步失败（或整体超时）时，逆序执行已完成步骤的Compensate
// 3. 返回首个失败的错误（补偿失败只记日志，不覆盖原始错误）
func (s *Saga) Execute(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for i, step := range s.steps {
		select {
		case <-ctx.Done():
			// 补偿使用新Context，避免补偿本身也被超时打断
			s.compensate(context.Background())
			return fmt.Errorf("saga超时: %w", ctx.Err())
		default:
		}

		if step.Action != nil {
			if err := step.Action(ctx); err != nil {
				s.compensate(context.Background())
				return fmt.Errorf("步骤[%d:%s]执行失败: %w", i, step.Name, err)
			}
		}

		s.executed = append(s.executed, step)
	}

	return nil
}

// compensate 逆序执行已完成步骤的补偿
// 即使某个补偿失败也继续执行后续补偿（尽最大努力），
// 失败的补偿记录日志，留待人工介入或对账修复。
func (s *Saga) compensate(ctx context.Context) {
	for i := len(s.executed) - 1; i >= 0; i-- {
		step := s.executed[i]

		if step.Compensate != nil {
			if err := step.Compensate(ctx); err != nil {
				s.log.Error("saga补偿失败，需要人工介入",
					zap.String("step", step.Name),
					zap.Error(err),
				)
			}
		}
	}

	s.executed = nil
}
