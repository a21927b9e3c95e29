package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"MarketMind/pkg/xerr"
	"MarketMind/pkg/zlog"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Observer 接收每次受保护调用的结果（指标上报）
type Observer interface {
	ObserveCall(service, op string, attempts int, err error, elapsed time.Duration)
}

type Options struct {
	Name           string
	MaxConcurrent  int64
	Timeout        time.Duration
	InitialBackoff time.Duration
	MaxRetries     int
	Observer       Observer
}

// Guard 对单个外部服务的调用做并发上限、单次超时与有限重试。
//
// 重试只针对瞬时错误：调用方取消、Permanent 标记的错误以及 4xx CodeError 都直接返回。
// 重试耗尽后返回包装了最后一次错误的 xerr.ErrServiceUnavailable。
type Guard struct {
	name           string
	sem            *semaphore.Weighted
	timeout        time.Duration
	initialBackoff time.Duration
	maxRetries     int
	observer       Observer
}

func NewGuard(opts Options) *Guard {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 8
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 200 * time.Millisecond
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Guard{
		name:           opts.Name,
		sem:            semaphore.NewWeighted(opts.MaxConcurrent),
		timeout:        opts.Timeout,
		initialBackoff: opts.InitialBackoff,
		maxRetries:     opts.MaxRetries,
		observer:       opts.Observer,
	}
}

func (g *Guard) Name() string {
	if g == nil {
		return ""
	}
	return g.name
}

// Do 执行 fn；nil Guard 直接调用
func (g *Guard) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if g == nil {
		return fn(ctx)
	}
	start := time.Now()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = g.initialBackoff
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(g.maxRetries)), ctx)

	attempts := 0
	permanent := false
	err := backoff.Retry(func() error {
		// 每次尝试单独占用并发槽位，退避等待期间不占用
		if err := g.sem.Acquire(ctx, 1); err != nil {
			permanent = true
			return backoff.Permanent(err)
		}
		defer g.sem.Release(1)
		attempts++
		actx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		callErr := fn(actx)
		if callErr == nil {
			return nil
		}
		if !isTransient(ctx, callErr) {
			permanent = true
			return backoff.Permanent(callErr)
		}
		zlog.Warn("external call failed",
			zap.String("service", g.name),
			zap.String("op", op),
			zap.Int("attempt", attempts),
			zap.Error(callErr))
		return callErr
	}, policy)

	if err != nil && !permanent && ctx.Err() == nil {
		err = xerr.Wrap(xerr.ServiceUnavailable, xerr.ErrServiceUnavailable.Message,
			fmt.Errorf("%s %s failed after %d attempts: %w", g.name, op, attempts, err))
	}
	if g.observer != nil {
		g.observer.ObserveCall(g.name, op, attempts, err, time.Since(start))
	}
	return err
}

// Call 是 Do 的泛型版本
func Call[T any](ctx context.Context, g *Guard, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent 标记不应重试的错误（参数错误、维度不匹配等）
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

func isTransient(parent context.Context, err error) bool {
	if err == nil {
		return false
	}
	// 调用方已取消或超时，不再重试
	if parent.Err() != nil {
		return false
	}
	if IsPermanent(err) {
		return false
	}
	var ce *xerr.CodeError
	if errors.As(err, &ce) && ce.Code >= 400 && ce.Code < 500 {
		return false
	}
	return true
}
