package service

import (
	"errors"

	"MarketMind/internal/modules/ai/infrastructure/pipeline"
	"MarketMind/pkg/xerr"
)

// toCodeError 把 pipeline / 基础设施错误转换成对外的 CodeError
func toCodeError(err error, msg string) error {
	if err == nil {
		return nil
	}
	var ce *xerr.CodeError
	if errors.As(err, &ce) {
		return err
	}
	switch {
	case errors.Is(err, pipeline.ErrInvalidOwner):
		return xerr.Wrap(xerr.Unauthorized, "未登录", err)
	case errors.Is(err, pipeline.ErrNoFields):
		return xerr.Wrap(xerr.BadRequest, "fields 不能为空", err)
	}
	return xerr.Wrap(xerr.InternalServerError, msg, err)
}
