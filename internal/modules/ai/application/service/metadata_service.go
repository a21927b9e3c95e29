package service

import (
	"context"
	"strings"

	"MarketMind/internal/modules/ai/application/dto/request"
	"MarketMind/internal/modules/ai/application/dto/respond"
	"MarketMind/internal/modules/ai/infrastructure/plugins"
	"MarketMind/pkg/xerr"
)

// Completer 由 pipeline.CompletionPipeline 实现
type Completer interface {
	Execute(ctx context.Context, req *plugins.PluginRequest) (*plugins.PluginResponse, error)
}

// MetadataService 元数据抽取：模型分类 + 用户补充，缺字段时要求澄清而不是阻塞
type MetadataService interface {
	Extract(ctx context.Context, req request.ExtractMetadataRequest, ownerID int64) (*respond.MetadataRespond, error)
}

type metadataServiceImpl struct {
	completer Completer
}

func NewMetadataService(completer Completer) MetadataService {
	return &metadataServiceImpl{completer: completer}
}

func (s *metadataServiceImpl) Extract(ctx context.Context, req request.ExtractMetadataRequest, ownerID int64) (*respond.MetadataRespond, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, xerr.New(xerr.BadRequest, "text 不能为空")
	}
	values := make(map[string]*string, len(plugins.MetadataFieldNames()))
	for _, f := range plugins.MetadataFieldNames() {
		values[f] = nil
	}

	// 用户已补全全部字段时无需调用模型
	if !suppliedAll(req.Supplied) {
		resp, err := s.completer.Execute(ctx, &plugins.PluginRequest{
			OwnerID:     ownerID,
			ServiceType: plugins.ServiceMetadataExtract,
			Input:       req.Text,
		})
		if err != nil {
			return nil, err
		}
		if mv, ok := resp.Data.(plugins.MetadataValues); ok {
			for k, v := range mv {
				if _, known := values[k]; known && v != nil {
					values[k] = v
				}
			}
		}
	}

	for k, v := range req.Supplied {
		if _, known := values[k]; !known {
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			vv := v
			values[k] = &vv
		}
	}
	return buildMetadataRespond(values), nil
}

func suppliedAll(supplied map[string]string) bool {
	for _, f := range plugins.MetadataFieldNames() {
		if strings.TrimSpace(supplied[f]) == "" {
			return false
		}
	}
	return true
}

func buildMetadataRespond(values map[string]*string) *respond.MetadataRespond {
	out := &respond.MetadataRespond{Values: values, Missing: []string{}}
	for _, f := range plugins.MetadataFieldNames() {
		if v := values[f]; v == nil || strings.TrimSpace(*v) == "" {
			out.Missing = append(out.Missing, f)
		}
	}
	if len(out.Missing) > 0 {
		out.Status = respond.MetadataStatusNeedsClarification
	} else {
		out.Status = respond.MetadataStatusComplete
	}
	return out
}
