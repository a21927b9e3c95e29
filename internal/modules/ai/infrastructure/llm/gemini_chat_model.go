package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/generative-ai-go/genai"
	genaiopt "google.golang.org/api/option"
)

// GeminiChatModel 把 generative-ai-go 适配为 eino 的 model.BaseChatModel
type GeminiChatModel struct {
	client      *genai.Client
	model       string
	temperature float32
}

var _ model.BaseChatModel = (*GeminiChatModel)(nil)

func NewGeminiChatModel(ctx context.Context, apiKey, modelName string, temperature float32) (*GeminiChatModel, error) {
	client, err := genai.NewClient(ctx, genaiopt.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiChatModel{client: client, model: modelName, temperature: temperature}, nil
}

func (g *GeminiChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if len(input) == 0 {
		return nil, errors.New("empty input messages")
	}
	gm := g.client.GenerativeModel(g.model)
	if g.temperature > 0 {
		gm.SetTemperature(g.temperature)
	}
	if t := model.GetCommonOptions(nil, opts...).Temperature; t != nil {
		gm.SetTemperature(*t)
	}

	var system []string
	history := make([]*genai.Content, 0, len(input))
	for _, m := range input {
		if m == nil {
			continue
		}
		switch m.Role {
		case schema.System:
			system = append(system, m.Content)
		case schema.Assistant:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})
		default:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}
	if len(system) > 0 {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(strings.Join(system, "\n"))}}
	}
	if len(history) == 0 {
		return nil, errors.New("no user message")
	}

	last := history[len(history)-1]
	cs := gm.StartChat()
	cs.History = history[:len(history)-1]
	rsp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, err
	}
	if len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil || len(rsp.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("no response from Google")
	}

	var b strings.Builder
	for _, part := range rsp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	out := schema.AssistantMessage(b.String(), nil)
	if rsp.UsageMetadata != nil {
		out.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{
			PromptTokens:     int(rsp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(rsp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(rsp.UsageMetadata.TotalTokenCount),
		}}
	}
	return out, nil
}

// Stream 一次性生成后包装为单帧流
func (g *GeminiChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := g.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (g *GeminiChatModel) Close() error {
	return g.client.Close()
}
