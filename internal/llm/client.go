// Package llm OpenAI兼容的大模型客户端，仅用于字段抽取
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"EventSync/internal/config"
	"EventSync/internal/utils/httpclient"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// Client 封装 go-openai，单次 Complete 即一次 chat completion
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	jsonMode    bool
	timeout     time.Duration
	logger      *logrus.Logger
}

// NewClient 由配置创建客户端
func NewClient(cfg *config.LLMConfig, logger *logrus.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: llm.base_url 为空", config.ErrConfigInvalid)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: llm.model 为空", config.ErrConfigInvalid)
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	clientConfig.HTTPClient = httpclient.NewHTTPClient(httpclient.Options{
		Timeout:   timeout,
		Proxy:     cfg.Proxy,
		UserAgent: cfg.UserAgent,
	}, logger)

	return &Client{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		jsonMode:    cfg.JSONMode,
		timeout:     timeout,
		logger:      logger,
	}, nil
}

// Complete 发送 system+user 两条消息，返回第一条回复文本
func (c *Client) Complete(ctx context.Context, systemMessage, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
	}
	if c.jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"model":   c.model,
			"elapsed": time.Since(start),
		}).Warn("大模型调用失败")
		return "", classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("大模型返回为空")
	}

	c.logger.WithFields(logrus.Fields{
		"model":             c.model,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"elapsed":           time.Since(start),
	}).Debug("大模型调用完成")

	return resp.Choices[0].Message.Content, nil
}

// Model 当前模型名
func (c *Client) Model() string {
	return c.model
}

// Error 带可重试标记的大模型错误
type Error struct {
	StatusCode int
	Retryable  bool
	Cause      error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("大模型接口错误(status=%d): %v", e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("大模型接口错误: %v", e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// IsRetryable 429/5xx/超时可重试
func (e *Error) IsRetryable() bool { return e.Retryable }

func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.HTTPStatusCode
		return &Error{StatusCode: code, Retryable: code == 429 || code >= 500, Cause: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		code := reqErr.HTTPStatusCode
		return &Error{StatusCode: code, Retryable: code == 429 || code >= 500, Cause: err}
	}
	return &Error{Retryable: errors.Is(err, context.DeadlineExceeded), Cause: err}
}
