// Package planner bridges llm-kind nodes to an OpenAI-compatible chat
// completion endpoint. A launched job runs detached from the dispatcher:
// it plans, optionally executes requested tools, streams the answer, and
// reports every step as state_patch events on the session's channel. No
// failure may escape a launched job; the worst outcome is an error patch.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/metrics"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// DefaultTimeout bounds one planner job end to end: plan round, tool
// execution and the answer stream together.
const DefaultTimeout = 45 * time.Second

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-4o-mini"

const defaultSystemPrompt = "You are the planning step of a workflow. " +
	"Use the available tools when they help, then answer the user concisely."

// Service implements ports.Planner against a chat completion API.
type Service struct {
	client  openai.Client
	model   string
	channel ports.EventChannel
	tools   ports.ToolSource

	apiKey     string
	baseURL    string
	timeout    time.Duration
	prompt     string
	configured bool

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures the Service.
type Option func(*Service)

// WithAPIKey sets the API key for the chat completion client.
func WithAPIKey(key string) Option {
	return func(s *Service) {
		s.apiKey = key
	}
}

// WithBaseURL points the client at an alternative endpoint, e.g. a local
// OpenAI-compatible server.
func WithBaseURL(url string) Option {
	return func(s *Service) {
		s.baseURL = url
	}
}

// WithTimeout overrides the per-job deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSystemPrompt replaces the base system prompt. Empty disables it.
func WithSystemPrompt(prompt string) Option {
	return func(s *Service) {
		s.prompt = prompt
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics wires Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New creates a planner Service for the given model. Without an API key or
// base URL the service stays unconfigured and refuses launches, which the
// dispatcher surfaces as per-node error patches.
func New(channel ports.EventChannel, tools ports.ToolSource, model string, opts ...Option) *Service {
	s := &Service{
		channel: channel,
		tools:   tools,
		model:   model,
		timeout: DefaultTimeout,
		prompt:  defaultSystemPrompt,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	var clientOpts []openaiopt.RequestOption
	if s.apiKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithAPIKey(s.apiKey))
	}
	if s.baseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(s.baseURL))
	}
	s.configured = s.apiKey != "" || s.baseURL != ""
	s.client = openai.NewClient(clientOpts...)

	return s
}

// Launch fires the job on its own goroutine and returns immediately. The
// job's context is detached from the caller's cancellation: only the
// configured timeout bounds it.
func (s *Service) Launch(ctx context.Context, job ports.PlannerJob) error {
	if !s.configured {
		return errors.New("planner is not configured: set an API key or base URL")
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)

	go func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				s.fail(runCtx, job, fmt.Sprintf("planner panic: %v", r))
			}
		}()
		s.run(runCtx, job)
	}()

	return nil
}

// run is the whole lifecycle of one job. Every exit path ends in exactly
// one terminal patch for the node, done or error.
func (s *Service) run(ctx context.Context, job ports.PlannerJob) {
	started := time.Now()

	messages := s.baseMessages(job)
	toolParams := convertTools(s.tools.Describe(job.Tools))

	// 1. Non-streaming plan round: learn whether tools are wanted.
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(s.model),
		Messages: messages,
	}
	if len(toolParams) > 0 {
		params.Tools = toolParams
	}

	completion, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		s.fail(ctx, job, failureMessage(ctx, err))
		return
	}

	var calls []domain.ToolCall
	if len(completion.Choices) > 0 {
		for i, tc := range completion.Choices[0].Message.ToolCalls {
			id := tc.ID
			if id == "" {
				id = fmt.Sprintf("call_%d", i)
			}
			var args map[string]any
			if tc.Function.Arguments != "" {
				// Malformed arguments become an empty bag; the tool itself
				// reports the missing params.
				_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
			}
			calls = append(calls, domain.ToolCall{ID: id, Name: tc.Function.Name, Args: args})
		}
	}

	// 2. Tool path: execute the requested calls, extend the transcript.
	streamStatus := domain.StatusGenerating
	if len(calls) > 0 {
		streamStatus = domain.StatusAnswering

		s.publish(ctx, job, domain.StatePatch{Status: domain.StatusToolCalling, Calls: calls})
		results := s.executeCalls(ctx, calls)
		s.publish(ctx, job, domain.StatePatch{Status: domain.StatusToolResults, Results: results})

		messages = append(messages, assistantCallMessage(completion.Choices[0].Message.Content, calls))
		for _, r := range results {
			messages = append(messages, toolResultMessage(r))
		}
	}

	// 3. Streaming round: partial patches as the buffer grows.
	answer, err := s.streamAnswer(ctx, job, messages, streamStatus)
	if err != nil {
		s.fail(ctx, job, failureMessage(ctx, err))
		return
	}

	s.publish(ctx, job, domain.StatePatch{Status: domain.StatusDone, Answer: answer})
	s.metrics.PlannerFinished("ok")
	s.logger.Debug("Planner finished",
		"session_id", job.SessionID,
		"node", job.NodeID,
		"tool_calls", len(calls),
		"elapsed_ms", time.Since(started).Milliseconds(),
	)
}

// executeCalls resolves each requested call against the registry. Unknown
// tools and handler failures become error-tagged results, never a crash.
func (s *Service) executeCalls(ctx context.Context, calls []domain.ToolCall) []domain.ToolResult {
	results := make([]domain.ToolResult, 0, len(calls))
	for _, call := range calls {
		output, err := s.tools.Invoke(ctx, call.Name, call.Args)
		if err != nil {
			results = append(results, domain.ToolResult{
				ID:      call.ID,
				Name:    call.Name,
				IsError: true,
				Error:   err.Error(),
			})
			continue
		}
		results = append(results, domain.ToolResult{ID: call.ID, Name: call.Name, Output: output})
	}
	return results
}

// streamAnswer issues the streaming request and emits a patch per token
// with the buffer so far. Returns the full accumulated answer.
func (s *Service) streamAnswer(ctx context.Context, job ports.PlannerJob, messages []openai.ChatCompletionMessageParamUnion, status domain.NodeStatus) (string, error) {
	stream := s.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(s.model),
		Messages: messages,
	})
	defer stream.Close()

	var buffer strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		buffer.WriteString(chunk.Choices[0].Delta.Content)
		s.publish(ctx, job, domain.StatePatch{Status: status, Partial: buffer.String()})
	}
	if err := stream.Err(); err != nil {
		return "", err
	}
	return buffer.String(), nil
}

// baseMessages converts the job transcript, prefixed with the system
// prompt when one is set.
func (s *Service) baseMessages(job ports.PlannerJob) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(job.Messages)+1)
	if s.prompt != "" {
		messages = append(messages, systemMessage(s.prompt))
	}
	for _, m := range job.Messages {
		switch m.Role {
		case ports.RoleSystem:
			messages = append(messages, systemMessage(m.Content))
		case ports.RoleAssistant:
			messages = append(messages, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Content: openai.ChatCompletionAssistantMessageParamContentUnion{
						OfString: openai.String(m.Content),
					},
				},
			})
		default:
			messages = append(messages, openai.ChatCompletionMessageParamUnion{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(m.Content),
					},
				},
			})
		}
	}
	return messages
}

func systemMessage(content string) openai.ChatCompletionMessageParamUnion {
	return openai.ChatCompletionMessageParamUnion{
		OfSystem: &openai.ChatCompletionSystemMessageParam{
			Content: openai.ChatCompletionSystemMessageParamContentUnion{
				OfString: openai.String(content),
			},
		},
	}
}

// assistantCallMessage replays the collaborator's tool request into the
// transcript for the follow-up round.
func assistantCallMessage(content string, calls []domain.ToolCall) openai.ChatCompletionMessageParamUnion {
	toolCalls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(calls))
	for _, c := range calls {
		args := "{}"
		if c.Args != nil {
			if data, err := json.Marshal(c.Args); err == nil {
				args = string(data)
			}
		}
		toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: c.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      c.Name,
				Arguments: args,
			},
		})
	}

	assistant := &openai.ChatCompletionAssistantMessageParam{ToolCalls: toolCalls}
	if content != "" {
		assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(content),
		}
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: assistant}
}

func toolResultMessage(r domain.ToolResult) openai.ChatCompletionMessageParamUnion {
	content := r.Error
	if !r.IsError {
		if data, err := json.Marshal(r.Output); err == nil {
			content = string(data)
		}
	}
	return openai.ChatCompletionMessageParamUnion{
		OfTool: &openai.ChatCompletionToolMessageParam{
			Content: openai.ChatCompletionToolMessageParamContentUnion{
				OfString: openai.String(content),
			},
			ToolCallID: r.ID,
		},
	}
}

// convertTools maps registry descriptors to the wire tool format.
func convertTools(descriptors []ports.ToolDescriptor) []openai.ChatCompletionToolParam {
	var result []openai.ChatCompletionToolParam
	for _, d := range descriptors {
		var parameters shared.FunctionParameters
		if len(d.Parameters) > 0 {
			if err := json.Unmarshal(d.Parameters, &parameters); err != nil {
				continue
			}
		}
		result = append(result, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        d.Name,
				Description: openai.String(d.Description),
				Parameters:  parameters,
			},
		})
	}
	return result
}

// fail emits the node's terminal error patch. Publication is detached
// from the job context so the patch still lands after a timeout.
func (s *Service) fail(ctx context.Context, job ports.PlannerJob, message string) {
	s.publish(context.WithoutCancel(ctx), job, domain.StatePatch{
		Status: domain.StatusError,
		Error:  message,
	})
	s.metrics.PlannerFinished("error")
	s.logger.Warn("Planner job failed",
		"session_id", job.SessionID,
		"node", job.NodeID,
		"reason", message,
	)
}

// failureMessage distinguishes the bounded-timeout case from other
// collaborator failures.
func failureMessage(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return domain.ErrPlannerTimeout.Error()
	}
	return err.Error()
}

func (s *Service) publish(ctx context.Context, job ports.PlannerJob, patch domain.StatePatch) {
	if err := s.channel.Enqueue(ctx, job.SessionID, domain.NewStatePatch(job.NodeID, patch)); err != nil {
		s.logger.Warn("Failed to enqueue planner event",
			"session_id", job.SessionID,
			"node", job.NodeID,
			"err", err,
		)
		return
	}
	s.metrics.EventEnqueued(string(domain.EventStatePatch))
}
