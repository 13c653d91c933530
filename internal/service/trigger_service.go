package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/phrazzld/mjqueue/internal/domain"
	"github.com/phrazzld/mjqueue/internal/store"
	"github.com/phrazzld/mjqueue/internal/task"
)

// taskIDLength is the number of hex characters kept from a UUID.
const taskIDLength = 19

// TaskQueue is the part of task.Queue the trigger service uses.
type TaskQueue interface {
	Submit(ctx context.Context, t *domain.Task, params any) error
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
}

// Translator turns a prompt into English. Implementations return the input
// unchanged when no translation is needed.
type Translator interface {
	Translate(ctx context.Context, prompt string) (string, error)
}

// Config holds trigger rules.
type Config struct {
	// DefaultHook is used when a request carries no notify hook.
	DefaultHook string
	// BannedWords are matched case-insensitively against the English prompt.
	BannedWords []string
}

// TriggerService creates tasks for client requests and submits them.
type TriggerService struct {
	queue      TaskQueue
	translator Translator
	hook       string
	banned     []string
	logger     *slog.Logger
	newID      func() string
}

// NewTriggerService creates a TriggerService.
func NewTriggerService(queue TaskQueue, translator Translator, cfg Config, logger *slog.Logger) *TriggerService {
	if logger == nil {
		logger = slog.Default()
	}
	banned := make([]string, 0, len(cfg.BannedWords))
	for _, w := range cfg.BannedWords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			banned = append(banned, w)
		}
	}
	return &TriggerService{
		queue:      queue,
		translator: translator,
		hook:       cfg.DefaultHook,
		banned:     banned,
		logger:     logger.With("component", "trigger_service"),
		newID:      NewTaskID,
	}
}

// NewTaskID returns a fresh 19 character hex task ID.
func NewTaskID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:taskIDLength]
}

// WrapPrompt embeds the task marker into a prompt, prefixed by the image URL
// when one is given.
func WrapPrompt(taskID, prompt, imageURL string) string {
	marked := task.Mark(taskID, prompt)
	if imageURL == "" {
		return marked
	}
	return imageURL + " " + marked
}

// Generate submits a new image generation.
func (s *TriggerService) Generate(ctx context.Context, prompt, imageURL, notifyHook string) (*domain.Task, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}

	promptEn, err := s.translator.Translate(ctx, prompt)
	if err != nil {
		// Submitting the original text beats rejecting the request.
		s.logger.WarnContext(ctx, "prompt translation failed, using original prompt", "error", err)
		promptEn = prompt
	}
	if s.isBanned(promptEn) {
		return nil, ErrBannedPrompt
	}

	id := s.newID()
	t, err := domain.NewTask(id, domain.ActionGenerate,
		WrapPrompt(id, prompt, imageURL),
		WrapPrompt(id, promptEn, imageURL),
		s.hookOr(notifyHook))
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, t, domain.GenerateParams{Prompt: t.PromptEn})
}

// Upscale submits an upscale of one image of a finished grid.
func (s *TriggerService) Upscale(ctx context.Context, p domain.UpscaleParams, notifyHook string) (*domain.Task, error) {
	if err := validateGridRef(p.MessageID, p.MessageHash, p.Index); err != nil {
		return nil, err
	}
	return s.submitAction(ctx, domain.ActionUpscale, p, notifyHook)
}

// Vary submits a variation of one image of a finished grid.
func (s *TriggerService) Vary(ctx context.Context, p domain.VaryParams, notifyHook string) (*domain.Task, error) {
	if err := validateGridRef(p.MessageID, p.MessageHash, p.Index); err != nil {
		return nil, err
	}
	return s.submitAction(ctx, domain.ActionVary, p, notifyHook)
}

// Reset submits a re-roll of a finished grid.
func (s *TriggerService) Reset(ctx context.Context, p domain.ResetParams, notifyHook string) (*domain.Task, error) {
	if err := validateGridRef(p.MessageID, p.MessageHash, 1); err != nil {
		return nil, err
	}
	return s.submitAction(ctx, domain.ActionReset, p, notifyHook)
}

// Describe submits a request for prompts describing an image.
func (s *TriggerService) Describe(ctx context.Context, p domain.DescribeParams, notifyHook string) (*domain.Task, error) {
	if err := validateImage(p.Image); err != nil {
		return nil, err
	}
	return s.submitAction(ctx, domain.ActionDescribe, p, notifyHook)
}

// Blend submits a blend of two images.
func (s *TriggerService) Blend(ctx context.Context, p domain.BlendParams, notifyHook string) (*domain.Task, error) {
	if err := validateImage(p.First); err != nil {
		return nil, err
	}
	if err := validateImage(p.Second); err != nil {
		return nil, err
	}
	return s.submitAction(ctx, domain.ActionBlend, p, notifyHook)
}

// Details returns the current state of a task.
func (s *TriggerService) Details(ctx context.Context, taskID string) (*domain.Task, error) {
	t, err := s.queue.GetTask(ctx, taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return t, nil
}

func (s *TriggerService) submitAction(ctx context.Context, action domain.Action, params any, notifyHook string) (*domain.Task, error) {
	t, err := domain.NewTask(s.newID(), action, "", "", s.hookOr(notifyHook))
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, t, params)
}

func (s *TriggerService) submit(ctx context.Context, t *domain.Task, params any) (*domain.Task, error) {
	if err := s.queue.Submit(ctx, t, params); err != nil {
		if errors.Is(err, task.ErrQueueFull) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to submit %s task: %w", t.Action, err)
	}
	s.logger.InfoContext(ctx, "task accepted", "task_id", t.ID, "action", t.Action)
	return t, nil
}

func (s *TriggerService) hookOr(hook string) string {
	if hook != "" {
		return hook
	}
	return s.hook
}

func (s *TriggerService) isBanned(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, w := range s.banned {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func validateGridRef(msgID, msgHash string, index int) error {
	if msgID == "" || msgHash == "" {
		return fmt.Errorf("%w: msg_id and msg_hash are required", ErrInvalidRequest)
	}
	if index < 1 || index > 4 {
		return fmt.Errorf("%w: index must be between 1 and 4", ErrInvalidRequest)
	}
	return nil
}

func validateImage(img domain.Image) error {
	if len(img.Bytes) == 0 || img.FileType == "" {
		return fmt.Errorf("%w: image bytes and file type are required", ErrInvalidRequest)
	}
	if img.FileSize <= 0 {
		return fmt.Errorf("%w: file size must be positive", ErrInvalidRequest)
	}
	return nil
}
