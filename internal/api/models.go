package api

import "github.com/phrazzld/mjqueue/internal/domain"

// GenerateRequest is the body of POST /trigger/generate.
type GenerateRequest struct {
	Prompt     string `json:"prompt"      validate:"required"`
	ImageURL   string `json:"img_url"     validate:"omitempty,url"`
	NotifyHook string `json:"notify_hook" validate:"omitempty,url"`
}

// GridRequest selects one image of a finished grid; used by upscale and vary.
type GridRequest struct {
	MessageID   string `json:"msg_id"      validate:"required"`
	MessageHash string `json:"msg_hash"    validate:"required"`
	Index       int    `json:"index"       validate:"required,min=1,max=4"`
	NotifyHook  string `json:"notify_hook" validate:"omitempty,url"`
}

// ResetRequest is the body of POST /trigger/reset.
type ResetRequest struct {
	MessageID   string `json:"msg_id"      validate:"required"`
	MessageHash string `json:"msg_hash"    validate:"required"`
	NotifyHook  string `json:"notify_hook" validate:"omitempty,url"`
}

// ImageInput is an uploaded image; image_bytes is base64 in JSON.
type ImageInput struct {
	FileSize int64  `json:"file_size"   validate:"required,gt=0"`
	FileType string `json:"file_type"   validate:"required"`
	Bytes    []byte `json:"image_bytes" validate:"required"`
}

func (in ImageInput) toDomain() domain.Image {
	return domain.Image{FileSize: in.FileSize, FileType: in.FileType, Bytes: in.Bytes}
}

// DescribeRequest is the body of POST /trigger/describe.
type DescribeRequest struct {
	Image      ImageInput `json:"image"`
	NotifyHook string     `json:"notify_hook" validate:"omitempty,url"`
}

// BlendRequest is the body of POST /trigger/blend.
type BlendRequest struct {
	First      ImageInput `json:"first"`
	Second     ImageInput `json:"second"`
	NotifyHook string     `json:"notify_hook" validate:"omitempty,url"`
}

// AttachmentInput is one attachment of an ingested chat message.
type AttachmentInput struct {
	Filename string `json:"filename" validate:"required"`
	URL      string `json:"url"      validate:"required,url"`
}

// EventRequest is the body of POST /events, a chat message observed by an
// external gateway.
type EventRequest struct {
	Kind        string            `json:"kind"        validate:"required,oneof=created edited"`
	MessageID   string            `json:"msg_id"      validate:"required"`
	Content     string            `json:"content"`
	Attachments []AttachmentInput `json:"attachments" validate:"omitempty,dive"`
}

// TaskResponse wraps a task in the trigger and lookup responses.
type TaskResponse struct {
	Task *domain.Task `json:"task"`
}
