package domain

// GenerateParams carries the prompt for a generate dispatch. The prompt already
// embeds the correlation marker of its task.
type GenerateParams struct {
	Prompt string `json:"prompt"`
}

// UpscaleParams selects one image of a finished grid for upscaling.
type UpscaleParams struct {
	MessageID   string `json:"msg_id"`
	Index       int    `json:"index"`
	MessageHash string `json:"msg_hash"`
}

// VaryParams selects one image of a finished grid for variation.
type VaryParams struct {
	MessageID   string `json:"msg_id"`
	Index       int    `json:"index"`
	MessageHash string `json:"msg_hash"`
}

// ResetParams re-rolls a finished grid.
type ResetParams struct {
	MessageID   string `json:"msg_id"`
	MessageHash string `json:"msg_hash"`
}

// Image is an uploaded image passed through to the submission collaborator.
type Image struct {
	FileSize int64  `json:"file_size"`
	FileType string `json:"file_type"`
	Bytes    []byte `json:"image_bytes"`
}

// DescribeParams asks for a prompt describing one image.
type DescribeParams struct {
	Image Image `json:"image"`
}

// BlendParams blends two images together.
type BlendParams struct {
	First  Image `json:"first"`
	Second Image `json:"second"`
}
