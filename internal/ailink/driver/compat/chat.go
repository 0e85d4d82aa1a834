package compat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/content"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver"
)

// ChatRequest is the /chat/completions request body.
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type responseFormat struct {
	Type       string             `json:"type"`
	JSONSchema *driver.JSONSchema `json:"json_schema,omitempty"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *driver.Usage `json:"usage,omitempty"`
}

// BuildChatRequest converts a driver request. When allowSchema is false a
// json_schema response format is downgraded to json_object.
func BuildChatRequest(req *driver.Request, allowSchema bool) (*ChatRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}

	messages := make([]chatMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		value, err := convertContent(msg.Content)
		if err != nil {
			return nil, err
		}
		messages = append(messages, chatMessage{Role: msg.Role, Content: value})
	}

	payload := &ChatRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if rf := req.ResponseFormat; rf != nil {
		payload.ResponseFormat = &responseFormat{Type: rf.Type}
		if rf.JSONSchema != nil {
			if allowSchema {
				payload.ResponseFormat.JSONSchema = rf.JSONSchema
			} else {
				payload.ResponseFormat.Type = "json_object"
			}
		}
	}
	return payload, nil
}

// convertContent sends a lone text block as a plain string and anything
// else as typed parts. Image blocks become data URLs.
func convertContent(blocks []content.ContentBlock) (any, error) {
	if len(blocks) == 0 {
		return "", nil
	}
	if len(blocks) == 1 && blocks[0].Type == content.ContentTypeText {
		return blocks[0].Text, nil
	}

	parts := make([]contentPart, 0, len(blocks))
	for _, block := range blocks {
		switch {
		case block.Type == content.ContentTypeText:
			parts = append(parts, contentPart{Type: "text", Text: block.Text})
		case block.DataURL != "":
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: block.DataURL}})
		default:
			return nil, fmt.Errorf("unsupported content type: %s", block.Type)
		}
	}
	return parts, nil
}

// DecodeChatResponse turns a /chat/completions body into a driver response.
func DecodeChatResponse(body []byte) (*driver.Response, error) {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("empty response choices")
	}

	choice := parsed.Choices[0]
	return &driver.Response{
		Content:      []content.ContentBlock{{Type: content.ContentTypeText, Text: choice.Message.Content}},
		FinishReason: choice.FinishReason,
		Usage:        parsed.Usage,
	}, nil
}
