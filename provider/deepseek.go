package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// deepSeekSystemPrompt instructs the chat model to behave like a plain
// translation endpoint and to leave markup and placeholders alone.
const deepSeekSystemPrompt = "You are a professional translator. Your task is to translate text while preserving HTML tags, " +
	"variables, and placeholders. Do not modify the structure of the text or any technical elements. " +
	"Return only the translated text, with no explanations or quotes."

// deepSeek translates through the DeepSeek chat completions API. There
// is no native bulk primitive, so it only implements single-string
// translation as a prompted chat completion.
type deepSeek struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	retry   RetryPolicy
}

func newDeepSeek(creds Credentials, client *http.Client) Translator {
	return &deepSeek{
		apiKey:  creds.APIKey,
		baseURL: "https://api.deepseek.com",
		model:   "deepseek-chat",
		client:  client,
		retry:   DefaultRetryPolicy(),
	}
}

func (d *deepSeek) Name() string { return NameDeepSeek }

func (d *deepSeek) TranslateOne(ctx context.Context, text, targetLang string) (string, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	reqBody, err := json.Marshal(struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: d.model,
		Messages: []msg{
			{Role: "system", Content: deepSeekSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Translate this text to %s: %s", targetLang, text)},
		},
		// DeepSeek's recommended temperature for translation work.
		Temperature: 1.3,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + d.apiKey,
	}
	endpoint := strings.TrimRight(d.baseURL, "/") + "/chat/completions"

	var result string
	err = d.retry.Do(ctx, NameDeepSeek, func() error {
		body, err := postJSON(ctx, d.client, endpoint, headers, reqBody)
		if err != nil {
			return err
		}

		var resp struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
			Error *struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("invalid JSON response: %w", err)
		}
		if resp.Error != nil {
			return fmt.Errorf("API error: %s", resp.Error.Message)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no choices in response: %s", truncate(string(body), 300))
		}

		result = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}
