package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// azure calls the Azure Translator v3 REST endpoint. Bulk translation is
// a single call with the inputs newline-joined into one document; the
// response must split back into exactly as many lines as went in, or the
// whole batch is treated as failed.
type azure struct {
	apiKey string
	region string
	client *http.Client
	retry  RetryPolicy
}

func newAzure(creds Credentials, client *http.Client) Translator {
	return &azure{
		apiKey: creds.APIKey,
		region: creds.Region,
		client: client,
		retry:  DefaultRetryPolicy(),
	}
}

func (a *azure) Name() string { return NameAzure }

func (a *azure) TranslateOne(ctx context.Context, text, targetLang string) (string, error) {
	return a.call(ctx, text, targetLang)
}

func (a *azure) TranslateMany(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	joined, err := a.call(ctx, strings.Join(texts, "\n"), targetLang)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(joined, "\n")
	if len(lines) != len(texts) {
		// A mis-sized split would assign translations to the wrong
		// entries; report it so the caller falls back per-item.
		return nil, &Error{
			Provider: NameAzure,
			Attempts: 1,
			Err:      fmt.Errorf("bulk response has %d lines, expected %d", len(lines), len(texts)),
		}
	}
	return lines, nil
}

func (a *azure) call(ctx context.Context, text, targetLang string) (string, error) {
	reqBody, err := json.Marshal([]struct {
		Text string `json:"Text"`
	}{{Text: text}})
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	headers := map[string]string{
		"Ocp-Apim-Subscription-Key": a.apiKey,
	}
	if a.region != "" {
		headers["Ocp-Apim-Subscription-Region"] = a.region
	}

	endpoint := "https://api.cognitive.microsofttranslator.com/translate?api-version=3.0" +
		"&textType=plain&to=" + url.QueryEscape(targetLang)

	var result string
	err = a.retry.Do(ctx, NameAzure, func() error {
		body, err := postJSON(ctx, a.client, endpoint, headers, reqBody)
		if err != nil {
			return err
		}

		var resp []struct {
			Translations []struct {
				Text string `json:"text"`
			} `json:"translations"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("invalid JSON response: %w", err)
		}
		if len(resp) == 0 || len(resp[0].Translations) == 0 {
			return fmt.Errorf("no translation in response: %s", truncate(string(body), 300))
		}

		result = resp[0].Translations[0].Text
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}
