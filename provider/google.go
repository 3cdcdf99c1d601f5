package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// googleBulkLimit is the Cloud Translation v3 cap on contents per call.
const googleBulkLimit = 100

// googleLangOverrides maps full locale codes whose region matters to the
// code Google expects. Anything not listed falls back to the lowercased
// primary subtag (es_ES -> es, en_US -> en, fr_FR -> fr).
var googleLangOverrides = map[string]string{
	"pt_BR": "pt-BR",
	"pt-BR": "pt-BR",
	"zh_CN": "zh-CN",
	"zh-CN": "zh-CN",
	"zh_TW": "zh-TW",
	"zh-TW": "zh-TW",
}

// normalizeGoogleLang converts a gettext-style locale code to the
// ISO-639-1 form the v3 API accepts.
func normalizeGoogleLang(lang string) string {
	if mapped, ok := googleLangOverrides[lang]; ok {
		return mapped
	}
	base := lang
	if idx := strings.IndexAny(lang, "_-"); idx > 0 {
		base = lang[:idx]
	}
	return strings.ToLower(base)
}

// google calls the Cloud Translation v3 REST API (the enterprise NMT
// backend). Bulk translation is native, capped at googleBulkLimit items
// per call; larger inputs are sliced into consecutive calls.
type google struct {
	projectID   string
	accessToken string
	client      *http.Client
	retry       RetryPolicy
}

func newGoogle(creds Credentials, client *http.Client) Translator {
	return &google{
		projectID:   creds.ProjectID,
		accessToken: creds.AccessToken,
		client:      client,
		retry:       DefaultRetryPolicy(),
	}
}

func (g *google) Name() string { return NameGoogle }

func (g *google) TranslateOne(ctx context.Context, text, targetLang string) (string, error) {
	out, err := g.translateBatch(ctx, []string{text}, targetLang)
	if err != nil {
		return "", err
	}
	return out[0], nil
}

func (g *google) TranslateMany(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	result := make([]string, 0, len(texts))
	for start := 0; start < len(texts); start += googleBulkLimit {
		end := start + googleBulkLimit
		if end > len(texts) {
			end = len(texts)
		}
		part, err := g.translateBatch(ctx, texts[start:end], targetLang)
		if err != nil {
			return nil, err
		}
		result = append(result, part...)
	}
	return result, nil
}

func (g *google) translateBatch(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody, err := json.Marshal(struct {
		Contents           []string `json:"contents"`
		TargetLanguageCode string   `json:"targetLanguageCode"`
		SourceLanguageCode string   `json:"sourceLanguageCode"`
		MimeType           string   `json:"mimeType"`
	}{
		Contents:           texts,
		TargetLanguageCode: normalizeGoogleLang(targetLang),
		SourceLanguageCode: "en",
		// Plain text: markup is masked before it ever reaches the API.
		MimeType: "text/plain",
	})
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + g.accessToken,
	}
	endpoint := fmt.Sprintf(
		"https://translation.googleapis.com/v3/projects/%s/locations/global:translateText",
		g.projectID)

	var result []string
	err = g.retry.Do(ctx, NameGoogle, func() error {
		body, err := postJSON(ctx, g.client, endpoint, headers, reqBody)
		if err != nil {
			return err
		}

		var resp struct {
			Translations []struct {
				TranslatedText string `json:"translatedText"`
			} `json:"translations"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("invalid JSON response: %w", err)
		}
		if len(resp.Translations) != len(texts) {
			return fmt.Errorf("got %d translations, expected %d", len(resp.Translations), len(texts))
		}

		result = make([]string, len(texts))
		for i, tr := range resp.Translations {
			result[i] = tr.TranslatedText
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
