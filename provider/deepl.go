package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// deepL calls the DeepL v2 REST API. DeepL accepts several text
// parameters per request, so it is the one backend with a true bulk
// translate: N strings in, N translations out, in order.
type deepL struct {
	apiKey  string
	baseURL string
	client  *http.Client
	retry   RetryPolicy
}

func newDeepL(creds Credentials, client *http.Client) Translator {
	// Free-tier keys carry the ":fx" suffix and live on a separate host.
	base := "https://api.deepl.com"
	if strings.HasSuffix(creds.APIKey, ":fx") {
		base = "https://api-free.deepl.com"
	}
	return &deepL{
		apiKey:  creds.APIKey,
		baseURL: base,
		client:  client,
		retry:   DefaultRetryPolicy(),
	}
}

func (d *deepL) Name() string { return NameDeepL }

func (d *deepL) TranslateOne(ctx context.Context, text, targetLang string) (string, error) {
	out, err := d.TranslateMany(ctx, []string{text}, targetLang)
	if err != nil {
		return "", err
	}
	return out[0], nil
}

func (d *deepL) TranslateMany(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	form := url.Values{}
	for _, t := range texts {
		form.Add("text", t)
	}
	form.Set("target_lang", strings.ToUpper(targetLang))
	form.Set("preserve_formatting", "1")

	headers := map[string]string{
		"Authorization": "DeepL-Auth-Key " + d.apiKey,
	}
	endpoint := d.baseURL + "/v2/translate"

	var result []string
	err := d.retry.Do(ctx, NameDeepL, func() error {
		body, err := postForm(ctx, d.client, endpoint, headers, form)
		if err != nil {
			return err
		}

		var resp struct {
			Translations []struct {
				Text string `json:"text"`
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
			result[i] = tr.Text
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
