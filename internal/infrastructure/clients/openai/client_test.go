package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
	"github.com/zatekoja/dentalanalytics/internal/domain/providers"
	"github.com/zatekoja/dentalanalytics/pkg/config"
)

func testSummary() *entities.DataSummary {
	return &entities.DataSummary{
		Overall: entities.OverallMetrics{
			TotalProviders: 2,
			TotalPatients:  decimal.NewFromInt(300),
			TotalServices:  decimal.NewFromInt(1500),
		},
		TopProvidersByVolume: []entities.ProviderRank{{RenderingNPI: "1234567890", Value: decimal.NewFromInt(200)}},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(&config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/", RateLimitRPM: -1})
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(&config.OpenAIConfig{})
	assert.Error(t, err)

	_, err = NewClient(nil)
	assert.Error(t, err)
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient(&config.OpenAIConfig{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, defaultBaseURL, client.baseURL)
	assert.Equal(t, defaultModel, client.model)
	assert.NotNil(t, client.limiter)
}

func TestGenerateInsights_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var payload struct {
			Model string              `json:"model"`
			Input []map[string]string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, defaultModel, payload.Model)
		require.Len(t, payload.Input, 2)
		assert.Equal(t, "system", payload.Input[0]["role"])
		assert.Contains(t, payload.Input[1]["content"], `"total_providers": 2`)
		assert.Contains(t, payload.Input[1]["content"], "1234567890")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output":[{"content":[{"type":"output_text","text":"` + "```markdown\\n- Adults need more prevention.\\n```" + `"}]}]}`))
	})

	text, err := client.GenerateInsights(context.Background(), testSummary())
	require.NoError(t, err)
	assert.Equal(t, "- Adults need more prevention.", text)
}

func TestGenerateInsights_Unauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.GenerateInsights(context.Background(), testSummary())
	require.Error(t, err)
	assert.True(t, errors.Is(err, providers.ErrInsightsUnauthorized))
}

func TestGenerateInsights_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GenerateInsights(context.Background(), testSummary())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestGenerateInsights_EmptyOutput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output":[{"content":[{"type":"reasoning","text":"thinking"}]}]}`))
	})

	_, err := client.GenerateInsights(context.Background(), testSummary())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing output text")
}

func TestGenerateInsights_NilSummary(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.GenerateInsights(context.Background(), nil)
	assert.Error(t, err)
}

func TestTokenBucket_WaitHonoursContext(t *testing.T) {
	bucket := newTokenBucketWithRate(1, 1)
	require.NoError(t, bucket.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, bucket.Wait(ctx), context.Canceled)
}

func TestBuildInsightsUserPrompt(t *testing.T) {
	prompt, err := buildInsightsUserPrompt(testSummary())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(prompt, "Analyze the following dental utilization data summary"))
	assert.Contains(t, prompt, "```json\n{")
	assert.Contains(t, prompt, `"overall_metrics"`)
	assert.True(t, strings.HasSuffix(prompt, "Insights and Recommendations:\n"))
}
