package openai

import (
	"encoding/json"
	"fmt"

	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
)

const insightsSystemPrompt = `You are an expert healthcare data analyst specializing in dental program evaluation. Answer in markdown with short sections and bullet points. Do not invent figures that are not in the data.`

const insightsUserTemplate = `Analyze the following dental utilization data summary and provide key insights and potential recommendations in markdown format. Focus on:
1. Overall program performance (patient volume, service volume, efficiency).
2. Significant differences between age groups (0-20 vs 21+).
3. Performance variations between delivery systems.
4. Top-performing and potentially underperforming providers.

Data Summary:
` + "```json" + `
%s
` + "```" + `

Insights and Recommendations:
`

func buildInsightsUserPrompt(summary *entities.DataSummary) (string, error) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode data summary: %w", err)
	}
	return fmt.Sprintf(insightsUserTemplate, data), nil
}
