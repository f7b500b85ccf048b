package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/dentalanalytics/internal/application/services"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
	"github.com/zatekoja/dentalanalytics/internal/domain/repositories"
	apperrors "github.com/zatekoja/dentalanalytics/pkg/errors"
	"github.com/zatekoja/dentalanalytics/tests/mocks"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func provider(npi, users, score string) *entities.ProviderSummary {
	return &entities.ProviderSummary{
		RenderingNPI:            npi,
		ProviderLegalName:       "PROVIDER " + npi,
		ServiceTotals:           entities.ServiceTotals{TotalUsers: dec(users)},
		ProviderEfficiencyScore: dec(score),
	}
}

func expectReportData(repo *mocks.MockRefinedRepository) {
	p1, p2, p3 := provider("1", "600", "10.80"), provider("2", "150", "6.00"), provider("3", "50", "2.50")

	repo.On("ListProviders", mock.Anything, repositories.ProviderFilter{Order: repositories.ProviderOrderVolume}).
		Return([]*entities.ProviderSummary{p1, p2, p3}, nil).Once()
	repo.On("ListProviders", mock.Anything, repositories.ProviderFilter{Order: repositories.ProviderOrderEfficiency, Limit: 5}).
		Return([]*entities.ProviderSummary{p1, p2, p3}, nil).Once()
	repo.On("ListProviders", mock.Anything, repositories.ProviderFilter{Order: repositories.ProviderOrderEfficiency, Ascending: true, Limit: 3}).
		Return([]*entities.ProviderSummary{p3, p2, p1}, nil).Once()

	repo.On("ListAgeGroups", mock.Anything).Return([]*entities.AgeGroupSummary{
		{
			AgeGroup:            "AGE 0-20",
			ServiceDistribution: entities.ServiceDistribution{PreventiveServicesPct: dec("45.50"), TreatmentServicesPct: dec("30.00")},
			AvgServicesPerUser:  dec("6.25"),
		},
		{
			AgeGroup:            "AGE 21+",
			ServiceDistribution: entities.ServiceDistribution{PreventiveServicesPct: dec("25.00"), TreatmentServicesPct: dec("50.00")},
			AvgServicesPerUser:  dec("3.10"),
		},
	}, nil).Once()

	repo.On("ListDeliverySystems", mock.Anything).Return([]*entities.DeliverySystemSummary{
		{
			DeliverySystem:           "FFS",
			ServiceTotals:            entities.ServiceTotals{TotalUsers: dec("500"), TotalServices: dec("3000"), PreventiveServices: dec("1200"), TreatmentServices: dec("900")},
			ServiceDistribution:      entities.ServiceDistribution{PreventiveServicesPct: dec("40.00")},
			AvgServicesPerUser:       dec("5.00"),
			SystemEffectivenessScore: dec("4.60"),
		},
		{
			DeliverySystem:           "GMC",
			ServiceTotals:            entities.ServiceTotals{TotalUsers: dec("300"), TotalServices: dec("1000"), PreventiveServices: dec("200"), TreatmentServices: dec("500")},
			ServiceDistribution:      entities.ServiceDistribution{PreventiveServicesPct: dec("20.00")},
			AvgServicesPerUser:       dec("6.00"),
			SystemEffectivenessScore: dec("2.00"),
		},
	}, nil).Once()
}

func TestReportService_Summary(t *testing.T) {
	repo := mocks.NewMockRefinedRepository(t)
	expectReportData(repo)

	summary, err := services.NewReportService(repo, nil).Summary(context.Background())
	require.NoError(t, err)

	om := summary.Overall
	assert.Equal(t, 3, om.TotalProviders)
	fixed(t, "800.00", om.TotalPatients)
	fixed(t, "4000.00", om.TotalServices)
	fixed(t, "5.00", om.AvgServicesPerPatient)
	fixed(t, "35.00", om.PreventivePct)
	fixed(t, "35.00", om.TreatmentPct)

	require.Len(t, summary.TopProvidersByVolume, 3)
	assert.Equal(t, "1", summary.TopProvidersByVolume[0].RenderingNPI)
	fixed(t, "600.00", summary.TopProvidersByVolume[0].Value)
	require.Len(t, summary.LowProvidersByEfficiency, 3)
	assert.Equal(t, "3", summary.LowProvidersByEfficiency[0].RenderingNPI)
}

func TestReportService_GenerateDetailed(t *testing.T) {
	repo := mocks.NewMockRefinedRepository(t)
	expectReportData(repo)

	report, err := services.NewReportService(repo, nil).Generate(context.Background(), entities.ReportLevelDetailed, false)
	require.NoError(t, err)

	assert.Equal(t, services.ReportTitle, report.Title)
	assert.Equal(t, entities.ReportLevelDetailed, report.Level)
	assert.False(t, report.GeneratedAt.IsZero())
	assert.False(t, report.AIIncluded)

	md := report.Markdown
	for _, want := range []string{
		"## " + services.ReportTitle,
		"Report level: detailed",
		"- **Total Providers Analyzed**: 3",
		"- **Total Patients Served**: 800",
		"- **Total Services Provided**: 4,000",
		"- **Average Services per Patient**: 5.00",
		"**45.5%** preventive services, compared to **25.0%**",
		"- **FFS** is the most effective delivery system with an effectiveness score of **4.60**.",
		"  - **GMC**: 20.0% preventive services, serving 300 patients",
		"- **GMC** provides the highest average number of services per patient at **6.00**.",
		"  - Provider NPI 1 (600 patients)",
		"  - Provider NPI 1 (Score: 10.80)",
		"  - Provider NPI 3 (Score: 2.50)",
	} {
		assert.Contains(t, md, want)
	}
	assert.NotContains(t, md, "AI Generated Summary")
}

func TestReportService_GenerateSummary(t *testing.T) {
	repo := mocks.NewMockRefinedRepository(t)
	expectReportData(repo)

	report, err := services.NewReportService(repo, nil).Generate(context.Background(), entities.ReportLevelSummary, false)
	require.NoError(t, err)

	md := report.Markdown
	assert.Contains(t, md, "from 3 providers serving approximately 800 patients")
	assert.Contains(t, md, "Preventive services made up 35.0% of the total")
	assert.Contains(t, md, "the FFS model was the most effective")
	assert.Contains(t, md, "NPI 1 served the highest volume of patients (600)")
	assert.Contains(t, md, "NPI 3 had the lowest efficiency score (2.50)")
	assert.NotContains(t, md, "- **Total Providers Analyzed**")
}

func TestReportService_GenerateWithAI(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		err      error
		wantText string
		wantIncl bool
	}{
		{name: "success", text: "  Focus on adult prevention.\n", wantText: "### AI Generated Summary\nFocus on adult prevention.", wantIncl: true},
		{name: "failure degrades", err: errors.New("quota exceeded"), wantText: "*AI insights unavailable: quota exceeded*"},
		{name: "empty response", text: "   ", wantText: "*AI response received, but content is empty.*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewMockRefinedRepository(t)
			expectReportData(repo)
			insights := mocks.NewMockInsightsProvider(t)
			insights.On("GenerateInsights", mock.Anything, mock.MatchedBy(func(s *entities.DataSummary) bool {
				return s.Overall.TotalProviders == 3
			})).Return(tt.text, tt.err).Once()

			report, err := services.NewReportService(repo, insights).Generate(context.Background(), entities.ReportLevelDetailed, true)
			require.NoError(t, err)
			assert.Contains(t, report.Markdown, tt.wantText)
			assert.Equal(t, tt.wantIncl, report.AIIncluded)
		})
	}
}

func TestReportService_GenerateWithAI_NoProvider(t *testing.T) {
	repo := mocks.NewMockRefinedRepository(t)
	expectReportData(repo)

	report, err := services.NewReportService(repo, nil).Generate(context.Background(), entities.ReportLevelSummary, true)
	require.NoError(t, err)
	assert.Contains(t, report.Markdown, "*AI insights unavailable: no text generation service is configured.*")
	assert.False(t, report.AIIncluded)
}

func TestReportService_InvalidLevel(t *testing.T) {
	svc := services.NewReportService(mocks.NewMockRefinedRepository(t), nil)

	_, err := svc.Generate(context.Background(), entities.ReportLevel("verbose"), false)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestReportService_EmptyRefinedLayer(t *testing.T) {
	repo := mocks.NewMockRefinedRepository(t)
	repo.On("ListProviders", mock.Anything, repositories.ProviderFilter{Order: repositories.ProviderOrderVolume}).
		Return([]*entities.ProviderSummary{}, nil).Once()

	_, err := services.NewReportService(repo, nil).Generate(context.Background(), entities.ReportLevelDetailed, false)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePrecondition))
}
