package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/zatekoja/dentalanalytics/internal/application/transform"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
	"github.com/zatekoja/dentalanalytics/internal/domain/providers"
	"github.com/zatekoja/dentalanalytics/internal/domain/repositories"
	apperrors "github.com/zatekoja/dentalanalytics/pkg/errors"
)

const (
	// ReportTitle heads every generated report
	ReportTitle = "Dental Care Utilization Analysis Report"

	youngerAgeGroup = "AGE 0-20"
	olderAgeGroup   = "AGE 21+"

	summaryTopProviders = 5
	reportTopProviders  = 3

	reportStage = "report"
)

// ReportService builds the utilization report from the refined layer
type ReportService struct {
	refined  repositories.RefinedRepository
	insights providers.InsightsProvider
	now      func() time.Time
	printer  *message.Printer
}

// NewReportService creates a new report service. insights may be nil, in which case
// AI sections render a notice instead of generated text.
func NewReportService(refined repositories.RefinedRepository, insights providers.InsightsProvider) *ReportService {
	return &ReportService{
		refined:  refined,
		insights: insights,
		now:      time.Now,
		printer:  message.NewPrinter(language.English),
	}
}

// Summary collects the structured figures both the report and the AI prompt are built from.
func (s *ReportService) Summary(ctx context.Context) (*entities.DataSummary, error) {
	byVolume, err := s.refined.ListProviders(ctx, repositories.ProviderFilter{Order: repositories.ProviderOrderVolume})
	if err != nil {
		return nil, err
	}
	if len(byVolume) == 0 {
		return nil, apperrors.NewPreconditionError(reportStage, "refined layer is empty, run the pipeline first")
	}

	byEfficiency, err := s.refined.ListProviders(ctx, repositories.ProviderFilter{
		Order: repositories.ProviderOrderEfficiency,
		Limit: summaryTopProviders,
	})
	if err != nil {
		return nil, err
	}
	lowest, err := s.refined.ListProviders(ctx, repositories.ProviderFilter{
		Order:     repositories.ProviderOrderEfficiency,
		Ascending: true,
		Limit:     reportTopProviders,
	})
	if err != nil {
		return nil, err
	}
	ageGroups, err := s.refined.ListAgeGroups(ctx)
	if err != nil {
		return nil, err
	}
	systems, err := s.refined.ListDeliverySystems(ctx)
	if err != nil {
		return nil, err
	}

	return &entities.DataSummary{
		Overall:                  overallMetrics(byVolume, systems),
		AgeGroups:                ageGroups,
		DeliverySystems:          systems,
		TopProvidersByVolume:     rankProviders(byVolume, summaryTopProviders, func(p *entities.ProviderSummary) decimal.Decimal { return p.TotalUsers }),
		TopProvidersByEfficiency: rankProviders(byEfficiency, summaryTopProviders, efficiencyScore),
		LowProvidersByEfficiency: rankProviders(lowest, reportTopProviders, efficiencyScore),
	}, nil
}

func efficiencyScore(p *entities.ProviderSummary) decimal.Decimal { return p.ProviderEfficiencyScore }

// overallMetrics totals the program. Every trusted row belongs to exactly one
// delivery system, so the system sums equal the row sums.
func overallMetrics(providers []*entities.ProviderSummary, systems []*entities.DeliverySystemSummary) entities.OverallMetrics {
	npis := make(map[string]struct{}, len(providers))
	patients := decimal.Zero
	for _, p := range providers {
		npis[p.RenderingNPI] = struct{}{}
		patients = patients.Add(p.TotalUsers)
	}

	var services, prev, txmt decimal.Decimal
	for _, ds := range systems {
		services = services.Add(ds.TotalServices)
		prev = prev.Add(ds.PreventiveServices)
		txmt = txmt.Add(ds.TreatmentServices)
	}

	return entities.OverallMetrics{
		TotalProviders:        len(npis),
		TotalPatients:         patients,
		TotalServices:         services,
		AvgServicesPerPatient: transform.SafeRatio(services, patients),
		PreventivePct:         transform.SafePercent(prev, services),
		TreatmentPct:          transform.SafePercent(txmt, services),
	}
}

func rankProviders(list []*entities.ProviderSummary, n int, value func(*entities.ProviderSummary) decimal.Decimal) []entities.ProviderRank {
	if len(list) > n {
		list = list[:n]
	}
	out := make([]entities.ProviderRank, 0, len(list))
	for _, p := range list {
		out = append(out, entities.ProviderRank{RenderingNPI: p.RenderingNPI, Value: value(p)})
	}
	return out
}

// Generate renders the report at the given level, optionally with an AI-written section.
// A failing AI call degrades to a notice inside the report.
func (s *ReportService) Generate(ctx context.Context, level entities.ReportLevel, withAI bool) (*entities.Report, error) {
	if !level.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid report level %q, use %q or %q", level, entities.ReportLevelDetailed, entities.ReportLevelSummary))
	}

	summary, err := s.Summary(ctx)
	if err != nil {
		return nil, err
	}

	report := &entities.Report{
		Title:       ReportTitle,
		Level:       level,
		GeneratedAt: s.now().UTC(),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n", ReportTitle)
	fmt.Fprintf(&b, "*Generated %s | Report level: %s*\n\n", report.GeneratedAt.Format(time.RFC3339), level)

	if level == entities.ReportLevelDetailed {
		s.writeDetailed(&b, summary)
	} else {
		s.writeNarrative(&b, summary)
	}

	if withAI {
		section, ok := s.aiSection(ctx, summary)
		b.WriteString("\n### AI Generated Summary\n")
		b.WriteString(section)
		b.WriteString("\n")
		report.AIIncluded = ok
	}

	report.Markdown = b.String()
	return report, nil
}

func (s *ReportService) aiSection(ctx context.Context, summary *entities.DataSummary) (string, bool) {
	if s.insights == nil {
		return "*AI insights unavailable: no text generation service is configured.*", false
	}
	text, err := s.insights.GenerateInsights(ctx, summary)
	if err != nil {
		log.Warn().Err(err).Msg("AI insight generation failed")
		return fmt.Sprintf("*AI insights unavailable: %v*", err), false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "*AI response received, but content is empty.*", false
	}
	return text, true
}

func (s *ReportService) count(d decimal.Decimal) string {
	return s.printer.Sprintf("%d", d.Round(0).IntPart())
}

func pct(d decimal.Decimal) string { return d.StringFixed(1) }

func findAgeGroup(groups []*entities.AgeGroupSummary, label string) *entities.AgeGroupSummary {
	for _, g := range groups {
		if g.AgeGroup == label {
			return g
		}
	}
	return nil
}

// bestSystem returns the first system with the highest value, nil when there are none.
func bestSystem(systems []*entities.DeliverySystemSummary, value func(*entities.DeliverySystemSummary) decimal.Decimal) *entities.DeliverySystemSummary {
	var best *entities.DeliverySystemSummary
	for _, ds := range systems {
		if best == nil || value(ds).GreaterThan(value(best)) {
			best = ds
		}
	}
	return best
}

func mostEffective(systems []*entities.DeliverySystemSummary) *entities.DeliverySystemSummary {
	return bestSystem(systems, func(ds *entities.DeliverySystemSummary) decimal.Decimal { return ds.SystemEffectivenessScore })
}

func mostIntensive(systems []*entities.DeliverySystemSummary) *entities.DeliverySystemSummary {
	return bestSystem(systems, func(ds *entities.DeliverySystemSummary) decimal.Decimal { return ds.AvgServicesPerUser })
}

func topN(ranks []entities.ProviderRank) []entities.ProviderRank {
	if len(ranks) > reportTopProviders {
		return ranks[:reportTopProviders]
	}
	return ranks
}

func (s *ReportService) writeDetailed(b *strings.Builder, sum *entities.DataSummary) {
	om := sum.Overall
	b.WriteString("### Summary Metrics\n")
	fmt.Fprintf(b, "- **Total Providers Analyzed**: %s\n", s.printer.Sprintf("%d", om.TotalProviders))
	fmt.Fprintf(b, "- **Total Patients Served**: %s\n", s.count(om.TotalPatients))
	fmt.Fprintf(b, "- **Total Services Provided**: %s\n", s.count(om.TotalServices))
	fmt.Fprintf(b, "- **Average Services per Patient**: %s\n\n", om.AvgServicesPerPatient.StringFixed(2))

	b.WriteString("### Age Group Analysis\n")
	young, old := findAgeGroup(sum.AgeGroups, youngerAgeGroup), findAgeGroup(sum.AgeGroups, olderAgeGroup)
	if young != nil && old != nil {
		fmt.Fprintf(b, "- Younger patients (0-20) receive **%s%%** preventive services, compared to **%s%%** for adults (21+).\n",
			pct(young.PreventiveServicesPct), pct(old.PreventiveServicesPct))
		fmt.Fprintf(b, "- Treatment services make up **%s%%** of services for younger patients and **%s%%** for adults.\n",
			pct(young.TreatmentServicesPct), pct(old.TreatmentServicesPct))
		fmt.Fprintf(b, "- Average services per patient: **%s** for younger patients, **%s** for adults.\n",
			young.AvgServicesPerUser.StringFixed(2), old.AvgServicesPerUser.StringFixed(2))
	} else {
		b.WriteString("- *Age group comparison data not fully available.*\n")
	}
	b.WriteString("\n")

	b.WriteString("### Delivery System Performance\n")
	if best := mostEffective(sum.DeliverySystems); best != nil {
		fmt.Fprintf(b, "- **%s** is the most effective delivery system with an effectiveness score of **%s**.\n",
			best.DeliverySystem, best.SystemEffectivenessScore.StringFixed(2))
	} else {
		b.WriteString("- *Could not determine the most effective delivery system.*\n")
	}
	b.WriteString("- Preventive service percentages by delivery system:\n")
	if len(sum.DeliverySystems) == 0 {
		b.WriteString("  - *Data not available.*\n")
	}
	for _, ds := range sum.DeliverySystems {
		fmt.Fprintf(b, "  - **%s**: %s%% preventive services, serving %s patients\n",
			ds.DeliverySystem, pct(ds.PreventiveServicesPct), s.count(ds.TotalUsers))
	}
	if top := mostIntensive(sum.DeliverySystems); top != nil {
		fmt.Fprintf(b, "- **%s** provides the highest average number of services per patient at **%s**.\n",
			top.DeliverySystem, top.AvgServicesPerUser.StringFixed(2))
	}
	b.WriteString("\n")

	b.WriteString("### Provider Performance\n")
	s.writeRanks(b, "Top providers by patient volume", topN(sum.TopProvidersByVolume), func(r entities.ProviderRank) string {
		return s.count(r.Value) + " patients"
	})
	s.writeRanks(b, "Top providers by efficiency score", topN(sum.TopProvidersByEfficiency), func(r entities.ProviderRank) string {
		return "Score: " + r.Value.StringFixed(2)
	})
	s.writeRanks(b, "Providers with lowest efficiency scores (potential review needed)", sum.LowProvidersByEfficiency, func(r entities.ProviderRank) string {
		return "Score: " + r.Value.StringFixed(2)
	})
}

func (s *ReportService) writeRanks(b *strings.Builder, heading string, ranks []entities.ProviderRank, label func(entities.ProviderRank) string) {
	fmt.Fprintf(b, "- **%s**:\n", heading)
	if len(ranks) == 0 {
		b.WriteString("  - *Data not available.*\n")
		return
	}
	for _, r := range ranks {
		fmt.Fprintf(b, "  - Provider NPI %s (%s)\n", r.RenderingNPI, label(r))
	}
}

func (s *ReportService) writeNarrative(b *strings.Builder, sum *entities.DataSummary) {
	om := sum.Overall
	fmt.Fprintf(b, "This analysis reviews dental care utilization from %s providers serving approximately %s patients. "+
		"A total of %s services were rendered, averaging %s services per patient. "+
		"Preventive services made up %s%% of the total and treatment services %s%%.\n\n",
		s.printer.Sprintf("%d", om.TotalProviders), s.count(om.TotalPatients), s.count(om.TotalServices),
		om.AvgServicesPerPatient.StringFixed(2), pct(om.PreventivePct), pct(om.TreatmentPct))

	b.WriteString("Regarding age demographics, ")
	young, old := findAgeGroup(sum.AgeGroups, youngerAgeGroup), findAgeGroup(sum.AgeGroups, olderAgeGroup)
	if young != nil && old != nil {
		fmt.Fprintf(b, "younger patients (0-20) received %s%% preventive services compared to %s%% for adults (21+), "+
			"with treatment at %s%% vs. %s%%. Average services per patient were %s for the younger group and %s for adults.\n\n",
			pct(young.PreventiveServicesPct), pct(old.PreventiveServicesPct),
			pct(young.TreatmentServicesPct), pct(old.TreatmentServicesPct),
			young.AvgServicesPerUser.StringFixed(2), old.AvgServicesPerUser.StringFixed(2))
	} else {
		b.WriteString("a comparison between age groups was not possible with the available data.\n\n")
	}

	b.WriteString("Analysis of delivery systems showed that ")
	if best := mostEffective(sum.DeliverySystems); best != nil {
		fmt.Fprintf(b, "the %s model was the most effective, with an effectiveness score of %s. ",
			best.DeliverySystem, best.SystemEffectivenessScore.StringFixed(2))
	} else {
		b.WriteString("the most effective system could not be determined. ")
	}
	if len(sum.DeliverySystems) > 0 {
		details := make([]string, 0, len(sum.DeliverySystems))
		for _, ds := range sum.DeliverySystems {
			details = append(details, fmt.Sprintf("%s: %s%% for %s patients", ds.DeliverySystem, pct(ds.PreventiveServicesPct), s.count(ds.TotalUsers)))
		}
		fmt.Fprintf(b, "Preventive service shares by system were %s. ", strings.Join(details, "; "))
	}
	if top := mostIntensive(sum.DeliverySystems); top != nil {
		fmt.Fprintf(b, "The %s system provided the highest average number of services per patient (%s).",
			top.DeliverySystem, top.AvgServicesPerUser.StringFixed(2))
	}
	b.WriteString("\n\n")

	b.WriteString("At the provider level, ")
	if len(sum.TopProvidersByVolume) > 0 {
		r := sum.TopProvidersByVolume[0]
		fmt.Fprintf(b, "NPI %s served the highest volume of patients (%s). ", r.RenderingNPI, s.count(r.Value))
	}
	if len(sum.TopProvidersByEfficiency) > 0 {
		r := sum.TopProvidersByEfficiency[0]
		fmt.Fprintf(b, "NPI %s achieved the highest efficiency score (%s). ", r.RenderingNPI, r.Value.StringFixed(2))
	}
	if len(sum.LowProvidersByEfficiency) > 0 {
		r := sum.LowProvidersByEfficiency[0]
		fmt.Fprintf(b, "NPI %s had the lowest efficiency score (%s), suggesting an area for review.", r.RenderingNPI, r.Value.StringFixed(2))
	}
	b.WriteString("\n")
}
