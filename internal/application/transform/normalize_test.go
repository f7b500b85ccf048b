package transform

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
	"github.com/zatekoja/dentalanalytics/internal/testutil"
	apperrors "github.com/zatekoja/dentalanalytics/pkg/errors"
)

func assertFixed(t *testing.T, expected string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Equal(t, expected, got.StringFixed(Scale), msgAndArgs...)
}

func normalizeOne(t *testing.T, opts ...testutil.RawOption) *entities.TrustedRecord {
	t.Helper()
	out, err := Normalize([]*entities.RawRecord{testutil.NewRawRecord(opts...)})
	require.NoError(t, err)
	require.Len(t, out, 1)
	return out[0]
}

func TestNormalize_DerivedMetrics(t *testing.T) {
	rec := normalizeOne(t,
		testutil.WithUsers("100", "80", "40", "50"),
		testutil.WithServices("100", "200", "150", "50"),
	)

	assertFixed(t, "500.00", rec.TotalServices)
	assertFixed(t, "5.00", rec.ServicesPerUser)
	assertFixed(t, "0.40", rec.PreventiveRatio)
	assertFixed(t, "0.30", rec.TreatmentRatio)
	assertFixed(t, "0.10", rec.ExamRatio)
}

func TestNormalize_ZeroAdvUsers(t *testing.T) {
	rec := normalizeOne(t,
		testutil.WithUsers("0", "0", "0", "0"),
		testutil.WithServices("10", "20", "30", "40"),
	)

	assertFixed(t, "100.00", rec.TotalServices)
	assertFixed(t, "0.00", rec.ServicesPerUser)
	assertFixed(t, "0.20", rec.PreventiveRatio)
}

func TestNormalize_EmptyCountsDefaultToZero(t *testing.T) {
	rec := normalizeOne(t,
		testutil.WithUsers("", "  ", "", ""),
		testutil.WithServices("", "", "", ""),
	)

	assert.Equal(t, "0", rec.CountText.AdvUsers)
	assert.Equal(t, "0", rec.CountText.PrevUsers)
	assert.Equal(t, "0", rec.CountText.ExamServices)
	assertFixed(t, "0.00", rec.TotalServices)
	assertFixed(t, "0.00", rec.ServicesPerUser)
	assertFixed(t, "0.00", rec.PreventiveRatio)
	assertFixed(t, "0.00", rec.TreatmentRatio)
	assertFixed(t, "0.00", rec.ExamRatio)
}

func TestNormalize_TrimsCategoricals(t *testing.T) {
	rec := normalizeOne(t,
		testutil.WithProvider(" 1234567890 ", "  ACME DENTAL "),
		testutil.WithDeliverySystem("GMC "),
		testutil.WithAgeGroup("\tAGE 21+"),
		testutil.WithUsers(" 12 ", "1", "1", "1"),
	)

	assert.Equal(t, "1234567890", rec.RenderingNPI)
	assert.Equal(t, "ACME DENTAL", rec.ProviderLegalName)
	assert.Equal(t, "GMC", rec.DeliverySystem)
	assert.Equal(t, "AGE 21+", rec.AgeGroup)
	assert.Equal(t, "12", rec.CountText.AdvUsers)
}

func TestNormalize_ParseErrorFailsBatch(t *testing.T) {
	raws := []*entities.RawRecord{
		testutil.NewRawRecord(),
		testutil.NewRawRecord(testutil.WithServices("100", "12a", "150", "50")),
	}

	out, err := Normalize(raws)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeParse))
	assert.Contains(t, err.Error(), "[trusted]")
	assert.Contains(t, err.Error(), "row 2")
	assert.Contains(t, err.Error(), "prev_svc_cnt")
	assert.Contains(t, err.Error(), `"12a"`)
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	raw := testutil.NewRawRecord(testutil.WithUsers("", "1", "1", "1"))

	_, err := Normalize([]*entities.RawRecord{raw})
	require.NoError(t, err)
	assert.Equal(t, "", raw.Counts.AdvUsers)
}

func TestNormalize_RatioInvariants(t *testing.T) {
	cases := [][4]string{
		{"1", "1", "1", "0"},
		{"0", "7", "3", "11"},
		{"13", "29", "31", "17"},
		{"250", "0", "0", "0"},
		{"0", "0", "0", "0"},
		{"3.5", "1.25", "0.75", "9"},
	}

	one := decimal.NewFromInt(1)
	tolerance := decimal.RequireFromString("0.01")

	for _, c := range cases {
		rec := normalizeOne(t, testutil.WithServices(c[0], c[1], c[2], c[3]))

		for _, r := range []decimal.Decimal{rec.PreventiveRatio, rec.TreatmentRatio, rec.ExamRatio} {
			assert.True(t, r.GreaterThanOrEqual(decimal.Zero) && r.LessThanOrEqual(one), "ratio %s out of range for %v", r, c)
		}

		if rec.TotalServices.IsZero() {
			assert.True(t, rec.PreventiveRatio.IsZero())
			assert.True(t, rec.TreatmentRatio.IsZero())
			assert.True(t, rec.ExamRatio.IsZero())
			continue
		}

		advShare := SafeRatio(rec.Counts.AdvServices, rec.TotalServices)
		sum := advShare.Add(rec.PreventiveRatio).Add(rec.TreatmentRatio).Add(rec.ExamRatio)
		assert.True(t, sum.Sub(one).Abs().LessThanOrEqual(tolerance), "category shares sum to %s for %v", sum, c)
	}
}

func TestSafeRatio_RoundsHalfAwayFromZero(t *testing.T) {
	assertFixed(t, "0.67", SafeRatio(decimal.NewFromInt(2), decimal.NewFromInt(3)))
	assertFixed(t, "0.13", SafeRatio(decimal.RequireFromString("0.125"), decimal.NewFromInt(1)))
	assertFixed(t, "0.00", SafeRatio(decimal.NewFromInt(5), decimal.Zero))
	assertFixed(t, "0.00", SafeRatio(decimal.NewFromInt(5), decimal.NewFromInt(-1)))
}
