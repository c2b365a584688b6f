package consolidate

import (
	"testing"

	"github.com/querysage/querysage/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestClassify_Rules(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []models.GapCategory
	}{
		{
			"missing table",
			"missing table for creator revenue",
			[]models.GapCategory{models.GapMissingTable},
		},
		{
			"metric definition",
			"how is weekly retention calculated? no formula anywhere",
			[]models.GapCategory{models.GapMissingMetricDefinition},
		},
		{
			"domain context",
			"the business glossary does not explain what AMP means",
			[]models.GapCategory{models.GapMissingDomainContext},
		},
		{
			"example",
			"would be great to have a sample query for cohort analysis",
			[]models.GapCategory{models.GapMissingExample},
		},
		{
			"query quality",
			"the revenue rollup is slow and sometimes returns wrong results",
			[]models.GapCategory{models.GapQueryQuality},
		},
		{
			"ambiguous docs",
			"the watch time section is confusing",
			[]models.GapCategory{models.GapAmbiguousDocumentation},
		},
		{
			"multiple categories",
			"the events table is missing and the dau metric has no definition",
			[]models.GapCategory{models.GapMissingTable, models.GapMissingMetricDefinition},
		},
		{
			"residual with sql reference",
			"select from the rollup keeps erroring out for me",
			[]models.GapCategory{models.GapQueryQuality},
		},
		{
			"residual without sql reference",
			"this did not help me at all",
			[]models.GapCategory{models.GapAmbiguousDocumentation},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(models.FeedbackRecord{Body: tt.body})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_ExplicitTagsWin(t *testing.T) {
	record := models.FeedbackRecord{
		Body: "missing table for creator revenue",
		Tags: []models.GapCategory{models.GapQueryQuality, models.GapQueryQuality},
	}
	assert.Equal(t, []models.GapCategory{models.GapQueryQuality}, classify(record))
}

func TestSubjectTokens(t *testing.T) {
	subject := subjectTokens("missing table for creator revenue")
	assert.Equal(t, []string{"creator", "revenue"}, subject)

	// Nothing but trigger words leaves no subject.
	assert.Empty(t, subjectTokens("missing table"))
}

func TestContainment(t *testing.T) {
	a := tokenSet([]string{"creator", "revenue", "table"})
	b := tokenSet([]string{"creator", "revenue", "table", "missing", "badly"})
	assert.InDelta(t, 1.0, containment(a, b), 1e-9)

	c := tokenSet([]string{"watch", "minutes"})
	assert.InDelta(t, 0.0, containment(a, c), 1e-9)
	assert.Zero(t, containment(nil, a))
}

func TestNormalizeKey(t *testing.T) {
	// Same significant tokens regardless of ordering and filler words.
	assert.Equal(t,
		normalizeKey("missing table for creator revenue"),
		normalizeKey("the creator revenue table is missing"))
}
