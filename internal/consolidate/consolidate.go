package consolidate

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/querysage/querysage/pkg/models"
)

// severityWeights rank gap categories by how badly they block warehouse
// users. Missing structure outranks unclear prose.
var severityWeights = map[models.GapCategory]int{
	models.GapMissingTable:            5,
	models.GapMissingMetricDefinition: 5,
	models.GapMissingDomainContext:    3,
	models.GapMissingExample:          2,
	models.GapQueryQuality:            2,
	models.GapAmbiguousDocumentation:  1,
	models.GapDiscoverability:         1,
}

// downgradeDoc maps each missing-* category to the knowledge document that
// would already contain the requested content.
var downgradeDoc = map[models.GapCategory]models.Category{
	models.GapMissingTable:            models.CategoryCatalog,
	models.GapMissingMetricDefinition: models.CategoryMetrics,
	models.GapMissingDomainContext:    models.CategoryDomain,
	models.GapMissingExample:          models.CategoryExamples,
}

const downgradePrefix = "Content exists but was not found: "

// observation is one record's contribution to one category, before merging.
type observation struct {
	category models.GapCategory
	record   models.FeedbackRecord
}

// Consolidate turns raw feedback records into deduplicated, prioritized
// action items. docs is the current knowledge corpus, used to downgrade
// "missing X" reports whose X is already documented. The result is never
// nil and the function never fails; bad records simply contribute nothing.
func Consolidate(records []models.FeedbackRecord, docs map[models.Category]models.KnowledgeDocument) []models.ActionItem {
	sorted := make([]models.FeedbackRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].SubmittedAt.Before(sorted[j].SubmittedAt)
	})

	var observations []observation
	for _, record := range sorted {
		if strings.TrimSpace(record.Body) == "" {
			continue
		}
		for _, category := range classify(record) {
			observations = append(observations, observation{category: category, record: record})
		}
	}

	items := mergeObservations(observations)
	items = applyDowngrades(items, docs)

	for i := range items {
		items[i].ID = uuid.New()
		items[i].Priority = len(items[i].Supporting) * severityWeights[items[i].Category]
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		if !items[i].FirstReportedAt.Equal(items[j].FirstReportedAt) {
			return items[i].FirstReportedAt.Before(items[j].FirstReportedAt)
		}
		return items[i].NormalizedKey < items[j].NormalizedKey
	})

	if items == nil {
		items = []models.ActionItem{}
	}
	return items
}

// mergeObservations greedily folds each observation into the first existing
// item of the same category whose token set it sufficiently overlaps.
// Observations arrive in timestamp order, so the earliest phrasing of a
// request becomes the item's description.
func mergeObservations(observations []observation) []models.ActionItem {
	var items []models.ActionItem
	tokenSets := make(map[int]map[string]bool)

	for _, obs := range observations {
		obsTokens := tokenSet(tokenize(obs.record.Body))

		merged := false
		for i := range items {
			if items[i].Category != obs.category {
				continue
			}
			if containment(tokenSets[i], obsTokens) < mergeThreshold {
				continue
			}
			items[i].Supporting = appendUnique(items[i].Supporting, obs.record.ID)
			for tok := range obsTokens {
				tokenSets[i][tok] = true
			}
			merged = true
			break
		}
		if merged {
			continue
		}

		items = append(items, models.ActionItem{
			Category:        obs.category,
			Description:     obs.record.Body,
			NormalizedKey:   normalizeKey(obs.record.Body),
			Supporting:      []string{obs.record.ID},
			FirstReportedAt: obs.record.SubmittedAt,
		})
		tokenSets[len(items)-1] = obsTokens
	}

	return items
}

// applyDowngrades rewrites missing-* items whose subject already appears in
// the relevant knowledge document, then re-merges since downgraded items
// may now duplicate existing discoverability items.
func applyDowngrades(items []models.ActionItem, docs map[models.Category]models.KnowledgeDocument) []models.ActionItem {
	downgraded := false
	for i := range items {
		docCategory, ok := downgradeDoc[items[i].Category]
		if !ok {
			continue
		}
		doc, ok := docs[docCategory]
		if !ok {
			continue
		}

		subject := subjectTokens(items[i].Description)
		if len(subject) == 0 || !documentCovers(doc.Content, subject) {
			continue
		}

		items[i].Category = models.GapDiscoverability
		items[i].Description = downgradePrefix + items[i].Description
		downgraded = true
	}

	if !downgraded {
		return items
	}
	return remerge(items)
}

// documentCovers reports whether every subject token appears somewhere in
// the document content.
func documentCovers(content string, subject []string) bool {
	lower := strings.ToLower(content)
	for _, tok := range subject {
		if !strings.Contains(lower, tok) {
			return false
		}
	}
	return true
}

// remerge collapses items that ended up in the same category with
// sufficiently overlapping keys after a downgrade.
func remerge(items []models.ActionItem) []models.ActionItem {
	var out []models.ActionItem
	tokenSets := make(map[int]map[string]bool)

	for _, item := range items {
		itemTokens := tokenSet(strings.Fields(item.NormalizedKey))

		merged := false
		for i := range out {
			if out[i].Category != item.Category {
				continue
			}
			if containment(tokenSets[i], itemTokens) < mergeThreshold {
				continue
			}
			for _, id := range item.Supporting {
				out[i].Supporting = appendUnique(out[i].Supporting, id)
			}
			if item.FirstReportedAt.Before(out[i].FirstReportedAt) {
				out[i].FirstReportedAt = item.FirstReportedAt
			}
			for tok := range itemTokens {
				tokenSets[i][tok] = true
			}
			merged = true
			break
		}
		if merged {
			continue
		}

		tokenSets[len(out)] = itemTokens
		out = append(out, item)
	}

	return out
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
