package service

import (
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/smallbiznis/pricewatch/internal/candidate/domain"
)

const trigram = 3

func newNameMetric() *metrics.Jaccard {
	m := metrics.NewJaccard()
	m.CaseSensitive = false
	m.NgramSize = trigram
	return m
}

// normalizeName lowercases and collapses everything that is not a letter or
// digit into single spaces.
func normalizeName(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

func normalizeSize(size string) string {
	size = strings.ToLower(strings.ReplaceAll(size, ",", "."))
	return strings.Join(strings.Fields(size), "")
}

func nameSimilarity(metric *metrics.Jaccard, a, b string) float64 {
	a, b = normalizeName(a), normalizeName(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return strutil.Similarity(a, b, metric)
}

// assess returns the anomaly reasons for matching a candidate to an existing
// product. It never blocks the adoption.
func assess(metric *metrics.Jaccard, threshold float64, candidateName string, candidateSize *string, productName string, productSize *string) (float64, []domain.AnomalyReason) {
	score := nameSimilarity(metric, candidateName, productName)

	var reasons []domain.AnomalyReason
	if score < threshold {
		reasons = append(reasons, domain.AnomalyLowSimilarity)
	}
	if candidateSize != nil && productSize != nil {
		cs, ps := normalizeSize(*candidateSize), normalizeSize(*productSize)
		if cs != "" && ps != "" && cs != ps {
			reasons = append(reasons, domain.AnomalySizeMismatch)
		}
	}
	return score, reasons
}
