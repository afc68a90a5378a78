package answer

import (
	"math"
	"time"

	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/pkg/vectorindex"
)

// Factor weights in percent. They sum to 100.
const (
	WeightContextRelevance = 40
	WeightSourceRecency    = 25
	WeightAnswerCoverage   = 20
	WeightSourceAuthority  = 10
	WeightConsistency      = 5
)

const (
	HighConfidence   = 0.90
	MediumConfidence = 0.70
)

const (
	relevanceTopN      = 3
	coverageMinOverlap = 0.5
	supportMinOverlap  = 0.15
)

var authorityScores = map[string]float64{
	entity.AuthorityOfficial:   100,
	entity.AuthorityApproved:   80,
	entity.AuthorityReference:  60,
	entity.AuthorityUnverified: 30,
}

// Scorer computes the five-factor confidence breakdown for a generated answer.
type Scorer struct {
	now func() time.Time
}

func NewScorer() *Scorer {
	return &Scorer{now: time.Now}
}

func (s *Scorer) Score(question string, out ModelOutput, passages []vectorindex.Match) entity.ConfidenceBreakdown {
	return entity.ConfidenceBreakdown{
		ContextRelevance: contextRelevance(passages),
		SourceRecency:    s.sourceRecency(passages),
		AnswerCoverage:   answerCoverage(question, out),
		SourceAuthority:  sourceAuthority(passages),
		Consistency:      consistency(out.Text, passages),
	}
}

// Overall combines the breakdown into a 0..1 score.
func Overall(b entity.ConfidenceBreakdown) float64 {
	sum := WeightContextRelevance*clamp100(b.ContextRelevance) +
		WeightSourceRecency*clamp100(b.SourceRecency) +
		WeightAnswerCoverage*clamp100(b.AnswerCoverage) +
		WeightSourceAuthority*clamp100(b.SourceAuthority) +
		WeightConsistency*clamp100(b.Consistency)
	return sum / 10000
}

func Band(confidence float64) string {
	switch {
	case confidence >= HighConfidence:
		return entity.ConfidenceBandHigh
	case confidence >= MediumConfidence:
		return entity.ConfidenceBandMedium
	default:
		return entity.ConfidenceBandLow
	}
}

func contextRelevance(passages []vectorindex.Match) float64 {
	if len(passages) == 0 {
		return 0
	}
	n := relevanceTopN
	if len(passages) < n {
		n = len(passages)
	}
	var sum float64
	for _, p := range passages[:n] {
		sum += math.Max(0, math.Min(1, p.Score))
	}
	return sum / float64(n) * 100
}

func (s *Scorer) sourceRecency(passages []vectorindex.Match) float64 {
	if len(passages) == 0 {
		return 0
	}
	now := s.now()
	var sum float64
	for _, p := range passages {
		if p.Metadata.SourceUpdatedAt == nil {
			sum += 50
			continue
		}
		age := now.Sub(*p.Metadata.SourceUpdatedAt)
		switch {
		case age <= 180*24*time.Hour:
			sum += 100
		case age <= 365*24*time.Hour:
			sum += 80
		case age <= 730*24*time.Hour:
			sum += 60
		default:
			sum += 30
		}
	}
	return sum / float64(len(passages))
}

func answerCoverage(question string, out ModelOutput) float64 {
	if out.Insufficient {
		return 0
	}
	answerTerms := termSet(out.Text)
	parts := splitSubQuestions(question)
	covered := 0
	for _, part := range parts {
		if overlap(termSet(part), answerTerms) >= coverageMinOverlap {
			covered++
		}
	}
	coverage := float64(covered) / float64(len(parts)) * 100
	if out.ReportedConfidence != nil {
		coverage = (coverage + clamp100(*out.ReportedConfidence)) / 2
	}
	return coverage
}

func sourceAuthority(passages []vectorindex.Match) float64 {
	if len(passages) == 0 {
		return 0
	}
	var sum float64
	for _, p := range passages {
		score, ok := authorityScores[p.Metadata.Authority]
		if !ok {
			score = 50
		}
		sum += score
	}
	return sum / float64(len(passages))
}

// consistency measures how many retrieved sources support the answer.
func consistency(answerText string, passages []vectorindex.Match) float64 {
	answerTerms := termSet(answerText)
	if len(passages) == 0 || len(answerTerms) == 0 {
		return 0
	}
	supporting := 0
	for _, p := range passages {
		if overlap(answerTerms, termSet(p.Metadata.Content)) >= supportMinOverlap {
			supporting++
		}
	}
	if len(passages) == 1 {
		if supporting == 1 {
			return 50
		}
		return 0
	}
	return float64(supporting) / float64(len(passages)) * 100
}

func clamp100(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
