package clustering

import (
	"errors"
	"fmt"
	"time"

	"rfp-answer-engine/internal/entity"

	"github.com/google/uuid"
)

var (
	ErrEmptyInput        = errors.New("no questions to cluster")
	ErrDimensionMismatch = errors.New("embedding dimensions are inconsistent")
)

// Strategy selects how questions are grouped.
type Strategy string

const (
	// StrategyGreedy is single-pass online clustering in input order. Each question joins the
	// most similar existing master when the similarity meets the cluster threshold.
	StrategyGreedy Strategy = "greedy"
	// StrategyComponents builds the pairwise graph at the cluster threshold and takes connected
	// components. Order only decides which question is master.
	StrategyComponents Strategy = "components"
)

// Assignment is the per-question outcome of a clustering run.
type Assignment struct {
	QuestionId         uuid.UUID
	ClusterId          uuid.UUID
	IsMaster           bool
	MasterQuestionId   uuid.UUID
	SimilarityToMaster float64
}

type Result struct {
	Clusters    []*entity.QuestionCluster
	Assignments []Assignment
	Suggestions []entity.SimilarQuestion
}

type Engine struct {
	strategy Strategy
	now      func() time.Time
}

func NewEngine(strategy Strategy) *Engine {
	if strategy != StrategyComponents {
		strategy = StrategyGreedy
	}
	return &Engine{strategy: strategy, now: time.Now}
}

func (e *Engine) Strategy() Strategy {
	return e.strategy
}

// Cluster partitions questions into clusters of near-duplicates. The input order is significant:
// earlier questions become masters. Cluster ids are derived from the project and master ids so
// an unchanged input yields identical output.
func (e *Engine) Cluster(projectId uuid.UUID, opportunityId *uuid.UUID, questions []*entity.Question, th Thresholds) (*Result, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyInput
	}
	th, err := NewThresholds(th.Cluster, th.Similar)
	if err != nil {
		return nil, err
	}

	dim := 0
	norms := make([]float64, len(questions))
	for i, q := range questions {
		if q.HasEmbedding() {
			if dim == 0 {
				dim = len(q.Embedding)
			} else if len(q.Embedding) != dim {
				return nil, fmt.Errorf("%w: question %s has %d dimensions, expected %d", ErrDimensionMismatch, q.Id, len(q.Embedding), dim)
			}
		}
		norms[i] = norm(q.Embedding)
	}

	sim := func(i, j int) float64 {
		return cosineWithNorms(questions[i].Embedding, questions[j].Embedding, norms[i], norms[j])
	}

	var masterOf []int
	if e.strategy == StrategyComponents {
		masterOf = componentAssign(len(questions), norms, sim, th.Cluster)
	} else {
		masterOf = greedyAssign(len(questions), norms, sim, th.Cluster)
	}

	res := e.buildResult(projectId, opportunityId, questions, masterOf, sim)
	res.Suggestions = suggestions(questions, norms, masterOf, sim, th)
	return res, nil
}

func greedyAssign(n int, norms []float64, sim func(i, j int) float64, threshold float64) []int {
	masterOf := make([]int, n)
	var masters []int
	for i := 0; i < n; i++ {
		best, bestSim := -1, -1.0
		if norms[i] > 0 {
			for _, m := range masters {
				if norms[m] == 0 {
					continue
				}
				if s := sim(i, m); s > bestSim {
					best, bestSim = m, s
				}
			}
		}
		if best >= 0 && bestSim >= threshold {
			masterOf[i] = best
			continue
		}
		masterOf[i] = i
		masters = append(masters, i)
	}
	return masterOf
}

func componentAssign(n int, norms []float64, sim func(i, j int) float64, threshold float64) []int {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for i := 0; i < n; i++ {
		if norms[i] == 0 {
			continue
		}
		for j := i + 1; j < n; j++ {
			if norms[j] == 0 {
				continue
			}
			if sim(i, j) >= threshold {
				ri, rj := find(i), find(j)
				// keep the earliest index as root so it becomes the master
				if ri < rj {
					parent[rj] = ri
				} else if rj < ri {
					parent[ri] = rj
				}
			}
		}
	}
	masterOf := make([]int, n)
	for i := range masterOf {
		masterOf[i] = find(i)
	}
	return masterOf
}

func (e *Engine) buildResult(projectId uuid.UUID, opportunityId *uuid.UUID, questions []*entity.Question, masterOf []int, sim func(i, j int) float64) *Result {
	now := e.now()
	res := &Result{Assignments: make([]Assignment, len(questions))}
	byMaster := make(map[int]*entity.QuestionCluster)

	for i, q := range questions {
		m := masterOf[i]
		c, ok := byMaster[m]
		if !ok {
			master := questions[m]
			c = &entity.QuestionCluster{
				Id:                 ClusterID(projectId, master.Id),
				ProjectId:          projectId,
				OpportunityId:      opportunityId,
				MasterQuestionId:   master.Id,
				MasterQuestionText: master.Text,
				CreatedAt:          now,
			}
			byMaster[m] = c
			res.Clusters = append(res.Clusters, c)
		}

		similarity := 1.0
		if m != i {
			similarity = sim(i, m)
		}
		c.Members = append(c.Members, entity.ClusterMember{
			QuestionId:   q.Id,
			QuestionText: q.Text,
			Similarity:   similarity,
			IsMaster:     m == i,
		})
		res.Assignments[i] = Assignment{
			QuestionId:         q.Id,
			ClusterId:          c.Id,
			IsMaster:           m == i,
			MasterQuestionId:   questions[m].Id,
			SimilarityToMaster: similarity,
		}
	}

	for _, c := range res.Clusters {
		c.QuestionCount = len(c.Members)
		var sum float64
		for _, m := range c.Members {
			if !m.IsMaster {
				sum += m.Similarity
			}
		}
		if c.QuestionCount > 1 {
			c.AvgSimilarity = sum / float64(c.QuestionCount-1)
		}
	}
	return res
}

func suggestions(questions []*entity.Question, norms []float64, masterOf []int, sim func(i, j int) float64, th Thresholds) []entity.SimilarQuestion {
	if th.Similar >= th.Cluster {
		return nil
	}
	var out []entity.SimilarQuestion
	for i := 0; i < len(questions); i++ {
		if norms[i] == 0 {
			continue
		}
		for j := i + 1; j < len(questions); j++ {
			if norms[j] == 0 || masterOf[i] == masterOf[j] {
				continue
			}
			s := sim(i, j)
			if s >= th.Similar && s < th.Cluster {
				out = append(out, entity.SimilarQuestion{
					QuestionId:        questions[i].Id,
					QuestionText:      questions[i].Text,
					SimilarQuestionId: questions[j].Id,
					SimilarText:       questions[j].Text,
					Similarity:        s,
				})
			}
		}
	}
	return out
}

// ClusterID derives a stable cluster id from the project and its master question.
func ClusterID(projectId, masterQuestionId uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(projectId, masterQuestionId[:])
}
