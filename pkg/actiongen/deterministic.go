package actiongen

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// Scoring weights for the recency + social-proof ranking.
const (
	recencyWeight = 1e-9
	likeWeight    = 1.0
	repostWeight  = 0.5
	replyWeight   = 0.5
)

// score ranks a post by recency and engagement. Unix seconds are scaled down
// so engagement dominates and recency breaks near-ties.
func score(p models.Post) float64 {
	return recencyWeight*float64(p.CreatedAt.Unix()) +
		likeWeight*float64(p.LikeCount) +
		repostWeight*float64(p.RepostCount) +
		replyWeight*float64(p.ReplyCount)
}

// rankCandidates orders candidates by score descending, post_id ascending on
// ties, and returns at most limit posts.
func rankCandidates(candidates []models.Post, limit int) []models.Post {
	ranked := make([]models.Post, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := score(ranked[i]), score(ranked[j])
		if si != sj {
			return si > sj
		}
		return ranked[i].PostID < ranked[j].PostID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Deterministic selects the top-scored candidates. Output is identical for
// identical inputs.
type Deterministic struct {
	action models.ActionType
}

// NewDeterministic creates a deterministic generator for one action type.
func NewDeterministic(action models.ActionType) *Deterministic {
	return &Deterministic{action: action}
}

// ActionType implements Generator.
func (g *Deterministic) ActionType() models.ActionType {
	return g.action
}

// Generate implements Generator.
func (g *Deterministic) Generate(_ context.Context, req Request) ([]models.GeneratedAction, error) {
	if len(req.Candidates) == 0 {
		return nil, nil
	}

	ranked := rankCandidates(req.Candidates, req.MaxActions)
	now := time.Now().UTC()

	actions := make([]models.GeneratedAction, 0, len(ranked))
	for rank, post := range ranked {
		actions = append(actions, buildAction(g.action, post, now,
			fmt.Sprintf("Ranked %d of %d by recency and engagement (score %.2f).",
				rank+1, len(req.Candidates), score(post)),
			generationMetadata("deterministic", rank+1)))
	}
	return dedupeSortByTarget(actions), nil
}

// buildAction constructs the union form for a selected post. Follows target
// the post's author; comments carry a short reply text.
func buildAction(action models.ActionType, post models.Post, now time.Time, explanation string, metadata json.RawMessage) models.GeneratedAction {
	a := models.GeneratedAction{
		Type:        action,
		Explanation: explanation,
		Generation: models.GenerationMetadata{
			Metadata:  metadata,
			CreatedAt: now,
		},
	}
	switch action {
	case models.ActionTypeFollow:
		a.UserID = models.NormalizeHandle(post.AuthorHandle)
	case models.ActionTypeComment:
		a.PostID = post.PostID
		a.Text = fmt.Sprintf("Interesting point, %s.", post.AuthorHandle)
	default:
		a.PostID = post.PostID
	}
	return a
}

func generationMetadata(algorithm string, rank int) json.RawMessage {
	data, _ := json.Marshal(map[string]any{"algorithm": algorithm, "rank": rank})
	return data
}

// dedupeSortByTarget enforces the generator output contract: each target at
// most once, in stable sorted order.
func dedupeSortByTarget(actions []models.GeneratedAction) []models.GeneratedAction {
	seen := make(map[string]struct{}, len(actions))
	out := make([]models.GeneratedAction, 0, len(actions))
	for _, a := range actions {
		if _, ok := seen[a.Target()]; ok {
			continue
		}
		seen[a.Target()] = struct{}{}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Target() < out[j].Target()
	})
	return out
}
