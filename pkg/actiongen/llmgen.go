package actiongen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codeready-toolchain/socialsim/pkg/llm"
	"github.com/codeready-toolchain/socialsim/pkg/models"
)

const llmSystemPrompt = `You are simulating a social media user deciding which posts to engage with.
Reply with a JSON array only, no prose. Each element:
{"target": "<id>", "text": "<comment text, comments only>", "explanation": "<one sentence>"}
Select at most the requested number of targets, only from the listed candidates.`

// LLMGenerator asks a structured-completion model to pick targets from the
// candidate list. Replies outside the candidate set are dropped, duplicates
// collapse, and output is sorted by target so downstream processing stays
// stable despite model nondeterminism.
type LLMGenerator struct {
	action    models.ActionType
	completer llm.StructuredCompleter
	logger    *slog.Logger
}

// NewLLMGenerator creates an LLM-backed generator for one action type.
func NewLLMGenerator(action models.ActionType, completer llm.StructuredCompleter, logger *slog.Logger) *LLMGenerator {
	return &LLMGenerator{
		action:    action,
		completer: completer,
		logger:    logger.With("component", "llm_generator", "action", string(action)),
	}
}

// ActionType implements Generator.
func (g *LLMGenerator) ActionType() models.ActionType {
	return g.action
}

// Generate implements Generator.
func (g *LLMGenerator) Generate(ctx context.Context, req Request) ([]models.GeneratedAction, error) {
	if len(req.Candidates) == 0 {
		return nil, nil
	}

	result, err := g.completer.Complete(ctx, llm.CompletionRequest{
		System: llmSystemPrompt,
		Prompt: g.buildPrompt(req),
	})
	if err != nil {
		return nil, fmt.Errorf("llm %s generation failed for agent %s: %w", g.action, req.Agent.Handle, err)
	}

	replies, err := parseReplies(result.Text)
	if err != nil {
		return nil, fmt.Errorf("llm %s generation returned unparseable reply for agent %s: %w",
			g.action, req.Agent.Handle, err)
	}

	valid := g.candidateTargets(req.Candidates)
	now := time.Now().UTC()

	var actions []models.GeneratedAction
	dropped := 0
	for _, reply := range replies {
		target := reply.Target
		if g.action == models.ActionTypeFollow {
			target = models.NormalizeHandle(target)
		}
		if _, ok := valid[target]; !ok {
			dropped++
			continue
		}
		a := models.GeneratedAction{
			Type:        g.action,
			Explanation: models.NormalizeExplanation(reply.Explanation),
			Generation: models.GenerationMetadata{
				ModelUsed: result.ModelUsed,
				Metadata:  result.Metadata,
				CreatedAt: now,
			},
		}
		if g.action == models.ActionTypeFollow {
			a.UserID = target
		} else {
			a.PostID = target
		}
		if g.action == models.ActionTypeComment {
			if strings.TrimSpace(reply.Text) == "" {
				dropped++
				continue
			}
			a.Text = reply.Text
		}
		actions = append(actions, a)
	}
	if dropped > 0 {
		g.logger.Warn("Dropped LLM replies outside candidate set",
			"agent_handle", req.Agent.Handle, "dropped", dropped)
	}

	actions = dedupeSortByTarget(actions)
	if req.MaxActions > 0 && len(actions) > req.MaxActions {
		actions = actions[:req.MaxActions]
	}
	return actions, nil
}

func (g *LLMGenerator) buildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s (%s).\n", req.Agent.Handle, req.Agent.DisplayName)
	if req.PersonaBio != "" {
		fmt.Fprintf(&b, "Persona: %s\n", req.PersonaBio)
	}
	fmt.Fprintf(&b, "\nDecide which of these posts to %s. Select at most %d.\n", g.action, req.MaxActions)
	if g.action == models.ActionTypeFollow {
		b.WriteString("The target id is the author handle.\n")
	} else {
		b.WriteString("The target id is the post id.\n")
	}
	b.WriteString("\nCandidates:\n")
	for _, p := range req.Candidates {
		target := p.PostID
		if g.action == models.ActionTypeFollow {
			target = models.NormalizeHandle(p.AuthorHandle)
		}
		fmt.Fprintf(&b, "- id=%s author=%s likes=%d reposts=%d replies=%d text=%q\n",
			target, p.AuthorHandle, p.LikeCount, p.RepostCount, p.ReplyCount, p.Text)
	}
	return b.String()
}

func (g *LLMGenerator) candidateTargets(candidates []models.Post) map[string]struct{} {
	valid := make(map[string]struct{}, len(candidates))
	for _, p := range candidates {
		if g.action == models.ActionTypeFollow {
			valid[models.NormalizeHandle(p.AuthorHandle)] = struct{}{}
		} else {
			valid[p.PostID] = struct{}{}
		}
	}
	return valid
}

type llmReply struct {
	Target      string `json:"target"`
	Text        string `json:"text,omitempty"`
	Explanation string `json:"explanation"`
}

// parseReplies extracts the JSON array from the model reply, tolerating
// surrounding prose and markdown code fences.
func parseReplies(text string) ([]llmReply, error) {
	trimmed := strings.TrimSpace(text)
	if start := strings.Index(trimmed, "["); start >= 0 {
		if end := strings.LastIndex(trimmed, "]"); end > start {
			trimmed = trimmed[start : end+1]
		}
	}
	var replies []llmReply
	if err := json.Unmarshal([]byte(trimmed), &replies); err != nil {
		return nil, err
	}
	return replies, nil
}
