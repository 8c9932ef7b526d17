package actiongen

import (
	"errors"
	"fmt"
	"sort"

	"github.com/codeready-toolchain/socialsim/pkg/history"
	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// ErrInvariantViolation marks generated actions that break within-turn
// uniqueness or across-turn monotonicity. The turn and the run fail.
var ErrInvariantViolation = errors.New("action invariant violation")

// ValidatedTargets are the extracted target keys, per action type, returned
// for downstream history recording.
type ValidatedTargets struct {
	LikePostIDs    []string
	CommentPostIDs []string
	FollowUserIDs  []string
}

// Validate checks the generated actions for one agent against the turn's own
// output and the run's history. It reads the history store but never mutates
// it; recording happens after validation passes.
func Validate(agentHandle string, likes []models.GeneratedLike, comments []models.GeneratedComment, follows []models.GeneratedFollow, hist history.Store) (*ValidatedTargets, error) {
	targets := &ValidatedTargets{
		LikePostIDs:    make([]string, 0, len(likes)),
		CommentPostIDs: make([]string, 0, len(comments)),
		FollowUserIDs:  make([]string, 0, len(follows)),
	}
	for _, l := range likes {
		targets.LikePostIDs = append(targets.LikePostIDs, l.PostID)
	}
	for _, c := range comments {
		targets.CommentPostIDs = append(targets.CommentPostIDs, c.PostID)
	}
	for _, f := range follows {
		targets.FollowUserIDs = append(targets.FollowUserIDs, f.UserID)
	}

	checks := []struct {
		action  models.ActionType
		targets []string
	}{
		{models.ActionTypeLike, targets.LikePostIDs},
		{models.ActionTypeComment, targets.CommentPostIDs},
		{models.ActionTypeFollow, targets.FollowUserIDs},
	}
	for _, check := range checks {
		if dups := duplicates(check.targets); len(dups) > 0 {
			return nil, fmt.Errorf("%w: agent %s produced duplicate %s targets within turn: %v",
				ErrInvariantViolation, agentHandle, check.action, dups)
		}
		if replays := replayed(check.action, agentHandle, check.targets, hist); len(replays) > 0 {
			return nil, fmt.Errorf("%w: agent %s repeated %s targets from earlier turns: %v",
				ErrInvariantViolation, agentHandle, check.action, replays)
		}
	}
	return targets, nil
}

func duplicates(targets []string) []string {
	seen := make(map[string]int, len(targets))
	for _, t := range targets {
		seen[t]++
	}
	var dups []string
	for t, n := range seen {
		if n > 1 {
			dups = append(dups, t)
		}
	}
	sort.Strings(dups)
	return dups
}

func replayed(action models.ActionType, agentHandle string, targets []string, hist history.Store) []string {
	var replays []string
	for _, t := range targets {
		if hist.Has(action, agentHandle, t) {
			replays = append(replays, t)
		}
	}
	sort.Strings(replays)
	return replays
}
