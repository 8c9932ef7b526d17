package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/socialsim/pkg/models"
	"github.com/codeready-toolchain/socialsim/test/util"
)

func insertPost(t *testing.T, repo *Posts, uri string, createdAt time.Time) models.Post {
	t.Helper()
	post, err := repo.CreatePost(context.Background(), models.Post{
		Source:       models.PostSourceBluesky,
		URI:          uri,
		AuthorHandle: "@author",
		Text:         "text for " + uri,
		LikeCount:    3,
		CreatedAt:    createdAt,
	})
	require.NoError(t, err)
	return *post
}

func TestPostsCreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewPosts(util.SetupTestDatabase(t).DB())
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	created := insertPost(t, repo, "at://a/1", base)
	assert.Equal(t, "bluesky:at://a/1", created.PostID)

	insertPost(t, repo, "at://a/2", base.Add(time.Hour))
	insertPost(t, repo, "at://a/3", base.Add(2*time.Hour))

	posts, err := repo.ListAllFeedPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	// Newest first.
	assert.Equal(t, "bluesky:at://a/3", posts[0].PostID)
	assert.Equal(t, "bluesky:at://a/1", posts[2].PostID)
	assert.Equal(t, "@author", posts[0].AuthorHandle)
	assert.Equal(t, 3, posts[0].LikeCount)
}

func TestPostsReadByIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewPosts(util.SetupTestDatabase(t).DB())
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 5; i++ {
		post := insertPost(t, repo, fmt.Sprintf("at://b/%d", i), base.Add(time.Duration(i)*time.Minute))
		ids = append(ids, post.PostID)
	}

	t.Run("preserves request order", func(t *testing.T) {
		request := []string{ids[3], ids[0], ids[4]}
		posts, err := repo.ReadFeedPostsByIDs(ctx, request)
		require.NoError(t, err)
		require.Len(t, posts, 3)
		for i, p := range posts {
			assert.Equal(t, request[i], p.PostID)
		}
	})

	t.Run("missing ids are omitted", func(t *testing.T) {
		posts, err := repo.ReadFeedPostsByIDs(ctx, []string{ids[1], "bluesky:gone", ids[2]})
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, ids[1], posts[0].PostID)
		assert.Equal(t, ids[2], posts[1].PostID)
	})

	t.Run("empty request reads nothing", func(t *testing.T) {
		posts, err := repo.ReadFeedPostsByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, posts)
	})
}
