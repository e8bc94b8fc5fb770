package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/blogapi/models"
)

func TestLikeLifecycle(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	alice := f.user(t, "alice", models.RoleAuthor)
	bob := f.user(t, "bob", models.RoleReader)
	p := f.post(t, alice, "Likeable", f.published)

	requireKind(t, f.svc.UnlikePost(ctx, bob, p.ID), KindNotFound)

	_, err := f.svc.LikePost(ctx, bob, p.ID)
	require.NoError(t, err)
	_, err = f.svc.LikePost(ctx, bob, p.ID)
	requireKind(t, err, KindConflict)

	n, err := f.svc.PostLikesCount(ctx, nil, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	withLike, err := f.svc.GetPostWithLikeStatus(ctx, bob, p.ID)
	require.NoError(t, err)
	assert.True(t, withLike.IsLiked)
	assert.EqualValues(t, 1, withLike.LikesCount)

	withLike, err = f.svc.GetPostWithLikeStatus(ctx, nil, p.ID)
	require.NoError(t, err)
	assert.False(t, withLike.IsLiked)

	require.NoError(t, f.svc.UnlikePost(ctx, bob, p.ID))
	requireKind(t, f.svc.UnlikePost(ctx, bob, p.ID), KindNotFound)

	_, err = f.svc.LikePost(ctx, bob, p.ID)
	require.NoError(t, err, "like after unlike leaves no residue")

	n, err = f.svc.PostLikesCount(ctx, nil, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestUnlikeAfterPostReturnsToDraft(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	alice := f.user(t, "alice", models.RoleAuthor)
	bob := f.user(t, "bob", models.RoleReader)
	p := f.post(t, alice, "Briefly public", f.published)

	_, err := f.svc.LikePost(ctx, bob, p.ID)
	require.NoError(t, err)

	draft := f.draft
	_, err = f.svc.UpdatePost(ctx, alice, p.ID, UpdatePostInput{StatusID: &draft})
	require.NoError(t, err)

	_, err = f.svc.LikePost(ctx, bob, p.ID)
	requireKind(t, err, KindNotFound)

	require.NoError(t, f.svc.UnlikePost(ctx, bob, p.ID))
	assert.Zero(t, count(t, f.db, &models.Like{}, "post_id = ?", p.ID))
	requireKind(t, f.svc.UnlikePost(ctx, bob, p.ID), KindNotFound)
	requireKind(t, f.svc.UnlikePost(ctx, bob, 4242), KindNotFound)
}

func TestLikeMissingPost(t *testing.T) {
	f := setupService(t)
	bob := f.user(t, "bob", models.RoleReader)

	_, err := f.svc.LikePost(context.Background(), bob, 4242)
	requireKind(t, err, KindNotFound)
	_, err = f.svc.LikePost(context.Background(), nil, 4242)
	requireKind(t, err, KindUnauthenticated)
}

func TestLikesCountIsComputed(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	alice := f.user(t, "alice", models.RoleAuthor)
	p := f.post(t, alice, "Popular", f.published)

	for _, name := range []string{"bob", "carol", "dave"} {
		u := f.user(t, name, models.RoleReader)
		_, err := f.svc.LikePost(ctx, u, p.ID)
		require.NoError(t, err)
	}

	got, err := f.svc.GetPost(ctx, nil, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.LikesCount)

	stats, err := f.svc.PostStats(ctx, nil, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.LikesCount)
	assert.Zero(t, stats.CommentsCount)
}
