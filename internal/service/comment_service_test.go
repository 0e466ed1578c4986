package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"blogify/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func commentWith(id, postID, userID string) *models.Comment {
	c := &models.Comment{PostID: postID, UserID: userID, Content: "hello"}
	c.ID = id
	return c
}

func TestCommentService_CreateComment_Validation(t *testing.T) {
	t.Parallel()

	svc := NewCommentService(noopCommentRepo(), noopPostRepo())
	ctx := context.Background()

	t.Run("empty content", func(t *testing.T) {
		t.Parallel()
		_, err := svc.CreateComment(ctx, CreateCommentInput{UserID: "u1", PostID: "p1", Content: "   "})
		assertValidationError(t, err)
	})

	t.Run("content too long", func(t *testing.T) {
		t.Parallel()
		_, err := svc.CreateComment(ctx, CreateCommentInput{
			UserID:  "u1",
			PostID:  "p1",
			Content: strings.Repeat("x", 2001),
		})
		assertValidationError(t, err)
	})

	t.Run("post not found", func(t *testing.T) {
		t.Parallel()
		postRepo := noopPostRepo()
		postRepo.getByIDFn = func(_ context.Context, _ string) (*models.Post, error) {
			return nil, gorm.ErrRecordNotFound
		}
		svc2 := NewCommentService(noopCommentRepo(), postRepo)
		_, err := svc2.CreateComment(ctx, CreateCommentInput{UserID: "u1", PostID: "p99", Content: "hi"})
		assertNotFoundError(t, err)
	})

	t.Run("repo failure is internal and wrapped", func(t *testing.T) {
		t.Parallel()
		repoErr := errors.New("connection reset")
		postRepo := noopPostRepo()
		postRepo.getByIDFn = func(_ context.Context, _ string) (*models.Post, error) {
			return nil, repoErr
		}
		svc2 := NewCommentService(noopCommentRepo(), postRepo)
		_, err := svc2.CreateComment(ctx, CreateCommentInput{UserID: "u1", PostID: "p1", Content: "hi"})
		assert.ErrorIs(t, err, repoErr)
		assertAppErrorCode(t, err, "INTERNAL_ERROR")
	})

	t.Run("parent on another post", func(t *testing.T) {
		t.Parallel()
		commentRepo := noopCommentRepo()
		commentRepo.getByIDFn = func(_ context.Context, id string) (*models.Comment, error) {
			return commentWith(id, "other-post", "u2"), nil
		}
		svc2 := NewCommentService(commentRepo, noopPostRepo())
		parent := "c1"
		_, err := svc2.CreateComment(ctx, CreateCommentInput{UserID: "u1", PostID: "p1", ParentID: &parent, Content: "reply"})
		assertValidationError(t, err)
	})
}

func TestCommentService_CreateComment_Success(t *testing.T) {
	t.Parallel()

	commentRepo := noopCommentRepo()
	var created *models.Comment
	commentRepo.createFn = func(_ context.Context, c *models.Comment) error {
		c.ID = "c42"
		created = c
		return nil
	}
	commentRepo.getByIDFn = func(_ context.Context, id string) (*models.Comment, error) {
		if id == "parent" {
			return commentWith(id, "p1", "u2"), nil
		}
		return created, nil
	}

	svc := NewCommentService(commentRepo, noopPostRepo())
	parent := "parent"
	comment, err := svc.CreateComment(context.Background(), CreateCommentInput{
		UserID:   "u1",
		PostID:   "p1",
		ParentID: &parent,
		Content:  "  hello  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "c42", comment.ID)
	assert.Equal(t, "hello", comment.Content)
	require.NotNil(t, comment.ParentID)
	assert.Equal(t, "parent", *comment.ParentID)
}

func TestCommentService_UpdateComment_Ownership(t *testing.T) {
	t.Parallel()

	t.Run("non-owner cannot update", func(t *testing.T) {
		t.Parallel()
		commentRepo := noopCommentRepo()
		commentRepo.getByIDFn = func(_ context.Context, id string) (*models.Comment, error) {
			return commentWith(id, "p1", "u10"), nil
		}
		svc := NewCommentService(commentRepo, noopPostRepo())
		_, err := svc.UpdateComment(context.Background(), UpdateCommentInput{UserID: "u1", CommentID: "c1", Content: "new"})
		assertForbiddenError(t, err)
	})

	t.Run("owner can update", func(t *testing.T) {
		t.Parallel()
		commentRepo := noopCommentRepo()
		commentRepo.getByIDFn = func(_ context.Context, id string) (*models.Comment, error) {
			return commentWith(id, "p1", "u1"), nil
		}
		svc := NewCommentService(commentRepo, noopPostRepo())
		comment, err := svc.UpdateComment(context.Background(), UpdateCommentInput{UserID: "u1", CommentID: "c1", Content: "edited"})
		require.NoError(t, err)
		assert.Equal(t, "edited", comment.Content)
	})
}

func TestCommentService_DeleteComment(t *testing.T) {
	t.Parallel()

	commentRepo := noopCommentRepo()
	commentRepo.getByIDFn = func(_ context.Context, id string) (*models.Comment, error) {
		return commentWith(id, "p1", "u1"), nil
	}
	deleted := ""
	commentRepo.deleteFn = func(_ context.Context, id string) error {
		deleted = id
		return nil
	}
	svc := NewCommentService(commentRepo, noopPostRepo())

	_, err := svc.DeleteComment(context.Background(), DeleteCommentInput{UserID: "u2", CommentID: "c1"})
	assertForbiddenError(t, err)
	assert.Empty(t, deleted)

	comment, err := svc.DeleteComment(context.Background(), DeleteCommentInput{UserID: "u1", CommentID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "p1", comment.PostID)
	assert.Equal(t, "c1", deleted)
}

func TestCommentService_ToggleLike(t *testing.T) {
	t.Parallel()

	commentRepo := noopCommentRepo()
	commentRepo.getByIDFn = func(_ context.Context, id string) (*models.Comment, error) {
		return commentWith(id, "p1", "u1"), nil
	}
	commentRepo.toggleLikeFn = func(_ context.Context, userID, commentID string) (int64, error) {
		assert.Equal(t, "u2", userID)
		assert.Equal(t, "c1", commentID)
		return 3, nil
	}
	svc := NewCommentService(commentRepo, noopPostRepo())

	comment, count, err := svc.ToggleLike(context.Background(), "c1", "u2")
	require.NoError(t, err)
	assert.Equal(t, "p1", comment.PostID)
	assert.Equal(t, int64(3), count)
}

func TestCommentService_ListComments(t *testing.T) {
	t.Parallel()

	commentRepo := noopCommentRepo()
	commentRepo.listByPostFn = func(_ context.Context, postID string) ([]*models.Comment, error) {
		return []*models.Comment{commentWith("c2", postID, "u1"), commentWith("c1", postID, "u1")}, nil
	}
	svc := NewCommentService(commentRepo, noopPostRepo())

	comments, err := svc.ListComments(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "c2", comments[0].ID)
}
