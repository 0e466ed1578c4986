// Package livesync keeps a client's view of posts and the open comment thread consistent
// with the REST mutations the user performs and the events other clients push.
package livesync

import (
	"context"
	"errors"

	"blogify/internal/api"
	"blogify/internal/realtime"
)

var (
	// ErrStaleResponse marks a thread load whose post is no longer the desired one.
	ErrStaleResponse = errors.New("livesync: stale response")
	// ErrNotAuthenticated is returned by mutations that need a signed-in user.
	ErrNotAuthenticated = errors.New("livesync: not authenticated")
	// ErrNoThread is returned by comment actions when no thread is loaded.
	ErrNoThread = errors.New("livesync: no thread loaded")
)

// CommentAPI is the comment half of the REST boundary.
type CommentAPI interface {
	ListComments(ctx context.Context, postID string) ([]api.Comment, error)
	CreateComment(ctx context.Context, postID, content string, parentID *string) (*api.Comment, error)
	UpdateComment(ctx context.Context, commentID, content string) (*api.Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
	ToggleCommentLike(ctx context.Context, commentID string) (int, error)
}

// PostAPI is the post half of the REST boundary.
type PostAPI interface {
	ListPosts(ctx context.Context, opts api.ListPostsOptions) ([]*api.Post, error)
	ListMyPosts(ctx context.Context) ([]*api.Post, error)
	GetPost(ctx context.Context, postID string) (*api.Post, error)
	CreatePost(ctx context.Context, in api.PostInput) (*api.Post, error)
	UpdatePost(ctx context.Context, postID string, in api.PostInput) (*api.Post, error)
	DeletePost(ctx context.Context, postID string) error
	LikePost(ctx context.Context, postID string) (*api.Post, error)
	UnlikePost(ctx context.Context, postID string) (*api.Post, error)
}

// API is everything the core calls over REST. *api.Client implements it.
type API interface {
	CommentAPI
	PostAPI
}

// Transport is the push side. *realtime.Conn implements it.
type Transport interface {
	Join(postID string) error
	Leave(postID string) error
	Subscribe(kind string, h realtime.Handler) realtime.Subscription
}

// Identity reports the signed-in user. *session.Store implements it.
type Identity interface {
	UserID() string
}

var (
	_ API       = (*api.Client)(nil)
	_ Transport = (*realtime.Conn)(nil)
)
