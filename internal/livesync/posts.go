package livesync

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"blogify/internal/api"
)

// PostCoordinator owns every post the client knows about in one table keyed by ID.
// The feed, mine and active views are ID references into that table.
type PostCoordinator struct {
	api      PostAPI
	identity Identity
	log      *slog.Logger

	mu     sync.RWMutex
	posts  map[string]*api.Post
	feed   []string
	mine   []string
	active string
}

// NewPostCoordinator creates an empty coordinator.
func NewPostCoordinator(client PostAPI, identity Identity, log *slog.Logger) *PostCoordinator {
	if log == nil {
		log = slog.Default()
	}
	return &PostCoordinator{
		api:      client,
		identity: identity,
		log:      log,
		posts:    make(map[string]*api.Post),
	}
}

// postTx is a staged change set. Nothing is visible until commit.
type postTx struct {
	c       *PostCoordinator
	posts   map[string]*api.Post
	removed map[string]struct{}
	feed    []string
	mine    []string
	active  string
}

// begin stages copies of the views. Callers hold c.mu.
func (c *PostCoordinator) begin() *postTx {
	return &postTx{
		c:       c,
		posts:   make(map[string]*api.Post),
		removed: make(map[string]struct{}),
		feed:    slices.Clone(c.feed),
		mine:    slices.Clone(c.mine),
		active:  c.active,
	}
}

// entry returns the staged version of id, cloning it from the table on first use.
func (tx *postTx) entry(id string) *api.Post {
	if p, ok := tx.posts[id]; ok {
		return p
	}
	if _, gone := tx.removed[id]; gone {
		return nil
	}
	p := tx.c.posts[id].Clone()
	if p != nil {
		tx.posts[id] = p
	}
	return p
}

func (tx *postTx) put(p *api.Post) {
	staged := p.Clone()
	staged.Likes = uniqueIDs(staged.Likes)
	tx.posts[p.ID] = staged
	delete(tx.removed, p.ID)
}

func (tx *postTx) remove(id string) {
	delete(tx.posts, id)
	tx.removed[id] = struct{}{}
	tx.feed = without(tx.feed, id)
	tx.mine = without(tx.mine, id)
	if tx.active == id {
		tx.active = ""
	}
}

// commit swaps the staged entries and views in and drops entries no view references.
// Callers hold c.mu.
func (tx *postTx) commit() {
	c := tx.c
	for id := range tx.removed {
		delete(c.posts, id)
	}
	for id, p := range tx.posts {
		c.posts[id] = p
	}
	c.feed, c.mine, c.active = tx.feed, tx.mine, tx.active

	for id := range c.posts {
		if id != c.active && !slices.Contains(c.feed, id) && !slices.Contains(c.mine, id) {
			delete(c.posts, id)
		}
	}
}

func (c *PostCoordinator) userID() string {
	if c.identity == nil {
		return ""
	}
	return c.identity.UserID()
}

func (c *PostCoordinator) requireUser() (string, error) {
	id := c.userID()
	if id == "" {
		return "", ErrNotAuthenticated
	}
	return id, nil
}

// HasLiked reports whether the signed-in user likes postID.
func (c *PostCoordinator) HasLiked(postID string) bool {
	uid := c.userID()
	c.mu.RLock()
	defer c.mu.RUnlock()
	p := c.posts[postID]
	return p != nil && p.LikedBy(uid)
}

// IsAuthor reports whether the signed-in user wrote postID.
func (c *PostCoordinator) IsAuthor(postID string) bool {
	uid := c.userID()
	c.mu.RLock()
	defer c.mu.RUnlock()
	p := c.posts[postID]
	return p != nil && uid != "" && p.Author.ID == uid
}

// ToggleLike likes or unlikes postID depending on the current membership.
func (c *PostCoordinator) ToggleLike(ctx context.Context, postID string) (*api.Post, error) {
	uid, err := c.requireUser()
	if err != nil {
		return nil, err
	}
	liked := c.HasLiked(postID)

	var resp *api.Post
	if liked {
		resp, err = c.api.UnlikePost(ctx, postID)
	} else {
		resp, err = c.api.LikePost(ctx, postID)
	}
	if err != nil {
		return nil, fmt.Errorf("toggle like: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	tx := c.begin()
	staged := tx.entry(postID)
	if resp != nil && resp.ID == postID {
		tx.put(resp)
		staged = tx.entry(postID)
	}
	if staged == nil {
		// Not in any view; nothing to update.
		return resp, nil
	}
	staged.Likes = setMembership(staged.Likes, uid, !liked)
	tx.commit()
	return staged.Clone(), nil
}

// Create publishes a new post and makes it the active one at the head of the feed and mine views.
func (c *PostCoordinator) Create(ctx context.Context, in api.PostInput) (*api.Post, error) {
	if _, err := c.requireUser(); err != nil {
		return nil, err
	}
	post, err := c.api.CreatePost(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	tx := c.begin()
	tx.put(post)
	tx.feed = prepend(tx.feed, post.ID)
	tx.mine = prepend(tx.mine, post.ID)
	tx.active = post.ID
	tx.commit()
	return post.Clone(), nil
}

// Update replaces postID in place.
func (c *PostCoordinator) Update(ctx context.Context, postID string, in api.PostInput) (*api.Post, error) {
	if _, err := c.requireUser(); err != nil {
		return nil, err
	}
	post, err := c.api.UpdatePost(ctx, postID, in)
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	tx := c.begin()
	tx.put(post)
	tx.commit()
	return post.Clone(), nil
}

// Delete removes postID from the table and every view.
func (c *PostCoordinator) Delete(ctx context.Context, postID string) error {
	if _, err := c.requireUser(); err != nil {
		return err
	}
	if err := c.api.DeletePost(ctx, postID); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	tx := c.begin()
	tx.remove(postID)
	tx.commit()
	return nil
}

// FetchFeed loads the public feed and replaces the feed view.
func (c *PostCoordinator) FetchFeed(ctx context.Context, opts api.ListPostsOptions) ([]*api.Post, error) {
	posts, err := c.api.ListPosts(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	c.mu.Lock()
	tx := c.begin()
	tx.feed = tx.feed[:0]
	for _, p := range posts {
		tx.put(p)
		tx.feed = appendUnique(tx.feed, p.ID)
	}
	tx.commit()
	c.mu.Unlock()
	return c.Feed(), nil
}

// FetchMine loads the signed-in user's posts and replaces the mine view.
func (c *PostCoordinator) FetchMine(ctx context.Context) ([]*api.Post, error) {
	if _, err := c.requireUser(); err != nil {
		return nil, err
	}
	posts, err := c.api.ListMyPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch my posts: %w", err)
	}

	c.mu.Lock()
	tx := c.begin()
	tx.mine = tx.mine[:0]
	for _, p := range posts {
		tx.put(p)
		tx.mine = appendUnique(tx.mine, p.ID)
	}
	tx.commit()
	c.mu.Unlock()
	return c.Mine(), nil
}

// Open makes postID active, fetching it unless it already is.
func (c *PostCoordinator) Open(ctx context.Context, postID string) (*api.Post, error) {
	c.mu.RLock()
	if c.active == postID {
		if p := c.posts[postID]; p != nil {
			c.mu.RUnlock()
			return p.Clone(), nil
		}
	}
	c.mu.RUnlock()

	post, err := c.api.GetPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("open post: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	tx := c.begin()
	tx.put(post)
	tx.active = post.ID
	tx.commit()
	return post.Clone(), nil
}

// Feed returns the feed view in order.
func (c *PostCoordinator) Feed() []*api.Post {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolve(c.feed)
}

// Mine returns the signed-in user's posts: authored feed entries in feed order, then
// entries only known from the mine listing.
func (c *PostCoordinator) Mine() []*api.Post {
	uid := c.userID()
	if uid == "" {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.mine))
	for _, id := range c.feed {
		if p := c.posts[id]; p != nil && p.Author.ID == uid {
			ids = append(ids, id)
		}
	}
	for _, id := range c.mine {
		if p := c.posts[id]; p != nil && p.Author.ID == uid {
			ids = appendUnique(ids, id)
		}
	}
	return c.resolve(ids)
}

// Active returns the open post, or nil.
func (c *PostCoordinator) Active() *api.Post {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.posts[c.active].Clone()
}

// Get returns the table entry for postID, or nil.
func (c *PostCoordinator) Get(postID string) *api.Post {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.posts[postID].Clone()
}

func (c *PostCoordinator) resolve(ids []string) []*api.Post {
	out := make([]*api.Post, 0, len(ids))
	for _, id := range ids {
		if p := c.posts[id]; p != nil {
			out = append(out, p.Clone())
		}
	}
	return out
}

func setMembership(ids []string, id string, member bool) []string {
	ids = without(uniqueIDs(ids), id)
	if member {
		ids = append(ids, id)
	}
	return ids
}

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = appendUnique(out, id)
	}
	return out
}

func appendUnique(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func prepend(ids []string, id string) []string {
	return append([]string{id}, without(ids, id)...)
}

func without(ids []string, id string) []string {
	return slices.DeleteFunc(slices.Clone(ids), func(v string) bool { return v == id })
}
