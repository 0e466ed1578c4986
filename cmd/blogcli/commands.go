package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"blogify/internal/api"
	"blogify/internal/app"
	"blogify/internal/livesync"
)

type cli struct {
	client *app.Client
	out    io.Writer
}

func (c *cli) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

// parseArgs parses flags that may appear before, between or after positional arguments.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func wantArgs(args []string, n int) error {
	if len(args) != n {
		return errUsage
	}
	return nil
}

// account

func (c *cli) signup(ctx context.Context, args []string) error {
	if err := wantArgs(args, 3); err != nil {
		return err
	}
	id, err := c.client.Auth.Signup(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}
	c.printf("Signed up as %s <%s>\n", id.Name, id.Email)
	return nil
}

func (c *cli) login(ctx context.Context, args []string) error {
	if err := wantArgs(args, 2); err != nil {
		return err
	}
	id, err := c.client.Auth.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	c.printf("Logged in as %s <%s>\n", id.Name, id.Email)
	return nil
}

func (c *cli) logout(ctx context.Context) error {
	if err := c.client.Auth.Logout(ctx); err != nil {
		return err
	}
	c.printf("Logged out\n")
	return nil
}

func (c *cli) whoami() error {
	id := c.client.Session.Current()
	if id == nil {
		c.printf("Not signed in\n")
		return nil
	}
	c.printf("%s <%s> (%s)\n", id.Name, id.Email, id.UserID)
	return nil
}

func (c *cli) profile(ctx context.Context, args []string) error {
	fs := newFlagSet("profile")
	name := fs.String("name", "", "display name")
	password := fs.String("password", "", "new password")
	avatar := fs.String("avatar", "", "avatar image file")
	if _, err := parseArgs(fs, args); err != nil {
		return errUsage
	}

	var upd api.ProfileUpdate
	if *name != "" {
		upd.Name = name
	}
	if *password != "" {
		upd.Password = password
	}
	if *avatar != "" {
		f, err := readFile(*avatar)
		if err != nil {
			return err
		}
		upd.Avatar = f
	}
	if upd.Name == nil && upd.Password == nil && upd.Avatar == nil {
		return errUsage
	}

	id, err := c.client.Auth.UpdateProfile(ctx, upd)
	if err != nil {
		return err
	}
	c.printf("Profile updated: %s <%s>\n", id.Name, id.Email)
	return nil
}

func (c *cli) stats(ctx context.Context) error {
	stats, err := c.client.Auth.Stats(ctx)
	if err != nil {
		return err
	}
	c.printf("posts: %d\nlikes received: %d\ncomments received: %d\n", stats.PostCount, stats.LikeCount, stats.CommentCount)
	return nil
}

func (c *cli) features(ctx context.Context) error {
	flags, err := c.client.API.Features(ctx)
	if err != nil {
		return err
	}
	names := slices.Sorted(maps.Keys(flags))
	for _, name := range names {
		state := "off"
		if flags[name] {
			state = "on"
		}
		c.printf("%s\t%s\n", name, state)
	}
	return nil
}

// posts

func (c *cli) posts(ctx context.Context, args []string) error {
	fs := newFlagSet("posts")
	category := fs.String("category", "", "filter by category")
	limit := fs.Int("limit", 20, "number of posts")
	if _, err := parseArgs(fs, args); err != nil {
		return errUsage
	}

	posts, err := c.client.Posts.FetchFeed(ctx, api.ListPostsOptions{Category: *category, Limit: *limit})
	if err != nil {
		return err
	}
	c.printPosts(posts)
	return nil
}

func (c *cli) mine(ctx context.Context) error {
	posts, err := c.client.Posts.FetchMine(ctx)
	if err != nil {
		return err
	}
	c.printPosts(posts)
	return nil
}

func (c *cli) printPosts(posts []*api.Post) {
	if len(posts) == 0 {
		c.printf("No posts\n")
		return
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tAUTHOR\tLIKES\tCREATED")
	for _, p := range posts {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			p.ID, p.Title, p.Category, p.Author.Name, len(p.Likes), p.CreatedAt.Format(time.DateOnly))
	}
	_ = tw.Flush()
}

func (c *cli) post(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "show":
		return c.postShow(ctx, rest)
	case "create":
		return c.postCreate(ctx, rest)
	case "edit":
		return c.postEdit(ctx, rest)
	case "delete":
		if err := wantArgs(rest, 1); err != nil {
			return err
		}
		if err := c.client.Posts.Delete(ctx, rest[0]); err != nil {
			return err
		}
		c.printf("Deleted %s\n", rest[0])
		return nil
	case "like":
		if err := wantArgs(rest, 1); err != nil {
			return err
		}
		p, err := c.client.Posts.ToggleLike(ctx, rest[0])
		if err != nil {
			return err
		}
		verb := "Unliked"
		if c.client.Posts.HasLiked(rest[0]) {
			verb = "Liked"
		}
		c.printf("%s %q (%d likes)\n", verb, p.Title, len(p.Likes))
		return nil
	default:
		return errUsage
	}
}

func (c *cli) postShow(ctx context.Context, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	p, err := c.client.Posts.Open(ctx, args[0])
	if err != nil {
		return err
	}
	c.printf("%s\n%s\n", p.Title, strings.Repeat("=", len(p.Title)))
	c.printf("by %s in %s, %s, %d likes\n", p.Author.Name, p.Category, p.CreatedAt.Format(time.DateOnly), len(p.Likes))
	if p.Image.URL != "" {
		c.printf("image: %s\n", p.Image.URL)
	}
	c.printf("\n%s\n", p.Content)
	return nil
}

func (c *cli) postCreate(ctx context.Context, args []string) error {
	fs := newFlagSet("post create")
	title := fs.String("title", "", "post title")
	content := fs.String("content", "", "markdown content, or @file")
	category := fs.String("category", "", "category")
	image := fs.String("image", "", "cover image file")
	if _, err := parseArgs(fs, args); err != nil || *title == "" || *content == "" {
		return errUsage
	}

	body, err := contentArg(*content)
	if err != nil {
		return err
	}
	in := api.PostInput{Title: *title, Content: body, Category: *category}
	if *image != "" {
		f, err := readFile(*image)
		if err != nil {
			return err
		}
		img, err := c.client.API.UploadImage(ctx, *f)
		if err != nil {
			return err
		}
		in.Image = img
	}

	p, err := c.client.Posts.Create(ctx, in)
	if err != nil {
		return err
	}
	c.printf("Created %s\n", p.ID)
	return nil
}

func (c *cli) postEdit(ctx context.Context, args []string) error {
	fs := newFlagSet("post edit")
	title := fs.String("title", "", "post title")
	content := fs.String("content", "", "markdown content, or @file")
	category := fs.String("category", "", "category")
	pos, err := parseArgs(fs, args)
	if err != nil || len(pos) != 1 {
		return errUsage
	}

	current, err := c.client.Posts.Open(ctx, pos[0])
	if err != nil {
		return err
	}
	if !c.client.Posts.IsAuthor(current.ID) {
		return errors.New("only the author can edit this post")
	}

	in := api.PostInput{Title: current.Title, Content: current.Content, Category: current.Category}
	if current.Image.URL != "" {
		img := current.Image
		in.Image = &img
	}
	if *title != "" {
		in.Title = *title
	}
	if *content != "" {
		if in.Content, err = contentArg(*content); err != nil {
			return err
		}
	}
	if *category != "" {
		in.Category = *category
	}

	p, err := c.client.Posts.Update(ctx, current.ID, in)
	if err != nil {
		return err
	}
	c.printf("Updated %s\n", p.ID)
	return nil
}

// comments

// openThread connects the push transport and loads postID's thread.
func (c *cli) openThread(ctx context.Context, postID string) (*livesync.ThreadStore, error) {
	if err := c.client.Connect(ctx); err != nil {
		return nil, err
	}
	if err := c.client.Threads.LoadThread(ctx, postID); err != nil {
		return nil, err
	}
	return c.client.Threads, nil
}

func (c *cli) comments(ctx context.Context, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	thread, err := c.openThread(ctx, args[0])
	if err != nil {
		return err
	}
	c.printThread(thread.Snapshot())
	return nil
}

func (c *cli) comment(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	sub := args[0]
	fs := newFlagSet("comment " + sub)
	reply := fs.String("reply", "", "parent comment ID")
	pos, err := parseArgs(fs, args[1:])
	if err != nil || len(pos) == 0 {
		return errUsage
	}

	need := map[string]int{"add": 2, "edit": 3, "delete": 2, "like": 2}[sub]
	if need == 0 || len(pos) != need {
		return errUsage
	}
	thread, err := c.openThread(ctx, pos[0])
	if err != nil {
		return err
	}

	switch sub {
	case "add":
		var parent *string
		if *reply != "" {
			parent = reply
		}
		created, err := thread.AddComment(ctx, pos[1], parent)
		if err != nil {
			return err
		}
		c.printf("Commented %s\n", created.ID)
	case "edit":
		if err := thread.EditComment(ctx, pos[1], pos[2]); err != nil {
			return err
		}
		c.printf("Edited %s\n", pos[1])
	case "delete":
		if err := thread.DeleteComment(ctx, pos[1]); err != nil {
			return err
		}
		c.printf("Deleted %s\n", pos[1])
	case "like":
		n, err := thread.ToggleCommentLike(ctx, pos[1])
		if err != nil {
			return err
		}
		c.printf("%s now has %d likes\n", pos[1], n)
	}
	return nil
}

// watch prints the thread and every live update until interrupted.
func (c *cli) watch(ctx context.Context, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	if err := c.client.Connect(ctx); err != nil {
		return err
	}

	updates := make(chan livesync.Thread, 16)
	release := c.client.Threads.OnUpdate(func(th livesync.Thread) {
		select {
		case updates <- th:
		default:
		}
	})
	defer release()

	if err := c.client.Threads.LoadThread(ctx, args[0]); err != nil {
		return err
	}
	c.printf("Watching %s, press Ctrl+C to stop\n", args[0])

	for {
		select {
		case <-ctx.Done():
			stats := c.client.Reconciler.Stats()
			c.printf("\n%d events applied, %d ignored\n", stats.Applied, stats.OutOfScope)
			return nil
		case <-c.client.Disconnected():
			return errors.New("connection closed by server")
		case th := <-updates:
			c.printf("\n--- %s ---\n", time.Now().Format(time.TimeOnly))
			c.printThread(th)
		}
	}
}

func (c *cli) printThread(th livesync.Thread) {
	if len(th.Comments) == 0 {
		c.printf("No comments yet\n")
		return
	}
	for _, cm := range th.Comments {
		prefix := ""
		if cm.ParentID != nil {
			prefix = "  ↳ "
		}
		c.printf("%s[%s] %s (%d likes)\n%s    %s\n", prefix, cm.ID, cm.Author.Name, cm.LikesCount, prefix, cm.Content)
	}
}

func readFile(path string) (*api.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &api.File{Name: filepath.Base(path), Content: data}, nil
}

// contentArg reads @path arguments from disk.
func contentArg(v string) (string, error) {
	path, ok := strings.CutPrefix(v, "@")
	if !ok {
		return v, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
