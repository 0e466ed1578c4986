// Command blogcli is a terminal client for Blogify: account, posts, comments and a live
// comment watcher.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"blogify/internal/app"
	"blogify/internal/config"

	"github.com/joho/godotenv"
)

const usage = `usage: blogcli <command> [args]

account:
  signup <name> <email> <password>
  login <email> <password>
  logout
  whoami
  profile [-name N] [-password P] [-avatar FILE]
  stats
  features

posts:
  posts [-category C] [-limit N]
  mine
  post show <id>
  post create -title T -content C [-category C] [-image FILE]
  post edit <id> [-title T] [-content C] [-category C]
  post delete <id>
  post like <id>

comments:
  comments <postId>
  comment add <postId> <text> [-reply COMMENT_ID]
  comment edit <postId> <commentId> <text>
  comment delete <postId> <commentId>
  comment like <postId> <commentId>
  watch <postId>
`

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadClientConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level := slog.LevelWarn
	_ = level.UnmarshalText([]byte(cfg.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, app.Deps{Logger: logger}, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

func run(ctx context.Context, cfg *config.ClientConfig, deps app.Deps, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	client, err := app.New(cfg, deps)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	cli := &cli{client: client, out: out}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "signup":
		return cli.signup(ctx, rest)
	case "login":
		return cli.login(ctx, rest)
	case "logout":
		return cli.logout(ctx)
	case "whoami":
		return cli.whoami()
	case "profile":
		return cli.profile(ctx, rest)
	case "stats":
		return cli.stats(ctx)
	case "features":
		return cli.features(ctx)
	case "posts":
		return cli.posts(ctx, rest)
	case "mine":
		return cli.mine(ctx)
	case "post":
		return cli.post(ctx, rest)
	case "comments":
		return cli.comments(ctx, rest)
	case "comment":
		return cli.comment(ctx, rest)
	case "watch":
		return cli.watch(ctx, rest)
	case "help", "-h", "--help":
		_, err := fmt.Fprint(out, usage)
		return err
	default:
		return errUsage
	}
}
