// Package seed fills a development database with fake users, posts, comments and likes.
// It is intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"blogify/internal/models"
	"blogify/internal/repository"
	"blogify/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

// Options controls how much data Seed creates.
type Options struct {
	Users           int
	Posts           int
	CommentsPerPost int
	LikeRatio       float64
	// MaxDays spreads created_at over the given number of past days.
	MaxDays int
	// SkipBcrypt stores a cheap hash, for tests.
	SkipBcrypt bool
	// Seed makes the generated content deterministic when non-zero.
	Seed int64
}

// Summary counts what Seed created.
type Summary struct {
	Users     int
	Posts     int
	Comments  int
	PostLikes int
}

// Seeder writes fake data through the repositories.
type Seeder struct {
	db       *gorm.DB
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	faker    *gofakeit.Faker
	rng      *rand.Rand
	opts     Options
}

// NewSeeder creates a Seeder over db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeder{
		db:       db,
		users:    repository.NewUserRepository(db),
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		faker:    gofakeit.New(seed),
		rng:      rand.New(rand.NewPCG(uint64(seed), uint64(seed>>1))),
		opts:     opts,
	}
}

// ClearAll hard-deletes every seeded table, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tables := []any{&models.CommentLike{}, &models.PostLike{}, &models.Comment{}, &models.Post{}, &models.User{}}
	for _, t := range tables {
		if err := s.db.WithContext(ctx).Unscoped().Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(t).Error; err != nil {
			return fmt.Errorf("clear %T: %w", t, err)
		}
	}
	slog.InfoContext(ctx, "database cleared")
	return nil
}

// Seed creates users, then posts by random users, then comments and likes on each post.
func (s *Seeder) Seed(ctx context.Context) (*Summary, error) {
	sum := &Summary{}
	if s.opts.Users <= 0 {
		return sum, nil
	}

	password, err := s.passwordHash()
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, s.opts.Users)
	for range s.opts.Users {
		u, err := s.CreateUser(ctx, password)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	sum.Users = len(users)

	for range s.opts.Posts {
		author := users[s.rng.IntN(len(users))]
		p, err := s.CreatePost(ctx, author)
		if err != nil {
			return nil, err
		}
		sum.Posts++

		for range s.opts.CommentsPerPost {
			commenter := users[s.rng.IntN(len(users))]
			if _, err := s.CreateComment(ctx, p, commenter); err != nil {
				return nil, err
			}
			sum.Comments++
		}

		for _, u := range users {
			if s.rng.Float64() >= s.opts.LikeRatio {
				continue
			}
			if err := s.posts.Like(ctx, u.ID, p.ID); err != nil {
				return nil, fmt.Errorf("like post: %w", err)
			}
			sum.PostLikes++
		}
	}

	slog.InfoContext(ctx, "seeding complete",
		"users", sum.Users,
		"posts", sum.Posts,
		"comments", sum.Comments,
		"post_likes", sum.PostLikes,
	)
	return sum, nil
}

// CreateUser persists a fake user with the given password hash.
func (s *Seeder) CreateUser(ctx context.Context, passwordHash string) (*models.User, error) {
	name := s.faker.Name()
	user := &models.User{
		Name:     name,
		Email:    strings.ToLower(fmt.Sprintf("%s.%d@%s", s.faker.Username(), s.faker.Number(100, 99999), "example.com")),
		Password: passwordHash,
		Avatar:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", s.faker.UUID()),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// CreatePost persists a fake post by author.
func (s *Seeder) CreatePost(ctx context.Context, author *models.User) (*models.Post, error) {
	post := &models.Post{
		Title:    truncate(strings.TrimSuffix(s.faker.Sentence(6), "."), validation.MaxTitleLen),
		Content:  s.faker.Paragraph(2, 4, 12, "\n\n"),
		Category: validation.Categories[s.rng.IntN(len(validation.Categories))],
		Image: models.PostImage{
			URL:    fmt.Sprintf("https://picsum.photos/seed/%s/1200/630", s.faker.UUID()),
			Width:  1200,
			Height: 630,
			Format: "jpeg",
		},
		UserID: author.ID,
	}
	post.CreatedAt = s.pastTime()
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// CreateComment persists a fake comment by author on post.
func (s *Seeder) CreateComment(ctx context.Context, post *models.Post, author *models.User) (*models.Comment, error) {
	comment := &models.Comment{
		Content: s.faker.Sentence(s.rng.IntN(18) + 3),
		PostID:  post.ID,
		UserID:  author.ID,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

func (s *Seeder) passwordHash() (string, error) {
	if s.opts.SkipBcrypt {
		hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
		return string(hash), err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	return string(hash), err
}

func (s *Seeder) pastTime() time.Time {
	back := time.Duration(s.rng.IntN(s.opts.MaxDays*24*60)) * time.Minute
	return time.Now().Add(-back)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n])
}
