// Command seed fills the configured database with fake blog data.
package main

import (
	"context"
	"flag"
	"log"

	"blogify/internal/config"
	"blogify/internal/database"
	"blogify/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 60, "Number of posts to create")
	comments := flag.Int("comments", 4, "Comments per post")
	likeRatio := flag.Float64("likes", 0.3, "Probability that a user likes a given post")
	shouldClean := flag.Bool("clean", false, "Clean database before seeding")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, seed.Options{
		Users:           *numUsers,
		Posts:           *numPosts,
		CommentsPerPost: *comments,
		LikeRatio:       *likeRatio,
	})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	sum, err := s.Seed(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d users, %d posts, %d comments, %d likes", sum.Users, sum.Posts, sum.Comments, sum.PostLikes)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
