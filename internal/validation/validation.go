// Package validation holds the input rules shared by the server handlers and the terminal client.
package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	MinTitleLen    = 3
	MaxTitleLen    = 100
	MinContentLen  = 10
	MaxCategoryLen = 50
	MaxCommentLen  = 2000
	MinNameLen     = 2
	MaxNameLen     = 60
	MinPasswordLen = 6
	MaxPasswordLen = 128
)

// Categories lists the categories offered when creating a post.
var Categories = []string{
	"Technology",
	"Health",
	"Lifestyle",
	"Travel",
	"Food",
	"Education",
	"Business",
	"Entertainment",
	"Fitness",
}

// ValidatePost checks title, content and category of a post draft.
func ValidatePost(title, content, category string) error {
	title = strings.TrimSpace(title)
	if n := utf8.RuneCountInString(title); n < MinTitleLen {
		return fmt.Errorf("title must be at least %d characters long", MinTitleLen)
	} else if n > MaxTitleLen {
		return fmt.Errorf("title must not exceed %d characters", MaxTitleLen)
	}
	if utf8.RuneCountInString(strings.TrimSpace(content)) < MinContentLen {
		return fmt.Errorf("content must be at least %d characters long", MinContentLen)
	}
	if utf8.RuneCountInString(category) > MaxCategoryLen {
		return fmt.Errorf("category must not exceed %d characters", MaxCategoryLen)
	}
	return nil
}

// ValidateComment checks comment text after trimming.
func ValidateComment(content string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(content))
	if n == 0 {
		return fmt.Errorf("comment cannot be empty")
	}
	if n > MaxCommentLen {
		return fmt.Errorf("comment must not exceed %d characters", MaxCommentLen)
	}
	return nil
}

// ValidateName checks a display name.
func ValidateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < MinNameLen {
		return fmt.Errorf("name must be at least %d characters long", MinNameLen)
	}
	if n > MaxNameLen {
		return fmt.Errorf("name must not exceed %d characters", MaxNameLen)
	}
	return nil
}

// ValidateEmail checks that email is a bare address.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidatePassword checks password length bounds.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}
	if len(password) > MaxPasswordLen {
		return fmt.Errorf("password must not exceed %d characters", MaxPasswordLen)
	}
	return nil
}
