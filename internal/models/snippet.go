// Package models defines the domain types for Gebo.
package models

// Snippet is a short Markdown-formatted note. The store assigns the id on
// creation; it never changes afterwards.
type Snippet struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// User is an account that may log in to the web surface. HashedPassword is a
// bcrypt hash; the plaintext is never stored.
type User struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	HashedPassword string `json:"-"`
}
