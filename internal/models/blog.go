package models

import "time"

// BlogPost is stored as markdown; HTML is rendered on read and never stored.
type BlogPost struct {
	Base        `bson:",inline"`
	Title       string     `bson:"title" json:"title"`
	Slug        string     `bson:"slug" json:"slug"`
	Excerpt     string     `bson:"excerpt" json:"excerpt"`
	Body        string     `bson:"body" json:"body"`
	HTML        string     `bson:"-" json:"html,omitempty"`
	Tags        []string   `bson:"tags" json:"tags"`
	Author      string     `bson:"author" json:"author"`
	Published   bool       `bson:"published" json:"published"`
	PublishedAt *time.Time `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}
