package services

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"smartliving/site/internal/models"
	"smartliving/site/internal/store"
)

const blogPostsCollection = "blogPosts"

// Raw HTML in post bodies is escaped; WithUnsafe is not set.
var markdown = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

type BlogPostInput struct {
	Title   string   `json:"title" binding:"required"`
	Slug    string   `json:"slug"`
	Excerpt string   `json:"excerpt"`
	Body    string   `json:"body"`
	Tags    []string `json:"tags"`
	Author  string   `json:"author"`
}

type IBlogService interface {
	// ListPublished returns published posts, newest first, with HTML.
	ListPublished(ctx context.Context) ([]models.BlogPost, error)
	GetPublished(ctx context.Context, slug string) (*models.BlogPost, error)
	ListAll(ctx context.Context) ([]models.BlogPost, error)
	Get(ctx context.Context, id string) (*models.BlogPost, error)
	Create(ctx context.Context, in BlogPostInput) (*models.BlogPost, error)
	Update(ctx context.Context, id string, in BlogPostInput) (*models.BlogPost, error)
	SetPublished(ctx context.Context, id string, published bool) (*models.BlogPost, error)
	Delete(ctx context.Context, id string) error
}

type blogService struct {
	store store.Store
	now   func() time.Time
}

func NewBlogService(st store.Store) IBlogService {
	return &blogService{store: st, now: time.Now}
}

func (s *blogService) ListPublished(ctx context.Context) ([]models.BlogPost, error) {
	var out []models.BlogPost
	q := store.Query{Filter: map[string]interface{}{"published": true}, OrderBy: "publishedAt", Desc: true}
	if err := s.store.Find(ctx, blogPostsCollection, q, &out); err != nil {
		return nil, fmt.Errorf("failed to list blog posts: %w", err)
	}
	for i := range out {
		if err := render(&out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *blogService) GetPublished(ctx context.Context, slug string) (*models.BlogPost, error) {
	var found []models.BlogPost
	q := store.Query{Filter: map[string]interface{}{"slug": slug, "published": true}, Limit: 1}
	if err := s.store.Find(ctx, blogPostsCollection, q, &found); err != nil {
		return nil, fmt.Errorf("failed to load blog post %s: %w", slug, err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("blog post %s: %w", slug, store.ErrNotFound)
	}
	post := &found[0]
	if err := render(post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *blogService) ListAll(ctx context.Context) ([]models.BlogPost, error) {
	var out []models.BlogPost
	if err := s.store.Find(ctx, blogPostsCollection, store.Query{OrderBy: "createdAt", Desc: true}, &out); err != nil {
		return nil, fmt.Errorf("failed to list blog posts: %w", err)
	}
	return out, nil
}

func (s *blogService) Get(ctx context.Context, id string) (*models.BlogPost, error) {
	var post models.BlogPost
	if err := s.store.Get(ctx, blogPostsCollection, id, &post); err != nil {
		return nil, notFound(err, "blog post", id)
	}
	if err := render(&post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *blogService) Create(ctx context.Context, in BlogPostInput) (*models.BlogPost, error) {
	post := &models.BlogPost{}
	if err := s.apply(ctx, post, in); err != nil {
		return nil, err
	}
	post.CreatedAt = s.now().UTC()
	post.UpdatedAt = post.CreatedAt

	id, err := s.store.Create(ctx, blogPostsCollection, post)
	if err != nil {
		return nil, fmt.Errorf("failed to create blog post: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *blogService) Update(ctx context.Context, id string, in BlogPostInput) (*models.BlogPost, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, post, in); err != nil {
		return nil, err
	}
	post.UpdatedAt = s.now().UTC()
	if err := s.store.Set(ctx, blogPostsCollection, id, post); err != nil {
		return nil, fmt.Errorf("failed to update blog post %s: %w", id, err)
	}
	return s.Get(ctx, id)
}

func (s *blogService) apply(ctx context.Context, post *models.BlogPost, in BlogPostInput) error {
	trimAll(&in.Title, &in.Slug, &in.Excerpt, &in.Author)
	if in.Title == "" {
		return invalid("title is required")
	}
	base := in.Slug
	if base == "" {
		base = in.Title
	}
	slug, err := s.uniqueSlug(ctx, Slugify(base), post.ID)
	if err != nil {
		return err
	}
	post.Title = in.Title
	post.Slug = slug
	post.Excerpt = in.Excerpt
	post.Body = in.Body
	post.Author = in.Author
	post.Tags = []string{}
	for _, t := range in.Tags {
		if t = strings.TrimSpace(t); t != "" {
			post.Tags = append(post.Tags, t)
		}
	}
	return nil
}

// uniqueSlug appends -2, -3, ... until no other post uses the slug.
func (s *blogService) uniqueSlug(ctx context.Context, base, selfID string) (string, error) {
	if base == "" {
		return "", invalid("title must contain letters or digits")
	}
	for n := 1; ; n++ {
		candidate := base
		if n > 1 {
			candidate = base + "-" + strconv.Itoa(n)
		}
		var existing []models.BlogPost
		q := store.Query{Filter: map[string]interface{}{"slug": candidate}}
		if err := s.store.Find(ctx, blogPostsCollection, q, &existing); err != nil {
			return "", fmt.Errorf("failed to check slug %s: %w", candidate, err)
		}
		if len(existing) == 0 || (len(existing) == 1 && existing[0].ID == selfID) {
			return candidate, nil
		}
	}
}

func (s *blogService) SetPublished(ctx context.Context, id string, published bool) (*models.BlogPost, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	update := store.Doc{"published": published, "updatedAt": store.ServerTimestamp{}}
	if published && post.PublishedAt == nil {
		update["publishedAt"] = store.ServerTimestamp{}
	}
	if err := s.store.Set(ctx, blogPostsCollection, id, update, store.Merge()); err != nil {
		return nil, fmt.Errorf("failed to publish blog post %s: %w", id, err)
	}
	return s.Get(ctx, id)
}

func (s *blogService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, blogPostsCollection, id); err != nil {
		return notFound(err, "blog post", id)
	}
	return nil
}

func render(post *models.BlogPost) error {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(post.Body), &buf); err != nil {
		return fmt.Errorf("failed to render blog post %s: %w", post.Slug, err)
	}
	post.HTML = buf.String()
	return nil
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and joins its alphanumeric runs with hyphens.
func Slugify(s string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
