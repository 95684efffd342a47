package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"inkwell/internal/cache"
	"inkwell/internal/model"
	"inkwell/internal/queue"
	"inkwell/internal/repository"
	"inkwell/internal/sanitize"
)

// PostService manages posts and coordinates the delete cascade that keeps the
// like ledger and comment tree free of orphans.
type PostService struct {
	postRepo     repository.PostRepository
	userRepo     repository.UserRepository
	commentRepo  repository.CommentRepository
	likeRepo     repository.LikeRepository
	categoryRepo repository.CategoryRepository
	txRunner     repository.TxRunner
	sanitizer    sanitize.Sanitizer
	publisher    queue.Publisher
	viewCache    cache.ViewCache
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	commentRepo repository.CommentRepository,
	likeRepo repository.LikeRepository,
	categoryRepo repository.CategoryRepository,
	txRunner repository.TxRunner,
	sanitizer sanitize.Sanitizer,
	publisher queue.Publisher,
	viewCache cache.ViewCache,
) *PostService {
	return &PostService{
		postRepo:     postRepo,
		userRepo:     userRepo,
		commentRepo:  commentRepo,
		likeRepo:     likeRepo,
		categoryRepo: categoryRepo,
		txRunner:     txRunner,
		sanitizer:    sanitizer,
		publisher:    publisher,
		viewCache:    viewCache,
	}
}

// Create publishes a new post.
func (s *PostService) Create(ctx context.Context, userID string, req model.CreatePostRequest) (*model.Post, error) {
	title := strings.TrimSpace(req.Title)
	content := s.sanitizer.Sanitize(req.Content)

	if len(title) == 0 {
		return nil, model.ErrTitleRequired
	}
	if len(title) > model.MaxPostTitleLength {
		return nil, model.ErrTitleTooLong
	}
	if len(content) > model.MaxPostContentLength {
		return nil, model.ErrContentTooLong
	}

	post := &model.Post{
		ID:       uuid.NewString(),
		UserID:   userID,
		Title:    title,
		Content:  content,
		CoverURL: req.CoverURL,
	}

	if err := s.postRepo.Create(ctx, post, req.CategoryIDs); err != nil {
		return nil, err
	}

	author, err := s.userRepo.GetByID(ctx, userID)
	if err == nil {
		post.Author = &model.UserSummary{
			ID:          author.ID,
			Username:    author.Username,
			DisplayName: author.DisplayName,
			AvatarURL:   author.AvatarURL,
			IsVerified:  author.IsVerified,
		}
	}

	if categories, err := s.categoryRepo.ListByPost(ctx, post.ID); err == nil {
		post.Categories = categories
	}

	log.Printf("[PostService] User %s created post %s", userID, post.ID)
	return post, nil
}

// GetByID returns a post and records the read. A fresh view (same viewer not
// seen within the dedup window) is published to the engagement stream; the
// worker folds it into view_count and the trending ranking later.
func (s *PostService) GetByID(ctx context.Context, postID, viewerID string) (*model.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	if viewerID != "" {
		liked, err := s.postRepo.CheckLikes(ctx, viewerID, []string{postID})
		if err == nil {
			post.IsLiked = liked[postID]
		}
	}

	s.recordView(ctx, postID, viewerID)
	return post, nil
}

func (s *PostService) recordView(ctx context.Context, postID, viewerID string) {
	if s.viewCache == nil || s.publisher == nil {
		return
	}

	fresh, err := s.viewCache.MarkViewed(ctx, postID, viewerID)
	if err != nil {
		log.Printf("[PostService] view dedup failed: post=%s err=%v", postID, err)
		return
	}
	if !fresh {
		return
	}

	event := queue.NewPostViewedEvent(postID, viewerID)
	if _, err := s.publisher.Publish(ctx, queue.StreamEngagement, event); err != nil {
		log.Printf("[PostService] Failed to publish PostViewed event: %v", err)
	}
}

// List returns one page of posts, newest first, optionally narrowed to a
// category.
func (s *PostService) List(ctx context.Context, page, pageSize int, categorySlug, viewerID string) (*model.PostListResponse, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	if pageSize > 50 {
		pageSize = 50
	}

	posts, total, err := s.postRepo.List(ctx, page, pageSize, categorySlug)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	s.markLiked(ctx, posts, viewerID)

	return &model.PostListResponse{
		Posts:    posts,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		HasMore:  page*pageSize < total,
	}, nil
}

// Trending returns the posts currently ranked highest by recent engagement.
// Ranked ids whose posts have since been deleted are skipped.
func (s *PostService) Trending(ctx context.Context, limit int, viewerID string) ([]model.Post, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	ids, err := s.viewCache.Trending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("get trending ids: %w", err)
	}

	posts := make([]model.Post, 0, len(ids))
	for _, id := range ids {
		post, err := s.postRepo.GetByID(ctx, id)
		if err != nil {
			continue
		}
		posts = append(posts, *post)
	}

	s.markLiked(ctx, posts, viewerID)
	return posts, nil
}

func (s *PostService) markLiked(ctx context.Context, posts []model.Post, viewerID string) {
	if viewerID == "" || len(posts) == 0 {
		return
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	liked, err := s.postRepo.CheckLikes(ctx, viewerID, ids)
	if err != nil {
		log.Printf("[PostService] check likes failed: err=%v", err)
		return
	}
	for i := range posts {
		posts[i].IsLiked = liked[posts[i].ID]
	}
}

// Update edits a post. Only the author may edit; nil request fields are left
// unchanged.
func (s *PostService) Update(ctx context.Context, postID, userID string, req model.UpdatePostRequest) (*model.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, model.ErrNotPostOwner
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if len(title) == 0 {
			return nil, model.ErrTitleRequired
		}
		if len(title) > model.MaxPostTitleLength {
			return nil, model.ErrTitleTooLong
		}
		post.Title = title
	}
	if req.Content != nil {
		content := s.sanitizer.Sanitize(*req.Content)
		if len(content) > model.MaxPostContentLength {
			return nil, model.ErrContentTooLong
		}
		post.Content = content
	}
	if req.CoverURL != nil {
		post.CoverURL = req.CoverURL
	}

	if err := s.postRepo.Update(ctx, post, req.CategoryIDs); err != nil {
		return nil, err
	}

	if categories, err := s.categoryRepo.ListByPost(ctx, postID); err == nil {
		post.Categories = categories
	}

	log.Printf("[PostService] User %s updated post %s", userID, postID)
	return post, nil
}

// Delete removes a post and everything hanging off it: likes on the post,
// likes on its comments, then the comments, then the post itself. One
// transaction; a failure at any step leaves the whole structure intact.
//
// Deletion order matters: likes go before their targets so no ledger row ever
// points at a missing target, even mid-transaction.
func (s *PostService) Delete(ctx context.Context, postID, requesterID string, isAdmin bool) error {
	authorID, err := s.postRepo.GetAuthorID(ctx, postID)
	if err != nil {
		return err
	}
	if authorID != requesterID && !isAdmin {
		return model.ErrNotPostOwner
	}

	err = s.txRunner.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.likeRepo.DeleteByTargets(ctx, tx, model.TargetPost, []string{postID}); err != nil {
			return err
		}

		commentIDs, err := s.commentRepo.IDsByPost(ctx, tx, postID)
		if err != nil {
			return err
		}
		if _, err := s.likeRepo.DeleteByTargets(ctx, tx, model.TargetComment, commentIDs); err != nil {
			return err
		}

		if err := s.commentRepo.DeleteByPost(ctx, tx, postID); err != nil {
			return err
		}

		if err := s.postRepo.HardDelete(ctx, tx, postID); err != nil {
			return err
		}

		return s.userRepo.IncrementPostCount(ctx, tx, authorID, -1)
	})
	if err != nil {
		return err
	}

	// Best-effort cleanup of ranking state (after commit)
	if s.viewCache != nil {
		if err := s.viewCache.RemovePost(ctx, postID); err != nil {
			log.Printf("[PostService] trending cleanup failed: post=%s err=%v", postID, err)
		}
	}

	log.Printf("[PostService] User %s deleted post %s (author=%s)", requesterID, postID, authorID)
	return nil
}
