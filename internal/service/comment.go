package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"inkwell/internal/model"
	"inkwell/internal/queue"
	"inkwell/internal/repository"
	"inkwell/internal/sanitize"
)

// CommentService manages a post's discussion tree.
//
// The tree is stored flat: every comment carries a materialized path and a
// depth, both fixed at insert time. Listing reads the flat rows and assembles
// the tree in memory, so no recursive SQL is ever needed.
type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
	likeRepo    repository.LikeRepository
	txRunner    repository.TxRunner
	sanitizer   sanitize.Sanitizer
	publisher   queue.Publisher
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	likeRepo repository.LikeRepository,
	txRunner repository.TxRunner,
	sanitizer sanitize.Sanitizer,
	publisher queue.Publisher,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		userRepo:    userRepo,
		likeRepo:    likeRepo,
		txRunner:    txRunner,
		sanitizer:   sanitizer,
		publisher:   publisher,
	}
}

// Create adds a comment to a post, as a root comment or as a reply.
//
// The id is generated here rather than by the database because the
// materialized path must embed the comment's own id at insert time.
//
// The insert and the post's comment_count increment run as separate
// statements, not one transaction. A crash between the two leaves the counter
// one behind, which the product tolerates; comment creation stays on the
// fast path.
func (s *CommentService) Create(ctx context.Context, postID, userID string, req model.CreateCommentRequest) (*model.Comment, error) {
	content := s.sanitizer.Sanitize(req.Content)
	if len(content) == 0 {
		return nil, model.ErrCommentEmpty
	}
	if len(content) > model.MaxCommentLength {
		return nil, model.ErrCommentTooLong
	}

	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("check post exists: %w", err)
	}
	if !exists {
		return nil, model.ErrPostNotFound
	}

	comment := &model.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		UserID:    userID,
		Content:   content,
		ParentID:  req.ParentID,
		IsVisible: true,
	}

	if req.ParentID == nil {
		comment.Path = comment.ID
		comment.Depth = 0
	} else {
		parent, err := s.commentRepo.GetByID(ctx, *req.ParentID)
		if err != nil {
			return nil, err // ErrCommentNotFound or wrapped error
		}
		if parent.PostID != postID {
			return nil, model.ErrParentPostMismatch
		}
		if parent.IsDeleted {
			return nil, model.ErrCommentDeleted
		}
		if parent.Depth >= model.MaxCommentDepth {
			return nil, model.ErrMaxDepthReached
		}
		comment.Path = parent.Path + "/" + comment.ID
		comment.Depth = parent.Depth + 1
	}

	if err := s.commentRepo.Insert(ctx, comment); err != nil {
		return nil, err
	}

	if err := s.postRepo.IncrementCommentCount(ctx, nil, postID, 1); err != nil {
		// Insert already committed; the counter heals on the next adjustment.
		log.Printf("[CommentService] increment comment_count failed: post=%s err=%v", postID, err)
	}

	author, err := s.userRepo.GetByID(ctx, userID)
	if err == nil {
		comment.Author = &model.UserSummary{
			ID:          author.ID,
			Username:    author.Username,
			DisplayName: author.DisplayName,
			AvatarURL:   author.AvatarURL,
			IsVerified:  author.IsVerified,
		}
	}

	log.Printf("[CommentService] User %s commented on post %s (comment=%s depth=%d)", userID, postID, comment.ID, comment.Depth)

	// Publish engagement event (after insert, best-effort)
	if s.publisher != nil {
		event := queue.NewPostCommentedEvent(postID, comment.ID, userID)
		if _, err := s.publisher.Publish(ctx, queue.StreamEngagement, event); err != nil {
			log.Printf("[CommentService] Failed to publish PostCommented event: %v", err)
		}
	}

	return comment, nil
}

// ListThread returns one page of a post's comment thread. Pagination and the
// requested sort apply to root comments; each root carries its full reply
// subtree, replies always chronological.
//
// With IncludeDeleted unset, tombstoned and hidden comments are pruned unless
// live replies hang below them, in which case the tombstone stays as the
// anchor for its subtree.
func (s *CommentService) ListThread(ctx context.Context, postID string, q model.ThreadQuery) (*model.ThreadPage, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = 20
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}

	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("check post exists: %w", err)
	}
	if !exists {
		return nil, model.ErrPostNotFound
	}

	roots, total, err := s.commentRepo.GetRootsByPost(ctx, postID, q.Sort, q.Page, q.PageSize)
	if err != nil {
		return nil, fmt.Errorf("get root comments: %w", err)
	}

	replies, err := s.commentRepo.GetRepliesByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("get replies: %w", err)
	}

	attachReplies(roots, replies)

	if !q.IncludeDeleted {
		roots = pruneTombstones(roots)
	}

	// Total and HasMore count stored roots, not surviving ones. A page can
	// come back shorter than Total implies when pruning drops childless
	// tombstones; pagination stays stable against the stored set.
	return &model.ThreadPage{
		Comments: roots,
		Page:     q.Page,
		PageSize: q.PageSize,
		Total:    total,
		HasMore:  q.Page*q.PageSize < total,
	}, nil
}

// attachReplies wires the flat reply rows onto their parents. Replies arrive
// chronologically ascending, so sibling order within each node is preserved.
func attachReplies(roots []*model.Comment, replies []*model.Comment) {
	byID := make(map[string]*model.Comment, len(roots)+len(replies))
	for _, r := range roots {
		byID[r.ID] = r
	}
	for _, r := range replies {
		byID[r.ID] = r
	}

	for _, r := range replies {
		if r.ParentID == nil {
			continue
		}
		parent, ok := byID[*r.ParentID]
		if !ok {
			// Parent's root is on another page
			continue
		}
		parent.Replies = append(parent.Replies, r)
		parent.RepliesCount++
	}
}

// pruneTombstones drops deleted and hidden comments that anchor nothing.
// Works bottom-up: a tombstone survives only if at least one reply below it
// survives. Surviving hidden comments get their content masked.
func pruneTombstones(comments []*model.Comment) []*model.Comment {
	kept := comments[:0]
	for _, c := range comments {
		c.Replies = pruneTombstones(c.Replies)
		c.RepliesCount = len(c.Replies)

		if c.IsDeleted || !c.IsVisible {
			if len(c.Replies) == 0 {
				continue
			}
			if !c.IsDeleted {
				c.Content = model.ModeratedPlaceholder
			}
		}
		kept = append(kept, c)
	}
	return kept
}

// FindOne returns a single comment with its full reply subtree attached.
// Deleted and hidden comments are returned as stored; the caller sees the
// tombstone rather than a 404.
func (s *CommentService) FindOne(ctx context.Context, commentID string) (*model.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}

	descendants, err := s.commentRepo.GetSubtree(ctx, comment.Path)
	if err != nil {
		return nil, fmt.Errorf("get subtree: %w", err)
	}

	attachReplies([]*model.Comment{comment}, descendants)
	return comment, nil
}

// Update edits a comment's content. Only the author may edit, and tombstones
// are immutable.
func (s *CommentService) Update(ctx context.Context, commentID, userID string, req model.UpdateCommentRequest) (*model.Comment, error) {
	content := s.sanitizer.Sanitize(req.Content)
	if len(content) == 0 {
		return nil, model.ErrCommentEmpty
	}
	if len(content) > model.MaxCommentLength {
		return nil, model.ErrCommentTooLong
	}

	existing, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if existing.IsDeleted {
		return nil, model.ErrCommentDeleted
	}
	if existing.UserID != userID {
		return nil, model.ErrNotCommentOwner
	}

	comment, err := s.commentRepo.UpdateContent(ctx, commentID, content)
	if err != nil {
		return nil, err
	}

	author, err := s.userRepo.GetByID(ctx, userID)
	if err == nil {
		comment.Author = &model.UserSummary{
			ID:          author.ID,
			Username:    author.Username,
			DisplayName: author.DisplayName,
			AvatarURL:   author.AvatarURL,
			IsVerified:  author.IsVerified,
		}
	}

	log.Printf("[CommentService] User %s updated comment %s", userID, commentID)
	return comment, nil
}

// SoftDelete tombstones a comment the caller owns.
//
// One transaction: delete the likes on the comment, delete the likes on its
// direct children, write the tombstone, decrement the post's comment_count.
// Likes on deeper descendants are left alone; those comments remain live and
// keep their counts.
func (s *CommentService) SoftDelete(ctx context.Context, commentID, userID string) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.IsDeleted {
		return model.ErrCommentDeleted
	}
	if comment.UserID != userID {
		return model.ErrNotCommentOwner
	}

	if err := s.tombstone(ctx, comment, model.DeletedPlaceholder); err != nil {
		return err
	}

	log.Printf("[CommentService] User %s deleted comment %s from post %s", userID, commentID, comment.PostID)
	return nil
}

// RemoveAsAdmin tombstones a comment on behalf of a moderator. Same cascade
// as SoftDelete, different placeholder, no ownership check.
func (s *CommentService) RemoveAsAdmin(ctx context.Context, commentID string) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.IsDeleted {
		return model.ErrCommentDeleted
	}

	if err := s.tombstone(ctx, comment, model.ModeratedPlaceholder); err != nil {
		return err
	}

	log.Printf("[CommentService] Moderator removed comment %s from post %s", commentID, comment.PostID)
	return nil
}

func (s *CommentService) tombstone(ctx context.Context, comment *model.Comment, placeholder string) error {
	return s.txRunner.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.likeRepo.DeleteByTargets(ctx, tx, model.TargetComment, []string{comment.ID}); err != nil {
			return err
		}

		childIDs, err := s.commentRepo.ChildIDs(ctx, tx, comment.ID)
		if err != nil {
			return err
		}
		if _, err := s.likeRepo.DeleteByTargets(ctx, tx, model.TargetComment, childIDs); err != nil {
			return err
		}

		if err := s.commentRepo.MarkDeleted(ctx, tx, comment.ID, placeholder, time.Now()); err != nil {
			return err
		}

		return s.postRepo.IncrementCommentCount(ctx, tx, comment.PostID, -1)
	})
}

// Report flags a comment for moderation. Reports are not deduplicated; the
// reason is logged for the moderation trail, not persisted. Crossing the
// threshold hides the comment automatically.
func (s *CommentService) Report(ctx context.Context, commentID, userID string, req model.ReportCommentRequest) (int, error) {
	exists, err := s.commentRepo.Exists(ctx, commentID)
	if err != nil {
		return 0, fmt.Errorf("check comment exists: %w", err)
	}
	if !exists {
		return 0, model.ErrCommentNotFound
	}

	count, err := s.commentRepo.Report(ctx, commentID)
	if err != nil {
		return 0, err
	}

	log.Printf("[CommentService] User %s reported comment %s (count=%d reason=%q)", userID, commentID, count, req.Reason)
	if count >= model.ReportHideThreshold {
		log.Printf("[CommentService] Comment %s hidden after %d reports", commentID, count)
	}
	return count, nil
}

// DismissReports clears a comment's reports and restores its visibility.
// Moderator only.
func (s *CommentService) DismissReports(ctx context.Context, commentID string) error {
	exists, err := s.commentRepo.Exists(ctx, commentID)
	if err != nil {
		return fmt.Errorf("check comment exists: %w", err)
	}
	if !exists {
		return model.ErrCommentNotFound
	}

	if err := s.commentRepo.DismissReports(ctx, commentID); err != nil {
		return err
	}

	log.Printf("[CommentService] Reports dismissed for comment %s", commentID)
	return nil
}
