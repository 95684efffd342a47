package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"inkwell/internal/model"
	"inkwell/internal/queue"
)

func newCommentService(
	commentRepo *mockCommentRepository,
	postRepo *mockPostRepository,
	userRepo *mockUserRepository,
	likeRepo *mockLikeRepository,
	tx *mockTxRunner,
) (*CommentService, *mockPublisher) {
	pub := &mockPublisher{}
	svc := NewCommentService(commentRepo, postRepo, userRepo, likeRepo, tx, passthroughSanitizer{}, pub)
	return svc, pub
}

func TestCommentService_Create_Root(t *testing.T) {
	commentRepo := &mockCommentRepository{}
	postRepo := &mockPostRepository{
		existsFn: func(ctx context.Context, postID string) (bool, error) { return true, nil },
	}
	svc, pub := newCommentService(commentRepo, postRepo, &mockUserRepository{}, &mockLikeRepository{}, &mockTxRunner{})

	comment, err := svc.Create(context.Background(), "post-1", "user-1", model.CreateCommentRequest{
		Content: "first!",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if comment.ID == "" {
		t.Fatal("expected generated id")
	}
	if comment.Path != comment.ID {
		t.Errorf("root path = %q, want own id %q", comment.Path, comment.ID)
	}
	if comment.Depth != 0 {
		t.Errorf("root depth = %d, want 0", comment.Depth)
	}
	if !comment.IsVisible {
		t.Error("new comment should be visible")
	}

	if len(postRepo.commentDeltas) != 1 || postRepo.commentDeltas[0] != 1 {
		t.Errorf("comment_count deltas = %v, want [1]", postRepo.commentDeltas)
	}

	if len(pub.events) != 1 || pub.events[0].Type != queue.EventPostCommented {
		t.Errorf("expected one post_commented event, got %v", pub.events)
	}
}

func TestCommentService_Create_Reply(t *testing.T) {
	parent := &model.Comment{
		ID:     "parent-1",
		PostID: "post-1",
		Path:   "root-1/parent-1",
		Depth:  1,
	}

	commentRepo := &mockCommentRepository{
		getByIDFn: func(ctx context.Context, commentID string) (*model.Comment, error) {
			return parent, nil
		},
	}
	postRepo := &mockPostRepository{
		existsFn: func(ctx context.Context, postID string) (bool, error) { return true, nil },
	}
	svc, _ := newCommentService(commentRepo, postRepo, &mockUserRepository{}, &mockLikeRepository{}, &mockTxRunner{})

	parentID := "parent-1"
	comment, err := svc.Create(context.Background(), "post-1", "user-1", model.CreateCommentRequest{
		Content:  "agreed",
		ParentID: &parentID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if comment.Depth != 2 {
		t.Errorf("depth = %d, want 2", comment.Depth)
	}
	wantPath := parent.Path + "/" + comment.ID
	if comment.Path != wantPath {
		t.Errorf("path = %q, want %q", comment.Path, wantPath)
	}
}

func TestCommentService_Create_ParentChecks(t *testing.T) {
	parentID := "parent-1"

	tests := []struct {
		name    string
		parent  *model.Comment
		wantErr error
	}{
		{
			name:    "depth limit reached",
			parent:  &model.Comment{ID: parentID, PostID: "post-1", Path: "a/b/c/parent-1", Depth: model.MaxCommentDepth},
			wantErr: model.ErrMaxDepthReached,
		},
		{
			name:    "parent on another post",
			parent:  &model.Comment{ID: parentID, PostID: "post-2", Path: parentID, Depth: 0},
			wantErr: model.ErrParentPostMismatch,
		},
		{
			name:    "parent tombstoned",
			parent:  &model.Comment{ID: parentID, PostID: "post-1", Path: parentID, Depth: 0, IsDeleted: true},
			wantErr: model.ErrCommentDeleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commentRepo := &mockCommentRepository{
				getByIDFn: func(ctx context.Context, commentID string) (*model.Comment, error) {
					return tt.parent, nil
				},
			}
			postRepo := &mockPostRepository{
				existsFn: func(ctx context.Context, postID string) (bool, error) { return true, nil },
			}
			svc, _ := newCommentService(commentRepo, postRepo, &mockUserRepository{}, &mockLikeRepository{}, &mockTxRunner{})

			_, err := svc.Create(context.Background(), "post-1", "user-1", model.CreateCommentRequest{
				Content:  "reply",
				ParentID: &parentID,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if len(commentRepo.inserted) != 0 {
				t.Error("nothing should be inserted when the parent check fails")
			}
		})
	}
}

func TestCommentService_Create_Validation(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		postExists bool
		wantErr    error
	}{
		{name: "empty content", content: "   ", postExists: true, wantErr: model.ErrCommentEmpty},
		{name: "content too long", content: strings.Repeat("x", model.MaxCommentLength+1), postExists: true, wantErr: model.ErrCommentTooLong},
		{name: "post missing", content: "hello", postExists: false, wantErr: model.ErrPostNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			postRepo := &mockPostRepository{
				existsFn: func(ctx context.Context, postID string) (bool, error) { return tt.postExists, nil },
			}
			svc, _ := newCommentService(&mockCommentRepository{}, postRepo, &mockUserRepository{}, &mockLikeRepository{}, &mockTxRunner{})

			_, err := svc.Create(context.Background(), "post-1", "user-1", model.CreateCommentRequest{Content: tt.content})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCommentService_SoftDelete(t *testing.T) {
	var gotPlaceholder string

	commentRepo := &mockCommentRepository{
		getByIDFn: func(ctx context.Context, commentID string) (*model.Comment, error) {
			return &model.Comment{ID: "c-1", PostID: "post-1", UserID: "user-1"}, nil
		},
		childIDsFn: func(ctx context.Context, ext sqlx.ExtContext, commentID string) ([]string, error) {
			return []string{"c-2", "c-3"}, nil
		},
		markDeletedFn: func(ctx context.Context, ext sqlx.ExtContext, commentID, placeholder string, at time.Time) error {
			gotPlaceholder = placeholder
			return nil
		},
	}
	postRepo := &mockPostRepository{}
	likeRepo := &mockLikeRepository{}
	tx := &mockTxRunner{}
	svc, _ := newCommentService(commentRepo, postRepo, &mockUserRepository{}, likeRepo, tx)

	if err := svc.SoftDelete(context.Background(), "c-1", "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Likes removed for the comment itself, then its direct children
	if len(likeRepo.deletedTargets) != 2 {
		t.Fatalf("DeleteByTargets called %d times, want 2", len(likeRepo.deletedTargets))
	}
	if len(likeRepo.deletedTargets[0]) != 1 || likeRepo.deletedTargets[0][0] != "c-1" {
		t.Errorf("first like cleanup = %v, want [c-1]", likeRepo.deletedTargets[0])
	}
	if len(likeRepo.deletedTargets[1]) != 2 {
		t.Errorf("child like cleanup = %v, want [c-2 c-3]", likeRepo.deletedTargets[1])
	}

	if gotPlaceholder != model.DeletedPlaceholder {
		t.Errorf("placeholder = %q, want %q", gotPlaceholder, model.DeletedPlaceholder)
	}

	if len(postRepo.commentDeltas) != 1 || postRepo.commentDeltas[0] != -1 {
		t.Errorf("comment_count deltas = %v, want [-1]", postRepo.commentDeltas)
	}

	if tx.commits != 1 {
		t.Errorf("commits = %d, want 1", tx.commits)
	}
}

func TestCommentService_SoftDelete_Guards(t *testing.T) {
	tests := []struct {
		name    string
		comment *model.Comment
		caller  string
		wantErr error
	}{
		{
			name:    "not the owner",
			comment: &model.Comment{ID: "c-1", PostID: "post-1", UserID: "user-1"},
			caller:  "user-2",
			wantErr: model.ErrNotCommentOwner,
		},
		{
			name:    "already deleted",
			comment: &model.Comment{ID: "c-1", PostID: "post-1", UserID: "user-1", IsDeleted: true},
			caller:  "user-1",
			wantErr: model.ErrCommentDeleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commentRepo := &mockCommentRepository{
				getByIDFn: func(ctx context.Context, commentID string) (*model.Comment, error) {
					return tt.comment, nil
				},
			}
			tx := &mockTxRunner{}
			svc, _ := newCommentService(commentRepo, &mockPostRepository{}, &mockUserRepository{}, &mockLikeRepository{}, tx)

			err := svc.SoftDelete(context.Background(), "c-1", tt.caller)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tx.runs != 0 {
				t.Error("no transaction should start when the guard fails")
			}
		})
	}
}

func TestCommentService_SoftDelete_StepFailureAborts(t *testing.T) {
	boom := errors.New("tombstone write failed")

	commentRepo := &mockCommentRepository{
		getByIDFn: func(ctx context.Context, commentID string) (*model.Comment, error) {
			return &model.Comment{ID: "c-1", PostID: "post-1", UserID: "user-1"}, nil
		},
		markDeletedFn: func(ctx context.Context, ext sqlx.ExtContext, commentID, placeholder string, at time.Time) error {
			return boom
		},
	}
	tx := &mockTxRunner{}
	svc, _ := newCommentService(commentRepo, &mockPostRepository{}, &mockUserRepository{}, &mockLikeRepository{}, tx)

	err := svc.SoftDelete(context.Background(), "c-1", "user-1")
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
	if tx.commits != 0 {
		t.Error("failed transaction must not commit")
	}
}

func TestCommentService_RemoveAsAdmin_UsesModeratedPlaceholder(t *testing.T) {
	var gotPlaceholder string

	commentRepo := &mockCommentRepository{
		getByIDFn: func(ctx context.Context, commentID string) (*model.Comment, error) {
			return &model.Comment{ID: "c-1", PostID: "post-1", UserID: "user-1"}, nil
		},
		markDeletedFn: func(ctx context.Context, ext sqlx.ExtContext, commentID, placeholder string, at time.Time) error {
			gotPlaceholder = placeholder
			return nil
		},
	}
	svc, _ := newCommentService(commentRepo, &mockPostRepository{}, &mockUserRepository{}, &mockLikeRepository{}, &mockTxRunner{})

	if err := svc.RemoveAsAdmin(context.Background(), "c-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPlaceholder != model.ModeratedPlaceholder {
		t.Errorf("placeholder = %q, want %q", gotPlaceholder, model.ModeratedPlaceholder)
	}
}

func TestCommentService_ListThread_Pruning(t *testing.T) {
	roots := []*model.Comment{
		{ID: "a", PostID: "p", Path: "a", IsVisible: true},
		{ID: "b", PostID: "p", Path: "b", IsVisible: true, IsDeleted: true, Content: model.DeletedPlaceholder},
		{ID: "c", PostID: "p", Path: "c", IsVisible: true, IsDeleted: true, Content: model.DeletedPlaceholder},
		{ID: "h", PostID: "p", Path: "h", IsVisible: false, Content: "spam"},
	}
	bID, cID := "b", "c"
	replies := []*model.Comment{
		{ID: "r1", PostID: "p", ParentID: &bID, Path: "b/r1", Depth: 1, IsVisible: true},
		{ID: "r2", PostID: "p", ParentID: &cID, Path: "c/r2", Depth: 1, IsVisible: true, IsDeleted: true},
	}

	commentRepo := &mockCommentRepository{
		getRootsByPostFn: func(ctx context.Context, postID string, sort model.ThreadSort, page, pageSize int) ([]*model.Comment, int, error) {
			return roots, len(roots), nil
		},
		getRepliesByPostFn: func(ctx context.Context, postID string) ([]*model.Comment, error) {
			return replies, nil
		},
	}
	postRepo := &mockPostRepository{
		existsFn: func(ctx context.Context, postID string) (bool, error) { return true, nil },
	}
	svc, _ := newCommentService(commentRepo, postRepo, &mockUserRepository{}, &mockLikeRepository{}, &mockTxRunner{})

	page, err := svc.ListThread(context.Background(), "p", model.ThreadQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// "a" is live, "b" is a tombstone anchoring a live reply, "c" lost its
	// only (deleted) reply, "h" is hidden with nothing below it.
	if len(page.Comments) != 2 {
		ids := make([]string, len(page.Comments))
		for i, c := range page.Comments {
			ids[i] = c.ID
		}
		t.Fatalf("kept roots = %v, want [a b]", ids)
	}
	if page.Comments[0].ID != "a" || page.Comments[1].ID != "b" {
		t.Errorf("kept roots = [%s %s], want [a b]", page.Comments[0].ID, page.Comments[1].ID)
	}
	if page.Comments[1].Content != model.DeletedPlaceholder {
		t.Errorf("tombstone content = %q, want placeholder", page.Comments[1].Content)
	}
	if n := len(page.Comments[1].Replies); n != 1 {
		t.Errorf("tombstone replies = %d, want 1", n)
	}

	// Pagination counts stored roots; pruning shortens the page, not Total
	if page.Total != 4 {
		t.Errorf("Total = %d, want 4 (stored roots, pruning not subtracted)", page.Total)
	}
	if page.HasMore {
		t.Error("HasMore = true, want false (4 stored roots fit one page)")
	}
}

func TestCommentService_ListThread_IncludeDeleted(t *testing.T) {
	roots := []*model.Comment{
		{ID: "a", PostID: "p", Path: "a", IsVisible: true},
		{ID: "b", PostID: "p", Path: "b", IsVisible: true, IsDeleted: true},
	}

	commentRepo := &mockCommentRepository{
		getRootsByPostFn: func(ctx context.Context, postID string, sort model.ThreadSort, page, pageSize int) ([]*model.Comment, int, error) {
			return roots, 2, nil
		},
	}
	postRepo := &mockPostRepository{
		existsFn: func(ctx context.Context, postID string) (bool, error) { return true, nil },
	}
	svc, _ := newCommentService(commentRepo, postRepo, &mockUserRepository{}, &mockLikeRepository{}, &mockTxRunner{})

	page, err := svc.ListThread(context.Background(), "p", model.ThreadQuery{IncludeDeleted: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Comments) != 2 {
		t.Errorf("kept roots = %d, want 2 (moderation view keeps tombstones)", len(page.Comments))
	}
}

func TestCommentService_Update_Guards(t *testing.T) {
	tests := []struct {
		name    string
		comment *model.Comment
		caller  string
		content string
		wantErr error
	}{
		{
			name:    "tombstones are immutable",
			comment: &model.Comment{ID: "c-1", UserID: "user-1", IsDeleted: true},
			caller:  "user-1",
			content: "edit",
			wantErr: model.ErrCommentDeleted,
		},
		{
			name:    "not the owner",
			comment: &model.Comment{ID: "c-1", UserID: "user-1"},
			caller:  "user-2",
			content: "edit",
			wantErr: model.ErrNotCommentOwner,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commentRepo := &mockCommentRepository{
				getByIDFn: func(ctx context.Context, commentID string) (*model.Comment, error) {
					return tt.comment, nil
				},
			}
			svc, _ := newCommentService(commentRepo, &mockPostRepository{}, &mockUserRepository{}, &mockLikeRepository{}, &mockTxRunner{})

			_, err := svc.Update(context.Background(), "c-1", tt.caller, model.UpdateCommentRequest{Content: tt.content})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCommentService_Report(t *testing.T) {
	commentRepo := &mockCommentRepository{
		existsFn: func(ctx context.Context, commentID string) (bool, error) { return true, nil },
		reportFn: func(ctx context.Context, commentID string) (int, error) { return model.ReportHideThreshold, nil },
	}
	svc, _ := newCommentService(commentRepo, &mockPostRepository{}, &mockUserRepository{}, &mockLikeRepository{}, &mockTxRunner{})

	count, err := svc.Report(context.Background(), "c-1", "user-1", model.ReportCommentRequest{Reason: "spam"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != model.ReportHideThreshold {
		t.Errorf("count = %d, want %d", count, model.ReportHideThreshold)
	}
}

func TestCommentService_Report_NotFound(t *testing.T) {
	svc, _ := newCommentService(&mockCommentRepository{}, &mockPostRepository{}, &mockUserRepository{}, &mockLikeRepository{}, &mockTxRunner{})

	_, err := svc.Report(context.Background(), "nope", "user-1", model.ReportCommentRequest{})
	if !errors.Is(err, model.ErrCommentNotFound) {
		t.Errorf("error = %v, want %v", err, model.ErrCommentNotFound)
	}
}

func TestCommentService_FindOne_AttachesSubtree(t *testing.T) {
	root := &model.Comment{ID: "c-1", PostID: "p", Path: "c-1", IsVisible: true}
	c1 := "c-1"
	commentRepo := &mockCommentRepository{
		getByIDFn: func(ctx context.Context, commentID string) (*model.Comment, error) {
			return root, nil
		},
		getSubtreeFn: func(ctx context.Context, path string) ([]*model.Comment, error) {
			if path != "c-1" {
				t.Errorf("subtree path = %q, want c-1", path)
			}
			return []*model.Comment{
				{ID: "c-2", PostID: "p", ParentID: &c1, Path: "c-1/c-2", Depth: 1, IsVisible: true},
			}, nil
		},
	}
	svc, _ := newCommentService(commentRepo, &mockPostRepository{}, &mockUserRepository{}, &mockLikeRepository{}, &mockTxRunner{})

	comment, err := svc.FindOne(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(comment.Replies) != 1 || comment.Replies[0].ID != "c-2" {
		t.Errorf("replies = %v, want [c-2]", comment.Replies)
	}
}
