package service

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"inkwell/internal/model"
	"inkwell/internal/queue"
)

// Function-field mocks for the repository interfaces. Each test sets only the
// functions it cares about; unset functions return zero values or not-found.

// ---------------------------------------------------------------------------
// TxRunner

type mockTxRunner struct {
	runs     int
	commits  int
	failWith error
}

func (m *mockTxRunner) WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	m.runs++
	if m.failWith != nil {
		return m.failWith
	}
	if err := fn(nil); err != nil {
		return err
	}
	m.commits++
	return nil
}

// ---------------------------------------------------------------------------
// Sanitizer (passthrough with trim, like the real one on plain text)

type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(raw string) string { return strings.TrimSpace(raw) }

// ---------------------------------------------------------------------------
// Publisher

type mockPublisher struct {
	events []queue.EngagementEvent
}

func (m *mockPublisher) Publish(ctx context.Context, stream string, event queue.EngagementEvent) (string, error) {
	m.events = append(m.events, event)
	return "1-0", nil
}

// ---------------------------------------------------------------------------
// CommentRepository

type mockCommentRepository struct {
	insertFn           func(ctx context.Context, comment *model.Comment) error
	getByIDFn          func(ctx context.Context, commentID string) (*model.Comment, error)
	getRootsByPostFn   func(ctx context.Context, postID string, sort model.ThreadSort, page, pageSize int) ([]*model.Comment, int, error)
	getRepliesByPostFn func(ctx context.Context, postID string) ([]*model.Comment, error)
	getSubtreeFn       func(ctx context.Context, path string) ([]*model.Comment, error)
	updateContentFn    func(ctx context.Context, commentID, content string) (*model.Comment, error)
	markDeletedFn      func(ctx context.Context, ext sqlx.ExtContext, commentID, placeholder string, at time.Time) error
	childIDsFn         func(ctx context.Context, ext sqlx.ExtContext, commentID string) ([]string, error)
	idsByPostFn        func(ctx context.Context, ext sqlx.ExtContext, postID string) ([]string, error)
	deleteByPostFn     func(ctx context.Context, ext sqlx.ExtContext, postID string) error
	incrementLikeFn    func(ctx context.Context, ext sqlx.ExtContext, commentID string, delta int) (int, error)
	reportFn           func(ctx context.Context, commentID string) (int, error)
	dismissReportsFn   func(ctx context.Context, commentID string) error
	existsFn           func(ctx context.Context, commentID string) (bool, error)

	inserted []*model.Comment
}

func (m *mockCommentRepository) Insert(ctx context.Context, comment *model.Comment) error {
	m.inserted = append(m.inserted, comment)
	if m.insertFn != nil {
		return m.insertFn(ctx, comment)
	}
	return nil
}

func (m *mockCommentRepository) GetByID(ctx context.Context, commentID string) (*model.Comment, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, commentID)
	}
	return nil, model.ErrCommentNotFound
}

func (m *mockCommentRepository) GetRootsByPost(ctx context.Context, postID string, sort model.ThreadSort, page, pageSize int) ([]*model.Comment, int, error) {
	if m.getRootsByPostFn != nil {
		return m.getRootsByPostFn(ctx, postID, sort, page, pageSize)
	}
	return nil, 0, nil
}

func (m *mockCommentRepository) GetRepliesByPost(ctx context.Context, postID string) ([]*model.Comment, error) {
	if m.getRepliesByPostFn != nil {
		return m.getRepliesByPostFn(ctx, postID)
	}
	return nil, nil
}

func (m *mockCommentRepository) GetSubtree(ctx context.Context, path string) ([]*model.Comment, error) {
	if m.getSubtreeFn != nil {
		return m.getSubtreeFn(ctx, path)
	}
	return nil, nil
}

func (m *mockCommentRepository) UpdateContent(ctx context.Context, commentID, content string) (*model.Comment, error) {
	if m.updateContentFn != nil {
		return m.updateContentFn(ctx, commentID, content)
	}
	return nil, model.ErrCommentNotFound
}

func (m *mockCommentRepository) MarkDeleted(ctx context.Context, ext sqlx.ExtContext, commentID, placeholder string, at time.Time) error {
	if m.markDeletedFn != nil {
		return m.markDeletedFn(ctx, ext, commentID, placeholder, at)
	}
	return nil
}

func (m *mockCommentRepository) ChildIDs(ctx context.Context, ext sqlx.ExtContext, commentID string) ([]string, error) {
	if m.childIDsFn != nil {
		return m.childIDsFn(ctx, ext, commentID)
	}
	return nil, nil
}

func (m *mockCommentRepository) IDsByPost(ctx context.Context, ext sqlx.ExtContext, postID string) ([]string, error) {
	if m.idsByPostFn != nil {
		return m.idsByPostFn(ctx, ext, postID)
	}
	return nil, nil
}

func (m *mockCommentRepository) DeleteByPost(ctx context.Context, ext sqlx.ExtContext, postID string) error {
	if m.deleteByPostFn != nil {
		return m.deleteByPostFn(ctx, ext, postID)
	}
	return nil
}

func (m *mockCommentRepository) IncrementLikeCount(ctx context.Context, ext sqlx.ExtContext, commentID string, delta int) (int, error) {
	if m.incrementLikeFn != nil {
		return m.incrementLikeFn(ctx, ext, commentID, delta)
	}
	return 0, nil
}

func (m *mockCommentRepository) Report(ctx context.Context, commentID string) (int, error) {
	if m.reportFn != nil {
		return m.reportFn(ctx, commentID)
	}
	return 1, nil
}

func (m *mockCommentRepository) DismissReports(ctx context.Context, commentID string) error {
	if m.dismissReportsFn != nil {
		return m.dismissReportsFn(ctx, commentID)
	}
	return nil
}

func (m *mockCommentRepository) Exists(ctx context.Context, commentID string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, commentID)
	}
	return false, nil
}

// ---------------------------------------------------------------------------
// PostRepository

type mockPostRepository struct {
	createFn           func(ctx context.Context, post *model.Post, categoryIDs []string) error
	getByIDFn          func(ctx context.Context, postID string) (*model.Post, error)
	listFn             func(ctx context.Context, page, pageSize int, categorySlug string) ([]model.Post, int, error)
	updateFn           func(ctx context.Context, post *model.Post, categoryIDs []string) error
	hardDeleteFn       func(ctx context.Context, ext sqlx.ExtContext, postID string) error
	existsFn           func(ctx context.Context, postID string) (bool, error)
	getAuthorIDFn      func(ctx context.Context, postID string) (string, error)
	incrementLikeFn    func(ctx context.Context, ext sqlx.ExtContext, postID string, delta int) (int, error)
	incrementCommentFn func(ctx context.Context, ext sqlx.ExtContext, postID string, delta int) error
	addViewCountFn     func(ctx context.Context, postID string, n int64) error
	checkLikesFn       func(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)

	commentDeltas []int
}

func (m *mockPostRepository) Create(ctx context.Context, post *model.Post, categoryIDs []string) error {
	if m.createFn != nil {
		return m.createFn(ctx, post, categoryIDs)
	}
	return nil
}

func (m *mockPostRepository) GetByID(ctx context.Context, postID string) (*model.Post, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, postID)
	}
	return nil, model.ErrPostNotFound
}

func (m *mockPostRepository) List(ctx context.Context, page, pageSize int, categorySlug string) ([]model.Post, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, page, pageSize, categorySlug)
	}
	return nil, 0, nil
}

func (m *mockPostRepository) Update(ctx context.Context, post *model.Post, categoryIDs []string) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, post, categoryIDs)
	}
	return nil
}

func (m *mockPostRepository) HardDelete(ctx context.Context, ext sqlx.ExtContext, postID string) error {
	if m.hardDeleteFn != nil {
		return m.hardDeleteFn(ctx, ext, postID)
	}
	return nil
}

func (m *mockPostRepository) Exists(ctx context.Context, postID string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, postID)
	}
	return false, nil
}

func (m *mockPostRepository) GetAuthorID(ctx context.Context, postID string) (string, error) {
	if m.getAuthorIDFn != nil {
		return m.getAuthorIDFn(ctx, postID)
	}
	return "", model.ErrPostNotFound
}

func (m *mockPostRepository) IncrementLikeCount(ctx context.Context, ext sqlx.ExtContext, postID string, delta int) (int, error) {
	if m.incrementLikeFn != nil {
		return m.incrementLikeFn(ctx, ext, postID, delta)
	}
	return 0, nil
}

func (m *mockPostRepository) IncrementCommentCount(ctx context.Context, ext sqlx.ExtContext, postID string, delta int) error {
	m.commentDeltas = append(m.commentDeltas, delta)
	if m.incrementCommentFn != nil {
		return m.incrementCommentFn(ctx, ext, postID, delta)
	}
	return nil
}

func (m *mockPostRepository) AddViewCount(ctx context.Context, postID string, n int64) error {
	if m.addViewCountFn != nil {
		return m.addViewCountFn(ctx, postID, n)
	}
	return nil
}

func (m *mockPostRepository) CheckLikes(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	if m.checkLikesFn != nil {
		return m.checkLikesFn(ctx, userID, postIDs)
	}
	return map[string]bool{}, nil
}

// ---------------------------------------------------------------------------
// LikeRepository

type mockLikeRepository struct {
	insertFn          func(ctx context.Context, ext sqlx.ExtContext, like *model.Like) error
	deleteFn          func(ctx context.Context, ext sqlx.ExtContext, userID, targetID string, targetType model.TargetType) error
	existsFn          func(ctx context.Context, userID, targetID string, targetType model.TargetType) (bool, error)
	deleteByTargetsFn func(ctx context.Context, ext sqlx.ExtContext, targetType model.TargetType, targetIDs []string) (int64, error)
	listLikersFn      func(ctx context.Context, targetID string, targetType model.TargetType, filter model.LikerFilter, page, pageSize int) ([]model.Liker, int, error)

	deletedTargets [][]string
}

func (m *mockLikeRepository) Insert(ctx context.Context, ext sqlx.ExtContext, like *model.Like) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, ext, like)
	}
	return nil
}

func (m *mockLikeRepository) Delete(ctx context.Context, ext sqlx.ExtContext, userID, targetID string, targetType model.TargetType) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ext, userID, targetID, targetType)
	}
	return nil
}

func (m *mockLikeRepository) Exists(ctx context.Context, userID, targetID string, targetType model.TargetType) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, userID, targetID, targetType)
	}
	return false, nil
}

func (m *mockLikeRepository) DeleteByTargets(ctx context.Context, ext sqlx.ExtContext, targetType model.TargetType, targetIDs []string) (int64, error) {
	m.deletedTargets = append(m.deletedTargets, targetIDs)
	if m.deleteByTargetsFn != nil {
		return m.deleteByTargetsFn(ctx, ext, targetType, targetIDs)
	}
	return int64(len(targetIDs)), nil
}

func (m *mockLikeRepository) ListLikers(ctx context.Context, targetID string, targetType model.TargetType, filter model.LikerFilter, page, pageSize int) ([]model.Liker, int, error) {
	if m.listLikersFn != nil {
		return m.listLikersFn(ctx, targetID, targetType, filter, page, pageSize)
	}
	return nil, 0, nil
}

// ---------------------------------------------------------------------------
// UserRepository

type mockUserRepository struct {
	createFn             func(ctx context.Context, user *model.User) error
	getByIDFn            func(ctx context.Context, id string) (*model.User, error)
	getByUsernameFn      func(ctx context.Context, username string) (*model.User, error)
	existsByUsernameFn   func(ctx context.Context, username string) (bool, error)
	incrementPostCountFn func(ctx context.Context, ext sqlx.ExtContext, userID string, delta int) error

	createCalls    int
	postCountCalls []int
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.existsByUsernameFn != nil {
		return m.existsByUsernameFn(ctx, username)
	}
	return false, nil
}

func (m *mockUserRepository) IncrementPostCount(ctx context.Context, ext sqlx.ExtContext, userID string, delta int) error {
	m.postCountCalls = append(m.postCountCalls, delta)
	if m.incrementPostCountFn != nil {
		return m.incrementPostCountFn(ctx, ext, userID, delta)
	}
	return nil
}

// ---------------------------------------------------------------------------
// RefreshTokenRepository

type mockRefreshTokenRepository struct {
	createFn          func(ctx context.Context, token *model.RefreshToken) error
	findByTokenHashFn func(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	revokeFn          func(ctx context.Context, id string, replacedBy *string) error
	revokeAllFn       func(ctx context.Context, userID string) error
	deleteExpiredFn   func(ctx context.Context, olderThan time.Duration) (int64, error)

	created    []*model.RefreshToken
	revoked    []string
	revokedAll []string
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	m.created = append(m.created, token)
	if m.createFn != nil {
		return m.createFn(ctx, token)
	}
	return nil
}

func (m *mockRefreshTokenRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	if m.findByTokenHashFn != nil {
		return m.findByTokenHashFn(ctx, tokenHash)
	}
	return nil, model.ErrRefreshTokenNotFound
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, id string, replacedBy *string) error {
	m.revoked = append(m.revoked, id)
	if m.revokeFn != nil {
		return m.revokeFn(ctx, id, replacedBy)
	}
	return nil
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	m.revokedAll = append(m.revokedAll, userID)
	if m.revokeAllFn != nil {
		return m.revokeAllFn(ctx, userID)
	}
	return nil
}

func (m *mockRefreshTokenRepository) DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx, olderThan)
	}
	return 0, nil
}

// ---------------------------------------------------------------------------
// CategoryRepository

type mockCategoryRepository struct {
	createFn     func(ctx context.Context, category *model.Category) error
	getByIDFn    func(ctx context.Context, id string) (*model.Category, error)
	listFn       func(ctx context.Context) ([]model.Category, error)
	updateFn     func(ctx context.Context, category *model.Category) error
	deleteFn     func(ctx context.Context, id string) error
	listByPostFn func(ctx context.Context, postID string) ([]model.Category, error)
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *model.Category) error {
	if m.createFn != nil {
		return m.createFn(ctx, category)
	}
	return nil
}

func (m *mockCategoryRepository) GetByID(ctx context.Context, id string) (*model.Category, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrCategoryNotFound
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]model.Category, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, category *model.Category) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, category)
	}
	return nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockCategoryRepository) ListByPost(ctx context.Context, postID string) ([]model.Category, error) {
	if m.listByPostFn != nil {
		return m.listByPostFn(ctx, postID)
	}
	return nil, nil
}

// ---------------------------------------------------------------------------
// ViewCache

type mockViewCache struct {
	markViewedFn func(ctx context.Context, postID, viewerID string) (bool, error)
	trendingFn   func(ctx context.Context, limit int) ([]string, error)

	removedPosts []string
}

func (m *mockViewCache) MarkViewed(ctx context.Context, postID, viewerID string) (bool, error) {
	if m.markViewedFn != nil {
		return m.markViewedFn(ctx, postID, viewerID)
	}
	return false, nil
}

func (m *mockViewCache) BumpPending(ctx context.Context, postID string, n int64) error { return nil }

func (m *mockViewCache) DrainPending(ctx context.Context) (map[string]int64, error) { return nil, nil }

func (m *mockViewCache) BumpTrending(ctx context.Context, postID string, weight int64) error {
	return nil
}

func (m *mockViewCache) Trending(ctx context.Context, limit int) ([]string, error) {
	if m.trendingFn != nil {
		return m.trendingFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockViewCache) RemovePost(ctx context.Context, postID string) error {
	m.removedPosts = append(m.removedPosts, postID)
	return nil
}
