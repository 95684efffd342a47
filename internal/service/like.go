package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"inkwell/internal/model"
	"inkwell/internal/queue"
	"inkwell/internal/repository"
)

// LikeService keeps the like ledger and the denormalized like counters in
// step. Every like and unlike runs as one transaction: the ledger row and the
// counter adjustment commit together or not at all.
//
// Uniqueness is not checked up front. The ledger's unique index on
// (user_id, target_id, target_type) is the arbiter; when two concurrent likes
// race, the loser's insert fails and surfaces as ErrAlreadyLiked.
type LikeService struct {
	likeRepo    repository.LikeRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	txRunner    repository.TxRunner
	publisher   queue.Publisher
}

func NewLikeService(
	likeRepo repository.LikeRepository,
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	txRunner repository.TxRunner,
	publisher queue.Publisher,
) *LikeService {
	return &LikeService{
		likeRepo:    likeRepo,
		postRepo:    postRepo,
		commentRepo: commentRepo,
		txRunner:    txRunner,
		publisher:   publisher,
	}
}

// Like records a like and bumps the target's counter. Liking twice returns
// ErrAlreadyLiked with nothing changed.
func (s *LikeService) Like(ctx context.Context, userID, targetID string, targetType model.TargetType) (*model.LikeResult, error) {
	if !targetType.Valid() {
		return nil, model.ErrInvalidTargetType
	}
	if err := s.checkTarget(ctx, targetID, targetType); err != nil {
		return nil, err
	}

	like := &model.Like{
		ID:         uuid.NewString(),
		UserID:     userID,
		TargetID:   targetID,
		TargetType: targetType,
	}

	var count int
	err := s.txRunner.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.likeRepo.Insert(ctx, tx, like); err != nil {
			return err
		}
		var err error
		count, err = s.incrementCount(ctx, tx, targetID, targetType, 1)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[LikeService] User %s liked %s %s (count=%d)", userID, targetType, targetID, count)

	// Publish engagement event (after commit, best-effort)
	if s.publisher != nil && targetType == model.TargetPost {
		event := queue.NewPostLikedEvent(targetID, userID)
		if _, err := s.publisher.Publish(ctx, queue.StreamEngagement, event); err != nil {
			log.Printf("[LikeService] Failed to publish PostLiked event: %v", err)
		}
	}

	return &model.LikeResult{Liked: true, LikesCount: count}, nil
}

// Unlike removes a like and lowers the target's counter. Unliking something
// never liked returns ErrNotLiked with nothing changed.
func (s *LikeService) Unlike(ctx context.Context, userID, targetID string, targetType model.TargetType) (*model.LikeResult, error) {
	if !targetType.Valid() {
		return nil, model.ErrInvalidTargetType
	}
	if err := s.checkTarget(ctx, targetID, targetType); err != nil {
		return nil, err
	}

	var count int
	err := s.txRunner.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.likeRepo.Delete(ctx, tx, userID, targetID, targetType); err != nil {
			return err
		}
		var err error
		count, err = s.incrementCount(ctx, tx, targetID, targetType, -1)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[LikeService] User %s unliked %s %s (count=%d)", userID, targetType, targetID, count)
	return &model.LikeResult{Liked: false, LikesCount: count}, nil
}

// IsLiked reports whether the user has liked the target.
func (s *LikeService) IsLiked(ctx context.Context, userID, targetID string, targetType model.TargetType) (bool, error) {
	if !targetType.Valid() {
		return false, model.ErrInvalidTargetType
	}
	return s.likeRepo.Exists(ctx, userID, targetID, targetType)
}

// ListLikers returns one page of the users who liked a target, newest first
// unless the filter asks for username order.
func (s *LikeService) ListLikers(ctx context.Context, targetID string, targetType model.TargetType, filter model.LikerFilter, page, pageSize int) (*model.LikersListResponse, error) {
	if !targetType.Valid() {
		return nil, model.ErrInvalidTargetType
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	if err := s.checkTarget(ctx, targetID, targetType); err != nil {
		return nil, err
	}

	likers, total, err := s.likeRepo.ListLikers(ctx, targetID, targetType, filter, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list likers: %w", err)
	}

	return &model.LikersListResponse{
		Likers:   likers,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		HasMore:  page*pageSize < total,
	}, nil
}

// checkTarget verifies the like target exists and is likeable. Tombstoned
// comments are not.
func (s *LikeService) checkTarget(ctx context.Context, targetID string, targetType model.TargetType) error {
	switch targetType {
	case model.TargetPost:
		exists, err := s.postRepo.Exists(ctx, targetID)
		if err != nil {
			return fmt.Errorf("check post exists: %w", err)
		}
		if !exists {
			return model.ErrPostNotFound
		}
	case model.TargetComment:
		comment, err := s.commentRepo.GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		if comment.IsDeleted {
			return model.ErrCommentDeleted
		}
	}
	return nil
}

func (s *LikeService) incrementCount(ctx context.Context, tx *sqlx.Tx, targetID string, targetType model.TargetType, delta int) (int, error) {
	if targetType == model.TargetPost {
		return s.postRepo.IncrementLikeCount(ctx, tx, targetID, delta)
	}
	return s.commentRepo.IncrementLikeCount(ctx, tx, targetID, delta)
}
