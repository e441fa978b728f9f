package repository

import "context"

type DecisionRepository interface {
	// AddLike and AddDislike report false when the decision already existed.
	AddLike(ctx context.Context, viewerID, candidateID int64) (bool, error)
	AddDislike(ctx context.Context, viewerID, candidateID int64) (bool, error)
	HasLiked(ctx context.Context, viewerID, candidateID int64) (bool, error)
	HasDisliked(ctx context.Context, viewerID, candidateID int64) (bool, error)
}
