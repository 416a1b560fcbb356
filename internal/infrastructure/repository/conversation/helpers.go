package conversation

import (
	"context"
	"fmt"

	"github.com/janhq/answer-api/internal/utils/platformerrors"
)

func dbError(ctx context.Context, message string, err error, uuid string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, message, err, uuid)
}

func conversationNotFound(ctx context.Context, ref any) error {
	return platformerrors.NewError(
		ctx,
		platformerrors.LayerRepository,
		platformerrors.ErrorTypeNotFound,
		fmt.Sprintf("conversation not found: %v", ref),
		nil,
		"conversation-not-found",
	)
}
