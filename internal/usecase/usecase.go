package usecase

import "context"

type CaptionUC interface {
	Caption(ctx context.Context, req *CaptionReq) (*CaptionRes, error)
}
