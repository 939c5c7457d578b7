package port

import "context"

type SummaryPublisher interface {
	PublishSummary(ctx context.Context, msg []byte) error
}
