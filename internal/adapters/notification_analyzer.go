package adapters

import (
	"context"

	"funnel_backend/internal/agent"
	"funnel_backend/internal/notification/ports"
	"funnel_backend/internal/transcript"

	"github.com/google/uuid"
)

// NotificationAnalyzer adapts the conversation analyzer agent.
type NotificationAnalyzer struct {
	analyzer *agent.ConversationAnalyzer
}

func NewNotificationAnalyzer(analyzer *agent.ConversationAnalyzer) *NotificationAnalyzer {
	return &NotificationAnalyzer{analyzer: analyzer}
}

func (a *NotificationAnalyzer) Analyze(ctx context.Context, leadID uuid.UUID, tr transcript.Transcript) (ports.Analysis, error) {
	res, err := a.analyzer.Analyze(ctx, leadID, tr)
	if err != nil {
		return ports.Analysis{}, err
	}
	return ports.Analysis{
		Summary:  res.Summary,
		Pains:    res.Pains,
		Benefits: res.Benefits,
		Script:   res.Script,
	}, nil
}

var _ ports.Analyzer = (*NotificationAnalyzer)(nil)
