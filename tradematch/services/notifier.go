package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/webhook"
	"github.com/disgoorg/snowflake/v2"

	"github.com/gohye/tradematch/tradematch/database/models"
)

const notifyTimeout = 10 * time.Second

// MatchNotifier announces newly computed high quality matches on a discord
// webhook. Delivery is fire-and-forget: a dead webhook is logged and the
// match computation that triggered it is unaffected.
type MatchNotifier struct {
	client     webhook.Client
	minQuality int
}

// NewMatchNotifier builds a notifier for the given webhook. minQuality gates
// direct matches by quality score and triangular matches by balance score
// scaled to the same 0-100 range.
func NewMatchNotifier(webhookID snowflake.ID, token string, minQuality int) *MatchNotifier {
	return &MatchNotifier{
		client:     webhook.New(webhookID, token),
		minQuality: minQuality,
	}
}

func (n *MatchNotifier) NotifyDirect(_ context.Context, match *models.MatchCandidate) {
	if match.QualityScore < n.minQuality {
		return
	}

	content := fmt.Sprintf("New trade match (score %d): %s and %s can trade %d items for %d items",
		match.QualityScore,
		match.UserA, match.UserB,
		len(match.ItemsAReceives), len(match.ItemsBReceives))

	n.send(content)
}

func (n *MatchNotifier) NotifyTriangular(_ context.Context, match *models.TriangularMatch) {
	if int(match.BalanceScore*100) < n.minQuality {
		return
	}

	content := fmt.Sprintf("New %d-way trade cycle (balance %.2f): %s",
		len(match.Participants),
		match.BalanceScore,
		strings.Join(match.Participants, " -> "))

	n.send(content)
}

func (n *MatchNotifier) send(content string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if _, err := n.client.CreateContent(content, rest.WithCtx(ctx)); err != nil {
			slog.Warn("Failed to deliver match notification",
				slog.Any("error", err))
		}
	}()
}
