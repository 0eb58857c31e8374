package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/fortuna/mlbedge/internal/models"
)

// dashboardLinkPlaceholder matches spec.md §6's "dashboard link placeholder"
// requirement — this repo ships no dashboard, so the link is a fixed,
// documented stand-in rather than a real URL.
const dashboardLinkPlaceholder = "https://dashboard.mlbedge.internal/runs"

// AlertRow is one scored selection's payload shape inside an alert.
type AlertRow struct {
	EntityKind      string   `json:"entity_kind"`
	EntityID        int64    `json:"entity_id"`
	TeamAbbr        string   `json:"team_abbr"`
	BetType         string   `json:"bet_type"`
	Line            *float64 `json:"line,omitempty"`
	Side            string   `json:"side"`
	ModelScore      float64  `json:"model_score"`
	ModelProb       *float64 `json:"model_prob,omitempty"`
	ModelProjection *float64 `json:"model_projection,omitempty"`
	Edge            *float64 `json:"edge,omitempty"`
	Signal          string   `json:"signal"`
	ConfidenceBand  string   `json:"confidence_band"`
	Reasons         []string `json:"reasons"`
}

// Payload is the full webhook body for one market's alert on one date, per
// spec.md §6: date, market, top-K rows, dashboard link.
type Payload struct {
	GameDate      string     `json:"game_date"`
	Market        string     `json:"market"`
	Rows          []AlertRow `json:"rows"`
	DashboardLink string     `json:"dashboard_link"`
}

func rowFromSelection(sel models.ScoredSelection) AlertRow {
	return AlertRow{
		EntityKind:      sel.EntityKind,
		EntityID:        sel.EntityID,
		TeamAbbr:        sel.TeamAbbr,
		BetType:         sel.BetType,
		Line:            sel.Line,
		Side:            sel.Side,
		ModelScore:      sel.ModelScore,
		ModelProb:       sel.ModelProb,
		ModelProjection: sel.ModelProjection,
		Edge:            sel.Edge,
		Signal:          string(sel.Signal),
		ConfidenceBand:  string(sel.ConfidenceBand),
		Reasons:         sel.Reasons,
	}
}

// BuildPayload assembles the webhook body for one market's filtered rows.
func BuildPayload(gameDate, market string, selections []models.ScoredSelection) Payload {
	rows := make([]AlertRow, 0, len(selections))
	for _, sel := range selections {
		rows = append(rows, rowFromSelection(sel))
	}
	return Payload{
		GameDate:      gameDate,
		Market:        market,
		Rows:          rows,
		DashboardLink: dashboardLinkPlaceholder,
	}
}

// Notifier posts alert payloads to a configured webhook URL, the same
// marshal-then-http.NewRequestWithContext-then-POST shape as
// alert-service/internal/notifier.SlackNotifier.SendAlert, generalized from
// a Slack-formatted chat message to this spec's structured JSON document
// (date/market/rows/dashboard_link) since the alert consumer here is
// whatever system is on the other end of ALERT_WEBHOOK_URL, not
// specifically Slack.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

// NewNotifier builds a Notifier. An empty webhookURL is valid: Send then
// silently no-ops, per spec.md §6 ("absence of the webhook variable
// suppresses alerts silently").
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts payload to the configured webhook. A zero-row payload is
// skipped without a network call; a missing webhook URL is skipped
// silently.
func (n *Notifier) Send(ctx context.Context, payload Payload) error {
	if n.webhookURL == "" {
		log.Printf("⚠️  alerts: no webhook configured, suppressing alert for %s %s", payload.GameDate, payload.Market)
		return nil
	}
	if len(payload.Rows) == 0 {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send alert webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode)
	}

	log.Printf("✓ alert sent: %s %s (%d rows)", payload.GameDate, payload.Market, len(payload.Rows))
	return nil
}
