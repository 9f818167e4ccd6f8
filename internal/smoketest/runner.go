// Package smoketest drives a live service through register, submit and
// query flows and verifies the rankings it gets back.
package smoketest

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rparrett/jornet/internal/gateway"
	"github.com/rparrett/jornet/pkg/logger"
)

type player struct {
	ID   uuid.UUID `json:"id"`
	Key  uuid.UUID `json:"key"`
	Name string    `json:"name"`

	best float64
}

type board struct {
	ID  uuid.UUID `json:"id"`
	Key uuid.UUID `json:"key"`
}

type submission struct {
	Score     float64   `json:"score"`
	Player    uuid.UUID `json:"player"`
	Timestamp int64     `json:"timestamp,omitempty"`
	K         string    `json:"k"`
}

type rankedEntry struct {
	Rank   int       `json:"rank"`
	Player uuid.UUID `json:"player"`
	Score  float64   `json:"score"`
}

// Run executes the complete smoke run.
func Run(ctx context.Context, cfg *Config) error {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Named("smoketest")

	log.Info(ctx, "starting smoke run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.NumPlayers),
		logger.Int("submissionsPerPlayer", cfg.SubmissionsPerPlayer),
		logger.Int("workers", cfg.Workers),
		logger.Int("topN", cfg.TopN))

	client := newHTTPClient(cfg.Timeout, cfg.AdminToken)

	if err := checkHealth(ctx, client, cfg); err != nil {
		return fmt.Errorf("health check: %w", err)
	}

	b, err := provisionBoard(ctx, client, cfg)
	if err != nil {
		return fmt.Errorf("provision board: %w", err)
	}
	log.Info(ctx, "provisioned board", logger.String("board", b.ID.String()))

	players, err := registerPlayers(ctx, client, cfg)
	if err != nil {
		return fmt.Errorf("register players: %w", err)
	}

	if err := submitScores(ctx, client, cfg, b, players, stats); err != nil {
		return fmt.Errorf("submit scores: %w", err)
	}

	if err := verifyRankings(ctx, client, cfg, b, players); err != nil {
		return fmt.Errorf("verify rankings: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	log.Info(ctx, "smoke run completed",
		logger.Int64("submitted", stats.Submitted.Load()),
		logger.Int64("accepted", stats.Accepted.Load()),
		logger.Int64("noops", stats.NoOps.Load()),
		logger.Int64("failed", stats.Failed.Load()),
		logger.String("duration", stats.Duration.String()))

	if failed := stats.Failed.Load(); failed > 0 {
		return fmt.Errorf("%d submissions failed", failed)
	}
	return nil
}

func checkHealth(ctx context.Context, client *httpClient, cfg *Config) error {
	status, err := client.get(ctx, cfg.BaseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status %d", status)
	}
	return nil
}

func provisionBoard(ctx context.Context, client *httpClient, cfg *Config) (board, error) {
	var b board
	name := fmt.Sprintf("smoke-%s", time.Now().Format("20060102-150405"))
	status, err := client.postAdmin(ctx, cfg.BaseURL+"/api/v1/leaderboards",
		map[string]string{"name": name, "ordering": "higher_is_better"}, &b)
	if err != nil {
		return board{}, err
	}
	if status != http.StatusCreated {
		return board{}, fmt.Errorf("unexpected status %d (is the admin token set?)", status)
	}
	return b, nil
}

func registerPlayers(ctx context.Context, client *httpClient, cfg *Config) ([]*player, error) {
	players := make([]*player, cfg.NumPlayers)
	for i := range players {
		p := &player{}
		status, err := client.post(ctx, cfg.BaseURL+"/api/v1/players",
			map[string]string{"name": fmt.Sprintf("smoke-player-%d", i)}, p)
		if err != nil {
			return nil, err
		}
		if status != http.StatusCreated {
			return nil, fmt.Errorf("unexpected status %d", status)
		}
		players[i] = p
	}
	return players, nil
}

// submitScores sends signed submissions concurrently and tracks each
// player's best score for later verification.
func submitScores(ctx context.Context, client *httpClient, cfg *Config, b board, players []*player, stats *Stats) error {
	log := logger.Named("smoketest")
	url := fmt.Sprintf("%s/api/v1/scores/%s", cfg.BaseURL, b.ID)

	jobs := make(chan submission, cfg.Workers*2)

	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range jobs {
				var out struct {
					Changed bool `json:"changed"`
				}
				stats.Submitted.Add(1)
				status, err := client.post(ctx, url, sub, &out)
				switch {
				case err != nil || status != http.StatusOK:
					stats.Failed.Add(1)
					log.Warn(ctx, "submission failed",
						logger.Int("status", status), logger.Error(err))
				case out.Changed:
					stats.Accepted.Add(1)
				default:
					stats.NoOps.Add(1)
				}
				if cfg.Verbose {
					log.Info(ctx, "submitted",
						logger.String("player", sub.Player.String()),
						logger.Float64("score", sub.Score),
						logger.Int("status", status))
				}
			}
		}()
	}

	for _, p := range players {
		for i := 0; i < cfg.SubmissionsPerPlayer; i++ {
			score := float64(rand.IntN(100_000)) / 10
			if score > p.best {
				p.best = score
			}
			ts := time.Now().UTC().Truncate(time.Second)
			jobs <- submission{
				Score:     score,
				Player:    p.ID,
				Timestamp: ts.Unix(),
				K:         gateway.Sign(p.Key, b.Key, p.ID, score, ts, ""),
			}
		}
	}
	close(jobs)
	wg.Wait()
	return nil
}

// verifyRankings fetches the top-N and cross-checks it against the best
// scores this run submitted.
func verifyRankings(ctx context.Context, client *httpClient, cfg *Config, b board, players []*player) error {
	url := fmt.Sprintf("%s/api/v1/scores/%s?limit=%d", cfg.BaseURL, b.ID, cfg.TopN)
	var top []rankedEntry
	status, err := client.get(ctx, url, &top)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("top query status %d", status)
	}
	if len(top) == 0 {
		return fmt.Errorf("empty leaderboard after %d players", len(players))
	}

	best := make(map[uuid.UUID]float64, len(players))
	for _, p := range players {
		best[p.ID] = p.best
	}

	for i, e := range top {
		if e.Rank != i+1 {
			return fmt.Errorf("rank %d reported at position %d", e.Rank, i+1)
		}
		if i > 0 && e.Score > top[i-1].Score {
			return fmt.Errorf("rank %d score %.1f exceeds rank %d score %.1f",
				e.Rank, e.Score, top[i-1].Rank, top[i-1].Score)
		}
		if want, ok := best[e.Player]; ok && e.Score != want {
			return fmt.Errorf("player %s ranked with %.1f, best submitted %.1f",
				e.Player, e.Score, want)
		}
	}

	// Spot-check the rank endpoint against the top view.
	probe := top[len(top)-1]
	var entry rankedEntry
	rankURL := fmt.Sprintf("%s/api/v1/rank/%s/%s", cfg.BaseURL, b.ID, probe.Player)
	status, err = client.get(ctx, rankURL, &entry)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("rank query status %d", status)
	}
	if entry.Rank != probe.Rank {
		return fmt.Errorf("rank endpoint reports %d, top view reports %d", entry.Rank, probe.Rank)
	}
	return nil
}
