package api_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/rparrett/jornet/internal/adapters/http/api"
	service "github.com/rparrett/jornet/internal/app"
	"github.com/rparrett/jornet/internal/domain/model"
	"github.com/rparrett/jornet/internal/gateway"
)

const adminToken = "test-admin-token"

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := service.New(service.WithWorkerCount(1))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)

	mux := http.NewServeMux()
	api.NewServer(svc, svc,
		api.WithAdminToken(adminToken),
		api.WithMaxTopLimit(100),
		api.WithMaxAroundWindow(50),
	).Register(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, out.Bytes()
}

func createBoard(t *testing.T, ts *httptest.Server, name, ordering string) (id, key uuid.UUID) {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/leaderboards", adminToken,
		map[string]string{"name": name, "ordering": ordering})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create leaderboard: status %d body %s", resp.StatusCode, body)
	}
	var out struct {
		ID  uuid.UUID `json:"id"`
		Key uuid.UUID `json:"key"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	return out.ID, out.Key
}

func TestScoreEndpoints(t *testing.T) {
	ts := startServer(t)
	boardID, boardKey := createBoard(t, ts, "speedrun", "higher_is_better")
	scoresURL := fmt.Sprintf("%s/api/v1/scores/%s", ts.URL, boardID)

	Convey("Given a provisioned leaderboard", t, func() {
		Convey("Submitting with the board key acks with a rank", func() {
			player := uuid.New()
			resp, body := doJSON(t, http.MethodPost, scoresURL, "", map[string]any{
				"player":      player,
				"player_name": "alice",
				"score":       120.5,
				"key":         boardKey.String(),
			})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var out struct {
				Rank    int  `json:"rank"`
				Changed bool `json:"changed"`
				Entry   struct {
					PlayerName string  `json:"player_name"`
					Score      float64 `json:"score"`
				} `json:"entry"`
			}
			So(json.Unmarshal(body, &out), ShouldBeNil)
			So(out.Rank, ShouldEqual, 1)
			So(out.Changed, ShouldBeTrue)
			So(out.Entry.PlayerName, ShouldEqual, "alice")
			So(out.Entry.Score, ShouldEqual, 120.5)
		})

		Convey("Submitting with a wrong key is rejected", func() {
			resp, body := doJSON(t, http.MethodPost, scoresURL, "", map[string]any{
				"player": uuid.New(),
				"score":  50.0,
				"key":    uuid.NewString(),
			})
			So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
			var out struct {
				Code string `json:"code"`
			}
			So(json.Unmarshal(body, &out), ShouldBeNil)
			So(out.Code, ShouldEqual, "authentication_failed")
		})

		Convey("Submitting to an unknown board is 404", func() {
			resp, _ := doJSON(t, http.MethodPost,
				fmt.Sprintf("%s/api/v1/scores/%s", ts.URL, uuid.New()), "",
				map[string]any{"player": uuid.New(), "score": 1.0, "key": boardKey.String()})
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("A malformed board id is 400", func() {
			resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/scores/not-a-uuid", "",
				map[string]any{"player": uuid.New(), "score": 1.0, "key": boardKey.String()})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestReadEndpoints(t *testing.T) {
	ts := startServer(t)
	boardID, boardKey := createBoard(t, ts, "arcade", "higher_is_better")
	scoresURL := fmt.Sprintf("%s/api/v1/scores/%s", ts.URL, boardID)

	players := make([]uuid.UUID, 5)
	for i := range players {
		players[i] = uuid.New()
		resp, body := doJSON(t, http.MethodPost, scoresURL, "", map[string]any{
			"player":      players[i],
			"player_name": fmt.Sprintf("p%d", i),
			"score":       float64(100 - 10*i),
			"key":         boardKey.String(),
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("seed submit: status %d body %s", resp.StatusCode, body)
		}
	}

	Convey("Given a board with five ranked players", t, func() {
		Convey("Top returns entries in rank order", func() {
			resp, body := doJSON(t, http.MethodGet, scoresURL+"?limit=3", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var out []struct {
				Rank       int     `json:"rank"`
				PlayerName string  `json:"player_name"`
				Score      float64 `json:"score"`
			}
			So(json.Unmarshal(body, &out), ShouldBeNil)
			So(out, ShouldHaveLength, 3)
			So(out[0].Rank, ShouldEqual, 1)
			So(out[0].PlayerName, ShouldEqual, "p0")
			So(out[2].Score, ShouldEqual, 80)
		})

		Convey("Top beyond the cap is rejected", func() {
			resp, body := doJSON(t, http.MethodGet, scoresURL+"?limit=1000", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			var out struct {
				Code string `json:"code"`
			}
			So(json.Unmarshal(body, &out), ShouldBeNil)
			So(out.Code, ShouldEqual, "limit_exceeded")
		})

		Convey("Rank returns the player's entry", func() {
			resp, body := doJSON(t, http.MethodGet,
				fmt.Sprintf("%s/api/v1/rank/%s/%s", ts.URL, boardID, players[2]), "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var out struct {
				Rank  int     `json:"rank"`
				Score float64 `json:"score"`
			}
			So(json.Unmarshal(body, &out), ShouldBeNil)
			So(out.Rank, ShouldEqual, 3)
			So(out.Score, ShouldEqual, 80)
		})

		Convey("Rank for an unranked player is 404 not_ranked", func() {
			resp, body := doJSON(t, http.MethodGet,
				fmt.Sprintf("%s/api/v1/rank/%s/%s", ts.URL, boardID, uuid.New()), "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			var out struct {
				Code string `json:"code"`
			}
			So(json.Unmarshal(body, &out), ShouldBeNil)
			So(out.Code, ShouldEqual, "not_ranked")
		})

		Convey("Around clamps at the top of the board", func() {
			resp, body := doJSON(t, http.MethodGet,
				fmt.Sprintf("%s/around/%s?window=2", scoresURL, players[0]), "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var out []struct {
				Rank int `json:"rank"`
			}
			So(json.Unmarshal(body, &out), ShouldBeNil)
			So(out, ShouldHaveLength, 3)
			So(out[0].Rank, ShouldEqual, 1)
		})

		Convey("History returns the retained entries", func() {
			resp, body := doJSON(t, http.MethodGet,
				fmt.Sprintf("%s/history/%s", scoresURL, players[1]), "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var out []struct {
				Score float64 `json:"score"`
			}
			So(json.Unmarshal(body, &out), ShouldBeNil)
			So(out, ShouldHaveLength, 1)
			So(out[0].Score, ShouldEqual, 90)
		})
	})
}

func TestSignedSubmission(t *testing.T) {
	ts := startServer(t)
	boardID, boardKey := createBoard(t, ts, "signed", "higher_is_better")
	scoresURL := fmt.Sprintf("%s/api/v1/scores/%s", ts.URL, boardID)

	Convey("Given a registered player", t, func() {
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/players", "",
			map[string]string{"name": "carol"})
		So(resp.StatusCode, ShouldEqual, http.StatusCreated)
		var player model.Player
		So(json.Unmarshal(body, &player), ShouldBeNil)
		So(player.Name, ShouldEqual, "carol")
		So(player.Key, ShouldNotEqual, uuid.Nil)

		Convey("A correctly signed submission is accepted", func() {
			ts0 := time.Now().UTC().Truncate(time.Second)
			sig := gateway.Sign(player.Key, boardKey, player.ID, 42, ts0, "")
			resp, body := doJSON(t, http.MethodPost, scoresURL, "", map[string]any{
				"player":    player.ID,
				"score":     42.0,
				"timestamp": ts0.Unix(),
				"k":         sig,
			})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var out struct {
				Rank  int `json:"rank"`
				Entry struct {
					PlayerName string `json:"player_name"`
				} `json:"entry"`
			}
			So(json.Unmarshal(body, &out), ShouldBeNil)
			So(out.Rank, ShouldEqual, 1)
			So(out.Entry.PlayerName, ShouldEqual, "carol")
		})

		Convey("A tampered score is rejected", func() {
			ts0 := time.Now().UTC().Truncate(time.Second)
			sig := gateway.Sign(player.Key, boardKey, player.ID, 42, ts0, "")
			resp, _ := doJSON(t, http.MethodPost, scoresURL, "", map[string]any{
				"player":    player.ID,
				"score":     9001.0,
				"timestamp": ts0.Unix(),
				"k":         sig,
			})
			So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
		})
	})
}

func TestAdminEndpoints(t *testing.T) {
	ts := startServer(t)

	Convey("Given the admin API", t, func() {
		Convey("Requests without the token are unauthorized", func() {
			resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/leaderboards", "",
				map[string]string{"name": "nope"})
			So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)

			resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/leaderboards", "wrong-token",
				map[string]string{"name": "nope"})
			So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("Create, list, rename, rotate and delete round-trip", func() {
			boardID, boardKey := createBoard(t, ts, "seasonal", "lower_is_better")

			resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/leaderboards", adminToken, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var boards []struct {
				ID       uuid.UUID `json:"id"`
				Name     string    `json:"name"`
				Ordering string    `json:"ordering"`
			}
			So(json.Unmarshal(body, &boards), ShouldBeNil)
			So(boards, ShouldHaveLength, 1)
			So(boards[0].Ordering, ShouldEqual, "lower_is_better")

			resp, _ = doJSON(t, http.MethodPatch,
				fmt.Sprintf("%s/api/v1/leaderboards/%s", ts.URL, boardID), adminToken,
				map[string]string{"name": "seasonal-2"})
			So(resp.StatusCode, ShouldEqual, http.StatusNoContent)

			resp, body = doJSON(t, http.MethodPost,
				fmt.Sprintf("%s/api/v1/leaderboards/%s/rotate", ts.URL, boardID), adminToken, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var rotated struct {
				Key uuid.UUID `json:"key"`
			}
			So(json.Unmarshal(body, &rotated), ShouldBeNil)
			So(rotated.Key, ShouldNotEqual, boardKey)

			resp, _ = doJSON(t, http.MethodDelete,
				fmt.Sprintf("%s/api/v1/leaderboards/%s", ts.URL, boardID), adminToken, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNoContent)

			resp, _ = doJSON(t, http.MethodGet,
				fmt.Sprintf("%s/api/v1/scores/%s", ts.URL, boardID), "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("Creating with a bad ordering is 400", func() {
			resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/leaderboards", adminToken,
				map[string]string{"name": "bad", "ordering": "sideways"})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	ts := startServer(t)

	Convey("Given a running server", t, func() {
		Convey("Stats reports service counters", func() {
			resp, body := doJSON(t, http.MethodGet, ts.URL+"/stats", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var stats map[string]any
			So(json.Unmarshal(body, &stats), ShouldBeNil)
			So(stats, ShouldContainKey, "started")
			So(stats, ShouldContainKey, "leaderboards")
		})

		Convey("Healthz serves Prometheus metrics", func() {
			resp, body := doJSON(t, http.MethodGet, ts.URL+"/healthz", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(string(body), ShouldContainSubstring, "jornet")
		})
	})
}
