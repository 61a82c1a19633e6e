// Command passportctl exercises a running passport service end to end:
// it seeds a player with a generated game log, requests a development
// report, polls until the report settles, and prints the outcome.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"
)

const (
	defaultGames       = 5
	defaultHTTPTimeout = 15 * time.Second
	defaultRunTimeout  = 5 * time.Minute
	pollInterval       = 500 * time.Millisecond
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:8080", "Base URL of the service")
		name    = flag.String("name", "Test Player", "Player display name")
		owner   = flag.String("owner", "passportctl", "Owner account ID for the player")
		games   = flag.Int("games", defaultGames, "Number of games to seed before requesting a report")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "Random seed for generated stat lines")
		timeout = flag.Duration("timeout", defaultHTTPTimeout, "HTTP request timeout")
		verbose = flag.Bool("verbose", false, "Print the full report content on completion")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	c := &client{
		baseURL: *baseURL,
		http:    &http.Client{Timeout: *timeout},
		rng:     rand.New(rand.NewSource(*seed)),
	}

	if err := c.run(ctx, *owner, *name, *games, *verbose); err != nil {
		os.Stderr.WriteString("passportctl: " + err.Error() + "\n")
		os.Exit(1)
	}
}

type client struct {
	baseURL string
	http    *http.Client
	rng     *rand.Rand
}

func (c *client) run(ctx context.Context, owner, name string, games int, verbose bool) error {
	playerID, err := c.createPlayer(ctx, owner, name)
	if err != nil {
		return fmt.Errorf("create player: %w", err)
	}
	fmt.Printf("created player %s (%q)\n", playerID, name)

	for i := 0; i < games; i++ {
		if err := c.addGame(ctx, playerID, i); err != nil {
			return fmt.Errorf("add game %d: %w", i+1, err)
		}
	}
	fmt.Printf("seeded %d games\n", games)

	reportID, err := c.requestReport(ctx, playerID)
	if err != nil {
		return fmt.Errorf("request report: %w", err)
	}
	fmt.Printf("report %s accepted, polling...\n", reportID)

	report, err := c.pollReport(ctx, reportID)
	if err != nil {
		return err
	}

	fmt.Printf("report %s: status=%s model=%s window=%q\n",
		reportID, report.Status, report.ModelUsed, report.ReportWindow)
	if report.Status == "failed" {
		return fmt.Errorf("generation failed: %s", report.Error)
	}
	fmt.Printf("share link: %s/share/%s\n", c.baseURL, report.ShareToken)
	if verbose {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, report.Content, "", "  "); err == nil {
			fmt.Println(pretty.String())
		}
	}

	return c.printStats(ctx)
}

func (c *client) createPlayer(ctx context.Context, owner, name string) (string, error) {
	var player struct {
		ID string `json:"ID"`
	}
	err := c.do(ctx, http.MethodPost, "/players", map[string]any{
		"owner_id": owner,
		"name":     name,
		"grade":    "10th",
		"position": "Guard",
		"goals":    []string{"make varsity", "improve outside shooting"},
	}, &player)
	return player.ID, err
}

// addGame posts a plausible stat line. Shot makes never exceed attempts so
// the lines always pass validation.
func (c *client) addGame(ctx context.Context, playerID string, n int) error {
	fga := 8 + c.rng.Intn(10)
	fgm := c.rng.Intn(fga + 1)
	tpa := c.rng.Intn(min(fga, 7) + 1)
	tpm := c.rng.Intn(tpa + 1)
	fta := c.rng.Intn(8)
	ftm := c.rng.Intn(fta + 1)

	return c.do(ctx, http.MethodPost, "/players/"+playerID+"/games", map[string]any{
		"game_date": time.Now().AddDate(0, 0, -(n + 1)).UTC(),
		"opponent":  fmt.Sprintf("Opponent %d", n+1),
		"minutes":   20 + c.rng.Intn(12),
		"pts":       fgm*2 + tpm + ftm,
		"reb":       c.rng.Intn(10),
		"ast":       c.rng.Intn(8),
		"stl":       c.rng.Intn(4),
		"blk":       c.rng.Intn(3),
		"tov":       c.rng.Intn(5),
		"fgm":       fgm,
		"fga":       fga,
		"tpm":       tpm,
		"tpa":       tpa,
		"ftm":       ftm,
		"fta":       fta,
	}, nil)
}

func (c *client) requestReport(ctx context.Context, playerID string) (string, error) {
	var accepted struct {
		ReportID string `json:"report_id"`
	}
	err := c.do(ctx, http.MethodPost, "/players/"+playerID+"/reports", nil, &accepted)
	return accepted.ReportID, err
}

type reportView struct {
	Status       string          `json:"status"`
	ReportWindow string          `json:"report_window"`
	ModelUsed    string          `json:"model_used"`
	ShareToken   string          `json:"share_token"`
	Error        string          `json:"error"`
	Content      json.RawMessage `json:"content"`
}

func (c *client) pollReport(ctx context.Context, reportID string) (*reportView, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		var report reportView
		if err := c.do(ctx, http.MethodGet, "/reports/"+reportID, nil, &report); err != nil {
			return nil, fmt.Errorf("poll report: %w", err)
		}
		if report.Status == "completed" || report.Status == "failed" {
			return &report, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("report %s still %s: %w", reportID, report.Status, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *client) printStats(ctx context.Context) error {
	var stats map[string]any
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &stats); err != nil {
		return fmt.Errorf("fetch stats: %w", err)
	}
	out, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println("service stats:")
	fmt.Println(string(out))
	return nil
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%s %s: %d %s: %s", method, path, resp.StatusCode, e.Code, e.Message)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
