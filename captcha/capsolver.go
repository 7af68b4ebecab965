package captcha

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	capsolverAPI     = "https://api.capsolver.com"
	pollInterval     = 3 * time.Second
	solveTimeout     = 120 * time.Second
	balanceWarnLevel = 5.0 // warn when balance drops below $5
)

// Capsolver implements Solver using the Capsolver API.
type Capsolver struct {
	apiKey string
	http   *resty.Client
	poll   time.Duration
}

// NewCapsolver creates a Capsolver client with the given API key.
func NewCapsolver(apiKey string) *Capsolver {
	client := resty.New()
	client.SetBaseURL(capsolverAPI)
	client.SetHeader("content-type", "application/json")
	client.SetTimeout(10 * time.Second)

	return &Capsolver{apiKey: apiKey, http: client, poll: pollInterval}
}

// apiError is the error envelope shared by every Capsolver response.
type apiError struct {
	ErrorID          int    `json:"errorId"`
	ErrorCode        string `json:"errorCode"`
	ErrorDescription string `json:"errorDescription"`
}

func (e apiError) err(op string) error {
	if e.ErrorID == 0 {
		return nil
	}
	return fmt.Errorf("capsolver %s error %s: %s", op, e.ErrorCode, e.ErrorDescription)
}

// Solve submits a FunCaptcha (Arkose Labs) challenge and polls for the token.
func (c *Capsolver) Solve(ctx context.Context, siteKey, pageURL string) (string, error) {
	if bal, err := c.Balance(ctx); err == nil && bal < balanceWarnLevel {
		slog.Warn("capsolver balance low", slog.Float64("balance", bal))
	}

	var created struct {
		apiError
		TaskID string `json:"taskId"`
	}
	err := c.post(ctx, "/createTask", map[string]any{
		"clientKey": c.apiKey,
		"task": map[string]any{
			"type":             "FunCaptchaTaskProxyLess",
			"websiteURL":       pageURL,
			"websitePublicKey": siteKey,
		},
	}, &created)
	if err != nil {
		return "", fmt.Errorf("capsolver createTask: %w", err)
	}
	if err := created.err("createTask"); err != nil {
		return "", err
	}
	if created.TaskID == "" {
		return "", fmt.Errorf("capsolver: empty taskId in response")
	}
	slog.Info("captcha task created", slog.String("task_id", created.TaskID))

	ctx, cancel := context.WithTimeout(ctx, solveTimeout)
	defer cancel()

	for {
		var result struct {
			apiError
			Status   string `json:"status"`
			Solution struct {
				Token string `json:"token"`
			} `json:"solution"`
		}
		err := c.post(ctx, "/getTaskResult", map[string]any{
			"clientKey": c.apiKey,
			"taskId":    created.TaskID,
		}, &result)
		if err != nil {
			return "", fmt.Errorf("capsolver getTaskResult: %w", err)
		}
		if err := result.err("getTaskResult"); err != nil {
			return "", err
		}

		switch result.Status {
		case "ready":
			if result.Solution.Token == "" {
				return "", fmt.Errorf("capsolver: ready but empty token")
			}
			slog.Info("captcha solved", slog.String("task_id", created.TaskID))
			return result.Solution.Token, nil
		case "processing", "idle":
			select {
			case <-time.After(c.poll):
			case <-ctx.Done():
				return "", fmt.Errorf("capsolver: %w", ctx.Err())
			}
		default:
			return "", fmt.Errorf("capsolver: unexpected status %q", result.Status)
		}
	}
}

// Balance returns the Capsolver account balance in USD.
func (c *Capsolver) Balance(ctx context.Context) (float64, error) {
	var resp struct {
		apiError
		Balance float64 `json:"balance"`
	}
	if err := c.post(ctx, "/getBalance", map[string]any{"clientKey": c.apiKey}, &resp); err != nil {
		return 0, err
	}
	if err := resp.err("getBalance"); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

// post sends a JSON request and decodes the JSON response into result.
func (c *Capsolver) post(ctx context.Context, path string, payload, result any) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(result).
		Post(path)
	if err != nil {
		return err
	}
	if res.StatusCode() != 200 {
		body := res.String()
		return fmt.Errorf("capsolver HTTP %d: %s", res.StatusCode(), body[:min(200, len(body))])
	}
	return nil
}
