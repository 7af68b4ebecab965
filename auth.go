package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/pquerna/otp/totp"
)

// arkosePublicKey is Twitter's well-known FunCaptcha public key for login flows.
const arkosePublicKey = "0152B4EB-D2DC-460A-89A1-629838B529C9"

const (
	onboardingURL  = twitterAPIURL + "/1.1/onboarding/task.json"
	guestURL       = twitterAPIURL + "/1.1/guest/activate.json"
	maxLoginRounds = 10
	loginTimeout   = 3 * time.Minute
)

// sessionDir returns the directory for persisting session cookies.
func sessionDir(override string) string {
	if override != "" {
		return override
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".twscrape", "sessions")
}

// sessionPath returns the file path for a given username's session.
func sessionPath(dir, username string) string {
	return filepath.Join(dir, username+".json")
}

// savedSession holds serialized cookie data for persistence.
type savedSession struct {
	AuthToken string    `json:"auth_token"`
	CT0       string    `json:"ct0"`
	SavedAt   time.Time `json:"saved_at"`
}

// saveSession persists auth_token and ct0 to disk.
func saveSession(dir, username, authToken, ct0 string) error {
	d := sessionDir(dir)
	if err := os.MkdirAll(d, 0700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	s := savedSession{AuthToken: authToken, CT0: ct0, SavedAt: time.Now()}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	path := sessionPath(d, username)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write session %s: %w", path, err)
	}
	slog.Debug("session saved", slog.String("user", username))
	return nil
}

// loadSession loads a persisted session from disk. A missing or expired
// session yields empty credentials and no error.
func loadSession(dir, username string, ttl time.Duration) (authToken, ct0 string, err error) {
	data, err := os.ReadFile(sessionPath(sessionDir(dir), username))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", "", nil
		}
		return "", "", err
	}
	var s savedSession
	if err := json.Unmarshal(data, &s); err != nil {
		return "", "", fmt.Errorf("decode session %s: %w", username, err)
	}
	if time.Since(s.SavedAt) > ttl {
		slog.Debug("session expired", slog.String("user", username))
		return "", "", nil
	}
	return s.AuthToken, s.CT0, nil
}

// relogin clears auth credentials and performs a fresh login.
func (c *Client) relogin(ctx context.Context, acc *Account) error {
	slog.Info("attempting relogin", slog.String("user", acc.Username))

	acc.SetCredentials("", "")
	_ = os.Remove(sessionPath(sessionDir(c.cfg.SessionDir), acc.Username))

	if err := c.loadOrLogin(ctx, acc, c.clientForAccount(acc)); err != nil {
		return fmt.Errorf("relogin %s: %w", acc.Username, err)
	}

	acc.Reset()
	slog.Info("relogin succeeded", slog.String("user", acc.Username))
	return nil
}

// loadOrLogin attempts to load a persisted session, falling back to login.
func (c *Client) loadOrLogin(ctx context.Context, acc *Account, client httpDoer) error {
	authToken, ct0, err := loadSession(c.cfg.SessionDir, acc.Username, c.cfg.SessionTTL)
	if err != nil {
		slog.Warn("error loading session", slog.String("user", acc.Username), slog.Any("error", err))
	}
	if authToken != "" && ct0 != "" {
		acc.SetCredentials(authToken, ct0)
		slog.Info("loaded session from disk", slog.String("user", acc.Username))
		return nil
	}

	if authTok, ct0, _ := acc.Credentials(); authTok != "" && ct0 != "" {
		slog.Info("using provided credentials", slog.String("user", acc.Username))
		c.persist(acc)
		return nil
	}

	if acc.Password == "" {
		return fmt.Errorf("no session and no password for account %s", acc.Username)
	}

	if err := c.login(ctx, acc, client); err != nil {
		return fmt.Errorf("login failed for %s: %w", acc.Username, err)
	}
	c.persist(acc)
	return nil
}

// subtaskInput is the body of one answered onboarding subtask.
type subtaskInput map[string]any

// loginStep answers one onboarding subtask.
type loginStep func(ctx context.Context, c *Client, acc *Account) (subtaskInput, error)

func nextLink(key string, fields map[string]any) subtaskInput {
	v := map[string]any{"link": "next_link"}
	for k, f := range fields {
		v[k] = f
	}
	return subtaskInput{key: v}
}

// loginSteps maps each known subtask to the answer it expects.
var loginSteps = map[string]loginStep{
	"LoginJsInstrumentationSubtask": func(context.Context, *Client, *Account) (subtaskInput, error) {
		return nextLink("js_instrumentation", map[string]any{"response": `{"rf":{"a":"b"},"s":"s"}`}), nil
	},
	"LoginEnterUserIdentifierSSO": func(_ context.Context, _ *Client, acc *Account) (subtaskInput, error) {
		return nextLink("settings_list", map[string]any{
			"setting_responses": []any{map[string]any{
				"key":           "user_identifier",
				"response_data": map[string]any{"text_data": map[string]any{"result": acc.Username}},
			}},
		}), nil
	},
	"LoginEnterPassword": func(_ context.Context, _ *Client, acc *Account) (subtaskInput, error) {
		return nextLink("enter_password", map[string]any{"password": acc.Password}), nil
	},
	"LoginEnterAlternateIdentifierSubtask": func(_ context.Context, _ *Client, acc *Account) (subtaskInput, error) {
		return nextLink("enter_text", map[string]any{"text": acc.Username}), nil
	},
	"LoginTwoFactorAuthChallenge": func(_ context.Context, _ *Client, acc *Account) (subtaskInput, error) {
		if acc.TOTPSecret == "" {
			return nil, fmt.Errorf("2FA required but no TOTP secret for %s", acc.Username)
		}
		code, err := totp.GenerateCode(acc.TOTPSecret, time.Now())
		if err != nil {
			return nil, fmt.Errorf("TOTP code generation failed for %s: %w", acc.Username, err)
		}
		slog.Info("submitting TOTP code", slog.String("user", acc.Username))
		return nextLink("enter_text", map[string]any{"text": code}), nil
	},
	"LoginArkoseChallenge": solveCaptcha,
	"LoginArkoseCaptcha":   solveCaptcha,
	"LoginEnterRecaptcha":  solveCaptcha,
}

func solveCaptcha(ctx context.Context, c *Client, acc *Account) (subtaskInput, error) {
	if c.cfg.CaptchaSolver == nil {
		return nil, fmt.Errorf("CAPTCHA required but no solver configured for %s", acc.Username)
	}
	token, err := c.cfg.CaptchaSolver.Solve(ctx, arkosePublicKey, defaultBaseURL)
	if err != nil {
		return nil, fmt.Errorf("CAPTCHA solve failed for %s: %w", acc.Username, err)
	}
	slog.Info("CAPTCHA solved for login", slog.String("user", acc.Username))
	return subtaskInput{"web_modal": map[string]any{
		"completion_deeplink": "twitter://onboarding/web_modal/next_link?access_token=" + token,
	}}, nil
}

// terminalSubtasks end the flow successfully.
var terminalSubtasks = map[string]bool{
	"LoginSuccessSubtask":     true,
	"AccountDuplicationCheck": true,
}

// login performs Twitter's multi-step login flow.
func (c *Client) login(ctx context.Context, acc *Account, client httpDoer) error {
	slog.Info("logging in", slog.String("user", acc.Username))

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	guestToken, err := c.acquireGuestToken(ctx, client)
	if err != nil {
		return fmt.Errorf("get guest token: %w", err)
	}

	fr, err := postFlow(client, guestToken, onboardingURL+"?flow_name=login", loginInitPayload)
	if err != nil {
		return fmt.Errorf("init login flow: %w", err)
	}

	for round := 0; ; round++ {
		if len(fr.Subtasks) == 0 {
			break
		}
		if round == maxLoginRounds {
			return fmt.Errorf("login flow for %s did not finish after %d rounds", acc.Username, maxLoginRounds)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		subtaskID := fr.Subtasks[0].SubtaskID
		slog.Debug("login subtask", slog.String("user", acc.Username), slog.String("subtask", subtaskID))

		if terminalSubtasks[subtaskID] {
			slog.Debug("login flow complete", slog.String("user", acc.Username), slog.String("terminal", subtaskID))
			break
		}
		if subtaskID == "DenyLoginSubtask" {
			return fmt.Errorf("login denied for %s (account may be locked or disabled)", acc.Username)
		}

		step, ok := loginSteps[subtaskID]
		if !ok {
			slog.Warn("unknown login subtask, skipping", slog.String("user", acc.Username), slog.String("subtask", subtaskID))
			step = func(context.Context, *Client, *Account) (subtaskInput, error) {
				return nextLink("action_list", nil), nil
			}
		}
		input, err := step(ctx, c, acc)
		if err != nil {
			return err
		}
		payload, err := flowPayload(fr.FlowToken, subtaskID, input)
		if err != nil {
			return err
		}
		if fr, err = postFlow(client, guestToken, onboardingURL, payload); err != nil {
			return fmt.Errorf("login subtask %s for %s: %w", subtaskID, acc.Username, err)
		}
	}

	authToken := client.GetCookieValue(twitterAPIURL, "auth_token")
	if authToken == "" {
		authToken = client.GetCookieValue(defaultBaseURL, "auth_token")
	}
	ct0 := client.GetCookieValue(twitterAPIURL, "ct0")
	if ct0 == "" {
		ct0 = client.GetCookieValue(defaultBaseURL, "ct0")
	}
	if ct0 == "" {
		ct0 = GenerateCT0()
	}

	if authToken == "" {
		return fmt.Errorf("login completed but no auth_token in cookies for %s", acc.Username)
	}

	acc.SetCredentials(authToken, ct0)
	slog.Info("login successful", slog.String("user", acc.Username))
	return nil
}

// getGuestToken fetches a Twitter guest token.
func getGuestToken(client httpDoer) (string, error) {
	headers := map[string]string{
		"authorization": "Bearer " + BearerToken,
		"content-type":  "application/json",
		"user-agent":    defaultUserAgent,
	}
	body, _, status, err := client.DoWithHeaderOrder("POST", guestURL, headers, nil, twitterHeaderOrder)
	if err != nil {
		return "", err
	}
	if status != 200 {
		return "", fmt.Errorf("guest token: HTTP %d", status)
	}
	var resp struct {
		GuestToken string `json:"guest_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if resp.GuestToken == "" {
		return "", fmt.Errorf("empty guest token in response")
	}
	return resp.GuestToken, nil
}

// acquireGuestToken fetches a fresh guest token with exponential backoff.
func (c *Client) acquireGuestToken(ctx context.Context, client httpDoer) (string, error) {
	backoff := stealth.BackoffConfig{
		InitialWait: 2 * time.Second,
		MaxWait:     60 * time.Second,
		Multiplier:  2.0,
		JitterPct:   0.3,
	}
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff.Duration(attempt)):
			}
		}
		token, err := getGuestToken(client)
		if err == nil {
			return token, nil
		}
		lastErr = err
		slog.Warn("guest token acquisition failed", slog.Int("attempt", attempt+1), slog.Any("error", err))
	}
	return "", fmt.Errorf("acquire guest token after %d attempts: %w", maxRetries, lastErr)
}

// loginInitPayload is the subtask_versions body for flow_name=login.
const loginInitPayload = `{"input_flow_data":{"flow_context":{"debug_overrides":{},"start_location":{"location":"splash_screen"}}},"subtask_versions":{"action_list":2,"alert_dialog":1,"app_download_cta":1,"check_logged_in_account":1,"choice_selection":3,"contacts_live_sync_permission_prompt":0,"cta":7,"email_verification":2,"end_flow":1,"enter_date":1,"enter_email":2,"enter_password":5,"enter_phone":2,"enter_recaptcha":1,"enter_text":5,"enter_username":2,"generic_urt":3,"in_app_notification":1,"interest_picker":3,"js_instrumentation":1,"menu_dialog":1,"notifications_permission_prompt":2,"open_account":2,"open_home_timeline":1,"open_link":1,"phone_verification":4,"privacy_options":1,"security_key":3,"select_avatar":4,"select_banner":2,"settings_list":7,"show_code":1,"sign_up":2,"sign_up_review":4,"tweet_selection_urt":1,"update_users":1,"upload_media":1,"user_recommendations_list":4,"user_recommendations_urt":1,"wait_spinner":3,"web_modal":1}}`

type flowResponse struct {
	FlowToken string        `json:"flow_token"`
	Subtasks  []flowSubtask `json:"subtasks"`
}

type flowSubtask struct {
	SubtaskID string `json:"subtask_id"`
}

func parseFlowResponse(body []byte) (*flowResponse, error) {
	var fr flowResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return nil, fmt.Errorf("parse flow response: %w", err)
	}
	if fr.FlowToken == "" {
		return nil, fmt.Errorf("empty flow_token in response: %s", truncateBytes(body, 200))
	}
	return &fr, nil
}

// flowPayload encodes the answer to one subtask.
func flowPayload(flowToken, subtaskID string, input subtaskInput) (string, error) {
	answer := subtaskInput{"subtask_id": subtaskID}
	for k, v := range input {
		answer[k] = v
	}
	b, err := json.Marshal(map[string]any{
		"flow_token":     flowToken,
		"subtask_inputs": []subtaskInput{answer},
	})
	if err != nil {
		return "", fmt.Errorf("encode %s answer: %w", subtaskID, err)
	}
	return string(b), nil
}

func postFlow(client httpDoer, guestToken, rawURL, payload string) (*flowResponse, error) {
	body, _, status, err := client.DoWithHeaderOrder("POST", rawURL,
		loginFlowHeaders(guestToken, ""), strings.NewReader(payload), twitterHeaderOrder)
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, fmt.Errorf("flow step HTTP %d: %s", status, truncateBytes(body, 300))
	}
	return parseFlowResponse(body)
}
