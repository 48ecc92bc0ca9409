package calls

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	twilioAPIURL = "https://api.twilio.com"
	userAgent    = "spigell/asha"
)

// CallRequest describes an outbound call.
type CallRequest struct {
	To             string
	TwimlURL       string
	StatusCallback string
	Record         bool
}

// TwilioClient places calls through the Twilio REST API.
type TwilioClient struct {
	accountSID string
	authToken  string
	from       string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
}

// NewTwilioClient builds a client for the given account. from is the caller number.
func NewTwilioClient(logger *zap.Logger, accountSID, authToken, from string) *TwilioClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TwilioClient{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		logger:     logger,
		APIURL:     twilioAPIURL,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type callResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PlaceCall creates the call and returns its SID.
func (c *TwilioClient) PlaceCall(ctx context.Context, call CallRequest) (string, error) {
	form := url.Values{}
	form.Set("To", call.To)
	form.Set("From", c.from)
	form.Set("Url", call.TwimlURL)
	if call.StatusCallback != "" {
		form.Set("StatusCallback", call.StatusCallback)
		form.Set("StatusCallbackEvent", "completed")
	}
	if call.Record {
		form.Set("Record", "true")
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", c.APIURL, url.PathEscape(c.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("placing call", zap.String("url", endpoint), zap.String("twiml", call.TwimlURL))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read twilio response: %w", err)
	}

	var body callResponse
	_ = json.Unmarshal(data, &body)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		if body.Message != "" {
			return "", fmt.Errorf("twilio: bad status %s: %s (code %d)", resp.Status, body.Message, body.Code)
		}
		return "", fmt.Errorf("twilio: bad status %s", resp.Status)
	}
	if body.SID == "" {
		return "", fmt.Errorf("twilio: response without call sid")
	}

	return body.SID, nil
}
