package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"steamtracker/internal/misc"
)

var ErrMailjet = errors.New("Mailjet error")

// Email is a single message, every address in To receives the same copy.
type Email struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

type MailjetSendRequest struct {
	Messages []MailjetMessage `json:"Messages"`
}

type MailjetMessage struct {
	From     MailjetAddress   `json:"From"`
	To       []MailjetAddress `json:"To"`
	Subject  string           `json:"Subject"`
	TextPart string           `json:"TextPart"`
	HTMLPart string           `json:"HTMLPart"`
}

type MailjetAddress struct {
	Email string `json:"Email"`
	Name  string `json:"Name,omitempty"`
}

type MailjetSendResponse struct {
	Messages []MailjetMessageResult `json:"Messages"`
}

type MailjetMessageResult struct {
	Status string `json:"Status"`
	Errors []struct {
		ErrorCode    string `json:"ErrorCode"`
		ErrorMessage string `json:"ErrorMessage"`
	} `json:"Errors"`
	To []struct {
		Email     string `json:"Email"`
		MessageID int64  `json:"MessageID"`
	} `json:"To"`
}

func (c Client) mailjetRequest(e Email) MailjetSendRequest {
	msg := MailjetMessage{
		From:     MailjetAddress{Email: c.FromEmail, Name: orDefault(c.FromName, "SteamPriceTracker")},
		Subject:  e.Subject,
		TextPart: e.Text,
		HTMLPart: e.HTML,
	}
	if msg.HTMLPart == "" {
		msg.HTMLPart = "<p>" + e.Text + "</p>"
	}
	for _, to := range e.To {
		msg.To = append(msg.To, MailjetAddress{Email: to, Name: "User"})
	}
	return MailjetSendRequest{Messages: []MailjetMessage{msg}}
}

// MailjetSend sends e through the Mailjet v3.1 send API. Any non-2xx status or
// a message result other than "success" is returned as ErrMailjet.
func (c Client) MailjetSend(ctx context.Context, e Email) (int, MailjetSendResponse, error) {
	var mjResp MailjetSendResponse
	if len(e.To) == 0 {
		return 0, mjResp, errors.Wrap(ErrMailjet, "MailjetSend: no recipients")
	}
	reqBody, err := json.Marshal(c.mailjetRequest(e))
	if err != nil {
		return 0, mjResp, errors.Wrapf(err, "MailjetSend: request JSON marshalling error, subject: %s", e.Subject)
	}

	apiURL := orDefault(c.MailjetBaseURL, mailjetBaseURL) + "/v3.1/send"
	req, err := newRequest(ctx, http.MethodPost, apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return 0, mjResp, errors.Wrapf(err, "MailjetSend: error creating HTTP request to %s", apiURL)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.MailjetAPIKey, c.MailjetSecretKey)

	resp, err := c.Do(req)
	if err != nil {
		return 0, mjResp, errors.Wrapf(ErrMailjet, "MailjetSend: error doing request to %s, err: %v", apiURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.Logger.Errorf("MailjetSend: Error closing response body, err: %v", err)
		}
	}()

	respBody, err := io.ReadAll(http.MaxBytesReader(nil, resp.Body, 300*1024))
	if err != nil {
		return resp.StatusCode, mjResp, errors.Wrapf(ErrMailjet,
			"MailjetSend: error reading response body, status: %s, err: %v", resp.Status, err)
	}
	// Error responses may not be JSON, the status code decides.
	_ = json.Unmarshal(respBody, &mjResp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, mjResp, errors.Wrapf(ErrMailjet, "MailjetSend: status: %s, body:\n%s",
			resp.Status, misc.BytesLimit(respBody, 1000))
	}
	for _, m := range mjResp.Messages {
		if m.Status != "success" {
			return resp.StatusCode, mjResp, errors.Wrapf(ErrMailjet, "MailjetSend: message status: %s, body:\n%s",
				m.Status, misc.BytesLimit(respBody, 1000))
		}
	}
	return resp.StatusCode, mjResp, nil
}
