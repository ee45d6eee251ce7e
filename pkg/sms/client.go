package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Africa's Talking recipient status codes that mean the message was accepted.
const (
	StatusProcessed = 100
	StatusSent      = 101
	StatusQueued    = 102
)

type Client struct {
	BaseURL    string
	Username   string
	APIKey     string
	SenderID   string
	HTTPClient *http.Client
}

type Recipient struct {
	StatusCode int    `json:"statusCode"`
	Number     string `json:"number"`
	Status     string `json:"status"`
	Cost       string `json:"cost"`
	MessageID  string `json:"messageId"`
}

type SendMessageResponse struct {
	SMSMessageData struct {
		Message    string      `json:"Message"`
		Recipients []Recipient `json:"Recipients"`
	} `json:"SMSMessageData"`
}

func NewClient(baseURL, username, apiKey, senderID string) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Username: username,
		APIKey:   apiKey,
		SenderID: senderID,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NormalizePhoneNumber converts local Kenyan numbers (07xx, 01xx, 2547xx) to +254 form.
func NormalizePhoneNumber(phone string) string {
	phone = strings.Join(strings.Fields(phone), "")
	switch {
	case strings.HasPrefix(phone, "+"):
		return phone
	case strings.HasPrefix(phone, "254"):
		return "+" + phone
	case strings.HasPrefix(phone, "0") && len(phone) > 1:
		return "+254" + phone[1:]
	}
	return phone
}

// SendMessage posts one message to one recipient.
func (c *Client) SendMessage(ctx context.Context, phone, message string) (*SendMessageResponse, error) {
	if c.APIKey == "" || c.Username == "" {
		return nil, fmt.Errorf("sms credentials not configured")
	}

	form := url.Values{}
	form.Set("username", c.Username)
	form.Set("to", NormalizePhoneNumber(phone))
	form.Set("message", message)
	if c.SenderID != "" {
		form.Set("from", c.SenderID)
	}

	endpoint := fmt.Sprintf("%s/version1/messaging", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sms provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response SendMessageResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &response, nil
}

// Send delivers message to phone and fails unless the provider accepted it.
func (c *Client) Send(ctx context.Context, phone, message string) error {
	resp, err := c.SendMessage(ctx, phone, message)
	if err != nil {
		return err
	}

	recipients := resp.SMSMessageData.Recipients
	if len(recipients) == 0 {
		return fmt.Errorf("sms not sent: %s", resp.SMSMessageData.Message)
	}
	for _, r := range recipients {
		switch r.StatusCode {
		case StatusProcessed, StatusSent, StatusQueued:
		default:
			return fmt.Errorf("sms to %s rejected: %s (%d)", r.Number, r.Status, r.StatusCode)
		}
	}
	return nil
}
