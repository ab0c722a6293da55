package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Aleksey-Sartakov/messenger/internal/config"
)

// HTTPNotifier calls the external notification service when a recipient has
// no open presence connection. One-way: the response body is not relied on.
type HTTPNotifier struct {
	baseURL string
	client  *http.Client
}

func NewHTTPNotifier(cfg config.NotifierConfig) *HTTPNotifier {
	return &HTTPNotifier{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (n *HTTPNotifier) Notify(ctx context.Context, recipientID, senderID int64) error {
	params := url.Values{}
	params.Set("recipient_id", strconv.FormatInt(recipientID, 10))
	params.Set("sender_id", strconv.FormatInt(senderID, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/notify/?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("notification service returned %d", resp.StatusCode)
	}
	return nil
}
