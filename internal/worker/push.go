package worker

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/Maksimka7878/gorod/internal/models"
)

// pushPayload is the JSON body push senders post to the worker.
type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// ParsePushPayload decodes an incoming push body, filling the product
// defaults for missing fields. A body that is not JSON at all is an error;
// an empty body is treated as `{}`.
func ParsePushPayload(data []byte) (models.NotificationRequest, error) {
	payload := pushPayload{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return models.NotificationRequest{}, fmt.Errorf("decode push payload: %w", err)
		}
	}

	req := models.NotificationRequest{
		Title: payload.Title,
		Body:  payload.Body,
		URL:   payload.URL,
		Icon:  models.DefaultNotificationIcon,
	}
	if req.Title == "" {
		req.Title = models.DefaultNotificationTitle
	}
	if req.URL == "" {
		req.URL = models.DefaultNotificationURL
	}
	return req, nil
}

// HandlePush displays an incoming push through the hub.
func HandlePush(hub *Hub, data []byte) (models.NotificationRequest, error) {
	req, err := ParsePushPayload(data)
	if err != nil {
		return models.NotificationRequest{}, err
	}
	hub.Notify(req)
	log.Printf("[Worker] Push notification shown: %s", req.Title)
	return req, nil
}

// HandleNotificationClick routes a click to an attached context: focus
// the one already at the target URL, otherwise open a new window there.
func HandleNotificationClick(hub *Hub, url string) error {
	if url == "" {
		url = models.DefaultNotificationURL
	}
	if err := hub.FocusOrOpen(url); err != nil {
		log.Printf("[Worker] Notification click lost: %v", err)
		return err
	}
	return nil
}
