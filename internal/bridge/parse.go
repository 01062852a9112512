package bridge

import (
	"encoding/json"
	"fmt"
)

// SaveRequest is the extension's "save this tab" payload, using the field
// names the WebExtension tabs API produces.
type SaveRequest struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	FavIconURL string `json:"favIconUrl"`
}

// ParseSaveRequest converts an IncomingMsg of type "saveTab" into a
// SaveRequest.
func ParseSaveRequest(msg IncomingMsg) (*SaveRequest, error) {
	if msg.Tab == nil {
		return nil, fmt.Errorf("saveTab message has no tab payload")
	}
	var req SaveRequest
	if err := json.Unmarshal(msg.Tab, &req); err != nil {
		return nil, fmt.Errorf("parse saveTab payload: %w", err)
	}
	if req.URL == "" {
		return nil, fmt.Errorf("saveTab payload has no url")
	}
	return &req, nil
}
