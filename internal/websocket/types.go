package websocket

import "shipscan/scanner-api/internal/model"

// Message is the frame sent to subscribers for every job state.
type Message struct {
	Type      string        `json:"type"`
	Data      model.ScanJob `json:"data"`
	Timestamp int64         `json:"timestamp"`
}

const messageTypeScan = "scan"
