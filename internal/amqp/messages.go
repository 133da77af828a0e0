package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ImportRequest asks the worker to re-import a workbook into SQLite.
// An empty Workbook means the worker's configured WORKBOOK_PATH.
type ImportRequest struct {
	ID          uuid.UUID `json:"id"`
	Workbook    string    `json:"workbook,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
	RequestedBy string    `json:"requested_by,omitempty"`
}

// NewImportRequest creates a request with a fresh ID.
func NewImportRequest(workbook, requestedBy string) *ImportRequest {
	return &ImportRequest{
		ID:          uuid.New(),
		Workbook:    workbook,
		RequestedAt: time.Now().UTC(),
		RequestedBy: requestedBy,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ImportRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ImportRequestFromJSON decodes and checks a request body.
func ImportRequestFromJSON(data []byte) (*ImportRequest, error) {
	var msg ImportRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == uuid.Nil {
		return nil, errors.New("import request without id")
	}
	return &msg, nil
}
