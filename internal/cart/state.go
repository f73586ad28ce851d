package cart

import "time"

// State is the persisted cart document for one session.
type State struct {
	SessionID    string    `json:"session_id"`
	Items        []Item    `json:"items"`
	Summary      Summary   `json:"summary"`
	ServerSynced bool      `json:"server_synced"`
	Version      int64     `json:"version"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Clone returns a copy that shares no item storage with s.
func (s State) Clone() State {
	out := s
	out.Items = cloneItems(s.Items)
	return out
}

// ItemsCount is the sum of quantities across all lines.
func (s State) ItemsCount() int {
	total := 0
	for _, item := range s.Items {
		total += item.Quantity
	}
	return total
}
