package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// PlatformResult is the outcome of one publish attempt on one platform.
type PlatformResult struct {
	Platform   string `json:"platform"`
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
	URL        string `json:"url,omitempty"`
}

// PlatformResults is stored as JSONB in posts.last_error.
type PlatformResults []PlatformResult

func (r PlatformResults) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

func (r *PlatformResults) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = nil
		return nil
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return fmt.Errorf("cannot scan %T into PlatformResults", src)
	}
}

// AllSucceeded is false for an empty list: a post with no attempted platform is not published.
func (r PlatformResults) AllSucceeded() bool {
	if len(r) == 0 {
		return false
	}
	for _, res := range r {
		if !res.Success {
			return false
		}
	}
	return true
}

func (r PlatformResults) FailedPlatforms() []string {
	var out []string
	for _, res := range r {
		if !res.Success {
			out = append(out, res.Platform)
		}
	}
	return out
}
