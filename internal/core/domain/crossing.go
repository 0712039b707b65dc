package domain

import (
	"encoding/json"
	"fmt"
)

// Crossing is a monitored point of interest, typically a border checkpoint.
// Keys other than name and coordinates are kept in Metadata and written back
// unchanged, so crossing files may carry arbitrary extra attributes.
type Crossing struct {
	Name        string         `json:"name"`
	Coordinates GeoPoint       `json:"coordinates"`
	Metadata    map[string]any `json:"-"`
}

// State returns the "US State" attribute when present.
func (c Crossing) State() string {
	s, _ := c.Metadata["US State"].(string)
	return s
}

func (c *Crossing) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = Crossing{}
	if v, ok := raw["name"]; ok {
		if err := json.Unmarshal(v, &c.Name); err != nil {
			return fmt.Errorf("crossing name: %w", err)
		}
		delete(raw, "name")
	}
	if v, ok := raw["coordinates"]; ok {
		if err := json.Unmarshal(v, &c.Coordinates); err != nil {
			return fmt.Errorf("crossing %q coordinates: %w", c.Name, err)
		}
		delete(raw, "coordinates")
	}

	for k, v := range raw {
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("crossing %q field %s: %w", c.Name, k, err)
		}
		if c.Metadata == nil {
			c.Metadata = make(map[string]any, len(raw))
		}
		c.Metadata[k] = val
	}
	return nil
}

func (c Crossing) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Metadata)+2)
	for k, v := range c.Metadata {
		out[k] = v
	}
	out["name"] = c.Name
	out["coordinates"] = c.Coordinates
	return json.Marshal(out)
}
