/*
toml.go - Center definitions from TOML configuration

PURPOSE:
  Operators describe the center network declaratively; this file turns
  those definitions into validated Center values. Validation is strict:
  a malformed center definition fails loading rather than silently
  producing a center the allocator cannot use.

EXAMPLE:
  [[centers]]
  id = "ASK001"
  name = "ASK Delhi - Connaught Place"
  city = "New Delhi"
  pincode = "110001"
  hourly_capacity = 50
  open_hour = 9
  close_hour = 17

SEE ALSO:
  - config/config.go: Embeds these definitions in the server config
*/
package centers

import (
	"fmt"

	"github.com/warp/allocation-engine/engine"
)

// Definition is the TOML shape of one center.
type Definition struct {
	ID             string `toml:"id"`
	Name           string `toml:"name"`
	City           string `toml:"city"`
	Pincode        string `toml:"pincode"`
	HourlyCapacity int    `toml:"hourly_capacity"`
	OpenHour       int    `toml:"open_hour"`
	CloseHour      int    `toml:"close_hour"`
}

// FromDefinitions validates and converts configured definitions. An empty
// list falls back to the demo network.
func FromDefinitions(defs []Definition) ([]Center, error) {
	if len(defs) == 0 {
		return DefaultCenters(), nil
	}

	out := make([]Center, 0, len(defs))
	seen := make(map[string]bool)
	for i, def := range defs {
		if def.ID == "" || def.Name == "" {
			return nil, fmt.Errorf("center %d: id and name are required", i)
		}
		if seen[def.ID] {
			return nil, fmt.Errorf("center %d: duplicate id %q", i, def.ID)
		}
		seen[def.ID] = true

		if def.HourlyCapacity <= 0 {
			return nil, fmt.Errorf("center %s: hourly_capacity must be positive", def.ID)
		}
		if def.OpenHour < 0 || def.CloseHour > 24 || def.OpenHour >= def.CloseHour {
			return nil, fmt.Errorf("center %s: invalid hours [%d, %d)", def.ID, def.OpenHour, def.CloseHour)
		}

		out = append(out, Center{
			ID:             engine.CenterID(def.ID),
			Name:           def.Name,
			City:           def.City,
			Pincode:        def.Pincode,
			HourlyCapacity: def.HourlyCapacity,
			OpenHour:       def.OpenHour,
			CloseHour:      def.CloseHour,
		})
	}
	return out, nil
}
