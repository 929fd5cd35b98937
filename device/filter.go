package device

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pyobs/pyobs-sbig/sbigudrv"
)

// ErrNoFilterWheel is returned by filter operations when the config names
// no wheel.
var ErrNoFilterWheel = fmt.Errorf("no filter wheel configured")

// cfwModels maps config strings to wheel models.
var cfwModels = map[string]sbigudrv.CFWModel{
	"CFW2":     sbigudrv.CFW2,
	"CFW5":     sbigudrv.CFW5,
	"CFW8":     sbigudrv.CFW8,
	"CFWL":     sbigudrv.CFWL,
	"CFW402":   sbigudrv.CFW402,
	"AUTO":     sbigudrv.CFWAuto,
	"CFW6A":    sbigudrv.CFW6A,
	"CFW10":    sbigudrv.CFW10,
	"CFW10-SA": sbigudrv.CFW10Serial,
	"CFW9":     sbigudrv.CFW9,
	"CFW-L8":   sbigudrv.CFWL8,
	"CFW-L8G":  sbigudrv.CFWL8G,
	"CFW1603":  sbigudrv.CFW1603,
	"FW5-STX":  sbigudrv.FW5STX,
	"FW5-8300": sbigudrv.FW58300,
	"FW8-8300": sbigudrv.FW88300,
	"FW7-STX":  sbigudrv.FW7STX,
	"FW8-STT":  sbigudrv.FW8STT,
	"FW5-STF":  sbigudrv.FW5STF,
}

// wheelSlots is the position count per model, for the default name table.
var wheelSlots = map[sbigudrv.CFWModel]int{
	sbigudrv.CFW2:        2,
	sbigudrv.CFW5:        5,
	sbigudrv.CFW8:        5,
	sbigudrv.CFWL:        5,
	sbigudrv.CFW402:      4,
	sbigudrv.CFW6A:       6,
	sbigudrv.CFW10:       10,
	sbigudrv.CFW10Serial: 10,
	sbigudrv.CFW9:        5,
	sbigudrv.CFWL8:       8,
	sbigudrv.CFWL8G:      8,
	sbigudrv.CFW1603:     5,
	sbigudrv.FW5STX:      5,
	sbigudrv.FW58300:     5,
	sbigudrv.FW88300:     8,
	sbigudrv.FW7STX:      7,
	sbigudrv.FW8STT:      8,
	sbigudrv.FW5STF:      5,
}

// ParseCFWModel resolves a config string like "CFW-L8" to a wheel model.
// The empty string means no wheel.
func ParseCFWModel(s string) (sbigudrv.CFWModel, error) {
	if s == "" {
		return sbigudrv.CFWUnknown, nil
	}
	m, ok := cfwModels[strings.ToUpper(s)]
	if !ok {
		return sbigudrv.CFWUnknown, fmt.Errorf("unknown filter wheel model %q", s)
	}
	return m, nil
}

// filterTable builds the position-to-name map for a config.  Positions
// without a configured name fall back to their number.
func filterTable(cfg Config) map[sbigudrv.CFWPosition]string {
	slots := wheelSlots[cfg.FilterWheel]
	if len(cfg.FilterNames) > slots {
		slots = len(cfg.FilterNames)
	}
	table := make(map[sbigudrv.CFWPosition]string, slots)
	for i := 1; i <= slots; i++ {
		name := strconv.Itoa(i)
		if i <= len(cfg.FilterNames) && cfg.FilterNames[i-1] != "" {
			name = cfg.FilterNames[i-1]
		}
		table[sbigudrv.CFWPosition(i)] = name
	}
	return table
}

// ListFilters returns the configured filter names in wheel order.
func (c *Camera) ListFilters() ([]string, error) {
	if c.cfg.FilterWheel == sbigudrv.CFWUnknown {
		return nil, ErrNoFilterWheel
	}
	names := make([]string, 0, len(c.filters))
	for i := 1; i <= len(c.filters); i++ {
		names = append(names, c.filters[sbigudrv.CFWPosition(i)])
	}
	return names, nil
}

// SetFilter moves the wheel to the named filter and blocks until the move
// completes.
func (c *Camera) SetFilter(name string) error {
	if c.cfg.FilterWheel == sbigudrv.CFWUnknown {
		return ErrNoFilterWheel
	}
	for pos, n := range c.filters {
		if n == name {
			c.log.Info().Str("filter", name).Int("position", int(pos)).Msg("changing filter")
			return c.cam.GoToFilter(pos)
		}
	}
	return fmt.Errorf("unknown filter %q", name)
}

// GetFilter reports the name of the filter currently in the beam.
func (c *Camera) GetFilter() (string, error) {
	if c.cfg.FilterWheel == sbigudrv.CFWUnknown {
		return "", ErrNoFilterWheel
	}
	pos, _, err := c.cam.FilterPositionAndStatus()
	if err != nil {
		return "", err
	}
	name, ok := c.filters[pos]
	if !ok {
		return strconv.Itoa(int(pos)), nil
	}
	return name, nil
}
