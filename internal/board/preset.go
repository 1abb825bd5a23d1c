package board

import (
	"fmt"
	"sort"
)

// Signal names used by the preset rail tables.
const (
	ResetSignal  = "RST_BLE"
	BuzzerSignal = "PF_7"
)

// commonRails are shared by every hardware revision.
var commonRails = []Rail{
	{Pin: "PB_15", High: false, Label: "debug port RX enable"},
	{Pin: "PD_10", High: true, Label: "debug port force off"}, // inverted logic
	{Pin: "PD_11", High: true, Label: "debug port force on"},
	{Pin: "PC_6", High: false, Label: "vcontrolled disable"},
	{Pin: "PG_1", High: true, Label: "3v3 enable"},
}

// enable5V is the only pin that moved between revisions.
var enable5V = map[string]string{
	"v10": "PB_1",
	"v12": "PA_1",
}

// Preset returns the power rails of a hardware revision.
func Preset(revision string) ([]Rail, error) {
	pin, ok := enable5V[revision]
	if !ok {
		return nil, fmt.Errorf("board: unknown revision %q (supported: %v)", revision, Revisions())
	}
	rails := make([]Rail, 0, len(commonRails)+1)
	rails = append(rails, commonRails...)
	rails = append(rails, Rail{Pin: pin, High: true, Label: "5v enable"})
	return rails, nil
}

// Revisions lists the known hardware revisions.
func Revisions() []string {
	revs := make([]string, 0, len(enable5V))
	for r := range enable5V {
		revs = append(revs, r)
	}
	sort.Strings(revs)
	return revs
}
