package orders

import "strings"

// Progress describes how far along an order is for the tracking page.
type Progress struct {
	Status   string `json:"status"`
	Percent  int    `json:"percent"`
	Icon     string `json:"icon"`
	Color    string `json:"color"`
	Terminal bool   `json:"terminal"`
}

const (
	IconClock   = "clock"
	IconPackage = "package"
	IconTruck   = "truck"
	IconCheck   = "check"
	IconNone    = "none"
)

var progressByStatus = map[string]Progress{
	"pending":          {Percent: 25, Icon: IconClock, Color: "yellow"},
	"confirmed":        {Percent: 50, Icon: IconPackage, Color: "blue"},
	"processing":       {Percent: 50, Icon: IconPackage, Color: "blue"},
	"preparing":        {Percent: 75, Icon: IconPackage, Color: "indigo"},
	"ready":            {Percent: 75, Icon: IconPackage, Color: "indigo"},
	"out_for_delivery": {Percent: 90, Icon: IconTruck, Color: "purple"},
	"shipped":          {Percent: 90, Icon: IconTruck, Color: "purple"},
	"delivered":        {Percent: 100, Icon: IconCheck, Color: "green", Terminal: true},
	"cancelled":        {Percent: 0, Icon: IconNone, Color: "red", Terminal: true},
}

// StatusToProgress maps any status string to a progress indicator. Matching
// ignores case and surrounding whitespace; unknown values read as pending.
func StatusToProgress(status string) Progress {
	normalized := strings.ToLower(strings.TrimSpace(status))
	progress, ok := progressByStatus[normalized]
	if !ok {
		progress = progressByStatus["pending"]
	}
	progress.Status = normalized
	return progress
}

// TrackingPath is the client route for an order's tracking page.
func TrackingPath(orderID string) string {
	return "/track-order/" + orderID
}
