package models

// StatusDisplayInfo contains display information for a lead status
type StatusDisplayInfo struct {
	DisplayName string `json:"display_name"`
	BgColor     string `json:"bg_color"`
	TextColor   string `json:"text_color"`
	BorderColor string `json:"border_color"`
}

var statusDisplay = map[LeadStatus]StatusDisplayInfo{
	LeadNew: {
		DisplayName: "New Enquiry",
		BgColor:     "#E6E6E6",
		TextColor:   "#333",
		BorderColor: "#8C8C8C",
	},
	LeadContacted: {
		DisplayName: "Contacted",
		BgColor:     "#FFF4E6",
		TextColor:   "#8B6914",
		BorderColor: "#FFA500",
	},
	LeadIntroScheduled: {
		DisplayName: "Intro Scheduled",
		BgColor:     "#E6F3FF",
		TextColor:   "#0066CC",
		BorderColor: "#4EC6E0",
	},
	LeadIntroAttended: {
		DisplayName: "Intro Attended",
		BgColor:     "#E6F7FF",
		TextColor:   "#0052A3",
		BorderColor: "#4EC6E0",
	},
	LeadFollowUp: {
		DisplayName: "Follow-up",
		BgColor:     "#FFF9E6",
		TextColor:   "#8B6914",
		BorderColor: "#FFA500",
	},
	LeadConverted: {
		DisplayName: "Enrolled",
		BgColor:     "#E6FFE6",
		TextColor:   "#006600",
		BorderColor: "#28a745",
	},
	LeadDead: {
		DisplayName: "Closed",
		BgColor:     "#F5F5F5",
		TextColor:   "#666",
		BorderColor: "#8C8C8C",
	},
}

// GetStatusDisplayInfo returns display information for a given status
func GetStatusDisplayInfo(status LeadStatus) StatusDisplayInfo {
	if info, ok := statusDisplay[status]; ok {
		return info
	}

	// Default for unknown status
	return StatusDisplayInfo{
		DisplayName: string(status),
		BgColor:     "#E6E6E6",
		TextColor:   "#333",
		BorderColor: "#8C8C8C",
	}
}

// GetNextAction returns the counsellor's next step for a lead status.
func GetNextAction(status LeadStatus) string {
	actions := map[LeadStatus]string{
		LeadNew:            "Call the parent",
		LeadContacted:      "Book an intro visit",
		LeadIntroScheduled: "Record intro visit outcome",
		LeadIntroAttended:  "Convert or schedule follow-up",
		LeadFollowUp:       "Complete pending follow-up",
	}
	if action, ok := actions[status]; ok {
		return action
	}
	return "None"
}
