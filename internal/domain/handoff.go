package domain

// Handoff is the tentative stay the room page passes to the booking wizard.
type Handoff struct {
	Checkin   Date `json:"checkin"`
	Checkout  Date `json:"checkout"`
	Adults    int  `json:"adults"`
	Children  int  `json:"children"`
	Nights    int  `json:"nights"`
	IsLimited bool `json:"isLimited"`
}
