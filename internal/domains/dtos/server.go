package dtos

// ServerStatusResponse is served on GET /status for load balancer health
// checks and operators.
type ServerStatusResponse struct {
	ActiveRooms int  `json:"activeRooms"`
	Connections int  `json:"connections"`
	CanAccept   bool `json:"canAccept"`
	MaxRooms    int  `json:"maxRooms"`
}
