package entities

// PlayerInfo identifies a bot and its creator. It is copied, never shared.
type PlayerInfo struct {
	UserId  string  `json:"userId"`
	Creator string  `json:"creator"`
	Bot     string  `json:"bot"`
	Avatar  [][]int `json:"avatar"`
}
