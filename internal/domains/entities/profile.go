package entities

import "time"

type Profile struct {
	Id        string    `dynamodbav:"Id"`
	Creator   string    `dynamodbav:"Creator"`
	Name      string    `dynamodbav:"Name"`
	Avatar    [][]int   `dynamodbav:"Avatar"`
	CreatedAt time.Time `dynamodbav:"CreatedAt"`
}

func (p Profile) PlayerInfo() PlayerInfo {
	return PlayerInfo{
		UserId:  p.Id,
		Creator: p.Creator,
		Bot:     p.Name,
		Avatar:  p.Avatar,
	}
}
