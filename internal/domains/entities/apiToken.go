package entities

import "time"

type ApiToken struct {
	Token     string     `dynamodbav:"Token"`
	ProfileId string     `dynamodbav:"ProfileId"`
	Expires   *time.Time `dynamodbav:"Expires,omitempty"`
}

func (t ApiToken) Expired(now time.Time) bool {
	return t.Expires != nil && !now.Before(*t.Expires)
}
