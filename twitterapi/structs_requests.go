package twitterapi

type UserLastTweetsRequest struct {
	UserId         string
	UserName       string
	SinceId        string
	Cursor         string
	IncludeReplies bool
}

type UserInfoRequest struct {
	UserName string
}
