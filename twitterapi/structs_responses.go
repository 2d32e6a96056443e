package twitterapi

type APIResponse struct {
	StatusCode int                 `json:"status_code"`
	Headers    map[string][]string `json:"headers"`
	RawBody    []byte              `json:"raw_body"`
}

type Author struct {
	Type           string `json:"type"`
	UserName       string `json:"userName"`
	Url            string `json:"url"`
	Id             string `json:"id"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture"`
	Description    string `json:"description"`
	Location       string `json:"location"`
	Followers      int    `json:"followers"`
	Following      int    `json:"following"`
	CreatedAt      string `json:"createdAt"`
	StatusesCount  int    `json:"statusesCount"`
}

type Tweet struct {
	Type           string `json:"type"`
	Id             string `json:"id"`
	Url            string `json:"url"`
	Text           string `json:"text"`
	Source         string `json:"source"`
	RetweetCount   int    `json:"retweetCount"`
	ReplyCount     int    `json:"replyCount"`
	LikeCount      int    `json:"likeCount"`
	QuoteCount     int    `json:"quoteCount"`
	ViewCount      int    `json:"viewCount"`
	CreatedAt      string `json:"createdAt"`
	Lang           string `json:"lang"`
	IsReply        bool   `json:"isReply"`
	ConversationId string `json:"conversationId"`
	Author         Author `json:"author"`
}

type UserLastTweetsResponse struct {
	Status string `json:"status"`
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Data   struct {
		PinTweet *Tweet  `json:"pin_tweet"`
		Tweets   []Tweet `json:"tweets"`
	} `json:"data"`
	HasNextPage bool   `json:"has_next_page"`
	NextCursor  string `json:"next_cursor"`
}

type User struct {
	Id                   string `json:"id"`
	Name                 string `json:"name"`
	UserName             string `json:"userName"`
	Location             string `json:"location"`
	Description          string `json:"description"`
	Protected            bool   `json:"protected"`
	Verified             bool   `json:"verified"`
	FollowersCount       int    `json:"followers_count"`
	FollowingCount       int    `json:"following_count"`
	StatusesCount        int    `json:"statuses_count"`
	CreatedAt            string `json:"created_at"`
	ProfileImageUrlHttps string `json:"profile_image_url_https"`
}

type UserInfoResponse struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
	Data   User   `json:"data"`
}
