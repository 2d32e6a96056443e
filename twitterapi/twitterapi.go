package twitterapi

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrRateLimited is returned when the API answers 429. The caller backs off,
// the account's watermark stays untouched.
var ErrRateLimited = errors.New("twitter api rate limited")

// ErrAuthExpired is returned when the API answers 401 or 403, meaning the
// key or the account connection is no longer valid.
var ErrAuthExpired = errors.New("twitter api auth expired")

type TwitterAPIService struct {
	apiKey     string
	httpClient *http.Client
	baseUrl    string
}

func NewTwitterAPIService(apiKey string, baseUrl string, proxyDSN string) *TwitterAPIService {
	transport := &http.Transport{}
	if proxyDSN != "" {
		proxyURL, err := url.Parse(proxyDSN)
		if err != nil {
			panic(err)
		}

		transport = &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: false,
			},
		}
	}

	return &TwitterAPIService{
		apiKey:  apiKey,
		baseUrl: baseUrl,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}
}

func (s *TwitterAPIService) makeRequest(uri string, params map[string]string) (*APIResponse, error) {
	req, err := http.NewRequest("GET", uri, nil)
	if err != nil {
		return nil, fmt.Errorf("error create request: %w", err)
	}

	req.Header.Set("X-API-Key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	q := req.URL.Query()
	for key, value := range params {
		if value != "" && key == "cursor" {
			unescape, _ := url.QueryUnescape(value)
			q.Add(key, unescape)
		} else if value != "" {
			q.Add(key, value)
		}
	}

	req.URL.RawQuery = q.Encode()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error read response: %w", err)
	}

	return &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		RawBody:    bodyBytes,
	}, nil
}

func (s *TwitterAPIService) checkStatus(response *APIResponse, operation string) error {
	switch response.StatusCode {
	case 200:
		return nil
	case 429:
		return fmt.Errorf("error %s: %w", operation, ErrRateLimited)
	case 401, 403:
		return fmt.Errorf("error %s: %w", operation, ErrAuthExpired)
	default:
		return fmt.Errorf("error %s, status non 200: %s", operation, string(response.RawBody))
	}
}

// GetUserLastTweets returns one page of a user's timeline, newest first.
// SinceId is passed through so the API can cut the page at the caller's
// watermark, callers still filter locally because not every backend honors it.
func (s *TwitterAPIService) GetUserLastTweets(req UserLastTweetsRequest) (*UserLastTweetsResponse, error) {
	uri := s.baseUrl + "/twitter/user/last_tweets"

	params := map[string]string{
		"userId":         req.UserId,
		"userName":       req.UserName,
		"sinceId":        req.SinceId,
		"cursor":         req.Cursor,
		"includeReplies": strconv.FormatBool(req.IncludeReplies),
	}

	response, err := s.makeRequest(uri, params)
	if err != nil {
		return nil, fmt.Errorf("error last user tweets: %w", err)
	}
	if err := s.checkStatus(response, "last user tweets"); err != nil {
		return nil, err
	}
	userLastTweetsResponse := UserLastTweetsResponse{}
	err = json.Unmarshal(response.RawBody, &userLastTweetsResponse)
	return &userLastTweetsResponse, err
}

// GetUserInfo resolves a handle to the user's profile, including the stable
// numeric ID used as the account's external ID.
func (s *TwitterAPIService) GetUserInfo(userName string) (*UserInfoResponse, error) {
	uri := s.baseUrl + "/twitter/user/info"

	params := map[string]string{
		"userName": userName,
	}

	response, err := s.makeRequest(uri, params)
	if err != nil {
		return nil, fmt.Errorf("error user info: %w", err)
	}
	if err := s.checkStatus(response, "user info"); err != nil {
		return nil, err
	}
	userInfoResponse := UserInfoResponse{}
	err = json.Unmarshal(response.RawBody, &userInfoResponse)
	return &userInfoResponse, err
}

// ParseTweetTime parses the createdAt format the API emits, with an RFC3339
// fallback for backends that already normalize it.
func ParseTweetTime(timeStr string) (time.Time, error) {
	layout := "Mon Jan 02 15:04:05 -0700 2006"
	if t, err := time.Parse(layout, timeStr); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, timeStr)
}
