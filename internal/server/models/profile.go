package models

import "time"

// ChannelProfile is a user's public channel page as seen by a viewer.
type ChannelProfile struct {
	ID                        string `json:"_id"`
	UserName                  string `json:"username"`
	Email                     string `json:"email"`
	FullName                  string `json:"fullname"`
	Avatar                    string `json:"avatar"`
	CoverImage                string `json:"coverImage"`
	SubscribersCount          int64  `json:"subscribersCount"`
	ChannelsSubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed              bool   `json:"isSubscribed"`
}

type VideoOwner struct {
	UserName string `json:"username"`
	FullName string `json:"fullname"`
	Avatar   string `json:"avatar"`
}

// WatchedVideo is one watch-history row joined with its owner.
type WatchedVideo struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	VideoFile   string     `json:"videoFile"`
	Thumbnail   string     `json:"thumbnail"`
	Duration    float64    `json:"duration"`
	Views       int64      `json:"views"`
	Owner       VideoOwner `json:"owner"`
	WatchedAt   time.Time  `json:"watchedAt"`
}
