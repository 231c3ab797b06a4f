/*
DESCRIPTION
  youtube.go implements Sink against the YouTube Data API v3, grounded on
  youtube.UploadVideo in the teacher: the same default metadata, with
  the teacher's functional options replaced by a Metadata struct,
  generalized behind the Sink interface and authorized via a
  caller-supplied oauth2.TokenSource
  rather than the teacher's GCS-backed secret store.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package uploadsink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// ErrUnknownStatus is returned by CheckStatus when YouTube reports an
// upload status this package does not recognize.
var ErrUnknownStatus = errors.New("uploadsink: unknown video status")

// Upload status strings, mirrored from the YouTube Data API's
// videos.status.uploadStatus values.
const (
	StatusUploaded  = "uploaded"
	StatusProcessed = "processed"
	StatusFailed    = "failed"
	StatusRejected  = "rejected"
	StatusDeleted   = "deleted"
)

var categoryNames = map[string]string{
	"1": "Film & Animation", "2": "Autos & Vehicles", "10": "Music",
	"15": "Pets & Animals", "17": "Sports", "18": "Short Movies",
	"19": "Travel & Events", "20": "Gaming", "21": "Videoblogging",
	"22": "People & Blogs", "23": "Comedy", "24": "Entertainment",
	"25": "News & Politics", "26": "Howto & Style", "27": "Education",
	"28": "Science & Technology", "29": "Nonprofits & Activism", "30": "Movies",
}

// sanitiseCategory resolves a category ID or name to its canonical ID,
// returning "" if cat matches neither.
func sanitiseCategory(cat string) string {
	if _, ok := categoryNames[cat]; ok {
		return cat
	}
	for id, name := range categoryNames {
		if name == cat {
			return id
		}
	}
	return ""
}

var validPrivacy = map[string]bool{"public": true, "unlisted": true, "private": true}

// YouTube uploads clips to a single YouTube channel using the video and
// credentials identified by TokenSource.
type YouTube struct {
	TokenSource oauth2.TokenSource
}

// NewYouTube returns a Sink that authorizes uploads with ts.
func NewYouTube(ts oauth2.TokenSource) *YouTube {
	return &YouTube{TokenSource: ts}
}

func (y *YouTube) service(ctx context.Context) (*youtube.Service, error) {
	client := oauth2.NewClient(ctx, y.TokenSource)
	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("uploadsink: could not create youtube service: %w", err)
	}
	return svc, nil
}

// buildVideo applies meta's fields over the same defaults the teacher's
// UploadVideo used: a timestamped title, "Science & Technology"
// category, unlisted privacy, and a single placeholder tag (the API
// rejects an empty tag list).
func buildVideo(meta Metadata) (*youtube.Video, error) {
	const (
		defaultCategory    = "28"
		defaultPrivacy     = "unlisted"
		defaultDescription = "No description provided."
	)

	title := meta.Title
	if title == "" {
		title = "Uploaded at " + time.Now().Format("2006-01-02 15:04:05")
	}
	description := meta.Description
	if description == "" {
		description = defaultDescription
	}
	category := defaultCategory
	if meta.Category != "" {
		category = sanitiseCategory(meta.Category)
		if category == "" {
			return nil, fmt.Errorf("uploadsink: invalid category %q", meta.Category)
		}
	}
	privacy := defaultPrivacy
	if meta.Privacy != "" {
		if !validPrivacy[meta.Privacy] {
			return nil, fmt.Errorf("uploadsink: invalid privacy status %q", meta.Privacy)
		}
		privacy = meta.Privacy
	}
	tags := meta.Tags
	if len(tags) == 0 {
		tags = []string{"clipfleet"}
	}

	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: description,
			CategoryId:  category,
			Tags:        tags,
		},
		Status: &youtube.VideoStatus{PrivacyStatus: privacy},
	}, nil
}

// Upload inserts media as a new YouTube video built by buildVideo,
// returning the new video's ID.
func (y *YouTube) Upload(ctx context.Context, media io.Reader, meta Metadata) (string, error) {
	video, err := buildVideo(meta)
	if err != nil {
		return "", err
	}

	svc, err := y.service(ctx)
	if err != nil {
		return "", err
	}
	vid, err := youtube.NewVideosService(svc).Insert([]string{"snippet", "status"}, video).Media(media).Do()
	if err != nil {
		return "", fmt.Errorf("uploadsink: insert video: %w", err)
	}
	return vid.Id, nil
}

// CheckStatus reports id's current upload status.
func (y *YouTube) CheckStatus(ctx context.Context, id string) (string, error) {
	svc, err := y.service(ctx)
	if err != nil {
		return "", err
	}
	resp, err := youtube.NewVideosService(svc).List([]string{"snippet", "status"}).Id(id).Do()
	if err != nil {
		return "", fmt.Errorf("uploadsink: get video status: %w", err)
	}
	if len(resp.Items) == 0 {
		return "", fmt.Errorf("uploadsink: video %q not found", id)
	}

	switch resp.Items[0].Status.UploadStatus {
	case "processed":
		return StatusProcessed, nil
	case "failed":
		return StatusFailed, nil
	case "rejected":
		return StatusRejected, nil
	case "deleted":
		return StatusDeleted, nil
	case "uploaded":
		return StatusUploaded, nil
	default:
		return "", ErrUnknownStatus
	}
}
