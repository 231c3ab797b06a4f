/*
DESCRIPTION
  youtube_test.go exercises the metadata-defaulting and validation logic
  shared by every YouTube upload, without touching the network.

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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildVideoAppliesDefaults(t *testing.T) {
	v, err := buildVideo(Metadata{})
	require.NoError(t, err)
	assert.NotEmpty(t, v.Snippet.Title)
	assert.Equal(t, "No description provided.", v.Snippet.Description)
	assert.Equal(t, "28", v.Snippet.CategoryId)
	assert.Equal(t, "unlisted", v.Status.PrivacyStatus)
	assert.Equal(t, []string{"clipfleet"}, v.Snippet.Tags)
}

func TestBuildVideoHonorsCallerFields(t *testing.T) {
	v, err := buildVideo(Metadata{
		Title:       "title",
		Description: "desc",
		Category:    "Gaming",
		Privacy:     "public",
		Tags:        []string{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "title", v.Snippet.Title)
	assert.Equal(t, "desc", v.Snippet.Description)
	assert.Equal(t, "20", v.Snippet.CategoryId)
	assert.Equal(t, "public", v.Status.PrivacyStatus)
	assert.Equal(t, []string{"a", "b"}, v.Snippet.Tags)
}

func TestBuildVideoRejectsBadCategoryOrPrivacy(t *testing.T) {
	_, err := buildVideo(Metadata{Category: "not-a-category"})
	assert.Error(t, err)

	_, err = buildVideo(Metadata{Privacy: "not-a-status"})
	assert.Error(t, err)
}
