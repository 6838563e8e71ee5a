package dto

// PostNowRequest publishes content immediately on one or more platforms.
type PostNowRequest struct {
	Platforms []string `json:"platforms" binding:"required"`
	ContentID string   `json:"content_id"`
	PostIndex int      `json:"post_index"`
	Caption   string   `json:"caption"`
	Thread    []string `json:"thread,omitempty"`
	MediaRefs []string `json:"media_refs,omitempty"`
	MediaType string   `json:"media_type,omitempty"`
}

// PlatformPostResult is the per-platform outcome of an interactive publish.
type PlatformPostResult struct {
	Platform    string   `json:"platform"`
	Status      string   `json:"status"` // posted | failed
	PostIDs     []string `json:"post_ids,omitempty"`
	FailedIndex int      `json:"failed_index,omitempty"`
	Error       string   `json:"error,omitempty"`
}
