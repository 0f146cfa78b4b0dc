package transfer

// Responses from the X media upload endpoint (v1.1 chunked protocol).

type XProcessingError struct {
	Code    int    `json:"code"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

type XProcessingInfo struct {
	State          string            `json:"state"` // pending, in_progress, succeeded, failed
	CheckAfterSecs int               `json:"check_after_secs"`
	ProgressPct    int               `json:"progress_percent"`
	Error          *XProcessingError `json:"error,omitempty"`
}

type XMediaUploadResponse struct {
	MediaID        int64            `json:"media_id"`
	MediaIDString  string           `json:"media_id_string"`
	Size           int64            `json:"size"`
	ProcessingInfo *XProcessingInfo `json:"processing_info,omitempty"`
}

// Request/response for the v2 post publish endpoint.

type XPublishMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type XPublishRequest struct {
	Text  string         `json:"text"`
	Media *XPublishMedia `json:"media,omitempty"`
}

type XPublishResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
}
