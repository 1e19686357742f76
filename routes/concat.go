package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"clipstitch/clips"
	"clipstitch/models"
)

// concatRequest is the wire form of a job. The secondary field names
// keep compatibility with callers of the service this one replaced.
type concatRequest struct {
	Clips       []clipEntry        `json:"clips"`
	OutputName  string             `json:"output_name"`
	Upload      *bool              `json:"upload"`
	Destination string             `json:"destination"`
	Target      *targetOverrides   `json:"target"`

	// Legacy aliases.
	InputVideos                []string `json:"input_videos"`
	BucketName                 string   `json:"bucket_name"`
	OutputFilename             string   `json:"output_filename"`
	SignedURLExpirationMinutes int      `json:"signed_url_expiration_minutes"`
}

// clipEntry accepts either a bare URL string or an object with a source
// and optional fetch headers.
type clipEntry struct {
	Source  string            `json:"source"`
	Headers map[string]string `json:"headers,omitempty"`
}

func (c *clipEntry) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &c.Source)
	}
	type plain clipEntry
	return json.Unmarshal(data, (*plain)(c))
}

// targetOverrides is the per-job subset of the target spec a caller may
// override. Zero values fall back to process defaults.
type targetOverrides struct {
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FPS          int    `json:"fps"`
	VideoBitrate string `json:"video_bitrate"`
	AudioBitrate string `json:"audio_bitrate"`
	ScaleMode    string `json:"scale_mode"`
}

type concatResponse struct {
	Status   string                 `json:"status"`
	JobID    string                 `json:"job_id"`
	Artifact models.OutputArtifact  `json:"artifact"`
	Upload   *models.UploadResult   `json:"upload,omitempty"`
}

// Concat is the single pipeline endpoint: it accepts an ordered list of
// clip URLs, produces one concatenated artifact, and optionally ships it
// to a destination. The response is not written until the job reaches a
// terminal state.
func (a *App) Concat(w http.ResponseWriter, r *http.Request) {
	var req concatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.jsonError(w, http.StatusBadRequest, clips.KindValidation, "invalid or missing JSON body")
		return
	}

	j, err := a.buildJob(&req)
	if err != nil {
		kind, status := clips.Classify(err)
		a.jsonError(w, status, kind, err.Error())
		return
	}

	// Admission control: wait for a worker slot. A caller that gives up
	// while queued has committed nothing yet.
	if err := a.jobSlots.Acquire(r.Context(), 1); err != nil {
		a.jsonError(w, http.StatusServiceUnavailable, clips.KindInternal, "server is shutting down or request was abandoned")
		return
	}
	defer a.jobSlots.Release(1)

	// Once admitted the job runs to a terminal state even if the caller
	// abandons the connection; subprocess cost is not refundable.
	result, err := a.Orch.Run(context.WithoutCancel(r.Context()), j)
	if err != nil {
		kind, status := clips.Classify(err)
		a.jsonError(w, status, kind, err.Error())
		return
	}

	a.json(w, http.StatusOK, concatResponse{
		Status:   "ok",
		JobID:    result.JobID,
		Artifact: result.Artifact,
		Upload:   result.Upload,
	})
}

// buildJob validates the request and resolves it against process
// defaults. Validation happens before any resource is committed.
func (a *App) buildJob(req *concatRequest) (models.Job, error) {
	entries := req.Clips
	if len(entries) == 0 {
		for _, u := range req.InputVideos {
			entries = append(entries, clipEntry{Source: u})
		}
	}
	if len(entries) == 0 {
		return models.Job{}, &clips.ValidationError{Detail: "at least one clip is required"}
	}

	clipReqs := make([]models.ClipRequest, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.Source) == "" {
			return models.Job{}, &clips.ValidationError{Detail: fmt.Sprintf("clip %d has an empty source", i)}
		}
		u, err := url.Parse(e.Source)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return models.Job{}, &clips.ValidationError{Detail: fmt.Sprintf("clip %d has a malformed source URL %q", i, e.Source)}
		}
		clipReqs[i] = models.ClipRequest{Source: e.Source, Headers: e.Headers}
	}

	upload := a.Cfg.UploadByDefault
	if req.Upload != nil {
		upload = *req.Upload
	}
	destination := req.Destination
	if destination == "" {
		destination = req.BucketName
	}
	if req.Upload == nil && req.BucketName != "" {
		// Legacy callers signal upload by naming a bucket.
		upload = true
	}
	if upload && destination == "" {
		return models.Job{}, &clips.ValidationError{Detail: "destination is required when upload is requested"}
	}

	outputName := strings.TrimSpace(req.OutputName)
	if outputName == "" {
		outputName = strings.TrimSpace(req.OutputFilename)
	}
	if outputName == "" {
		outputName = fmt.Sprintf("concat_%s.mp4", strings.ReplaceAll(uuid.NewString(), "-", ""))
	}
	if !strings.HasSuffix(strings.ToLower(outputName), ".mp4") {
		outputName += ".mp4"
	}

	target := models.DefaultTargetSpec(a.Cfg)
	if req.Target != nil {
		if req.Target.Width > 0 {
			target.Width = req.Target.Width
		}
		if req.Target.Height > 0 {
			target.Height = req.Target.Height
		}
		if req.Target.FPS > 0 {
			target.FPS = req.Target.FPS
		}
		if req.Target.VideoBitrate != "" {
			target.VideoBitrate = req.Target.VideoBitrate
		}
		if req.Target.AudioBitrate != "" {
			target.AudioBitrate = req.Target.AudioBitrate
		}
		if req.Target.ScaleMode != "" {
			if req.Target.ScaleMode != "letterbox" && req.Target.ScaleMode != "crop" {
				return models.Job{}, &clips.ValidationError{Detail: fmt.Sprintf("scale mode %q is not one of letterbox, crop", req.Target.ScaleMode)}
			}
			target.ScaleMode = req.Target.ScaleMode
		}
	}

	return models.Job{
		ID:               strings.ReplaceAll(uuid.NewString(), "-", ""),
		Clips:            clipReqs,
		OutputName:       outputName,
		Upload:           upload,
		Destination:      destination,
		Target:           target,
		SignedURLMinutes: req.SignedURLExpirationMinutes,
	}, nil
}
