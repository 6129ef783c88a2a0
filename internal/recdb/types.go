// Package recdb reads the host application's recording schema and owns the
// fork_recorded_videos extension table.
package recdb

import (
	"fmt"
	"time"
)

// Genre is one entry of a program's genre list.
type Genre struct {
	Major  string `json:"major"`
	Middle string `json:"middle"`
}

// CMSection is a commercial-break interval inside a recording, in seconds
// from the start of the video.
type CMSection struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// ForkRecordedVideo carries the per-video comment count maintained by the
// external comment aggregation process. A nil pointer on RecordedVideo means
// no count is known, which is distinct from a count of zero.
type ForkRecordedVideo struct {
	CommentCount int64 `json:"comment_count"`
}

// Channel holds tuning metadata for the channel a program was recorded from.
type Channel struct {
	ID                string `json:"id"`
	DisplayChannelID  string `json:"display_channel_id"`
	NetworkID         int64  `json:"network_id"`
	ServiceID         int64  `json:"service_id"`
	TransportStreamID *int64 `json:"transport_stream_id"`
	RemoconID         int64  `json:"remocon_id"`
	ChannelNumber     string `json:"channel_number"`
	Type              string `json:"type"`
	Name              string `json:"name"`
	JikkyoForce       *int64 `json:"jikkyo_force"`
	IsSubchannel      bool   `json:"is_subchannel"`
	IsRadiochannel    bool   `json:"is_radiochannel"`
	IsWatchable       bool   `json:"is_watchable"`
}

// RecordedVideo holds the physical file metadata of a recording.
type RecordedVideo struct {
	ID                         int64              `json:"id"`
	Status                     string             `json:"status"`
	FilePath                   string             `json:"file_path"`
	FileHash                   string             `json:"file_hash"`
	FileSize                   int64              `json:"file_size"`
	FileCreatedAt              time.Time          `json:"file_created_at"`
	FileModifiedAt             time.Time          `json:"file_modified_at"`
	RecordingStartTime         *time.Time         `json:"recording_start_time"`
	RecordingEndTime           *time.Time         `json:"recording_end_time"`
	Duration                   float64            `json:"duration"`
	ContainerFormat            string             `json:"container_format"`
	VideoCodec                 string             `json:"video_codec"`
	VideoCodecProfile          string             `json:"video_codec_profile"`
	VideoScanType              string             `json:"video_scan_type"`
	VideoFrameRate             float64            `json:"video_frame_rate"`
	VideoResolutionWidth       int64              `json:"video_resolution_width"`
	VideoResolutionHeight      int64              `json:"video_resolution_height"`
	PrimaryAudioCodec          string             `json:"primary_audio_codec"`
	PrimaryAudioChannel        string             `json:"primary_audio_channel"`
	PrimaryAudioSamplingRate   int64              `json:"primary_audio_sampling_rate"`
	SecondaryAudioCodec        *string            `json:"secondary_audio_codec"`
	SecondaryAudioChannel      *string            `json:"secondary_audio_channel"`
	SecondaryAudioSamplingRate *int64             `json:"secondary_audio_sampling_rate"`
	HasKeyFrames               bool               `json:"has_key_frames"`
	CMSections                 []CMSection        `json:"cm_sections"`
	CreatedAt                  time.Time          `json:"created_at"`
	UpdatedAt                  time.Time          `json:"updated_at"`
	ForkRecordedVideo          *ForkRecordedVideo `json:"fork_recorded_video"`
}

// RecordedProgram is the broadcast metadata of a recording together with its
// video, optional channel and optional comment-count extension.
type RecordedProgram struct {
	ID                      int64             `json:"id"`
	RecordedVideo           RecordedVideo     `json:"recorded_video"`
	RecordingStartMargin    float64           `json:"recording_start_margin"`
	RecordingEndMargin      float64           `json:"recording_end_margin"`
	IsPartiallyRecorded     bool              `json:"is_partially_recorded"`
	Channel                 *Channel          `json:"channel"`
	ChannelID               *string           `json:"channel_id"`
	NetworkID               *int64            `json:"network_id"`
	ServiceID               *int64            `json:"service_id"`
	EventID                 *int64            `json:"event_id"`
	SeriesID                *int64            `json:"series_id"`
	SeriesBroadcastPeriodID *int64            `json:"series_broadcast_period_id"`
	Title                   string            `json:"title"`
	SeriesTitle             *string           `json:"series_title"`
	EpisodeNumber           *string           `json:"episode_number"`
	Subtitle                *string           `json:"subtitle"`
	Description             string            `json:"description"`
	Detail                  map[string]string `json:"detail"`
	StartTime               time.Time         `json:"start_time"`
	EndTime                 time.Time         `json:"end_time"`
	Duration                float64           `json:"duration"`
	IsFree                  bool              `json:"is_free"`
	Genres                  []Genre           `json:"genres"`
	PrimaryAudioType        string            `json:"primary_audio_type"`
	PrimaryAudioLanguage    string            `json:"primary_audio_language"`
	SecondaryAudioType      *string           `json:"secondary_audio_type"`
	SecondaryAudioLanguage  *string           `json:"secondary_audio_language"`
	CreatedAt               time.Time         `json:"created_at"`
	UpdatedAt               time.Time         `json:"updated_at"`
}

// Validate checks the structural invariants of a mapped program before it is
// returned to a caller. A violation indicates a mapping fault, not bad input.
func (p *RecordedProgram) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("program id must be positive, got %d", p.ID)
	}
	if p.RecordedVideo.ID <= 0 {
		return fmt.Errorf("video id must be positive, got %d", p.RecordedVideo.ID)
	}
	if p.RecordedVideo.FilePath == "" {
		return fmt.Errorf("video %d has empty file_path", p.RecordedVideo.ID)
	}
	if p.RecordedVideo.FileHash == "" {
		return fmt.Errorf("video %d has empty file_hash", p.RecordedVideo.ID)
	}
	if p.Title == "" {
		return fmt.Errorf("program %d has empty title", p.ID)
	}
	if p.StartTime.IsZero() || p.EndTime.IsZero() {
		return fmt.Errorf("program %d has an incomplete time window", p.ID)
	}
	if p.EndTime.Before(p.StartTime) {
		return fmt.Errorf("program %d ends before it starts", p.ID)
	}
	if p.Detail == nil {
		return fmt.Errorf("program %d has no detail object", p.ID)
	}
	if p.Genres == nil {
		return fmt.Errorf("program %d has no genre list", p.ID)
	}
	if p.Channel != nil && p.ChannelID == nil {
		return fmt.Errorf("program %d has a channel object without a channel id", p.ID)
	}
	return nil
}
