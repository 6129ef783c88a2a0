package recdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is the canonical text timestamp layout of the host schema.
// The width is fixed and the zone is always UTC so that stored values sort
// lexicographically in time order.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// FormatTime renders a timestamp in the host schema's canonical layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

var timeLayouts = []string{
	TimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
}

func parseTime(raw string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// programColumns is the single column list shared by every query that maps
// into a RecordedProgram. Scan order in programRow must match it exactly.
const programColumns = `
	rp.id,
	rp.recording_start_margin,
	rp.recording_end_margin,
	rp.is_partially_recorded,
	rp.channel_id,
	rp.network_id,
	rp.service_id,
	rp.event_id,
	rp.series_id,
	rp.series_broadcast_period_id,
	rp.title,
	rp.series_title,
	rp.episode_number,
	rp.subtitle,
	rp.description,
	rp.detail,
	rp.start_time,
	rp.end_time,
	rp.duration,
	rp.is_free,
	rp.genres,
	rp.primary_audio_type,
	rp.primary_audio_language,
	rp.secondary_audio_type,
	rp.secondary_audio_language,
	rp.created_at,
	rp.updated_at,
	rv.id,
	rv.status,
	rv.file_path,
	rv.file_hash,
	rv.file_size,
	rv.file_created_at,
	rv.file_modified_at,
	rv.recording_start_time,
	rv.recording_end_time,
	rv.duration,
	rv.container_format,
	rv.video_codec,
	rv.video_codec_profile,
	rv.video_scan_type,
	rv.video_frame_rate,
	rv.video_resolution_width,
	rv.video_resolution_height,
	rv.primary_audio_codec,
	rv.primary_audio_channel,
	rv.primary_audio_sampling_rate,
	rv.secondary_audio_codec,
	rv.secondary_audio_channel,
	rv.secondary_audio_sampling_rate,
	CASE WHEN rv.key_frames != '[]' THEN 1 ELSE 0 END,
	rv.cm_sections,
	rv.created_at,
	rv.updated_at,
	ch.id,
	ch.display_channel_id,
	ch.network_id,
	ch.service_id,
	ch.transport_stream_id,
	ch.remocon_id,
	ch.channel_number,
	ch.type,
	ch.name,
	ch.jikkyo_force,
	ch.is_subchannel,
	ch.is_radiochannel,
	ch.is_watchable,
	frv.comment_count`

// programRow is the typed intermediate between a flat SQL row and the domain
// object graph. Decoding rejects type mismatches here instead of failing
// later on attribute access.
type programRow struct {
	rpID                       int64
	recordingStartMargin       float64
	recordingEndMargin         float64
	isPartiallyRecorded        int64
	channelID                  sql.NullString
	networkID                  sql.NullInt64
	serviceID                  sql.NullInt64
	eventID                    sql.NullInt64
	seriesID                   sql.NullInt64
	seriesBroadcastPeriodID    sql.NullInt64
	title                      string
	seriesTitle                sql.NullString
	episodeNumber              sql.NullString
	subtitle                   sql.NullString
	description                string
	detail                     string
	startTime                  string
	endTime                    string
	duration                   float64
	isFree                     int64
	genres                     string
	primaryAudioType           string
	primaryAudioLanguage       string
	secondaryAudioType         sql.NullString
	secondaryAudioLanguage     sql.NullString
	rpCreatedAt                string
	rpUpdatedAt                string
	rvID                       int64
	status                     string
	filePath                   string
	fileHash                   string
	fileSize                   int64
	fileCreatedAt              string
	fileModifiedAt             string
	recordingStartTime         sql.NullString
	recordingEndTime           sql.NullString
	videoDuration              float64
	containerFormat            string
	videoCodec                 string
	videoCodecProfile          string
	videoScanType              string
	videoFrameRate             float64
	videoResolutionWidth       int64
	videoResolutionHeight      int64
	primaryAudioCodec          string
	primaryAudioChannel        string
	primaryAudioSamplingRate   int64
	secondaryAudioCodec        sql.NullString
	secondaryAudioChannel      sql.NullString
	secondaryAudioSamplingRate sql.NullInt64
	hasKeyFrames               int64
	cmSections                 sql.NullString
	rvCreatedAt                string
	rvUpdatedAt                string
	chID                       sql.NullString
	displayChannelID           sql.NullString
	chNetworkID                sql.NullInt64
	chServiceID                sql.NullInt64
	transportStreamID          sql.NullInt64
	remoconID                  sql.NullInt64
	channelNumber              sql.NullString
	chType                     sql.NullString
	chName                     sql.NullString
	jikkyoForce                sql.NullInt64
	isSubchannel               sql.NullInt64
	isRadiochannel             sql.NullInt64
	isWatchable                sql.NullInt64
	commentCount               sql.NullInt64
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgramRow(s rowScanner) (*programRow, error) {
	var r programRow
	err := s.Scan(
		&r.rpID,
		&r.recordingStartMargin,
		&r.recordingEndMargin,
		&r.isPartiallyRecorded,
		&r.channelID,
		&r.networkID,
		&r.serviceID,
		&r.eventID,
		&r.seriesID,
		&r.seriesBroadcastPeriodID,
		&r.title,
		&r.seriesTitle,
		&r.episodeNumber,
		&r.subtitle,
		&r.description,
		&r.detail,
		&r.startTime,
		&r.endTime,
		&r.duration,
		&r.isFree,
		&r.genres,
		&r.primaryAudioType,
		&r.primaryAudioLanguage,
		&r.secondaryAudioType,
		&r.secondaryAudioLanguage,
		&r.rpCreatedAt,
		&r.rpUpdatedAt,
		&r.rvID,
		&r.status,
		&r.filePath,
		&r.fileHash,
		&r.fileSize,
		&r.fileCreatedAt,
		&r.fileModifiedAt,
		&r.recordingStartTime,
		&r.recordingEndTime,
		&r.videoDuration,
		&r.containerFormat,
		&r.videoCodec,
		&r.videoCodecProfile,
		&r.videoScanType,
		&r.videoFrameRate,
		&r.videoResolutionWidth,
		&r.videoResolutionHeight,
		&r.primaryAudioCodec,
		&r.primaryAudioChannel,
		&r.primaryAudioSamplingRate,
		&r.secondaryAudioCodec,
		&r.secondaryAudioChannel,
		&r.secondaryAudioSamplingRate,
		&r.hasKeyFrames,
		&r.cmSections,
		&r.rvCreatedAt,
		&r.rvUpdatedAt,
		&r.chID,
		&r.displayChannelID,
		&r.chNetworkID,
		&r.chServiceID,
		&r.transportStreamID,
		&r.remoconID,
		&r.channelNumber,
		&r.chType,
		&r.chName,
		&r.jikkyoForce,
		&r.isSubchannel,
		&r.isRadiochannel,
		&r.isWatchable,
		&r.commentCount,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// toProgram transforms a decoded row into the validated domain object graph.
// Any malformed serialized field is a mapping fault for the whole request.
func (r *programRow) toProgram() (*RecordedProgram, error) {
	startTime, err := parseTime(r.startTime)
	if err != nil {
		return nil, fmt.Errorf("program %d: start_time: %w", r.rpID, err)
	}
	endTime, err := parseTime(r.endTime)
	if err != nil {
		return nil, fmt.Errorf("program %d: end_time: %w", r.rpID, err)
	}
	rpCreatedAt, err := parseTime(r.rpCreatedAt)
	if err != nil {
		return nil, fmt.Errorf("program %d: created_at: %w", r.rpID, err)
	}
	rpUpdatedAt, err := parseTime(r.rpUpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("program %d: updated_at: %w", r.rpID, err)
	}

	var detail map[string]string
	if err := json.Unmarshal([]byte(r.detail), &detail); err != nil {
		return nil, fmt.Errorf("program %d: malformed detail JSON: %w", r.rpID, err)
	}
	var genres []Genre
	if err := json.Unmarshal([]byte(r.genres), &genres); err != nil {
		return nil, fmt.Errorf("program %d: malformed genres JSON: %w", r.rpID, err)
	}
	if genres == nil {
		genres = []Genre{}
	}

	video, err := r.toVideo()
	if err != nil {
		return nil, err
	}

	program := &RecordedProgram{
		ID:                      r.rpID,
		RecordedVideo:           *video,
		RecordingStartMargin:    r.recordingStartMargin,
		RecordingEndMargin:      r.recordingEndMargin,
		IsPartiallyRecorded:     r.isPartiallyRecorded != 0,
		Channel:                 r.toChannel(),
		ChannelID:               nullString(r.channelID),
		NetworkID:               nullInt(r.networkID),
		ServiceID:               nullInt(r.serviceID),
		EventID:                 nullInt(r.eventID),
		SeriesID:                nullInt(r.seriesID),
		SeriesBroadcastPeriodID: nullInt(r.seriesBroadcastPeriodID),
		Title:                   r.title,
		SeriesTitle:             nullString(r.seriesTitle),
		EpisodeNumber:           nullString(r.episodeNumber),
		Subtitle:                nullString(r.subtitle),
		Description:             r.description,
		Detail:                  detail,
		StartTime:               startTime,
		EndTime:                 endTime,
		Duration:                r.duration,
		IsFree:                  r.isFree != 0,
		Genres:                  genres,
		PrimaryAudioType:        r.primaryAudioType,
		PrimaryAudioLanguage:    r.primaryAudioLanguage,
		SecondaryAudioType:      nullString(r.secondaryAudioType),
		SecondaryAudioLanguage:  nullString(r.secondaryAudioLanguage),
		CreatedAt:               rpCreatedAt,
		UpdatedAt:               rpUpdatedAt,
	}

	if err := program.Validate(); err != nil {
		return nil, fmt.Errorf("program %d: %w", r.rpID, err)
	}
	return program, nil
}

func (r *programRow) toVideo() (*RecordedVideo, error) {
	fileCreatedAt, err := parseTime(r.fileCreatedAt)
	if err != nil {
		return nil, fmt.Errorf("video %d: file_created_at: %w", r.rvID, err)
	}
	fileModifiedAt, err := parseTime(r.fileModifiedAt)
	if err != nil {
		return nil, fmt.Errorf("video %d: file_modified_at: %w", r.rvID, err)
	}
	recStart, err := nullTime(r.recordingStartTime)
	if err != nil {
		return nil, fmt.Errorf("video %d: recording_start_time: %w", r.rvID, err)
	}
	recEnd, err := nullTime(r.recordingEndTime)
	if err != nil {
		return nil, fmt.Errorf("video %d: recording_end_time: %w", r.rvID, err)
	}
	createdAt, err := parseTime(r.rvCreatedAt)
	if err != nil {
		return nil, fmt.Errorf("video %d: created_at: %w", r.rvID, err)
	}
	updatedAt, err := parseTime(r.rvUpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("video %d: updated_at: %w", r.rvID, err)
	}

	// cm_sections stays nil when the source column is NULL: "not computed"
	// is distinct from a computed empty list.
	var cmSections []CMSection
	if r.cmSections.Valid {
		if err := json.Unmarshal([]byte(r.cmSections.String), &cmSections); err != nil {
			return nil, fmt.Errorf("video %d: malformed cm_sections JSON: %w", r.rvID, err)
		}
		if cmSections == nil {
			cmSections = []CMSection{}
		}
	}

	var fork *ForkRecordedVideo
	if r.commentCount.Valid {
		fork = &ForkRecordedVideo{CommentCount: r.commentCount.Int64}
	}

	return &RecordedVideo{
		ID:                         r.rvID,
		Status:                     r.status,
		FilePath:                   r.filePath,
		FileHash:                   r.fileHash,
		FileSize:                   r.fileSize,
		FileCreatedAt:              fileCreatedAt,
		FileModifiedAt:             fileModifiedAt,
		RecordingStartTime:         recStart,
		RecordingEndTime:           recEnd,
		Duration:                   r.videoDuration,
		ContainerFormat:            r.containerFormat,
		VideoCodec:                 r.videoCodec,
		VideoCodecProfile:          r.videoCodecProfile,
		VideoScanType:              r.videoScanType,
		VideoFrameRate:             r.videoFrameRate,
		VideoResolutionWidth:       r.videoResolutionWidth,
		VideoResolutionHeight:      r.videoResolutionHeight,
		PrimaryAudioCodec:          r.primaryAudioCodec,
		PrimaryAudioChannel:        r.primaryAudioChannel,
		PrimaryAudioSamplingRate:   r.primaryAudioSamplingRate,
		SecondaryAudioCodec:        nullString(r.secondaryAudioCodec),
		SecondaryAudioChannel:      nullString(r.secondaryAudioChannel),
		SecondaryAudioSamplingRate: nullInt(r.secondaryAudioSamplingRate),
		HasKeyFrames:               r.hasKeyFrames != 0,
		CMSections:                 cmSections,
		CreatedAt:                  createdAt,
		UpdatedAt:                  updatedAt,
		ForkRecordedVideo:          fork,
	}, nil
}

// toChannel builds the nested channel object, present iff the joined channel
// id is non-null. Boolean flags are coerced from integer truthiness.
func (r *programRow) toChannel() *Channel {
	if !r.chID.Valid {
		return nil
	}
	return &Channel{
		ID:                r.chID.String,
		DisplayChannelID:  r.displayChannelID.String,
		NetworkID:         r.chNetworkID.Int64,
		ServiceID:         r.chServiceID.Int64,
		TransportStreamID: nullInt(r.transportStreamID),
		RemoconID:         r.remoconID.Int64,
		ChannelNumber:     r.channelNumber.String,
		Type:              r.chType.String,
		Name:              r.chName.String,
		JikkyoForce:       nullInt(r.jikkyoForce),
		IsSubchannel:      r.isSubchannel.Int64 != 0,
		IsRadiochannel:    r.isRadiochannel.Int64 != 0,
		IsWatchable:       r.isWatchable.Int64 != 0,
	}
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

func nullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := parseTime(v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
