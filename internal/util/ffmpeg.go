package util

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// MediaInfo 上传视频的元数据
type MediaInfo struct {
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Format   string  `json:"format"`
	Codec    string  `json:"codec,omitempty"`
}

// ProbeMedia 使用 ffprobe 读取本地媒体文件信息
func ProbeMedia(path string) (*MediaInfo, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return ParseProbeOutput(out)
}

func ParseProbeOutput(out string) (*MediaInfo, error) {
	var result struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			CodecName string `json:"codec_name"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
			Format   string `json:"format_name"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		return nil, fmt.Errorf("解析视频信息失败: %w", err)
	}

	info := &MediaInfo{Format: "unknown"}
	for _, s := range result.Streams {
		if s.CodecType == "video" {
			info.Width, info.Height, info.Codec = s.Width, s.Height, s.CodecName
			break
		}
	}
	if d, err := strconv.ParseFloat(result.Format.Duration, 64); err == nil {
		info.Duration = d
	}
	if f, _, _ := strings.Cut(result.Format.Format, ","); f != "" {
		info.Format = f
	}
	return info, nil
}
